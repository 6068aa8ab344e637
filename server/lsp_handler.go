package server

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"
	"go.uber.org/zap"

	"github.com/teranos/searchq/completion"
	"github.com/teranos/searchq/internal/util"
	"github.com/teranos/searchq/lsp"
	"github.com/teranos/searchq/version"
)

// LanguageServerName is reported in the initialize response
const LanguageServerName = "searchq"

// document is an open text document. hash is the xxhash of text as of the
// last published diagnostics.
type document struct {
	text    string
	version protocol.Integer
	hash    uint64
}

// GLSPHandler implements LSP protocol handlers over the language service.
// One handler serves one client connection.
type GLSPHandler struct {
	ctx       context.Context
	service   *lsp.Service
	logger    *zap.SugaredLogger
	documents *lru.Cache[protocol.DocumentUri, document] // least recently used evicted first
	mu        sync.Mutex                                 // serializes document updates
}

// NewGLSPHandler creates a handler holding at most maxDocuments open
// documents. ctx bounds every service call made on behalf of the client.
func NewGLSPHandler(ctx context.Context, service *lsp.Service, maxDocuments int, logger *zap.SugaredLogger) *GLSPHandler {
	if maxDocuments <= 0 {
		maxDocuments = DefaultMaxDocuments
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	h := &GLSPHandler{ctx: ctx, service: service, logger: logger}
	// lru.New only fails for a non-positive size
	h.documents, _ = lru.NewWithEvict(maxDocuments, func(uri protocol.DocumentUri, _ document) {
		h.logger.Debugw("Document evicted from cache", "uri", uri, "max_documents", maxDocuments)
	})
	return h
}

// ProtocolHandler returns the glsp dispatch table for this handler
func (h *GLSPHandler) ProtocolHandler() *protocol.Handler {
	return &protocol.Handler{
		Initialize:             h.Initialize,
		Initialized:            h.Initialized,
		Shutdown:               h.Shutdown,
		SetTrace:               h.SetTrace,
		TextDocumentDidOpen:    h.TextDocumentDidOpen,
		TextDocumentDidChange:  h.TextDocumentDidChange,
		TextDocumentDidClose:   h.TextDocumentDidClose,
		TextDocumentCompletion: h.TextDocumentCompletion,
		TextDocumentHover:      h.TextDocumentHover,
	}
}

// NewLanguageServer wraps h in a glsp server ready for stdio, TCP or
// WebSocket serving.
func NewLanguageServer(h *GLSPHandler, debug bool) *glspserver.Server {
	return glspserver.NewServer(h.ProtocolHandler(), LanguageServerName, debug)
}

// Initialize handles LSP initialize request
func (h *GLSPHandler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	h.logger.Infow("LSP client initializing", "client", params.ClientInfo)

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities := protocol.ServerCapabilities{
		CompletionProvider: &protocol.CompletionOptions{
			// ':' after a filter name, ' ' between terms, '(' in predicates
			TriggerCharacters: []string{":", " ", "("},
		},
		HoverProvider: true,
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: util.Ptr(true),
			Change:    &syncKind,
		},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    LanguageServerName,
			Version: util.Ptr(version.Get().Version),
		},
	}, nil
}

// Initialized is called after client receives InitializeResult
func (h *GLSPHandler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	h.logger.Infow("LSP client initialized successfully")
	return nil
}

// Shutdown handles LSP shutdown request
func (h *GLSPHandler) Shutdown(ctx *glsp.Context) error {
	h.logger.Infow("LSP client shutting down", "open_documents", h.documents.Len())
	h.documents.Purge()
	return nil
}

// SetTrace accepts $/setTrace so clients that send it get no error
func (h *GLSPHandler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// TextDocumentDidOpen caches the document and publishes its diagnostics
func (h *GLSPHandler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	h.logger.Debugw("Document opened",
		"uri", uri,
		"length", len(params.TextDocument.Text),
	)
	h.update(ctx, uri, params.TextDocument.Version, params.TextDocument.Text)
	return nil
}

// TextDocumentDidChange replaces the document text (full sync) and
// republishes diagnostics when the text actually changed.
func (h *GLSPHandler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	for _, change := range params.ContentChanges {
		// Full sync only: ranged (incremental) changes are never negotiated
		if whole, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			h.update(ctx, uri, params.TextDocument.Version, whole.Text)
		}
	}
	return nil
}

// TextDocumentDidClose drops the document and clears its diagnostics
func (h *GLSPHandler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	h.documents.Remove(uri)
	h.logger.Debugw("Document closed", "uri", uri)
	h.publish(ctx, uri, []protocol.Diagnostic{})
	return nil
}

// update stores text for uri and publishes diagnostics if its hash changed
func (h *GLSPHandler) update(ctx *glsp.Context, uri protocol.DocumentUri, ver protocol.Integer, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	hash := xxhash.Sum64String(text)
	prev, ok := h.documents.Get(uri)
	h.documents.Add(uri, document{text: text, version: ver, hash: hash})
	if ok && prev.hash == hash {
		return
	}
	h.publish(ctx, uri, h.diagnostics(text))
}

// text returns the cached document text
func (h *GLSPHandler) text(uri protocol.DocumentUri) (string, bool) {
	doc, ok := h.documents.Get(uri)
	return doc.text, ok
}

func (h *GLSPHandler) diagnostics(text string) []protocol.Diagnostic {
	resp, err := h.service.Parse(h.ctx, text)
	if err != nil {
		h.logger.Warnw("Failed to parse for diagnostics", "error", err)
		return []protocol.Diagnostic{}
	}
	out := make([]protocol.Diagnostic, 0, len(resp.Diagnostics))
	for _, d := range resp.Diagnostics {
		out = append(out, protocol.Diagnostic{
			Range:    rangeAt(text, d.Range.Start, d.Range.End),
			Severity: mapSeverity(d.Severity),
			Source:   util.Ptr(LanguageServerName),
			Message:  d.Message,
		})
	}
	return out
}

func (h *GLSPHandler) publish(ctx *glsp.Context, uri protocol.DocumentUri, diags []protocol.Diagnostic) {
	if ctx == nil || ctx.Notify == nil {
		return
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

// TextDocumentCompletion provides completions for the token under the cursor
func (h *GLSPHandler) TextDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (result any, err error) {
	// Panic recovery: if completion logic panics, return empty list instead of crashing
	defer func() {
		if r := recover(); r != nil {
			h.logger.Errorw("Panic in completion handler",
				"panic", r,
				"uri", params.TextDocument.URI,
			)
			result = protocol.CompletionList{Items: []protocol.CompletionItem{}}
			err = nil
		}
	}()

	uri := params.TextDocument.URI
	text, ok := h.text(uri)
	if !ok {
		return protocol.CompletionList{Items: []protocol.CompletionItem{}}, nil
	}

	cursor := offsetAt(text, params.Position)
	h.logger.Debugw("LSP completion",
		"uri", uri,
		"line", params.Position.Line,
		"cursor", cursor,
	)

	list, err := h.service.GetCompletions(h.ctx, lsp.CompletionRequest{
		Query:   text,
		Column:  cursor + 1,
		Trigger: triggerKind(params.Context),
	})
	if err != nil {
		// Already logged by the service; the editor just shows nothing
		return protocol.CompletionList{Items: []protocol.CompletionItem{}}, nil
	}

	items := toProtocolItems(text, list, cursor)
	h.logger.Debugw("LSP completion result", "count", len(items))

	return protocol.CompletionList{
		// Dynamic values depend on the typed prefix, so ask to be re-queried
		IsIncomplete: true,
		Items:        items,
	}, nil
}

// TextDocumentHover describes the filter or predicate under the cursor
func (h *GLSPHandler) TextDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (result *protocol.Hover, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Errorw("Panic in hover handler",
				"panic", r,
				"uri", params.TextDocument.URI,
			)
			result = nil
			err = nil
		}
	}()

	text, ok := h.text(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	hover, err := h.service.Hover(h.ctx, text, offsetAt(text, params.Position)+1)
	if err != nil || hover == nil {
		return nil, nil
	}

	r := rangeAt(text, hover.Range.Start, hover.Range.End)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: hover.Contents,
		},
		Range: &r,
	}, nil
}

// toProtocolItems converts a completion list, replacing text from the list's
// anchor column up to the cursor.
func toProtocolItems(text string, list *completion.CompletionList, cursor int) []protocol.CompletionItem {
	if list == nil {
		return []protocol.CompletionItem{}
	}
	start := list.Column - 1
	if start < 0 || start > cursor {
		start = cursor
	}
	replace := rangeAt(text, start, cursor)

	items := make([]protocol.CompletionItem, len(list.Items))
	for i, item := range list.Items {
		format := protocol.InsertTextFormatPlainText
		if item.Snippet {
			format = protocol.InsertTextFormatSnippet
		}
		items[i] = protocol.CompletionItem{
			Label:            item.Label,
			Kind:             mapCompletionKind(item.Kind),
			Detail:           stringPtrOrNil(item.Detail),
			SortText:         stringPtrOrNil(item.SortText),
			FilterText:       stringPtrOrNil(item.FilterText),
			InsertText:       stringPtrOrNil(item.InsertText),
			InsertTextFormat: &format,
			TextEdit: protocol.TextEdit{
				Range:   replace,
				NewText: item.InsertText,
			},
		}
	}
	return items
}

func triggerKind(ctx *protocol.CompletionContext) string {
	if ctx == nil {
		return "manual"
	}
	switch ctx.TriggerKind {
	case protocol.CompletionTriggerKindTriggerCharacter:
		return "character"
	case protocol.CompletionTriggerKindTriggerForIncompleteCompletions:
		return "auto"
	default:
		return "manual"
	}
}

func stringPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// mapCompletionKind maps completion kinds to LSP CompletionItemKind
func mapCompletionKind(kind completion.Kind) *protocol.CompletionItemKind {
	var k protocol.CompletionItemKind
	switch kind {
	case completion.KindFilter:
		k = protocol.CompletionItemKindProperty
	case completion.KindValue:
		k = protocol.CompletionItemKindValue
	case completion.KindSnippet:
		k = protocol.CompletionItemKindSnippet
	case completion.KindRepository, completion.KindModule:
		k = protocol.CompletionItemKindModule
	case completion.KindFile:
		k = protocol.CompletionItemKindFile
	case completion.KindFunction:
		k = protocol.CompletionItemKindFunction
	case completion.KindMethod:
		k = protocol.CompletionItemKindMethod
	case completion.KindClass:
		k = protocol.CompletionItemKindClass
	case completion.KindStruct:
		k = protocol.CompletionItemKindStruct
	case completion.KindInterface:
		k = protocol.CompletionItemKindInterface
	case completion.KindVariable:
		k = protocol.CompletionItemKindVariable
	case completion.KindConstant:
		k = protocol.CompletionItemKindConstant
	case completion.KindField:
		k = protocol.CompletionItemKindField
	case completion.KindEnum:
		k = protocol.CompletionItemKindEnum
	default:
		k = protocol.CompletionItemKindText
	}
	return &k
}

func mapSeverity(s lsp.Severity) *protocol.DiagnosticSeverity {
	var sev protocol.DiagnosticSeverity
	switch s {
	case lsp.SeverityError:
		sev = protocol.DiagnosticSeverityError
	case lsp.SeverityWarning:
		sev = protocol.DiagnosticSeverityWarning
	case lsp.SeverityInfo:
		sev = protocol.DiagnosticSeverityInformation
	default:
		sev = protocol.DiagnosticSeverityHint
	}
	return &sev
}
