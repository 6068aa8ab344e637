package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/teranos/searchq/completion"
	"github.com/teranos/searchq/lsp"
)

type notification struct {
	method string
	params any
}

// recordingContext captures server-to-client notifications
func recordingContext() (*glsp.Context, *[]notification) {
	var sent []notification
	return &glsp.Context{
		Notify: func(method string, params any) {
			sent = append(sent, notification{method, params})
		},
	}, &sent
}

func setupHandler(t *testing.T, maxDocuments int) *GLSPHandler {
	t.Helper()
	svc := lsp.NewService(setupIndex(t), completion.Options{}, nil)
	return NewGLSPHandler(context.Background(), svc, maxDocuments, nil)
}

func open(t *testing.T, h *GLSPHandler, ctx *glsp.Context, uri, text string) {
	t.Helper()
	require.NoError(t, h.TextDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: protocol.DocumentUri(uri), LanguageID: "sourcegraph", Version: 1, Text: text},
	}))
}

func change(t *testing.T, h *GLSPHandler, ctx *glsp.Context, uri, text string) {
	t.Helper()
	params := &protocol.DidChangeTextDocumentParams{
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: text}},
	}
	params.TextDocument.URI = protocol.DocumentUri(uri)
	params.TextDocument.Version = 2
	require.NoError(t, h.TextDocumentDidChange(ctx, params))
}

func diagnosticsOf(t *testing.T, n notification) []protocol.Diagnostic {
	t.Helper()
	require.Equal(t, protocol.ServerTextDocumentPublishDiagnostics, n.method)
	params, ok := n.params.(protocol.PublishDiagnosticsParams)
	require.True(t, ok)
	return params.Diagnostics
}

func TestGLSPHandler_DocumentSyncPublishesDiagnostics(t *testing.T) {
	h := setupHandler(t, 10)
	ctx, sent := recordingContext()

	open(t, h, ctx, "file:///q", "langg:go")
	require.Len(t, *sent, 1)
	diags := diagnosticsOf(t, (*sent)[0])
	require.Len(t, diags, 1)
	assert.Equal(t, protocol.DiagnosticSeverityWarning, *diags[0].Severity)
	assert.Equal(t, protocol.Position{Line: 0, Character: 0}, diags[0].Range.Start)

	// Same text: hash unchanged, nothing republished
	change(t, h, ctx, "file:///q", "langg:go")
	assert.Len(t, *sent, 1)

	change(t, h, ctx, "file:///q", "lang:go")
	require.Len(t, *sent, 2)
	assert.Empty(t, diagnosticsOf(t, (*sent)[1]))

	require.NoError(t, h.TextDocumentDidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///q"},
	}))
	require.Len(t, *sent, 3)
	assert.Empty(t, diagnosticsOf(t, (*sent)[2]))
	_, ok := h.text("file:///q")
	assert.False(t, ok)
}

func TestGLSPHandler_DocumentCacheIsBounded(t *testing.T) {
	h := setupHandler(t, 2)
	ctx, _ := recordingContext()

	open(t, h, ctx, "file:///a", "repo:a")
	open(t, h, ctx, "file:///b", "repo:b")
	open(t, h, ctx, "file:///c", "repo:c")

	assert.Equal(t, 2, h.documents.Len())
	_, ok := h.text("file:///a")
	assert.False(t, ok, "least recently used document is evicted")
	_, ok = h.text("file:///c")
	assert.True(t, ok)
}

func completionAt(t *testing.T, h *GLSPHandler, uri string, pos protocol.Position) protocol.CompletionList {
	t.Helper()
	params := &protocol.CompletionParams{}
	params.TextDocument.URI = protocol.DocumentUri(uri)
	params.Position = pos
	result, err := h.TextDocumentCompletion(nil, params)
	require.NoError(t, err)
	list, ok := result.(protocol.CompletionList)
	require.True(t, ok)
	return list
}

func TestGLSPHandler_Completion(t *testing.T) {
	h := setupHandler(t, 10)
	ctx, _ := recordingContext()
	open(t, h, ctx, "file:///q", "repo:json")

	list := completionAt(t, h, "file:///q", protocol.Position{Line: 0, Character: 9})
	require.NotEmpty(t, list.Items)

	var found *protocol.CompletionItem
	for i := range list.Items {
		if list.Items[i].Label == "github.com/sourcegraph/jsonrpc2" {
			found = &list.Items[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, protocol.CompletionItemKindModule, *found.Kind)
	assert.Equal(t, protocol.InsertTextFormatPlainText, *found.InsertTextFormat)

	edit, ok := found.TextEdit.(protocol.TextEdit)
	require.True(t, ok)
	assert.Equal(t, `^github\.com/sourcegraph/jsonrpc2$ `, edit.NewText)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 5},
		End:   protocol.Position{Line: 0, Character: 9},
	}, edit.Range)
}

func TestGLSPHandler_CompletionSnippets(t *testing.T) {
	h := setupHandler(t, 10)
	ctx, _ := recordingContext()
	open(t, h, ctx, "file:///q", "repo:contains.f")

	list := completionAt(t, h, "file:///q", protocol.Position{Line: 0, Character: 15})
	require.NotEmpty(t, list.Items)
	assert.Equal(t, protocol.InsertTextFormatSnippet, *list.Items[0].InsertTextFormat)
	assert.Equal(t, protocol.CompletionItemKindSnippet, *list.Items[0].Kind)
}

func TestGLSPHandler_CompletionUnknownDocument(t *testing.T) {
	h := setupHandler(t, 10)
	list := completionAt(t, h, "file:///missing", protocol.Position{})
	assert.Empty(t, list.Items)
}

func TestGLSPHandler_Hover(t *testing.T) {
	h := setupHandler(t, 10)
	ctx, _ := recordingContext()
	open(t, h, ctx, "file:///q", "foo\ncase:yes")

	params := &protocol.HoverParams{}
	params.TextDocument.URI = "file:///q"
	params.Position = protocol.Position{Line: 1, Character: 1}
	hover, err := h.TextDocumentHover(nil, params)
	require.NoError(t, err)
	require.NotNil(t, hover)

	content, ok := hover.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Contains(t, content.Value, "**case**")
	assert.Equal(t, protocol.UInteger(1), hover.Range.Start.Line)

	params.Position = protocol.Position{Line: 0, Character: 1}
	hover, err = h.TextDocumentHover(nil, params)
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestPositionConversion(t *testing.T) {
	text := "repo:a\nfile:b\n"

	assert.Equal(t, 0, offsetAt(text, protocol.Position{Line: 0, Character: 0}))
	assert.Equal(t, 9, offsetAt(text, protocol.Position{Line: 1, Character: 2}))
	assert.Equal(t, 13, offsetAt(text, protocol.Position{Line: 1, Character: 99}), "clamps to end of line")
	assert.Equal(t, len(text), offsetAt(text, protocol.Position{Line: 5, Character: 0}))

	assert.Equal(t, protocol.Position{Line: 1, Character: 2}, positionAt(text, 9))
	assert.Equal(t, protocol.Position{Line: 0, Character: 6}, positionAt(text, 6))
	assert.Equal(t, protocol.Position{Line: 2, Character: 0}, positionAt(text, 100))
}

func TestPositionConversion_UTF16(t *testing.T) {
	// é is 2 bytes and 1 unit; the emoji is 4 bytes and 2 units
	text := "file:é\U0001F600x\nrepo:y"

	assert.Equal(t, 5, offsetAt(text, protocol.Position{Line: 0, Character: 5}))
	assert.Equal(t, 7, offsetAt(text, protocol.Position{Line: 0, Character: 6}))
	assert.Equal(t, 11, offsetAt(text, protocol.Position{Line: 0, Character: 8}))
	assert.Equal(t, 7, offsetAt(text, protocol.Position{Line: 0, Character: 7}), "inside a surrogate pair")
	assert.Equal(t, 12, offsetAt(text, protocol.Position{Line: 0, Character: 50}))
	assert.Equal(t, 15, offsetAt(text, protocol.Position{Line: 1, Character: 2}))

	assert.Equal(t, protocol.Position{Line: 0, Character: 6}, positionAt(text, 7))
	assert.Equal(t, protocol.Position{Line: 0, Character: 8}, positionAt(text, 11))
	assert.Equal(t, protocol.Position{Line: 0, Character: 9}, positionAt(text, 12))
	assert.Equal(t,
		protocol.Range{Start: protocol.Position{Line: 0, Character: 5}, End: protocol.Position{Line: 0, Character: 9}},
		rangeAt(text, 5, 12))
}

// readUntil reads JSON-RPC messages until match accepts one
func readUntil(t *testing.T, conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func hasID(id float64) func(map[string]any) bool {
	return func(msg map[string]any) bool {
		v, ok := msg["id"].(float64)
		return ok && v == id
	}
}

func TestLSPWebSocket_RoundTrip(t *testing.T) {
	s := setupServer(t, testConfig())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/lsp"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"processId":    nil,
			"clientInfo":   map[string]any{"name": "TestClient", "version": "1.0"},
			"capabilities": map[string]any{},
		},
	}))
	initResponse := readUntil(t, conn, hasID(1))
	result := initResponse["result"].(map[string]any)
	capabilities := result["capabilities"].(map[string]any)
	assert.NotNil(t, capabilities["completionProvider"])
	assert.NotNil(t, capabilities["hoverProvider"])

	require.NoError(t, conn.WriteJSON(map[string]any{
		"jsonrpc": "2.0",
		"method":  "initialized",
		"params":  map[string]any{},
	}))

	require.NoError(t, conn.WriteJSON(map[string]any{
		"jsonrpc": "2.0",
		"method":  "textDocument/didOpen",
		"params": map[string]any{
			"textDocument": map[string]any{
				"uri":        "inmemory://query",
				"languageId": "sourcegraph",
				"version":    1,
				"text":       "repo:json",
			},
		},
	}))
	readUntil(t, conn, func(msg map[string]any) bool {
		return msg["method"] == protocol.ServerTextDocumentPublishDiagnostics
	})

	require.NoError(t, conn.WriteJSON(map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "textDocument/completion",
		"params": map[string]any{
			"textDocument": map[string]any{"uri": "inmemory://query"},
			"position":     map[string]any{"line": 0, "character": 9},
		},
	}))
	completionResponse := readUntil(t, conn, hasID(2))
	list := completionResponse["result"].(map[string]any)
	items := list["items"].([]any)
	require.NotEmpty(t, items)

	var labels []string
	for _, item := range items {
		labels = append(labels, item.(map[string]any)["label"].(string))
	}
	assert.Contains(t, labels, "github.com/sourcegraph/jsonrpc2")

	require.NoError(t, conn.WriteJSON(map[string]any{
		"jsonrpc": "2.0",
		"id":      3,
		"method":  "shutdown",
	}))
	readUntil(t, conn, hasID(3))
}

func TestLSPWebSocket_RejectsForeignOrigin(t *testing.T) {
	s := setupServer(t, testConfig())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	header := map[string][]string{"Origin": {"https://evil.example"}}
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/lsp"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}
