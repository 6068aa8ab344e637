// Package lsp provides language intelligence for search queries: diagnostics,
// hover and completion over a raw query string and cursor. Transports in
// package server expose it over LSP, HTTP and MCP.
package lsp

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/teranos/searchq/completion"
	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/query"
)

// Service answers completion, hover and diagnostic requests.
// Options may be swapped at runtime with SetOptions.
type Service struct {
	fetcher completion.Fetcher
	opts    atomic.Pointer[completion.Options]
	logger  *zap.SugaredLogger
}

// NewService creates a language service. fetcher may be nil, in which case
// only static suggestions are offered.
func NewService(fetcher completion.Fetcher, opts completion.Options, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Service{fetcher: fetcher, logger: logger}
	s.opts.Store(&opts)
	return s
}

// Options returns the options in effect
func (s *Service) Options() completion.Options {
	return *s.opts.Load()
}

// SetOptions replaces the completion options for subsequent requests
func (s *Service) SetOptions(opts completion.Options) {
	s.opts.Store(&opts)
	s.logger.Infow("Completion options updated",
		"sourcegraph_dot_com", opts.IsSourcegraphDotCom,
		"globbing", opts.Globbing,
		"max_results", opts.MaxResults,
	)
}

// CompletionRequest represents a completion request
type CompletionRequest struct {
	Query string `json:"query"`
	// Column is the 1-based cursor column; zero or out of range means the end of the query
	Column  int    `json:"column,omitempty"`
	Trigger string `json:"trigger,omitempty"` // "manual", "auto", "character"
}

// GetCompletions returns suggestions for the token under the cursor.
// A nil list means nothing applies at that position.
func (s *Service) GetCompletions(ctx context.Context, req CompletionRequest) (*completion.CompletionList, error) {
	column := clampColumn(req.Query, req.Column)
	tokens := query.Scan(req.Query)
	tok := query.TokenAt(tokens, column)

	list, err := completion.GetCompletionItems(ctx, tok, column, s.fetcher, s.Options())
	if err != nil {
		s.logger.Warnw("Completion fetch failed",
			"query", req.Query,
			"column", column,
			"error", err,
		)
		return nil, errors.Wrap(err, "get completions")
	}

	count := 0
	if list != nil {
		count = len(list.Items)
	}
	s.logger.Debugw("Completions",
		"query", req.Query,
		"column", column,
		"trigger", req.Trigger,
		"items", count,
	)
	return list, nil
}

func clampColumn(q string, column int) int {
	if column <= 0 || column > len(q)+1 {
		return len(q) + 1
	}
	return column
}
