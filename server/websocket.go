package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/teranos/searchq/errors"
)

// HandleLSPWebSocket upgrades HTTP to WebSocket and serves LSP on it. Each
// connection gets its own handler and document cache.
func (s *Server) HandleLSPWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.NewString()
	log := s.logger.With("session", sessionID[:8])
	log.Infow("LSP WebSocket connection request", "remote", r.RemoteAddr)

	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		log.Warnw("Failed to upgrade WebSocket", "error", err)
		return
	}

	s.sessions.Add(1)
	defer s.sessions.Add(-1)

	// The request context ends when the handler returns, after the
	// connection closes.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	handler := NewGLSPHandler(ctx, s.svc, s.maxDocuments, log)
	NewLanguageServer(handler, false).ServeWebSocket(conn)

	log.Infow("LSP WebSocket connection closed", "remote", r.RemoteAddr)
}

// ServeStdio serves a single LSP client on stdin/stdout until it exits.
// debug logs every JSON-RPC message.
func ServeStdio(h *GLSPHandler, debug bool) error {
	if err := NewLanguageServer(h, debug).RunStdio(); err != nil {
		return errors.Wrap(err, "serve lsp on stdio")
	}
	return nil
}

// ServeTCP accepts LSP clients on address until the listener fails. Clients
// share h and its document cache.
func ServeTCP(h *GLSPHandler, address string, debug bool) error {
	if err := NewLanguageServer(h, debug).RunTCP(address); err != nil {
		return errors.Wrapf(err, "serve lsp on %s", address)
	}
	return nil
}
