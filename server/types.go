package server

import (
	"time"

	"github.com/teranos/searchq/completion"
)

const (
	// ShutdownTimeout is how long Run waits for in-flight requests on shutdown
	ShutdownTimeout = 10 * time.Second

	// DefaultMaxDocuments bounds each LSP connection's document cache when
	// server.max_documents is unset
	DefaultMaxDocuments = 100

	// ReadHeaderTimeout guards against slow-header clients
	ReadHeaderTimeout = 5 * time.Second
)

// ServerState represents the server lifecycle state
type ServerState int

const (
	ServerStateRunning  ServerState = iota // Normal operation
	ServerStateDraining                    // Graceful shutdown in progress
	ServerStateStopped                     // Shutdown complete
)

// HealthResponse is served by /health
type HealthResponse struct {
	Status       string `json:"status"`
	State        string `json:"server_state"`
	Version      string `json:"version"`
	Commit       string `json:"commit"`
	Repositories int    `json:"repositories"`
	Files        int    `json:"files"`
	Symbols      int    `json:"symbols"`
	Sessions     int64  `json:"lsp_sessions"`
}

// CompletionResponse is served by /api/completions
type CompletionResponse struct {
	Column int                         `json:"column"`
	Items  []completion.CompletionItem `json:"items"`
}
