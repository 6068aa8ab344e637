// Package server exposes the query language service over LSP (stdio, TCP,
// WebSocket), a JSON HTTP API and MCP.
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/teranos/searchq/am"
	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/lsp"
	"github.com/teranos/searchq/storage"
)

// StatsSource reports index contents for /health
type StatsSource interface {
	Stats(ctx context.Context) (storage.Stats, error)
}

// Server serves completions over HTTP and LSP-over-WebSocket
type Server struct {
	svc     *lsp.Service
	stats   StatsSource // nil when no index is attached
	logger  *zap.SugaredLogger
	limiter *rate.Limiter // nil = unlimited

	allowedOrigins atomic.Pointer[[]string]
	maxDocuments   int

	sessions atomic.Int64
	state    atomic.Int32

	configPath    string
	configWatcher *am.ConfigWatcher

	httpServer *http.Server
}

// New creates a server for svc configured from cfg. stats may be nil.
func New(svc *lsp.Service, stats StatsSource, cfg *am.Config, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{
		svc:          svc,
		stats:        stats,
		logger:       logger.Named("server"),
		maxDocuments: cfg.Server.MaxDocuments,
	}
	if s.maxDocuments <= 0 {
		s.maxDocuments = DefaultMaxDocuments
	}
	if cfg.Server.CompletionRateLimit > 0 {
		s.limiter = rate.NewLimiter(rateLimit(cfg.Server.CompletionRateLimit), cfg.Server.CompletionBurst)
	}
	origins := cfg.GetServerAllowedOrigins()
	s.allowedOrigins.Store(&origins)
	return s
}

// WatchConfig enables hot reload of completion options from path.
// Must be called before Run.
func (s *Server) WatchConfig(path string) {
	s.configPath = path
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/lsp", s.corsMiddleware(s.HandleLSPWebSocket))
	mux.HandleFunc("/health", s.corsMiddleware(s.HandleHealth))
	mux.HandleFunc("/api/completions", s.corsMiddleware(s.rateLimited(s.HandleCompletions)))
	mux.HandleFunc("/api/diagnostics", s.corsMiddleware(s.HandleDiagnostics))
	mux.HandleFunc("/api/hover", s.corsMiddleware(s.HandleHover))
	return mux
}

// Run listens on port (or the next free fallback) and serves until ctx is
// canceled.
func (s *Server) Run(ctx context.Context, port int) error {
	actualPort, err := findAvailablePort(port)
	if err != nil {
		return errors.Wrap(err, "failed to find available port")
	}
	if actualPort != port {
		s.logger.Infow("Port in use, using alternative",
			"requested_port", port,
			"actual_port", actualPort,
		)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(actualPort)))
	if err != nil {
		return errors.Wrapf(err, "failed to listen on port %d", actualPort)
	}
	return s.Serve(ctx, ln)
}

// Serve serves HTTP on ln until ctx is canceled, then drains in-flight
// requests for up to ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
	}

	if err := s.startConfigWatcher(); err != nil {
		s.logger.Warnw("Config hot reload disabled", "path", s.configPath, "error", err)
	}

	s.setState(ServerStateRunning)
	s.logger.Infow("Server ready", "addr", ln.Addr().String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return s.Stop()
	})
	return g.Wait()
}
