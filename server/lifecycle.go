package server

import (
	"context"

	"github.com/teranos/searchq/am"
	"github.com/teranos/searchq/errors"
)

// getState returns the current server state
func (s *Server) getState() ServerState {
	return ServerState(s.state.Load())
}

// setState atomically updates the server state
func (s *Server) setState(newState ServerState) {
	s.state.Store(int32(newState))
	s.logger.Infow("Server state changed", "new_state", stateString(newState))
}

// stateString returns human-readable state name
func stateString(state ServerState) string {
	switch state {
	case ServerStateRunning:
		return "running"
	case ServerStateDraining:
		return "draining"
	case ServerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// startConfigWatcher hot reloads completion options and the rate limit
// when the watched config file changes.
func (s *Server) startConfigWatcher() error {
	if s.configPath == "" {
		return nil
	}
	w, err := am.NewConfigWatcher(s.configPath)
	if err != nil {
		return err
	}
	w.OnReload(s.applyConfig)
	am.SetGlobalWatcher(w)
	w.Start()
	s.configWatcher = w
	s.logger.Infow("Watching config for changes", "path", s.configPath)
	return nil
}

// applyConfig swaps in reloadable settings. Port and database path need a
// restart.
func (s *Server) applyConfig(cfg *am.Config) error {
	s.svc.SetOptions(cfg.Completion.Options())

	origins := cfg.GetServerAllowedOrigins()
	s.allowedOrigins.Store(&origins)

	if s.limiter != nil && cfg.Server.CompletionRateLimit > 0 {
		s.limiter.SetLimit(rateLimit(cfg.Server.CompletionRateLimit))
		s.limiter.SetBurst(cfg.Server.CompletionBurst)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server and config watcher
func (s *Server) Stop() error {
	if s.getState() == ServerStateStopped {
		return nil
	}
	s.logger.Infow("Initiating server shutdown")
	s.setState(ServerStateDraining)

	var shutdownErr error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			shutdownErr = errors.Wrap(err, "http shutdown")
			s.logger.Warnw("HTTP shutdown did not complete cleanly", "error", err)
		}
	}

	if s.configWatcher != nil {
		if err := s.configWatcher.Stop(); err != nil {
			s.logger.Warnw("Failed to stop config watcher", "error", err)
		} else {
			s.logger.Infow("Config watcher stopped")
		}
		am.SetGlobalWatcher(nil)
	}

	s.setState(ServerStateStopped)
	s.logger.Infow("Server shutdown complete")
	return shutdownErr
}
