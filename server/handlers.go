package server

import (
	"net/http"
	"strconv"

	"github.com/teranos/searchq/completion"
	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/lsp"
	"github.com/teranos/searchq/version"
)

// HandleHealth reports server state and index size
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	info := version.Get()
	health := HealthResponse{
		Status:   "ok",
		State:    stateString(s.getState()),
		Version:  info.Version,
		Commit:   info.Short(),
		Sessions: s.sessions.Load(),
	}

	if s.stats != nil {
		stats, err := s.stats.Stats(r.Context())
		if err != nil {
			s.logger.Warnw("Health check could not read index stats", "error", err)
			health.Status = "degraded"
		} else {
			health.Repositories = stats.Repositories
			health.Files = stats.Files
			health.Symbols = stats.Symbols
		}
	}

	writeJSON(w, http.StatusOK, health)
}

// HandleCompletions serves GET /api/completions?q=<query>&column=<n>.
// column is 1-based and defaults to the end of the query. Fetch failures
// are logged and answered with an empty list.
func (s *Server) HandleCompletions(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query().Get("q")
	column, err := columnParam(r)
	if err != nil {
		writeWrappedError(w, s.logger, err, "invalid completion request", http.StatusBadRequest)
		return
	}

	resp := CompletionResponse{Column: column, Items: []completion.CompletionItem{}}
	list, err := s.svc.GetCompletions(r.Context(), lsp.CompletionRequest{Query: q, Column: column, Trigger: "manual"})
	if err != nil {
		s.logger.Warnw("Completion request failed, returning no suggestions", "error", err)
	} else if list != nil {
		resp.Column = list.Column
		resp.Items = list.Items
	}
	if resp.Column == 0 {
		resp.Column = len(q) + 1
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleDiagnostics serves GET /api/diagnostics?q=<query>
func (s *Server) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	resp, err := s.svc.Parse(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeWrappedError(w, s.logger, err, "parse query", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleHover serves GET /api/hover?q=<query>&column=<n>; 204 when there is
// nothing to describe.
func (s *Server) HandleHover(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	column, err := columnParam(r)
	if err != nil {
		writeWrappedError(w, s.logger, err, "invalid hover request", http.StatusBadRequest)
		return
	}
	hover, err := s.svc.Hover(r.Context(), r.URL.Query().Get("q"), column)
	if err != nil {
		writeWrappedError(w, s.logger, err, "hover", http.StatusInternalServerError)
		return
	}
	if hover == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, hover)
}

// columnParam parses the optional 1-based column parameter; 0 means end of query
func columnParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("column")
	if raw == "" {
		return 0, nil
	}
	column, err := strconv.Atoi(raw)
	if err != nil || column < 0 {
		return 0, errors.NewInvalidRequestError("column must be a non-negative integer, got %q", raw)
	}
	return column, nil
}
