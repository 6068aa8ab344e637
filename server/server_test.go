package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/searchq/am"
	"github.com/teranos/searchq/completion"
	"github.com/teranos/searchq/errors"
	sqtest "github.com/teranos/searchq/internal/testing"
	"github.com/teranos/searchq/lsp"
	"github.com/teranos/searchq/storage"
)

func setupIndex(t *testing.T) *storage.MatchIndex {
	t.Helper()
	ctx := context.Background()

	idx, err := storage.NewMatchIndex(sqtest.CreateTestDB(t), nil)
	require.NoError(t, err)

	id, err := idx.AddRepository(ctx, storage.Repository{Name: "github.com/sourcegraph/jsonrpc2", DefaultBranch: "main"})
	require.NoError(t, err)
	require.NoError(t, idx.ReplaceFiles(ctx, id, []string{"conn.go", "jsonrpc2.go"}))
	return idx
}

func testConfig() *am.Config {
	return &am.Config{
		Server: am.ServerConfig{
			AllowedOrigins: []string{"http://localhost"},
		},
	}
}

func setupServer(t *testing.T, cfg *am.Config) *Server {
	t.Helper()
	idx := setupIndex(t)
	svc := lsp.NewService(idx, completion.Options{}, nil)
	return New(svc, idx, cfg, nil)
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func completionsFor(q string) string {
	return "/api/completions?q=" + url.QueryEscape(q)
}

func TestHandleCompletions(t *testing.T) {
	s := setupServer(t, testConfig())

	rec := get(t, s, completionsFor("repo:json"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CompletionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 6, resp.Column)

	var inserts []string
	for _, item := range resp.Items {
		inserts = append(inserts, item.InsertText)
	}
	assert.Contains(t, inserts, `^github\.com/sourcegraph/jsonrpc2$ `)
}

func TestHandleCompletions_EmptyIsArray(t *testing.T) {
	s := setupServer(t, testConfig())

	rec := get(t, s, completionsFor("foo and"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"column": 8, "items": []}`, rec.Body.String())
}

func TestHandleCompletions_FetchErrorRendersNothing(t *testing.T) {
	failing := completion.FetcherFunc(func(context.Context, completion.FetchRequest) ([]completion.SearchMatch, error) {
		return nil, errors.New("backend down")
	})
	s := New(lsp.NewService(failing, completion.Options{}, nil), nil, testConfig(), nil)

	rec := get(t, s, completionsFor("repo:json"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CompletionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Items)
}

func TestHandleCompletions_BadRequests(t *testing.T) {
	s := setupServer(t, testConfig())

	rec := get(t, s, "/api/completions?q=repo:&column=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "column must be a non-negative integer")

	req := httptest.NewRequest(http.MethodPost, "/api/completions?q=x", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleCompletions_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Server.CompletionRateLimit = 1
	cfg.Server.CompletionBurst = 1
	s := setupServer(t, cfg)

	assert.Equal(t, http.StatusOK, get(t, s, completionsFor("case:")).Code)

	rec := get(t, s, completionsFor("case:"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Other endpoints are not limited
	assert.Equal(t, http.StatusOK, get(t, s, "/health").Code)
}

func TestHandleHealth(t *testing.T) {
	s := setupServer(t, testConfig())

	rec := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Repositories)
	assert.Equal(t, 2, health.Files)
}

func TestHandleHealth_NoIndex(t *testing.T) {
	s := New(lsp.NewService(nil, completion.Options{}, nil), nil, testConfig(), nil)

	rec := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHandleDiagnostics(t *testing.T) {
	s := setupServer(t, testConfig())

	rec := get(t, s, "/api/diagnostics?q="+url.QueryEscape("langg:go"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Diagnostics []lsp.Diagnostic `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Diagnostics, 1)
	assert.Equal(t, lsp.CodeUnknownFilter, resp.Diagnostics[0].Code)
}

func TestHandleHover(t *testing.T) {
	s := setupServer(t, testConfig())

	rec := get(t, s, "/api/hover?q="+url.QueryEscape("case:yes")+"&column=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "case")

	rec = get(t, s, "/api/hover?q=plain")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORS(t *testing.T) {
	s := setupServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/completions", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApplyConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Server.CompletionRateLimit = 1
	cfg.Server.CompletionBurst = 1
	s := setupServer(t, cfg)

	reloaded := testConfig()
	reloaded.Server.AllowedOrigins = []string{"https://sourcegraph.example"}
	reloaded.Server.CompletionRateLimit = 100
	reloaded.Server.CompletionBurst = 100
	reloaded.Completion.Globbing = true
	require.NoError(t, s.applyConfig(reloaded))

	assert.True(t, s.svc.Options().Globbing)
	assert.Equal(t, 100, s.limiter.Burst())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://sourcegraph.example")
	assert.True(t, s.checkOrigin(req))
	req.Header.Set("Origin", "http://localhost")
	assert.False(t, s.checkOrigin(req))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{errors.NewNotFoundError("repo %s", "x"), http.StatusNotFound},
		{errors.NewInvalidRequestError("bad"), http.StatusBadRequest},
		{errors.Wrap(errors.ErrServiceUnavailable, "fetch"), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err, http.StatusInternalServerError))
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s := setupServer(t, testConfig())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout):
		t.Fatal("Serve did not return after cancel")
	}
	assert.Equal(t, ServerStateStopped, s.getState())
}
