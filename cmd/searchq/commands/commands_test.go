package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/teranos/searchq/am"
	"github.com/teranos/searchq/completion"
	"github.com/teranos/searchq/ingest"
	"github.com/teranos/searchq/lsp"
	"github.com/teranos/searchq/query"
	"github.com/teranos/searchq/storage"
)

// isolate points config loading at an empty home and the index at a temp file
func isolate(t *testing.T) string {
	t.Helper()
	pterm.DisableColor()
	t.Setenv("HOME", t.TempDir())
	am.Reset()
	t.Cleanup(am.Reset)

	dbPathFlag = filepath.Join(t.TempDir(), "searchq.db")
	t.Cleanup(func() { dbPathFlag = "" })
	return dbPathFlag
}

func seed(t *testing.T) {
	t.Helper()
	cfg, err := loadConfig()
	require.NoError(t, err)
	database, idx, err := openIndex(cfg)
	require.NoError(t, err)
	defer database.Close()

	ctx := context.Background()
	id, err := idx.AddRepository(ctx, storage.Repository{Name: "github.com/sourcegraph/jsonrpc2", DefaultBranch: "main"})
	require.NoError(t, err)
	require.NoError(t, idx.ReplaceFiles(ctx, id, []string{"conn.go", "jsonrpc2.go"}))
}

func TestWriteFormatted(t *testing.T) {
	list := &completion.CompletionList{Column: 6, Items: []completion.CompletionItem{
		{Label: "go", InsertText: "go ", Kind: completion.KindEnum, SortText: "0000"},
	}}

	var buf bytes.Buffer
	require.NoError(t, writeFormatted(&buf, FormatJSON, list))
	var decoded completion.CompletionList
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *list, decoded)

	buf.Reset()
	require.NoError(t, writeFormatted(&buf, FormatYAML, list))
	var fromYAML map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, 6, fromYAML["column"])
	items := fromYAML["items"].([]interface{})
	assert.Equal(t, "go ", items[0].(map[string]interface{})["insert_text"])

	assert.Error(t, writeFormatted(&buf, "xml", list))
}

func TestParseSettingValue(t *testing.T) {
	assert.Equal(t, true, parseSettingValue("true"))
	assert.Equal(t, int64(3434), parseSettingValue("3434"))
	assert.Equal(t, 2.5, parseSettingValue("2.5"))
	assert.Equal(t, "searchq.db", parseSettingValue("searchq.db"))
}

func TestComplete_NilListBecomesEmpty(t *testing.T) {
	none := completion.FetcherFunc(func(context.Context, completion.FetchRequest) ([]completion.SearchMatch, error) {
		return nil, nil
	})
	svc := lsp.NewService(none, completion.Options{}, nil)

	list, err := complete(context.Background(), svc, "foo and", 0)
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Equal(t, 8, list.Column)
	assert.NotNil(t, list.Items)

	var buf bytes.Buffer
	require.NoError(t, renderCompletions(&buf, FormatText, list))
	assert.Equal(t, "No completions\n", buf.String())
}

func TestCompleteCmd(t *testing.T) {
	isolate(t)
	seed(t)

	var buf bytes.Buffer
	CompleteCmd.SetOut(&buf)
	CompleteCmd.SetArgs([]string{"repo:json", "--format", "json"})
	t.Cleanup(func() { completeFormat = FormatText })
	require.NoError(t, CompleteCmd.Execute())

	var list completion.CompletionList
	require.NoError(t, json.Unmarshal(buf.Bytes(), &list))
	assert.Equal(t, 6, list.Column)

	var inserts []string
	for _, item := range list.Items {
		inserts = append(inserts, item.InsertText)
	}
	assert.Contains(t, inserts, `^github\.com/sourcegraph/jsonrpc2$ `)
}

func TestRenderCompletions_Table(t *testing.T) {
	pterm.DisableColor()
	list := &completion.CompletionList{Column: 1, Items: []completion.CompletionItem{
		{Label: "repo", InsertText: "repo:", Kind: completion.KindFilter, Detail: "Include only results from repositories"},
	}}

	var buf bytes.Buffer
	require.NoError(t, renderCompletions(&buf, FormatText, list))
	assert.Contains(t, buf.String(), "Replace from column 1")
	assert.Contains(t, buf.String(), "repo:")
}

func TestRenderDiagnostics(t *testing.T) {
	pterm.DisableColor()

	var buf bytes.Buffer
	renderDiagnostics(&buf, "langg:go", []lsp.Diagnostic{{
		Range:       query.Range{Start: 0, End: 5},
		Severity:    lsp.SeverityError,
		Message:     "unknown filter langg",
		Suggestions: []string{"lang"},
	}})
	out := buf.String()
	assert.Contains(t, out, "unknown filter langg")
	assert.Contains(t, out, "  langg:go\n  ^^^^^\n")
	assert.Contains(t, out, "did you mean: lang")

	buf.Reset()
	renderDiagnostics(&buf, "lang:go", nil)
	assert.Contains(t, buf.String(), "No problems found")
}

func TestRepoLs(t *testing.T) {
	isolate(t)
	seed(t)

	var buf bytes.Buffer
	RepoCmd.SetOut(&buf)
	RepoCmd.SetArgs([]string{"ls", "--format", "json"})
	t.Cleanup(func() { repoListFormat = FormatText })
	require.NoError(t, RepoCmd.Execute())

	var repos []storage.Repository
	require.NoError(t, json.Unmarshal(buf.Bytes(), &repos))
	require.Len(t, repos, 1)
	assert.Equal(t, "github.com/sourcegraph/jsonrpc2", repos[0].Name)
}

func TestRepoRm(t *testing.T) {
	isolate(t)
	seed(t)

	var buf bytes.Buffer
	RepoCmd.SetOut(&buf)
	RepoCmd.SetArgs([]string{"rm", "github.com/sourcegraph/jsonrpc2"})
	require.NoError(t, RepoCmd.Execute())
	assert.Equal(t, "Removed github.com/sourcegraph/jsonrpc2\n", buf.String())

	RepoCmd.SetArgs([]string{"rm", "github.com/sourcegraph/jsonrpc2"})
	assert.Error(t, RepoCmd.Execute())
}

func TestURLCmd(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{"https://github.com/foo/bar.git"}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("main.go")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	URLCmd.SetOut(&buf)
	URLCmd.SetArgs([]string{filepath.Join(dir, "main.go"), "--start", "2", "--end", "4"})
	t.Cleanup(func() { urlStart, urlEnd = 1, 0 })
	require.NoError(t, URLCmd.Execute())
	assert.Equal(t, "https://sourcegraph.com/github.com%2Ffoo%2Fbar@master/-/blob/main.go?L2:4\n", buf.String())
}

func TestIngestThenStats(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n\nfunc A() {}\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("a.go")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	cfg, err := loadConfig()
	require.NoError(t, err)
	database, idx, err := openIndex(cfg)
	require.NoError(t, err)
	_, err = ingest.IngestRepository(context.Background(), idx, dir)
	require.NoError(t, err)
	database.Close()

	var buf bytes.Buffer
	DbCmd.SetOut(&buf)
	DbCmd.SetArgs([]string{"stats"})
	require.NoError(t, DbCmd.Execute())
	assert.Contains(t, buf.String(), "Repositories:  1")
	assert.Contains(t, buf.String(), "Files:         1")
	assert.Contains(t, buf.String(), "Symbols:       1")
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"am", "check", "complete", "db", "lsp", "mcp", "repo", "server", "url", "version"} {
		assert.True(t, names[want], want)
	}
}
