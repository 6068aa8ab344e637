package completion

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/filter"
	"github.com/teranos/searchq/query"
)

// stubFetcher records requests and returns canned matches
type stubFetcher struct {
	matches  []SearchMatch
	err      error
	requests []FetchRequest
}

func (s *stubFetcher) Fetch(_ context.Context, req FetchRequest) ([]SearchMatch, error) {
	s.requests = append(s.requests, req)
	return s.matches, s.err
}

// failFetcher fails the test when a fetch happens
func failFetcher(t *testing.T) Fetcher {
	return FetcherFunc(func(_ context.Context, req FetchRequest) ([]SearchMatch, error) {
		t.Fatalf("unexpected fetch: %+v", req)
		return nil, nil
	})
}

func complete(t *testing.T, q string, column int, f Fetcher, opts Options) *CompletionList {
	t.Helper()
	tok := query.TokenAt(query.Scan(q), column)
	list, err := GetCompletionItems(context.Background(), tok, column, f, opts)
	require.NoError(t, err)
	return list
}

func labels(list *CompletionList) []string {
	var out []string
	for _, item := range list.Items {
		out = append(out, item.Label)
	}
	return out
}

func insertTexts(list *CompletionList) []string {
	var out []string
	for _, item := range list.Items {
		out = append(out, item.InsertText)
	}
	return out
}

func allNames() []string {
	var out []string
	for _, n := range filter.Names() {
		out = append(out, n.Label)
	}
	return out
}

func TestEmptyQueryListsAllFilters(t *testing.T) {
	list := complete(t, "", 1, failFetcher(t), Options{})
	require.NotNil(t, list)
	assert.Equal(t, allNames(), labels(list))
	assert.Equal(t, "after:", list.Items[0].InsertText)
	assert.Equal(t, KindFilter, list.Items[0].Kind)
	assert.Equal(t, "0000", list.Items[0].SortText)
}

func TestFilterNamePrefixes(t *testing.T) {
	for _, name := range allNames() {
		for i := 1; i <= len(name); i++ {
			for _, typed := range []string{name[:i], strings.ToUpper(name[:i])} {
				var want []string
				for _, candidate := range allNames() {
					if strings.HasPrefix(candidate, strings.ToLower(typed)) {
						want = append(want, candidate)
					}
				}
				list := complete(t, typed, len(typed)+1, failFetcher(t), Options{})
				require.NotNil(t, list, typed)
				assert.Equal(t, want, labels(list), typed)
				assert.Equal(t, 1, list.Column)
			}
		}
	}
}

func TestFilterNamePrefix_Repo(t *testing.T) {
	list := complete(t, "rE", 3, failFetcher(t), Options{})
	assert.Equal(t, []string{"repo", "repogroup", "repohascommitafter", "repohasfile", "rev"}, labels(list))

	list = complete(t, "-r", 3, failFetcher(t), Options{})
	assert.Equal(t, []string{"-repo", "-repohasfile"}, labels(list))
}

func TestDiscreteValuesAreNotPrefixFiltered(t *testing.T) {
	list := complete(t, "case:y", 7, failFetcher(t), Options{})
	require.NotNil(t, list)
	assert.Equal(t, []string{"yes", "no"}, labels(list))
	assert.Equal(t, []string{"yes ", "no "}, insertTexts(list))
	assert.Equal(t, "y", list.Items[0].FilterText)
	assert.Equal(t, 6, list.Column)
}

func TestDiscreteValuesKeepDeclarationOrder(t *testing.T) {
	list := complete(t, "select:", 8, failFetcher(t), Options{})
	require.NotNil(t, list)
	assert.Equal(t, []string{"repo", "file", "content", "symbol", "commit"}, labels(list))
}

func TestLangSuggestsPopularLanguages(t *testing.T) {
	list := complete(t, "lang:", 6, failFetcher(t), Options{})
	require.NotNil(t, list)
	assert.Equal(t, filter.PopularLanguages, labels(list))
}

func TestFileValueIsEscapedAndAnchored(t *testing.T) {
	f := &stubFetcher{matches: []SearchMatch{{Type: PathMatch, Repository: "r", Path: "connect.go"}}}
	list := complete(t, "file:c", 7, f, Options{})
	require.NotNil(t, list)
	assert.Equal(t, []string{`^connect\.go$ `}, insertTexts(list))
	assert.Equal(t, "c", list.Items[0].FilterText)
	assert.Equal(t, KindFile, list.Items[0].Kind)

	require.Len(t, f.requests, 1)
	assert.Equal(t, FetchRequest{Filter: filter.File, Kind: filter.SuggestPath, Value: "c"}, f.requests[0])
}

func TestFileAliasKeepsRawFilterText(t *testing.T) {
	f := &stubFetcher{matches: []SearchMatch{{Type: PathMatch, Path: "some/path/main.go"}}}
	list := complete(t, "f:^jsonrpc", 11, f, Options{})
	require.NotNil(t, list)
	assert.Equal(t, []string{`^some/path/main\.go$ `}, insertTexts(list))
	assert.Equal(t, "^jsonrpc", list.Items[0].FilterText)
}

func TestRepoPredicatesPrecedeDynamicValues(t *testing.T) {
	f := &stubFetcher{matches: []SearchMatch{{Type: RepoMatch, Repository: "repo/with a space"}}}
	list := complete(t, "repo:", 6, f, Options{})
	require.NotNil(t, list)
	assert.Equal(t, []string{
		"contains.file(${1:CHANGELOG}) ",
		"contains.content(${1:TODO}) ",
		"contains(file:${1:CHANGELOG} content:${2:fix}) ",
		"contains.commit.after(${1:1 month ago}) ",
		"deps(${1}) ",
		"dependencies(${1}) ",
		`^repo/with\ a\ space$ `,
	}, insertTexts(list))
	assert.True(t, list.Items[0].Snippet)
	assert.False(t, list.Items[6].Snippet)
	assert.Equal(t, "0005", list.Items[5].SortText)
	assert.Equal(t, "1000", list.Items[6].SortText)
}

func TestRepoPartialPredicateName(t *testing.T) {
	f := &stubFetcher{}
	list := complete(t, "repo:contains.c", 16, f, Options{})
	require.NotNil(t, list)
	assert.Equal(t, []string{
		"contains.content(TODO)",
		"contains.commit.after(1 month ago)",
	}, labels(list))
	require.Len(t, f.requests, 1)
	assert.Equal(t, "contains.c", f.requests[0].Value)
}

func TestRepoDepsArgumentIsFetchedAndWrapped(t *testing.T) {
	f := &stubFetcher{matches: []SearchMatch{{Type: RepoMatch, Repository: "github.com/sourcegraph/jsonrpc2.go"}}}
	q := "repo:deps(sourcegraph"
	list := complete(t, q, len(q)+1, f, Options{})
	require.NotNil(t, list)
	assert.Equal(t, []string{`deps(^github\.com/sourcegraph/jsonrpc2\.go$) `}, insertTexts(list))

	require.Len(t, f.requests, 1)
	assert.Equal(t, filter.SuggestRepo, f.requests[0].Kind)
	assert.Equal(t, "sourcegraph", f.requests[0].Value)
}

func TestRepoClosedPredicateHasNoCompletions(t *testing.T) {
	q := "repo:contains.file(README)"
	assert.Nil(t, complete(t, q, len(q)+1, failFetcher(t), Options{}))
}

func TestDotComRepoTemplates(t *testing.T) {
	list := complete(t, "repo:", 6, failFetcher(t), Options{IsSourcegraphDotCom: true})
	require.NotNil(t, list)
	texts := insertTexts(list)
	require.Len(t, texts, 9)
	assert.Equal(t, `^github\.com/${1:ORGANIZATION}/.* `, texts[0])
	assert.Equal(t, `^github\.com/${1:ORGANIZATION}/${2:REPO-NAME}$ `, texts[1])
	assert.Equal(t, `${1:STRING} `, texts[2])
	assert.Equal(t, "contains.file(${1:CHANGELOG}) ", texts[3])
}

func TestDotComRepoWithValueFetches(t *testing.T) {
	f := &stubFetcher{matches: []SearchMatch{{Type: RepoMatch, Repository: "github.com/a/b"}}}
	list := complete(t, "repo:git", 9, f, Options{IsSourcegraphDotCom: true})
	require.NotNil(t, list)
	assert.Equal(t, []string{`^github\.com/a/b$ `}, insertTexts(list))
}

func TestPatternWithoutFilterPrefixListsAllNamesThenMatches(t *testing.T) {
	f := &stubFetcher{matches: []SearchMatch{
		{Type: RepoMatch, Repository: "github.com/x/jsonrpc2"},
		{Type: PathMatch, Repository: "github.com/x/jsonrpc2", Path: "jsonrpc2.go"},
		{Type: SymbolMatch, Repository: "github.com/x/jsonrpc2", Path: "conn.go", Symbols: []Symbol{
			{Name: "NewConn", Kind: "FUNCTION"},
		}},
		{Type: CommitMatch, Repository: "github.com/x/jsonrpc2", Commit: "abc"},
	}}
	list := complete(t, "jsonrpc", 8, f, Options{})
	require.NotNil(t, list)

	names := allNames()
	require.Len(t, list.Items, len(names)+3)
	assert.Equal(t, names, labels(list)[:len(names)])
	assert.Equal(t, []string{
		`repo:^github\.com/x/jsonrpc2$ `,
		`file:^jsonrpc2\.go$ `,
		"NewConn ",
	}, insertTexts(list)[len(names):])
	dynamic := list.Items[len(names):]
	assert.Equal(t, KindFunction, dynamic[2].Kind)
	assert.Equal(t, "jsonrpc", dynamic[0].FilterText)
	assert.Equal(t, 1, list.Column)

	require.Len(t, f.requests, 1)
	assert.Equal(t, filter.SuggestAny, f.requests[0].Kind)
	assert.Equal(t, "jsonrpc", f.requests[0].Value)
}

func TestPatternPastFilterPrefix(t *testing.T) {
	f := &stubFetcher{matches: []SearchMatch{
		{Type: RepoMatch, Repository: "github.com/sourcegraph/jsonrpc2"},
		{Type: SymbolMatch, Repository: "github.com/sourcegraph/jsonrpc2", Symbols: []Symbol{
			{Name: "RepoRoutes", Kind: "VARIABLE"},
		}},
	}}
	list := complete(t, "reposi", 7, f, Options{})
	require.NotNil(t, list)
	want := append(allNames(), "github.com/sourcegraph/jsonrpc2", "RepoRoutes")
	assert.Equal(t, want, labels(list))
}

func TestWhitespaceListsFiltersThenDynamic(t *testing.T) {
	f := &stubFetcher{matches: []SearchMatch{{Type: RepoMatch, Repository: "a/b"}}}
	list := complete(t, "repo:x ", 8, f, Options{})
	require.NotNil(t, list)
	names := allNames()
	require.Len(t, list.Items, len(names)+1)
	assert.Equal(t, names, labels(list)[:len(names)])
	assert.Equal(t, "repo:^a/b$ ", list.Items[len(names)].InsertText)
	require.Len(t, f.requests, 1)
	assert.Equal(t, "", f.requests[0].Value)
}

func TestCursorOnFieldNameHasNoCompletions(t *testing.T) {
	assert.Nil(t, complete(t, "repo:foo", 3, failFetcher(t), Options{}))
}

func TestNonCompletableTokens(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		column int
	}{
		{"operator", "a or b", 4},
		{"open paren", "(a)", 1},
		{"comment", "a // note", 6},
		{"filter without suggestions", "count:", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, complete(t, tt.query, tt.column, failFetcher(t), Options{}))
		})
	}
}

func TestUnknownFilterFallsBackToGenericFetch(t *testing.T) {
	f := &stubFetcher{matches: []SearchMatch{
		{Type: RepoMatch, Repository: "a/b"},
		{Type: PathMatch, Path: "x.go"},
	}}
	list := complete(t, "foo:ba", 7, f, Options{})
	require.NotNil(t, list)
	assert.Equal(t, []string{"^a/b$ ", `^x\.go$ `}, insertTexts(list))
	assert.Equal(t, 5, list.Column)
	require.Len(t, f.requests, 1)
	assert.Equal(t, filter.SuggestAny, f.requests[0].Kind)
	assert.Equal(t, filter.Type(""), f.requests[0].Filter)
}

func TestRepoValueIgnoresPathMatches(t *testing.T) {
	f := &stubFetcher{matches: []SearchMatch{
		{Type: PathMatch, Repository: "a/b", Path: "x.go"},
		{Type: RepoMatch, Repository: "a/b"},
	}}
	list := complete(t, "repo:a", 7, f, Options{})
	require.NotNil(t, list)
	assert.Equal(t, []string{"^a/b$ "}, insertTexts(list))
}

func TestGlobbingInsertsUnanchoredValues(t *testing.T) {
	f := &stubFetcher{matches: []SearchMatch{{Type: PathMatch, Path: "dir/a b.go"}}}
	list := complete(t, "file:a", 7, f, Options{Globbing: true, MaxResults: 5})
	require.NotNil(t, list)
	assert.Equal(t, []string{`dir/a\ b.go `}, insertTexts(list))
	require.Len(t, f.requests, 1)
	assert.True(t, f.requests[0].Glob)
	assert.Equal(t, 5, f.requests[0].Limit)
}

func TestDuplicateMatchesCollapse(t *testing.T) {
	f := &stubFetcher{matches: []SearchMatch{
		{Type: ContentMatch, Repository: "a/b", Path: "x.go"},
		{Type: ContentMatch, Repository: "a/b", Path: "x.go"},
	}}
	list := complete(t, "file:x", 7, f, Options{})
	require.NotNil(t, list)
	assert.Len(t, list.Items, 1)
}

func TestSamePathInTwoRepositoriesIsKept(t *testing.T) {
	f := &stubFetcher{matches: []SearchMatch{
		{Type: PathMatch, Repository: "a/b", Path: "main.go"},
		{Type: PathMatch, Repository: "c/d", Path: "main.go"},
	}}
	list := complete(t, "file:main", 10, f, Options{})
	require.NotNil(t, list)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "a/b", list.Items[0].Detail)
	assert.Equal(t, "c/d", list.Items[1].Detail)
}

func TestFetchErrorIsReturned(t *testing.T) {
	boom := errors.New("backend down")
	tok := query.TokenAt(query.Scan("file:c"), 7)
	list, err := GetCompletionItems(context.Background(), tok, 7, &stubFetcher{err: boom}, Options{})
	require.Error(t, err)
	assert.Nil(t, list)
	assert.True(t, errors.Is(err, boom))
}

func TestNilFetcherReturnsStaticOnly(t *testing.T) {
	list := complete(t, "repo:", 6, nil, Options{})
	require.NotNil(t, list)
	assert.Len(t, list.Items, 6)
}

func TestIdempotent(t *testing.T) {
	inputs := []struct {
		query  string
		column int
	}{
		{"", 1},
		{"re", 3},
		{"repo:", 6},
		{"file:c", 7},
		{"jsonrpc", 8},
		{"select:", 8},
	}
	f := &stubFetcher{matches: []SearchMatch{
		{Type: RepoMatch, Repository: "a/b"},
		{Type: PathMatch, Repository: "a/b", Path: "c.go"},
	}}
	for _, in := range inputs {
		first := complete(t, in.query, in.column, f, Options{})
		second := complete(t, in.query, in.column, f, Options{})
		assert.Equal(t, first, second, in.query)
	}
}
