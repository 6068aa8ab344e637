package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/filter"
	"github.com/teranos/searchq/query"
)

// GetCompletionItems returns suggestions for tok at the 1-based column.
//
// A nil token means the query is empty. A nil list with a nil error means no
// completions apply. Fetch errors are returned, never swallowed; the fetcher
// is called at most once.
func GetCompletionItems(ctx context.Context, tok *query.Token, column int, fetcher Fetcher, opts Options) (*CompletionList, error) {
	if tok == nil {
		return &CompletionList{Column: column, Items: filterNameItems("")}, nil
	}

	switch tok.Kind {
	case query.Whitespace:
		return completeWhitespace(ctx, column, fetcher, opts)
	case query.Pattern:
		return completePattern(ctx, tok, fetcher, opts)
	case query.Filter:
		return completeFilter(ctx, tok, column, fetcher, opts)
	default:
		return nil, nil
	}
}

func completeWhitespace(ctx context.Context, column int, fetcher Fetcher, opts Options) (*CompletionList, error) {
	b := builder{}
	b.addStatic(filterNameItems("")...)

	matches, err := fetch(ctx, fetcher, FetchRequest{Kind: filter.SuggestAny, Value: ""}, opts)
	if err != nil {
		return nil, err
	}
	b.addDynamic(patternItems(matches, "", opts)...)
	return b.list(column), nil
}

func completePattern(ctx context.Context, tok *query.Token, fetcher Fetcher, opts Options) (*CompletionList, error) {
	typed := tok.Raw
	column := tok.Range.Start + 1

	names := filterNameItems(typed)
	if len(names) > 0 {
		return &CompletionList{Column: column, Items: names}, nil
	}

	// No filter name starts with the pattern: every name, then matches
	matches, err := fetch(ctx, fetcher, FetchRequest{Kind: filter.SuggestAny, Value: tok.ValueText()}, opts)
	if err != nil {
		return nil, err
	}
	b := builder{}
	b.addStatic(filterNameItems("")...)
	b.addDynamic(patternItems(matches, typed, opts)...)
	return b.list(column), nil
}

func completeFilter(ctx context.Context, tok *query.Token, column int, fetcher Fetcher, opts Options) (*CompletionList, error) {
	// Cursor on the field name: the filter is already complete there
	if tok.Value != nil && tok.Value.Range.Start+1 > column {
		return nil, nil
	}

	raw := tok.RawValue()
	value := tok.ValueText()
	anchor := column
	if tok.Value != nil {
		anchor = tok.Value.Range.Start + 1
	}

	field := tok.FieldName()
	if tok.Negated {
		field = "-" + field
	}
	resolved, ok := filter.Resolve(field)
	if !ok {
		matches, err := fetch(ctx, fetcher, FetchRequest{Kind: filter.SuggestAny, Value: value}, opts)
		if err != nil {
			return nil, err
		}
		b := builder{}
		b.addDynamic(valueItems(matches, filter.SuggestAny, raw, "", opts)...)
		return b.list(anchor), nil
	}
	def := resolved.Definition

	b := builder{}
	for _, v := range def.StaticValues(value, opts.IsSourcegraphDotCom) {
		b.addStatic(staticValueItem(v, raw))
	}

	call, inCall := filter.ParseCall(raw, def.Predicates)
	if !inCall && !strings.Contains(raw, "(") {
		for _, p := range def.Predicates {
			if strings.HasPrefix(p.Name, lower(raw)) {
				b.addStatic(predicateItem(p, raw))
			}
		}
	}

	if def.Suggestions == filter.SuggestNone {
		return b.listOrNil(anchor), nil
	}
	if opts.IsSourcegraphDotCom && def.Type == filter.Repo && value == "" {
		return b.listOrNil(anchor), nil
	}

	req := FetchRequest{Filter: def.Type, Kind: def.Suggestions, Value: value}
	wrap := ""
	if inCall {
		if !call.Predicate.RepoArgument || call.Closed {
			return b.listOrNil(anchor), nil
		}
		req.Kind = filter.SuggestRepo
		req.Value = call.Argument
		wrap = call.Predicate.Name
	}

	matches, err := fetch(ctx, fetcher, req, opts)
	if err != nil {
		return nil, err
	}
	b.addDynamic(valueItems(matches, req.Kind, raw, wrap, opts)...)
	return b.listOrNil(anchor), nil
}

func fetch(ctx context.Context, fetcher Fetcher, req FetchRequest, opts Options) ([]SearchMatch, error) {
	if fetcher == nil {
		return nil, nil
	}
	req.Limit = opts.MaxResults
	req.Glob = opts.Globbing
	matches, err := fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s suggestions for %q", req.Kind, req.Value)
	}
	return matches, nil
}

// filterNameItems lists filter names whose label starts with prefix
// (case-insensitive), in declaration order.
func filterNameItems(prefix string) []CompletionItem {
	var items []CompletionItem
	for _, name := range filter.NamesWithPrefix(prefix) {
		items = append(items, CompletionItem{
			Label:      name.Label,
			InsertText: name.Label + ":",
			Kind:       KindFilter,
			Detail:     name.Description,
			SortText:   sortText(0, len(items)),
		})
	}
	return items
}

func staticValueItem(v filter.Value, typed string) CompletionItem {
	kind := KindValue
	if v.Snippet {
		kind = KindSnippet
	}
	return CompletionItem{
		Label:      v.Label,
		InsertText: v.Text() + " ",
		FilterText: typed,
		Kind:       kind,
		Detail:     v.Detail,
		Snippet:    v.Snippet,
	}
}

func predicateItem(p filter.Predicate, typed string) CompletionItem {
	return CompletionItem{
		Label:      p.Label(),
		InsertText: p.Snippet() + " ",
		FilterText: typed,
		Kind:       KindSnippet,
		Detail:     p.Description,
		Snippet:    true,
	}
}

// patternItems formats matches typed as a bare pattern: each item inserts a
// whole filter (repo:^x$, file:^x$) or a symbol name.
func patternItems(matches []SearchMatch, typed string, opts Options) []CompletionItem {
	var items []CompletionItem
	for _, m := range matches {
		switch m.Type {
		case RepoMatch:
			items = append(items, CompletionItem{
				Label:      m.Repository,
				InsertText: "repo:" + FormatValue(m.Repository, opts.Globbing) + " ",
				FilterText: typed,
				Kind:       KindRepository,
			})
		case PathMatch, ContentMatch:
			items = append(items, CompletionItem{
				Label:      m.Path,
				InsertText: "file:" + FormatValue(m.Path, opts.Globbing) + " ",
				FilterText: typed,
				Kind:       KindFile,
				Detail:     m.Repository,
			})
		case SymbolMatch:
			for _, sym := range m.Symbols {
				items = append(items, CompletionItem{
					Label:      sym.Name,
					InsertText: sym.Name + " ",
					FilterText: typed,
					Kind:       SymbolKind(sym.Kind),
					Detail:     symbolDetail(sym, m.Path),
				})
			}
		}
	}
	return items
}

// valueItems formats matches as the value of a filter. wrap names a
// predicate whose argument the value fills.
func valueItems(matches []SearchMatch, kind filter.SuggestionKind, typed, wrap string, opts Options) []CompletionItem {
	var items []CompletionItem
	add := func(label string, k Kind, detail string) {
		text := FormatValue(label, opts.Globbing)
		if wrap != "" {
			text = wrap + "(" + text + ")"
		}
		items = append(items, CompletionItem{
			Label:      label,
			InsertText: text + " ",
			FilterText: typed,
			Kind:       k,
			Detail:     detail,
		})
	}

	for _, m := range matches {
		switch m.Type {
		case RepoMatch:
			if kind == filter.SuggestRepo || kind == filter.SuggestAny {
				add(m.Repository, KindRepository, "")
			}
		case PathMatch, ContentMatch:
			if kind == filter.SuggestPath || kind == filter.SuggestAny {
				add(m.Path, KindFile, m.Repository)
			}
		case SymbolMatch:
			if kind != filter.SuggestAny {
				continue
			}
			for _, sym := range m.Symbols {
				add(sym.Name, SymbolKind(sym.Kind), symbolDetail(sym, m.Path))
			}
		}
	}
	return items
}

func symbolDetail(sym Symbol, path string) string {
	if sym.ContainerName != "" {
		return fmt.Sprintf("%s %s.%s (%s)", lower(sym.Kind), sym.ContainerName, sym.Name, path)
	}
	return fmt.Sprintf("%s (%s)", lower(sym.Kind), path)
}

func sortText(group, index int) string {
	return fmt.Sprintf("%d%03d", group, index)
}

// builder keeps static items ahead of dynamic ones and drops items whose
// insert text and detail repeat an earlier one.
type builder struct {
	static  []CompletionItem
	dynamic []CompletionItem
	seen    map[string]bool
}

func (b *builder) addStatic(items ...CompletionItem) {
	b.static = b.add(b.static, 0, items)
}

func (b *builder) addDynamic(items ...CompletionItem) {
	b.dynamic = b.add(b.dynamic, 1, items)
}

func (b *builder) add(dst []CompletionItem, group int, items []CompletionItem) []CompletionItem {
	if b.seen == nil {
		b.seen = make(map[string]bool)
	}
	for _, item := range items {
		key := item.InsertText + "\x00" + item.Detail
		if b.seen[key] {
			continue
		}
		b.seen[key] = true
		item.SortText = sortText(group, len(dst))
		dst = append(dst, item)
	}
	return dst
}

func (b *builder) list(column int) *CompletionList {
	items := make([]CompletionItem, 0, len(b.static)+len(b.dynamic))
	items = append(items, b.static...)
	items = append(items, b.dynamic...)
	return &CompletionList{Column: column, Items: items}
}

func (b *builder) listOrNil(column int) *CompletionList {
	if len(b.static)+len(b.dynamic) == 0 {
		return nil
	}
	return b.list(column)
}
