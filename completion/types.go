// Package completion turns the token under the cursor into ranked,
// editor-ready suggestions: filter names, filter values, predicate snippets
// and values fetched from live search results.
//
// GetCompletionItems is a pure function of its inputs plus one fetch. It
// keeps no state between calls and may be invoked concurrently.
package completion

import (
	"github.com/teranos/searchq/filter"
)

// Kind classifies a completion item for the editor's icon
type Kind string

const (
	KindFilter     Kind = "filter"
	KindValue      Kind = "value"
	KindSnippet    Kind = "snippet"
	KindRepository Kind = "repository"
	KindFile       Kind = "file"
	KindSymbol     Kind = "symbol"
	KindFunction   Kind = "function"
	KindMethod     Kind = "method"
	KindClass      Kind = "class"
	KindStruct     Kind = "struct"
	KindInterface  Kind = "interface"
	KindVariable   Kind = "variable"
	KindConstant   Kind = "constant"
	KindField      Kind = "field"
	KindModule     Kind = "module"
	KindEnum       Kind = "enum"
)

var symbolKinds = map[string]Kind{
	"function":  KindFunction,
	"func":      KindFunction,
	"method":    KindMethod,
	"class":     KindClass,
	"struct":    KindStruct,
	"interface": KindInterface,
	"variable":  KindVariable,
	"var":       KindVariable,
	"constant":  KindConstant,
	"const":     KindConstant,
	"field":     KindField,
	"module":    KindModule,
	"package":   KindModule,
	"enum":      KindEnum,
}

// SymbolKind maps a symbol kind reported by a search backend onto Kind
func SymbolKind(kind string) Kind {
	if k, ok := symbolKinds[lower(kind)]; ok {
		return k
	}
	return KindSymbol
}

// CompletionItem is one suggestion
type CompletionItem struct {
	Label      string `json:"label" yaml:"label"`
	InsertText string `json:"insert_text" yaml:"insert_text"`
	// FilterText is the fragment the user typed, for client-side re-filtering.
	// Empty means the editor should filter on Label.
	FilterText string `json:"filter_text,omitempty" yaml:"filter_text,omitempty"`
	Kind       Kind   `json:"kind" yaml:"kind"`
	Detail     string `json:"detail,omitempty" yaml:"detail,omitempty"`
	SortText   string `json:"sort_text" yaml:"sort_text"`
	// Snippet marks InsertText as containing ${n:default} placeholders
	Snippet bool `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// CompletionList is an ordered suggestion list. Column is the 1-based column
// where replacement starts.
type CompletionList struct {
	Column int              `json:"column" yaml:"column"`
	Items  []CompletionItem `json:"items" yaml:"items"`
}

// Options adjusts suggestions for the deployment being queried
type Options struct {
	IsSourcegraphDotCom bool
	// Globbing inserts values as globs instead of anchored regular expressions
	Globbing bool
	// MaxResults bounds each dynamic fetch; zero leaves it to the fetcher
	MaxResults int
}

// FetchRequest describes the value a dynamic fetch should match
type FetchRequest struct {
	Filter filter.Type           `json:"filter,omitempty"` // empty for patterns and unknown filters
	Kind   filter.SuggestionKind `json:"kind"`
	Value  string                `json:"value"`
	Limit  int                   `json:"limit,omitempty"`
	Glob   bool                  `json:"glob,omitempty"`
}
