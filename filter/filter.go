// Package filter holds the static metadata of every recognized search filter:
// descriptions, aliases, negation, discrete values, predicate snippets and
// whether values are completed from live search results.
//
// The table is built once at package init and never mutated, so it is safe
// to share across goroutines without locking.
package filter

import (
	"sort"
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"
)

// Type is a canonical filter name
type Type string

const (
	After              Type = "after"
	Archived           Type = "archived"
	Author             Type = "author"
	Before             Type = "before"
	Case               Type = "case"
	Committer          Type = "committer"
	Content            Type = "content"
	Context            Type = "context"
	Count              Type = "count"
	File               Type = "file"
	Fork               Type = "fork"
	Lang               Type = "lang"
	Message            Type = "message"
	PatternType        Type = "patterntype"
	Repo               Type = "repo"
	RepoGroup          Type = "repogroup"
	RepoHasCommitAfter Type = "repohascommitafter"
	RepoHasFile        Type = "repohasfile"
	Rev                Type = "rev"
	Select             Type = "select"
	Timeout            Type = "timeout"
	TypeFilter         Type = "type"
	Visibility         Type = "visibility"
)

// SuggestionKind selects which live search results complete a filter value
type SuggestionKind string

const (
	SuggestNone SuggestionKind = ""
	SuggestRepo SuggestionKind = "repo"
	SuggestPath SuggestionKind = "path"
	SuggestAny  SuggestionKind = "any" // patterns, whitespace and unknown filters
)

// Value is a static suggestion for a filter value
type Value struct {
	Label      string
	InsertText string // defaults to Label
	Snippet    bool   // InsertText uses ${n:default} placeholders
	Detail     string
}

// Text returns the text to insert for v
func (v Value) Text() string {
	if v.InsertText != "" {
		return v.InsertText
	}
	return v.Label
}

// Definition is the metadata of one filter
type Definition struct {
	Type        Type
	Description string
	// NegatedDescription is shown for the "-name" form; empty for filters that cannot be negated
	NegatedDescription string
	Aliases            []string

	// DiscreteValues is the closed value domain, in declaration order
	DiscreteValues []string
	// Suggest returns static suggestions for open value domains (e.g. popular
	// languages). typed is the value text already entered.
	Suggest func(typed string, isSourcegraphDotCom bool) []Value

	Predicates  []Predicate
	Suggestions SuggestionKind
}

// Negatable reports whether "-name:" is accepted
func (d *Definition) Negatable() bool {
	return d.NegatedDescription != ""
}

// StaticValues returns discrete values followed by generated suggestions.
// Neither is narrowed by typed; the editor filters on the client.
func (d *Definition) StaticValues(typed string, isSourcegraphDotCom bool) []Value {
	var values []Value
	for _, v := range d.DiscreteValues {
		values = append(values, Value{Label: v})
	}
	if d.Suggest != nil {
		values = append(values, d.Suggest(typed, isSourcegraphDotCom)...)
	}
	return values
}

// AcceptsValue reports whether value is in the discrete domain.
// Filters without a discrete domain accept anything.
func (d *Definition) AcceptsValue(value string) bool {
	if len(d.DiscreteValues) == 0 {
		return true
	}
	for _, v := range d.DiscreteValues {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// Resolved is a filter field matched against the table
type Resolved struct {
	Definition *Definition
	Negated    bool
}

// Resolve looks up a field as typed: case-insensitive, aliases allowed, and a
// leading "-" accepted only for negatable filters.
func Resolve(field string) (Resolved, bool) {
	negated := false
	name := strings.ToLower(field)
	if strings.HasPrefix(name, "-") {
		negated = true
		name = name[1:]
	}

	def, ok := byName[name]
	if !ok {
		return Resolved{}, false
	}
	if negated && !def.Negatable() {
		return Resolved{}, false
	}
	return Resolved{Definition: def, Negated: negated}, true
}

// Lookup returns the definition of a canonical filter type
func Lookup(t Type) (*Definition, bool) {
	for i := range definitions {
		if definitions[i].Type == t {
			return &definitions[i], true
		}
	}
	return nil, false
}

// Types returns every filter type in declaration order
func Types() []Type {
	out := make([]Type, len(definitions))
	for i := range definitions {
		out[i] = definitions[i].Type
	}
	return out
}

// Definitions returns every filter in declaration order
func Definitions() []*Definition {
	out := make([]*Definition, len(definitions))
	for i := range definitions {
		out[i] = &definitions[i]
	}
	return out
}

// Name is a completable filter name: the canonical name or its negated form
type Name struct {
	Label       string
	Description string
	Type        Type
	Negated     bool
}

// Names lists filter names in declaration order, each negatable filter
// immediately followed by its "-" form.
func Names() []Name {
	return names
}

// NamesWithPrefix returns the names starting with prefix (case-insensitive),
// still in declaration order.
func NamesWithPrefix(prefix string) []Name {
	var indexes []int
	_ = nameTrie.VisitSubtree(patricia.Prefix(strings.ToLower(prefix)), func(_ patricia.Prefix, item patricia.Item) error {
		indexes = append(indexes, item.(int))
		return nil
	})
	sort.Ints(indexes)

	out := make([]Name, len(indexes))
	for i, n := range indexes {
		out[i] = names[n]
	}
	return out
}

// Known returns every accepted spelling (canonical names and aliases), for
// did-you-mean suggestions.
func Known() []string {
	out := make([]string, 0, len(byName))
	for _, def := range definitions {
		out = append(out, string(def.Type))
		out = append(out, def.Aliases...)
	}
	return out
}

var (
	byName   map[string]*Definition
	names    []Name
	nameTrie *patricia.Trie
)

func init() {
	byName = make(map[string]*Definition, len(definitions)*2)
	for i := range definitions {
		def := &definitions[i]
		byName[string(def.Type)] = def
		for _, alias := range def.Aliases {
			byName[alias] = def
		}

		names = append(names, Name{Label: string(def.Type), Description: def.Description, Type: def.Type})
		if def.Negatable() {
			names = append(names, Name{
				Label:       "-" + string(def.Type),
				Description: def.NegatedDescription,
				Type:        def.Type,
				Negated:     true,
			})
		}
	}

	nameTrie = patricia.NewTrie()
	for i, n := range names {
		nameTrie.Insert(patricia.Prefix(n.Label), i)
	}
}
