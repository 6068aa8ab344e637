package lsp

import (
	"context"
	"fmt"
	"strings"

	"github.com/teranos/searchq/filter"
	"github.com/teranos/searchq/query"
)

// Hover is markdown documentation for the token under the cursor
type Hover struct {
	Contents string      `json:"contents"`
	Range    query.Range `json:"range"`
}

// Hover describes the filter or predicate under the 1-based column. It
// returns nil when there is nothing to document.
func (s *Service) Hover(ctx context.Context, q string, column int) (*Hover, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tok := query.TokenAt(query.Scan(q), clampColumn(q, column))
	if tok == nil || tok.Kind != query.Filter {
		return nil, nil
	}

	name := tok.FieldName()
	if tok.Negated {
		name = "-" + name
	}
	resolved, ok := filter.Resolve(name)
	if !ok {
		return nil, nil
	}
	def := resolved.Definition

	// On a predicate call inside the value, document the predicate
	if tok.Value != nil && column > tok.Value.Range.Start {
		if call, ok := filter.ParseCall(tok.Value.Raw, def.Predicates); ok {
			return &Hover{
				Contents: fmt.Sprintf("**%s**\n\n%s", call.Predicate.Label(), call.Predicate.Description),
				Range:    tok.Value.Range,
			}, nil
		}
	}

	return &Hover{Contents: describe(def, resolved.Negated), Range: tok.Range}, nil
}

func describe(def *filter.Definition, negated bool) string {
	var b strings.Builder
	if negated {
		fmt.Fprintf(&b, "**-%s**\n\n%s", def.Type, def.NegatedDescription)
	} else {
		fmt.Fprintf(&b, "**%s**\n\n%s", def.Type, def.Description)
	}
	if len(def.Aliases) > 0 {
		fmt.Fprintf(&b, "\n\nAliases: `%s`", strings.Join(def.Aliases, "`, `"))
	}
	if len(def.DiscreteValues) > 0 {
		fmt.Fprintf(&b, "\n\nValues: `%s`", strings.Join(def.DiscreteValues, "`, `"))
	}
	if len(def.Predicates) > 0 {
		b.WriteString("\n\nPredicates:")
		for _, p := range def.Predicates {
			fmt.Fprintf(&b, "\n- `%s`", p.Label())
		}
	}
	return b.String()
}
