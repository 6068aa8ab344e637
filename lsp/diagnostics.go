package lsp

import (
	"context"
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/teranos/searchq/filter"
	"github.com/teranos/searchq/query"
)

// Severity of a diagnostic
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityHint    Severity = "hint"
)

// Diagnostic codes
const (
	CodeUnknownFilter   = "unknown-filter"
	CodeNotNegatable    = "not-negatable"
	CodeInvalidValue    = "invalid-value"
	CodeUnbalancedParen = "unbalanced-paren"
)

// Diagnostic represents a problem found in a query
type Diagnostic struct {
	Range       query.Range `json:"range" yaml:"range"`
	Severity    Severity    `json:"severity" yaml:"severity"`
	Code        string      `json:"code" yaml:"code"`
	Message     string      `json:"message" yaml:"message"`
	Suggestions []string    `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

// ParseResponse contains the tokens and diagnostics of a query
type ParseResponse struct {
	Tokens      []query.Token `json:"tokens"`
	Diagnostics []Diagnostic  `json:"diagnostics"`
}

// minSuggestionSimilarity is the Levenshtein similarity a known filter name
// needs to be offered as a correction.
const minSuggestionSimilarity = 0.5

// Parse scans a query and reports unknown filters, negated filters that
// cannot be negated, values outside a discrete domain and unbalanced
// parentheses.
func (s *Service) Parse(ctx context.Context, q string) (*ParseResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := query.Scan(q)
	resp := &ParseResponse{Tokens: tokens, Diagnostics: []Diagnostic{}}

	var open []query.Range
	for _, tok := range tokens {
		switch tok.Kind {
		case query.Filter:
			resp.Diagnostics = append(resp.Diagnostics, checkFilter(tok)...)
		case query.OpenParen:
			open = append(open, tok.Range)
		case query.CloseParen:
			if len(open) == 0 {
				resp.Diagnostics = append(resp.Diagnostics, Diagnostic{
					Range:    tok.Range,
					Severity: SeverityError,
					Code:     CodeUnbalancedParen,
					Message:  "unmatched closing parenthesis",
				})
				continue
			}
			open = open[:len(open)-1]
		}
	}
	for _, r := range open {
		resp.Diagnostics = append(resp.Diagnostics, Diagnostic{
			Range:    r,
			Severity: SeverityError,
			Code:     CodeUnbalancedParen,
			Message:  "unclosed parenthesis",
		})
	}

	return resp, nil
}

func checkFilter(tok query.Token) []Diagnostic {
	field := tok.FieldName()
	fieldRange := tok.Field.Range
	if tok.Negated {
		fieldRange.Start--
		if _, ok := filter.Resolve(field); ok {
			if _, ok := filter.Resolve("-" + field); !ok {
				return []Diagnostic{{
					Range:    fieldRange,
					Severity: SeverityError,
					Code:     CodeNotNegatable,
					Message:  fmt.Sprintf("filter %q cannot be negated", strings.ToLower(field)),
				}}
			}
		}
	}

	name := field
	if tok.Negated {
		name = "-" + field
	}
	resolved, ok := filter.Resolve(name)
	if !ok {
		d := Diagnostic{
			Range:       fieldRange,
			Severity:    SeverityWarning,
			Code:        CodeUnknownFilter,
			Message:     fmt.Sprintf("unknown filter %q", field),
			Suggestions: didYouMean(field, filter.Known()),
		}
		if len(d.Suggestions) > 0 {
			d.Message += fmt.Sprintf(", did you mean %q?", d.Suggestions[0])
		}
		return []Diagnostic{d}
	}

	def := resolved.Definition
	value := tok.ValueText()
	if value == "" || def.AcceptsValue(value) {
		return nil
	}
	return []Diagnostic{{
		Range:       tok.Value.Range,
		Severity:    SeverityError,
		Code:        CodeInvalidValue,
		Message:     fmt.Sprintf("invalid value %q for %s, expected one of: %s", value, def.Type, strings.Join(def.DiscreteValues, ", ")),
		Suggestions: didYouMean(value, def.DiscreteValues),
	}}
}

// didYouMean returns up to three candidates close to s, most similar first
func didYouMean(s string, candidates []string) []string {
	matches, err := edlib.FuzzySearchSetThreshold(strings.ToLower(s), candidates, 3, minSuggestionSimilarity, edlib.Levenshtein)
	if err != nil {
		return nil
	}
	var out []string
	for _, m := range matches {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}
