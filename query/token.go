// Package query scans search queries into positioned tokens.
//
// The grammar is deliberately small: filters (field:value), patterns,
// parentheses, the and/or/not operators, comments and whitespace. The
// scanner never fails; malformed input still yields tokens covering every
// byte so completion can run while the user is mid-edit.
package query

import "fmt"

// Kind identifies the variant of a Token
type Kind int

const (
	Pattern Kind = iota
	Filter
	Whitespace
	OpenParen
	CloseParen
	Operator
	Comment
)

func (k Kind) String() string {
	switch k {
	case Pattern:
		return "pattern"
	case Filter:
		return "filter"
	case Whitespace:
		return "whitespace"
	case OpenParen:
		return "openingParen"
	case CloseParen:
		return "closingParen"
	case Operator:
		return "keyword"
	case Comment:
		return "comment"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Range is a half-open byte span [Start, End) in the original query
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered
func (r Range) Len() int {
	return r.End - r.Start
}

// Literal is a piece of token text with its own position
type Literal struct {
	Value  string `json:"value"`  // unquoted content
	Raw    string `json:"raw"`    // source text as typed, including quotes
	Quoted bool   `json:"quoted"` // value was delimited by ' or "
	Range  Range  `json:"range"`
}

// Token is a tagged union over the query token kinds.
//
// Filter tokens carry Field, Negated and an optional Value (nil when nothing
// follows the colon). Pattern tokens carry Value. Every token carries Raw and
// Range.
type Token struct {
	Kind    Kind     `json:"type"`
	Range   Range    `json:"range"`
	Raw     string   `json:"raw"`
	Field   *Literal `json:"field,omitempty"`
	Value   *Literal `json:"value,omitempty"`
	Negated bool     `json:"negated,omitempty"`
}

// FieldName returns the filter field without its negation prefix
func (t Token) FieldName() string {
	if t.Field == nil {
		return ""
	}
	return t.Field.Value
}

// ValueText returns the unquoted value, or "" when absent
func (t Token) ValueText() string {
	if t.Value == nil {
		return ""
	}
	return t.Value.Value
}

// RawValue returns the value exactly as typed, or "" when absent
func (t Token) RawValue() string {
	if t.Value == nil {
		return ""
	}
	return t.Value.Raw
}

// TokenAt returns the token under a 1-based cursor column.
// A cursor touching the end of one token and the start of the next resolves
// to the earlier token, which is the one being typed.
func TokenAt(tokens []Token, column int) *Token {
	for i := range tokens {
		r := tokens[i].Range
		if r.Start+1 <= column && r.End+1 >= column {
			return &tokens[i]
		}
	}
	return nil
}
