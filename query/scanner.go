package query

import (
	"strings"
)

// Scan tokenizes a search query. Concatenating the Raw text of the returned
// tokens reproduces the input exactly.
func Scan(q string) []Token {
	s := &scanner{src: q}
	var tokens []Token
	for s.pos < len(s.src) {
		tokens = append(tokens, s.next())
	}
	return tokens
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) next() Token {
	start := s.pos
	c := s.src[s.pos]

	switch {
	case isSpace(c):
		for s.pos < len(s.src) && isSpace(s.src[s.pos]) {
			s.pos++
		}
		return s.token(Whitespace, start)
	case c == '(':
		s.pos++
		return s.token(OpenParen, start)
	case c == ')':
		s.pos++
		return s.token(CloseParen, start)
	case strings.HasPrefix(s.src[s.pos:], "//"):
		if nl := strings.IndexByte(s.src[s.pos:], '\n'); nl >= 0 {
			s.pos += nl
		} else {
			s.pos = len(s.src)
		}
		return s.token(Comment, start)
	}

	if n := s.keywordLen(); n > 0 {
		s.pos += n
		return s.token(Operator, start)
	}
	if tok, ok := s.filter(); ok {
		return tok
	}
	return s.pattern()
}

func (s *scanner) token(kind Kind, start int) Token {
	return Token{
		Kind:  kind,
		Range: Range{Start: start, End: s.pos},
		Raw:   s.src[start:s.pos],
	}
}

// keywordLen returns the length of an and/or/not operator at the cursor, or 0.
// Operators must stand alone: "order" is a pattern, "or" is not.
func (s *scanner) keywordLen() int {
	rest := s.src[s.pos:]
	for _, kw := range []string{"and", "not", "or"} {
		if len(rest) < len(kw) || !strings.EqualFold(rest[:len(kw)], kw) {
			continue
		}
		if len(rest) == len(kw) || isSpace(rest[len(kw)]) || rest[len(kw)] == '(' || rest[len(kw)] == ')' {
			return len(kw)
		}
	}
	return 0
}

// filter scans -?field:value. Field names are ASCII letters, digits and
// underscores, starting with a letter.
func (s *scanner) filter() (Token, bool) {
	start := s.pos
	i := s.pos
	negated := false
	if i < len(s.src) && s.src[i] == '-' {
		negated = true
		i++
	}
	fieldStart := i
	if i >= len(s.src) || !isLetter(s.src[i]) {
		return Token{}, false
	}
	for i < len(s.src) && (isLetter(s.src[i]) || isDigit(s.src[i]) || s.src[i] == '_') {
		i++
	}
	if i >= len(s.src) || s.src[i] != ':' {
		return Token{}, false
	}

	field := &Literal{
		Value: s.src[fieldStart:i],
		Raw:   s.src[fieldStart:i],
		Range: Range{Start: fieldStart, End: i},
	}
	s.pos = i + 1 // past the colon

	var value *Literal
	if s.pos < len(s.src) && !isSpace(s.src[s.pos]) && s.src[s.pos] != ')' {
		lit := s.literal()
		value = &lit
	}

	tok := s.token(Filter, start)
	tok.Field = field
	tok.Value = value
	tok.Negated = negated
	return tok, true
}

func (s *scanner) pattern() Token {
	start := s.pos
	lit := s.literal()
	tok := s.token(Pattern, start)
	tok.Value = &lit
	return tok
}

// literal scans a quoted string or a run of characters that ends at
// whitespace or an unbalanced closing parenthesis.
func (s *scanner) literal() Literal {
	start := s.pos
	if c := s.src[s.pos]; c == '"' || c == '\'' {
		value := s.quoted(c)
		return Literal{
			Value:  value,
			Raw:    s.src[start:s.pos],
			Quoted: true,
			Range:  Range{Start: start, End: s.pos},
		}
	}

	depth := 0
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\\' && s.pos+1 < len(s.src) {
			s.pos += 2
			continue
		}
		if isSpace(c) && depth == 0 {
			break
		}
		if c == '(' {
			depth++
		} else if c == ')' {
			if depth == 0 {
				break
			}
			depth--
		}
		s.pos++
	}
	raw := s.src[start:s.pos]
	return Literal{Value: raw, Raw: raw, Range: Range{Start: start, End: s.pos}}
}

// quoted consumes a string delimited by quote and returns its unescaped
// content. An unterminated string runs to the end of input.
func (s *scanner) quoted(quote byte) string {
	var b strings.Builder
	s.pos++ // opening quote
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\\' && s.pos+1 < len(s.src) {
			next := s.src[s.pos+1]
			if next == quote || next == '\\' {
				b.WriteByte(next)
			} else {
				b.WriteByte(c)
				b.WriteByte(next)
			}
			s.pos += 2
			continue
		}
		s.pos++
		if c == quote {
			return b.String()
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
