package completion

import "strings"

const regexpMeta = `\^$.|?*+()[]{} `

// EscapeRegexp escapes regular expression metacharacters and spaces so the
// value matches itself literally inside a query.
func EscapeRegexp(s string) string {
	return escape(s, regexpMeta)
}

// EscapeSpaces escapes only spaces and backslashes, for glob values
func EscapeSpaces(s string) string {
	return escape(s, `\ `)
}

func escape(s, meta string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		if strings.ContainsRune(meta, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatValue renders a value for exact matching: ^escaped$, or the glob
// value itself when globbing is on. Callers add the trailing space.
func FormatValue(value string, globbing bool) string {
	if globbing {
		return EscapeSpaces(value)
	}
	return "^" + EscapeRegexp(value) + "$"
}

func lower(s string) string {
	return strings.ToLower(s)
}
