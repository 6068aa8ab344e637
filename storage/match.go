package storage

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type matcher struct {
	value string
	glob  bool
}

// matchGlob matches the whole name, or any trailing path of it so "*.go"
// finds files in subdirectories.
func (m matcher) matchGlob(name string) bool {
	if ok, _ := doublestar.Match(m.value, name); ok {
		return true
	}
	if strings.HasPrefix(m.value, "**/") {
		return false
	}
	ok, _ := doublestar.Match("**/"+m.value, name)
	return ok
}

// normalizeValue turns a typed filter value back into plain text: anchors
// dropped, regexp escapes removed.
func normalizeValue(v string) string {
	v = strings.TrimPrefix(v, "^")
	if strings.HasSuffix(v, "$") && !strings.HasSuffix(v, `\$`) {
		v = strings.TrimSuffix(v, "$")
	}

	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+1 < len(v) {
			i++
		}
		b.WriteByte(v[i])
	}
	return b.String()
}

func isGlob(v string) bool {
	return strings.ContainsAny(v, "*?[{")
}

func escapeLike(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(v)
}
