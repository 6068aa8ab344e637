package filter

import (
	"fmt"
	"strings"
)

// Param is one argument of a predicate. Prefix is literal text written
// before the placeholder (e.g. "file:") and Default the placeholder text.
type Param struct {
	Prefix  string
	Default string
}

// Predicate is a function-call style filter value such as contains.file(...)
type Predicate struct {
	Name        string
	Description string
	Params      []Param
	// RepoArgument marks predicates whose argument names a repository, so
	// the argument is completed from live repository matches.
	RepoArgument bool

	snippet string
}

// Snippet returns the insert text with numbered placeholders, e.g.
// "contains(file:${1:CHANGELOG} content:${2:fix})"
func (p Predicate) Snippet() string {
	return p.snippet
}

// Label returns the call with its default arguments
func (p Predicate) Label() string {
	args := make([]string, len(p.Params))
	for i, param := range p.Params {
		args[i] = param.Prefix + param.Default
	}
	return p.Name + "(" + strings.Join(args, " ") + ")"
}

func newPredicate(name, description string, repoArg bool, params ...Param) Predicate {
	args := make([]string, len(params))
	for i, param := range params {
		if param.Default == "" {
			args[i] = fmt.Sprintf("%s${%d}", param.Prefix, i+1)
		} else {
			args[i] = fmt.Sprintf("%s${%d:%s}", param.Prefix, i+1, param.Default)
		}
	}
	return Predicate{
		Name:         name,
		Description:  description,
		Params:       params,
		RepoArgument: repoArg,
		snippet:      name + "(" + strings.Join(args, " ") + ")",
	}
}

// Call is a predicate invocation found in a typed value
type Call struct {
	Predicate Predicate
	Argument  string // text after "(" up to the cursor or closing paren
	Closed    bool
}

// ParseCall reports whether value opens a call to one of preds. The name is
// everything before the first "(" and must match exactly.
func ParseCall(value string, preds []Predicate) (Call, bool) {
	open := strings.IndexByte(value, '(')
	if open < 0 {
		return Call{}, false
	}
	name := strings.ToLower(value[:open])
	for _, p := range preds {
		if p.Name != name {
			continue
		}
		arg := value[open+1:]
		closed := false
		if strings.HasSuffix(arg, ")") {
			arg = arg[:len(arg)-1]
			closed = true
		}
		return Call{Predicate: p, Argument: arg, Closed: closed}, true
	}
	return Call{}, false
}

var repoPredicates = []Predicate{
	newPredicate("contains.file", "Search only inside repositories that contain a matching file path.", false,
		Param{Default: "CHANGELOG"}),
	newPredicate("contains.content", "Search only inside repositories that contain matching file contents.", false,
		Param{Default: "TODO"}),
	newPredicate("contains", "Search only inside repositories that contain a file path and contents match.", false,
		Param{Prefix: "file:", Default: "CHANGELOG"}, Param{Prefix: "content:", Default: "fix"}),
	newPredicate("contains.commit.after", "Search only inside repositories that have been committed to since a date.", false,
		Param{Default: "1 month ago"}),
	newPredicate("deps", "Search the dependencies of the given repositories.", true,
		Param{}),
	newPredicate("dependencies", "Search the dependencies of the given repositories.", true,
		Param{}),
}
