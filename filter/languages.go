package filter

// PopularLanguages is the static suggestion list for lang:
var PopularLanguages = []string{
	"assembly", "bash", "c", "c++", "c#", "css", "dart", "elixir", "erlang",
	"go", "graphql", "groovy", "haskell", "html", "java", "javascript", "json",
	"julia", "kotlin", "lua", "markdown", "matlab", "objective-c", "perl",
	"php", "powershell", "python", "r", "ruby", "rust", "sass", "scala",
	"sql", "swift", "typescript", "vb.net", "xml", "yaml",
}

func popularLanguages(string, bool) []Value {
	values := make([]Value, len(PopularLanguages))
	for i, lang := range PopularLanguages {
		values[i] = Value{Label: lang}
	}
	return values
}

// DotComRepoTemplates precede repo: suggestions on sourcegraph.com, where
// listing every indexed repository is not useful.
var DotComRepoTemplates = []Value{
	{Label: `^github\.com/ORGANIZATION/.*`, InsertText: `^github\.com/${1:ORGANIZATION}/.*`, Snippet: true, Detail: "All repositories of an organization"},
	{Label: `^github\.com/ORGANIZATION/REPO-NAME$`, InsertText: `^github\.com/${1:ORGANIZATION}/${2:REPO-NAME}$`, Snippet: true, Detail: "A single repository"},
	{Label: `STRING`, InsertText: `${1:STRING}`, Snippet: true, Detail: "Repositories whose name contains a string"},
}

func repoTemplates(typed string, isSourcegraphDotCom bool) []Value {
	if !isSourcegraphDotCom || typed != "" {
		return nil
	}
	return DotComRepoTemplates
}
