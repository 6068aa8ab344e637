package filter

func include(negated bool) string {
	if negated {
		return "Exclude"
	}
	return "Include only"
}

var definitions = []Definition{
	{
		Type:        After,
		Description: "Commits made after a certain date",
		Aliases:     []string{"since"},
	},
	{
		Type:           Archived,
		Description:    "Include results from archived repositories.",
		DiscreteValues: []string{"yes", "no", "only"},
	},
	{
		Type:               Author,
		Description:        include(false) + " commits or diffs authored by a user.",
		NegatedDescription: include(true) + " commits or diffs authored by a user.",
	},
	{
		Type:        Before,
		Description: "Commits made before a certain date",
		Aliases:     []string{"until"},
	},
	{
		Type:           Case,
		Description:    "Treat the search pattern as case-sensitive.",
		DiscreteValues: []string{"yes", "no"},
	},
	{
		Type:               Committer,
		Description:        include(false) + " commits and diffs committed by a user.",
		NegatedDescription: include(true) + " commits and diffs committed by a user.",
	},
	{
		Type:               Content,
		Description:        include(false) + " results from files if their content matches the search pattern.",
		NegatedDescription: include(true) + " results from files if their content matches the search pattern.",
	},
	{
		Type:        Context,
		Description: "Search only repositories within a specified context",
	},
	{
		Type:        Count,
		Description: `Number of results to fetch (integer) or "all"`,
	},
	{
		Type:               File,
		Description:        include(false) + " results from files matching the given search pattern.",
		NegatedDescription: include(true) + " results from files matching the given search pattern.",
		Aliases:            []string{"f"},
		Suggestions:        SuggestPath,
	},
	{
		Type:           Fork,
		Description:    "Include results from forked repositories.",
		DiscreteValues: []string{"yes", "no", "only"},
	},
	{
		Type:               Lang,
		Description:        include(false) + " results from the given language",
		NegatedDescription: include(true) + " results from the given language",
		Aliases:            []string{"l", "language"},
		Suggest:            popularLanguages,
	},
	{
		Type:               Message,
		Description:        include(false) + " commits with messages matching a certain string",
		NegatedDescription: include(true) + " commits with messages matching a certain string",
		Aliases:            []string{"m", "msg"},
	},
	{
		Type:           PatternType,
		Description:    "The pattern type (regexp, literal, structural) in use",
		DiscreteValues: []string{"literal", "structural", "regexp", "standard"},
	},
	{
		Type:               Repo,
		Description:        include(false) + " results from repositories matching the given search pattern.",
		NegatedDescription: include(true) + " results from repositories matching the given search pattern.",
		Aliases:            []string{"r"},
		Suggest:            repoTemplates,
		Predicates:         repoPredicates,
		Suggestions:        SuggestRepo,
	},
	{
		Type:        RepoGroup,
		Description: "group-name (include results from the named group)",
		Aliases:     []string{"g"},
	},
	{
		Type:        RepoHasCommitAfter,
		Description: `"string specifying time frame" (filter out stale repositories without recent commits)`,
	},
	{
		Type:               RepoHasFile,
		Description:        include(false) + " results from repos that contain a matching file",
		NegatedDescription: include(true) + " results from repos that contain a matching file",
		Suggestions:        SuggestPath,
	},
	{
		Type:        Rev,
		Description: "Search a revision (branch, commit hash, or tag) instead of the default branch.",
		Aliases:     []string{"revision"},
	},
	{
		Type:           Select,
		Description:    "Selects the kind of result to display.",
		DiscreteValues: []string{"repo", "file", "content", "symbol", "commit"},
	},
	{
		Type:        Timeout,
		Description: "Duration before timeout",
	},
	{
		Type:           TypeFilter,
		Description:    "Limit results to the specified type.",
		DiscreteValues: []string{"diff", "commit", "symbol", "repo", "path", "file"},
	},
	{
		Type:           Visibility,
		Description:    "Include results from repositories with the matching visibility (private, public, any).",
		DiscreteValues: []string{"any", "private", "public"},
	},
}
