package completion

// MatchType is the variant of a SearchMatch
type MatchType string

const (
	RepoMatch    MatchType = "repo"
	PathMatch    MatchType = "path"
	ContentMatch MatchType = "content"
	SymbolMatch  MatchType = "symbol"
	CommitMatch  MatchType = "commit"
)

// Symbol is a named definition inside a file
type Symbol struct {
	Name          string `json:"name"`
	ContainerName string `json:"container_name,omitempty"`
	Kind          string `json:"kind"`
}

// SearchMatch is a search result used as a completion source
type SearchMatch struct {
	Type       MatchType `json:"type"`
	Repository string    `json:"repository"`
	Path       string    `json:"path,omitempty"`
	Symbols    []Symbol  `json:"symbols,omitempty"`
	Commit     string    `json:"commit,omitempty"`
	Message    string    `json:"message,omitempty"`
}
