// Package am loads searchq configuration: TOML files merged
// system < user < project < environment, with defaults, validation,
// persistence and a file watcher for hot reload.
package am

import (
	"time"

	"github.com/teranos/searchq/completion"
)

// Config represents the searchq configuration
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database" toml:"database" yaml:"database" json:"database"`
	Server      ServerConfig      `mapstructure:"server" toml:"server" yaml:"server" json:"server"`
	Completion  CompletionConfig  `mapstructure:"completion" toml:"completion" yaml:"completion" json:"completion"`
	Sourcegraph SourcegraphConfig `mapstructure:"sourcegraph" toml:"sourcegraph" yaml:"sourcegraph" json:"sourcegraph"`
}

// DatabaseConfig configures the SQLite match index
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path" yaml:"path" json:"path"`
}

// ServerConfig configures the HTTP/WebSocket server
type ServerConfig struct {
	Port           *int     `mapstructure:"port" toml:"port,omitempty" yaml:"port,omitempty" json:"port,omitempty"` // nil = DefaultServerPort, 0 is invalid
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins" yaml:"allowed_origins" json:"allowed_origins"`

	// Completion endpoint rate limit, requests per second (0 = unlimited)
	CompletionRateLimit float64 `mapstructure:"completion_rate_limit" toml:"completion_rate_limit" yaml:"completion_rate_limit" json:"completion_rate_limit"`
	CompletionBurst     int     `mapstructure:"completion_burst" toml:"completion_burst" yaml:"completion_burst" json:"completion_burst"`

	// Open LSP documents kept per connection
	MaxDocuments int `mapstructure:"max_documents" toml:"max_documents" yaml:"max_documents" json:"max_documents"`
}

// CompletionConfig configures suggestion behaviour
type CompletionConfig struct {
	SourcegraphDotCom bool `mapstructure:"sourcegraph_dot_com" toml:"sourcegraph_dot_com" yaml:"sourcegraph_dot_com" json:"sourcegraph_dot_com"`
	Globbing          bool `mapstructure:"globbing" toml:"globbing" yaml:"globbing" json:"globbing"`
	MaxDynamicResults int  `mapstructure:"max_dynamic_results" toml:"max_dynamic_results" yaml:"max_dynamic_results" json:"max_dynamic_results"`
	FetchTimeoutMS    int  `mapstructure:"fetch_timeout_ms" toml:"fetch_timeout_ms" yaml:"fetch_timeout_ms" json:"fetch_timeout_ms"` // 0 = no deadline
}

// SourcegraphConfig points at the instance hosted file URLs are built for
type SourcegraphConfig struct {
	URL string `mapstructure:"url" toml:"url" yaml:"url" json:"url"`
}

// Server port constants
const (
	DefaultServerPort = 3434
)

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// Options converts the completion section to dispatcher options
func (c CompletionConfig) Options() completion.Options {
	return completion.Options{
		IsSourcegraphDotCom: c.SourcegraphDotCom,
		Globbing:            c.Globbing,
		MaxResults:          c.MaxDynamicResults,
	}
}

// FetchTimeout returns the dynamic fetch deadline, zero for none
func (c CompletionConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}
