package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// DefaultAllowedOrigins are the WebSocket origins accepted when none are configured
var DefaultAllowedOrigins = []string{
	"http://localhost",
	"https://localhost",
	"http://127.0.0.1",
	"https://127.0.0.1",
	"vscode-webview://",
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "searchq.db")

	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", DefaultAllowedOrigins)
	v.SetDefault("server.completion_rate_limit", 20.0) // per second, keystroke-driven
	v.SetDefault("server.completion_burst", 40)
	v.SetDefault("server.max_documents", 100)

	v.SetDefault("completion.sourcegraph_dot_com", false)
	v.SetDefault("completion.globbing", false)
	v.SetDefault("completion.max_dynamic_results", 50)
	v.SetDefault("completion.fetch_timeout_ms", 2000)

	v.SetDefault("sourcegraph.url", "https://sourcegraph.com")
}

// BindEnvVars binds settings commonly overridden per shell to explicit names
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "SEARCHQ_DATABASE_PATH")
	v.BindEnv("sourcegraph.url", "SEARCHQ_SOURCEGRAPH_URL", "SRC_ENDPOINT")
}

// GetServerPort returns the configured port or DefaultServerPort
func (c *Config) GetServerPort() int {
	if c.Server.Port == nil {
		return DefaultServerPort
	}
	return *c.Server.Port
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "searchq.db"
	}
	return c.Database.Path
}

// GetServerAllowedOrigins returns the allowed WebSocket origins
func (c *Config) GetServerAllowedOrigins() []string {
	if len(c.Server.AllowedOrigins) == 0 {
		return DefaultAllowedOrigins
	}
	return c.Server.AllowedOrigins
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Server: {Port: %d}, Completion: {DotCom: %t, Globbing: %t}}",
		c.GetDatabasePath(), c.GetServerPort(), c.Completion.SourcegraphDotCom, c.Completion.Globbing)
}
