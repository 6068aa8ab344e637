package am

import "github.com/teranos/searchq/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Server port: 0 is invalid (omit for default), negative is invalid
	if c.Server.Port != nil && *c.Server.Port == 0 {
		return errors.Newf("server.port cannot be 0 (omit for default port %d)", DefaultServerPort)
	}
	if c.Server.Port != nil && (*c.Server.Port < 0 || *c.Server.Port > 65535) {
		return errors.Newf("server.port must be between 1 and 65535, got %d", *c.Server.Port)
	}

	// Rate limit: 0 = unlimited, negative = invalid
	if c.Server.CompletionRateLimit < 0 {
		return errors.Newf("server.completion_rate_limit must be >= 0, got %f", c.Server.CompletionRateLimit)
	}
	if c.Server.CompletionRateLimit > 0 && c.Server.CompletionBurst <= 0 {
		return errors.Newf("server.completion_burst must be > 0 when rate limited, got %d", c.Server.CompletionBurst)
	}
	if c.Server.MaxDocuments < 0 {
		return errors.Newf("server.max_documents must be >= 0, got %d", c.Server.MaxDocuments)
	}

	// Completion: 0 = fetcher default / no deadline
	if c.Completion.MaxDynamicResults < 0 {
		return errors.Newf("completion.max_dynamic_results must be >= 0, got %d", c.Completion.MaxDynamicResults)
	}
	if c.Completion.FetchTimeoutMS < 0 {
		return errors.Newf("completion.fetch_timeout_ms must be >= 0, got %d", c.Completion.FetchTimeoutMS)
	}

	return nil
}
