package internal

import "github.com/starford/platelog/internal/journal"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config      *Config
	stdioMCP    bool
	entitlement journal.Entitlement
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithStdioMCP serves the MCP tools on stdin/stdout instead of the HTTP API.
func WithStdioMCP() Option {
	return func(a *application) {
		a.stdioMCP = true
	}
}

// WithEntitlement overrides the entitlement derived from gate.entitled.
func WithEntitlement(e journal.Entitlement) Option {
	return func(a *application) {
		a.entitlement = e
	}
}
