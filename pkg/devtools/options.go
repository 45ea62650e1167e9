package devtools

import (
	"log/slog"
	"net/http"
	"time"
)

// Config configures the devtools server.
type Config struct {
	// ReadOnly disables the dispatch endpoint.
	ReadOnly bool

	// AllowedOrigins lists origins accepted for websocket upgrades. Empty
	// means same-origin only; "*" accepts any origin.
	AllowedOrigins []string

	// PingInterval is the websocket keepalive interval (default: 30s).
	PingInterval time.Duration

	// Metrics is served at /metrics when non-nil.
	Metrics http.Handler

	// AfterDispatch runs after every successful dispatch, for example to
	// flush a render queue.
	AfterDispatch func()

	// Logger receives request and connection logs (default: slog.Default()).
	Logger *slog.Logger
}

// Option configures the devtools server.
type Option func(*Config)

// WithReadOnly disables the dispatch endpoint.
func WithReadOnly(readOnly bool) Option {
	return func(c *Config) {
		c.ReadOnly = readOnly
	}
}

// WithAllowedOrigins sets the origins accepted for websocket upgrades.
func WithAllowedOrigins(origins ...string) Option {
	return func(c *Config) {
		c.AllowedOrigins = origins
	}
}

// WithPingInterval sets the websocket keepalive interval.
func WithPingInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PingInterval = d
		}
	}
}

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(c *Config) {
		c.Metrics = h
	}
}

// WithAfterDispatch sets a hook run after every successful dispatch.
func WithAfterDispatch(fn func()) Option {
	return func(c *Config) {
		c.AfterDispatch = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

func defaultConfig() Config {
	return Config{
		PingInterval: 30 * time.Second,
		Logger:       slog.Default(),
	}
}
