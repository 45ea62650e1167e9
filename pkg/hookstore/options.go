package hookstore

import "log/slog"

// CreatePolicy decides what Create does when the name is already taken.
type CreatePolicy int

const (
	// PolicyStrict rejects a duplicate name with ErrDuplicateStore (default).
	PolicyStrict CreatePolicy = iota

	// PolicyOverride replaces the registered store and logs a warning.
	// Handles to the old store keep working but are no longer reachable by
	// name.
	PolicyOverride
)

// String returns the policy name used in configuration files.
func (p CreatePolicy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyOverride:
		return "override"
	default:
		return "unknown"
	}
}

// ParseCreatePolicy parses "strict" or "override".
func ParseCreatePolicy(s string) (CreatePolicy, bool) {
	switch s {
	case "", "strict":
		return PolicyStrict, true
	case "override":
		return PolicyOverride, true
	default:
		return PolicyStrict, false
	}
}

// DefaultMaxUpdateDepth is the nesting limit for re-entrant updates.
const DefaultMaxUpdateDepth = 64

// Option configures a Registry.
type Option func(*options)

type options struct {
	policy   CreatePolicy
	maxDepth int
	logger   *slog.Logger
	observer Observer
}

func defaultOptions() options {
	return options{
		policy:   PolicyStrict,
		maxDepth: DefaultMaxUpdateDepth,
		logger:   slog.Default(),
		observer: nopObserver{},
	}
}

// WithCreatePolicy sets the duplicate-name policy.
func WithCreatePolicy(p CreatePolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithMaxUpdateDepth bounds re-entrant update nesting. Zero disables the
// limit.
func WithMaxUpdateDepth(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxDepth = n
		}
	}
}

// WithLogger sets the logger used for misuse warnings and notification
// failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver installs an observer for metrics and tracing.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}
