package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/hookstore/internal/errors"
	"github.com/vango-dev/hookstore/pkg/hookstore"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "hookstore.yaml"

	// DefaultPort is the default devtools server port.
	DefaultPort = 7070

	// DefaultHost is the default devtools server host.
	DefaultHost = "localhost"

	// DefaultNamespace is the default metrics namespace and tracer name.
	DefaultNamespace = "hookstore"

	// DefaultPingInterval is the default websocket keepalive interval.
	DefaultPingInterval = 30 * time.Second
)

// Config represents the complete hookstore.yaml configuration.
type Config struct {
	// Registry configures the store registry.
	Registry RegistryConfig `yaml:"registry"`

	// Devtools configures the inspector HTTP server.
	Devtools DevtoolsConfig `yaml:"devtools"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configures OpenTelemetry spans.
	Tracing TracingConfig `yaml:"tracing"`

	// Demo registers the example stores on startup.
	Demo bool `yaml:"demo"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RegistryConfig configures the store registry.
type RegistryConfig struct {
	// Policy is "strict" (duplicate names fail) or "override".
	Policy string `yaml:"policy"`

	// MaxUpdateDepth bounds nested updates. Zero disables the limit; nil
	// means the default.
	MaxUpdateDepth *int `yaml:"max_update_depth,omitempty"`
}

// DevtoolsConfig configures the inspector HTTP server.
type DevtoolsConfig struct {
	// Host is the host to bind to.
	Host string `yaml:"host"`

	// Port is the port to listen on.
	Port int `yaml:"port"`

	// ReadOnly disables the dispatch endpoint.
	ReadOnly bool `yaml:"read_only"`

	// AllowedOrigins lists the origins accepted for websocket upgrades.
	// Empty means same-origin only.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`

	// PingInterval is the websocket keepalive interval.
	PingInterval Duration `yaml:"ping_interval"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// TracingConfig configures OpenTelemetry spans.
type TracingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	TracerName string `yaml:"tracer_name"`
}

// Duration is a time.Duration written as a string ("30s") in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// New creates a new Config with default values.
func New() *Config {
	depth := hookstore.DefaultMaxUpdateDepth
	return &Config{
		Registry: RegistryConfig{
			Policy:         hookstore.PolicyStrict.String(),
			MaxUpdateDepth: &depth,
		},
		Devtools: DevtoolsConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			PingInterval: Duration(DefaultPingInterval),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: DefaultNamespace,
		},
		Demo: true,
	}
}

// Load reads hookstore.yaml from the specified directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigNotFound).
				WithDetail("No " + ConfigFileName + " found at " + path)
		}
		return nil, errors.FromError(err, errors.CodeInvalidConfig)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.configPath = path
	return cfg, nil
}

// Parse decodes YAML into a Config on top of the defaults, then validates it.
func Parse(data []byte) (*Config, error) {
	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeInvalidConfig).
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid YAML")
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.FromError(err, errors.CodeInvalidConfig)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.FromError(err, errors.CodeInvalidConfig)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Registry.Policy == "" {
		c.Registry.Policy = hookstore.PolicyStrict.String()
	}
	if c.Registry.MaxUpdateDepth == nil {
		depth := hookstore.DefaultMaxUpdateDepth
		c.Registry.MaxUpdateDepth = &depth
	}

	if c.Devtools.Host == "" {
		c.Devtools.Host = DefaultHost
	}
	if c.Devtools.Port == 0 {
		c.Devtools.Port = DefaultPort
	}
	if c.Devtools.PingInterval == 0 {
		c.Devtools.PingInterval = Duration(DefaultPingInterval)
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultNamespace
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	invalid := func(detail string) error {
		return errors.New(errors.CodeInvalidConfig).WithDetail(detail)
	}

	if _, ok := hookstore.ParseCreatePolicy(c.Registry.Policy); !ok {
		return invalid(fmt.Sprintf("registry.policy must be \"strict\" or \"override\", got %q", c.Registry.Policy))
	}
	if c.Registry.MaxUpdateDepth != nil && *c.Registry.MaxUpdateDepth < 0 {
		return invalid("registry.max_update_depth must not be negative")
	}
	if c.Devtools.Port < 0 || c.Devtools.Port > 65535 {
		return invalid("devtools.port must be between 0 and 65535")
	}
	if c.Devtools.PingInterval < Duration(time.Second) {
		return invalid("devtools.ping_interval must be at least 1s")
	}
	if _, err := c.LogLevel(); err != nil {
		return invalid(err.Error())
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return invalid(fmt.Sprintf("log.format must be \"text\" or \"json\", got %q", c.Log.Format))
	}
	return nil
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	return level, nil
}

// DevtoolsAddress returns the listen address of the devtools server.
func (c *Config) DevtoolsAddress() string {
	return c.Devtools.Host + ":" + strconv.Itoa(c.Devtools.Port)
}

// RegistryOptions returns the hookstore options described by the registry
// section.
func (c *Config) RegistryOptions() []hookstore.Option {
	policy, _ := hookstore.ParseCreatePolicy(c.Registry.Policy)
	opts := []hookstore.Option{hookstore.WithCreatePolicy(policy)}
	if c.Registry.MaxUpdateDepth != nil {
		opts = append(opts, hookstore.WithMaxUpdateDepth(*c.Registry.MaxUpdateDepth))
	}
	return opts
}

// Exists reports whether a hookstore.yaml exists in dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
