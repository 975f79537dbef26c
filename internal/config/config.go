// Package config loads the YAML configuration of a contentgraph server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/hanpama/contentgraph/internal/connection"
	"github.com/hanpama/contentgraph/internal/content"
	"github.com/hanpama/contentgraph/internal/customfield"
	"github.com/hanpama/contentgraph/internal/logging"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

type Config struct {
	Log       Log                      `yaml:"log"`
	Server    Server                   `yaml:"server"`
	Store     Store                    `yaml:"store"`
	Telemetry Telemetry                `yaml:"telemetry"`
	Schema    Schema                   `yaml:"schema"`
	Content   content.Model            `yaml:"content"`
	Groups    []customfield.FieldGroup `yaml:"field_groups"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type Server struct {
	Addr          string        `yaml:"addr"`
	Timeout       time.Duration `yaml:"timeout"`
	Pretty        bool          `yaml:"pretty"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
	CORSOrigins   []string      `yaml:"cors_origins"`
	GraphiQL      *bool         `yaml:"graphiql"`
	Introspection *bool         `yaml:"introspection"`
	// ViewerTokens maps bearer tokens to the viewer they authenticate.
	ViewerTokens map[string]string `yaml:"viewer_tokens"`
	RequireAuth  bool              `yaml:"require_auth"`
}

// GraphiQLEnabled reports whether the IDE is served. It defaults to true.
func (s Server) GraphiQLEnabled() bool { return s.GraphiQL == nil || *s.GraphiQL }

// IntrospectionEnabled reports whether introspection queries are answered.
// It defaults to true.
func (s Server) IntrospectionEnabled() bool { return s.Introspection == nil || *s.Introspection }

type Store struct {
	Driver    string `yaml:"driver"`
	Fixtures  string `yaml:"fixtures"`
	RedisURL  string `yaml:"redis_url"`
	KeyPrefix string `yaml:"key_prefix"`
}

type Telemetry struct {
	// OTLPEndpoint is the gRPC collector address. Tracing is off when empty.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
	Metrics      *bool  `yaml:"metrics"`
}

// MetricsEnabled reports whether /metrics is served. It defaults to true.
func (t Telemetry) MetricsEnabled() bool { return t.Metrics == nil || *t.Metrics }

type Schema struct {
	QueryType    string  `yaml:"query_type"`
	MutationType string  `yaml:"mutation_type"`
	Exclude      Exclude `yaml:"exclude"`
	Limits       Limits  `yaml:"limits"`
}

type Exclude struct {
	Types       []string `yaml:"types"`
	Connections []string `yaml:"connections"`
	Mutations   []string `yaml:"mutations"`
}

type Limits struct {
	Default int `yaml:"default"`
	Max     int `yaml:"max"`
}

// Connection returns the page limits for connections.
func (l Limits) Connection() connection.Limits {
	return connection.Limits{Default: l.Default, Max: l.Max}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads path, expands environment variables, decodes it strictly and
// validates the result. A relative fixtures path is resolved against the
// directory of path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if c.Store.Fixtures != "" && !filepath.IsAbs(c.Store.Fixtures) {
		c.Store.Fixtures = filepath.Join(filepath.Dir(path), c.Store.Fixtures)
	}
	return c, nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var c Config
	content := []byte(os.ExpandEnv(string(data)))
	if err := yaml.UnmarshalWithOptions(content, &c, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, yaml.FormatError(err, false, true))
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 10 * time.Second
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "contentgraph"
	}
	if c.Schema.Limits.Default == 0 {
		c.Schema.Limits.Default = connection.DefaultLimits.Default
	}
	if c.Schema.Limits.Max == 0 {
		c.Schema.Limits.Max = connection.DefaultLimits.Max
	}
	if len(c.Content.PostTypes) == 0 && len(c.Content.Taxonomies) == 0 {
		c.Content = content.DefaultModel()
	}
}

// Validate reports every problem in c.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, errors.New("server: timeout must not be negative"))
	}
	if c.Server.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("server: max_body_bytes must not be negative"))
	}
	for token, viewer := range c.Server.ViewerTokens {
		if token == "" || viewer == "" {
			errs = append(errs, errors.New("server: viewer_tokens entries need a token and a viewer"))
			break
		}
	}
	switch c.Store.Driver {
	case DriverMemory:
		if c.Store.RedisURL != "" {
			errs = append(errs, errors.New("store: redis_url requires driver redis"))
		}
	case DriverRedis:
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("store: driver redis requires redis_url"))
		}
		if c.Store.Fixtures != "" {
			errs = append(errs, errors.New("store: fixtures require driver memory"))
		}
	default:
		errs = append(errs, fmt.Errorf("store: unknown driver %q", c.Store.Driver))
	}
	if l := c.Schema.Limits; l.Default < 0 || l.Max < 0 || l.Default > l.Max {
		errs = append(errs, fmt.Errorf("schema: limits need 0 <= default <= max, got %d and %d", l.Default, l.Max))
	}
	if err := c.Content.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("content: %w", err))
	}
	for i, g := range c.Groups {
		if g.Title == "" && g.GraphQLFieldName == "" {
			errs = append(errs, fmt.Errorf("field_groups[%d]: title or graphql_field_name is required", i))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
