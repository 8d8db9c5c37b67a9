package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the graphmux.yaml configuration file plus GRAPHMUX_* environment
// overrides. It is loaded once at startup and handed to every consumer explicitly.
type Config struct {
	Debug       bool   `mapstructure:"debug"`
	Environment string `mapstructure:"environment"`

	Server          ServerConfig          `mapstructure:"server"`
	Redis           RedisConfig           `mapstructure:"redis"`
	Auth            AuthConfig            `mapstructure:"auth"`
	PersistedQuery  PersistedQueryConfig  `mapstructure:"persisted_queries"`
	GraphiQLGate    GraphiQLGateConfig    `mapstructure:"graphiql_gate"`

	// Apps lists the model manifest directories that make up the model universe.
	Apps []string `mapstructure:"apps"`

	// SchemaStore points at the persisted schema registry file. A missing file is
	// tolerated the same way a missing database table would be.
	SchemaStore string `mapstructure:"schema_store"`

	// Schemas declares schemas directly in configuration. Names already registered
	// by discovery are never overridden by this block.
	Schemas map[string]SchemaDecl `mapstructure:"schemas"`

	// GlobalSettings is the raw per-schema (or legacy unscoped) settings tree fed
	// into the settings resolution engine.
	GlobalSettings map[string]any `mapstructure:"settings"`

	// TestEndpointEnabled opens the conventional test GraphQL endpoint. Defaults to
	// enabled everywhere except production.
	TestEndpointEnabled *bool `mapstructure:"test_endpoint_enabled"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// RedisConfig holds the shared Redis backend configuration. An empty Addr means the
// in-process fallbacks are used for caching and rate limiting.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds JWT bearer token configuration.
type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// PersistedQueryConfig configures automatic persisted query support.
type PersistedQueryConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	TTL              time.Duration `mapstructure:"ttl"`
	MaxQueryLength   int           `mapstructure:"max_query_length"`
	EnforceAllowlist bool          `mapstructure:"enforce_allowlist"`
	AllowlistFile    string        `mapstructure:"allowlist_file"`
	Allowlist        []string      `mapstructure:"allowlist"`
	// AllowRegistration controls whether unlisted queries may be cached when an
	// allowlist is present but not enforced.
	AllowRegistration bool `mapstructure:"allow_registration"`
}

// GraphiQLGateConfig gates access to the conventionally named "graphiql" schema.
type GraphiQLGateConfig struct {
	AllowedHosts  []string `mapstructure:"allowed_hosts"`
	SuperuserOnly bool     `mapstructure:"superuser_only"`
}

// SchemaDecl is a schema declared directly in graphmux.yaml.
type SchemaDecl struct {
	Description   string         `mapstructure:"description"`
	Version       string         `mapstructure:"version"`
	Apps          []string       `mapstructure:"apps"`
	Models        []string       `mapstructure:"models"`
	ExcludeModels []string       `mapstructure:"exclude_models"`
	Settings      map[string]any `mapstructure:"settings"`
	Enabled       *bool          `mapstructure:"enabled"`
}

// Load loads graphmux.yaml from the current directory or a parent directory.
func Load() (*Config, string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return loadFromDir(dir)
}

// LoadFromPath loads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return unmarshal(v)
}

// LoadOrDefault behaves like Load but falls back to pure defaults plus environment
// overrides when no config file exists anywhere up the tree.
func LoadOrDefault() (*Config, error) {
	cfg, _, err := Load()
	if err == nil {
		return cfg, nil
	}
	v := newViper()
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("debug", false)
	v.SetDefault("environment", "")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("persisted_queries.enabled", true)
	v.SetDefault("persisted_queries.ttl", 24*time.Hour)
	v.SetDefault("persisted_queries.max_query_length", 0)
	v.SetDefault("persisted_queries.allow_registration", true)
	v.SetDefault("schema_store", "schemas.json")

	v.SetEnvPrefix("GRAPHMUX")
	v.AutomaticEnv()

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		if cfg.Debug {
			cfg.Environment = "development"
		} else {
			cfg.Environment = "production"
		}
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = time.Hour
	}
	if cfg.SchemaStore == "" {
		cfg.SchemaStore = "schemas.json"
	}
}

// TestEndpointAllowed reports whether the conventional test GraphQL endpoint should
// be served. Explicit configuration wins; otherwise it is blocked in production.
func (c *Config) TestEndpointAllowed() bool {
	if c.TestEndpointEnabled != nil {
		return *c.TestEndpointEnabled
	}
	return c.Environment != "production"
}

// loadFromDir searches for graphmux.yaml in the given directory and its parents.
func loadFromDir(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		for _, name := range []string{"graphmux.yaml", "graphmux.yml"} {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err == nil {
				cfg, err := LoadFromPath(configPath)
				if err != nil {
					return nil, "", err
				}
				return cfg, dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return nil, "", fmt.Errorf("no graphmux.yaml found in %s or any parent directory", startDir)
}
