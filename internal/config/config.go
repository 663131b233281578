// Package config provides configuration management for clustermap.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like REGISTRY_HOME_ENVIRONMENT, SERVER_PORT)
// 3. Default values
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Registry source kinds.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Registry RegistryConfig `mapstructure:"registry"`
	Log      LogConfig      `mapstructure:"log"`
	Security SecurityConfig `mapstructure:"security"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig contains PostgreSQL connection settings.
// Only used when the registry source is "postgres".
type DatabaseConfig struct {
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// DSN returns the PostgreSQL connection string.
// Priority: DATABASE_URL > constructed from individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// RegistryConfig describes where name rows come from and which environment is home.
type RegistryConfig struct {
	// HomeEnvironment is the tag whose names all lookups resolve to.
	HomeEnvironment string `mapstructure:"home_environment"`

	// Environments lists every tag the row schema defines.
	Environments []string `mapstructure:"environments"`

	// Source is "file" or "postgres".
	Source   string `mapstructure:"source"`
	FilePath string `mapstructure:"file_path"`
	Table    string `mapstructure:"table"`

	// ReloadInterval of zero disables periodic reloads.
	ReloadInterval time.Duration `mapstructure:"reload_interval"`

	// StrictHome fails registry builds whose home tag matches no environment.
	StrictHome bool `mapstructure:"strict_home"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// SecurityConfig contains settings for the admin reload endpoint.
// An empty JWTSigningKey disables the endpoint.
type SecurityConfig struct {
	JWTSigningKey string `mapstructure:"jwt_signing_key"`
	JWTIssuer     string `mapstructure:"jwt_issuer"`

	// JWTVerificationKeys are previous signing keys still accepted during rotation.
	JWTVerificationKeys []string `mapstructure:"jwt_verification_keys"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize int `mapstructure:"general_pool_size"`
	ReloadPoolSize  int `mapstructure:"reload_pool_size"`
}

// Load reads configuration from the default search paths and environment variables.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/clustermap")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}
	return decode(v)
}

// LoadFile reads configuration from an explicit file plus environment variables.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	// Maps nested config: registry.home_environment → REGISTRY_HOME_ENVIRONMENT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	r := c.Registry
	if r.HomeEnvironment == "" {
		return fmt.Errorf("registry.home_environment must not be empty")
	}
	if len(r.Environments) > 0 && !slices.Contains(r.Environments, r.HomeEnvironment) {
		return fmt.Errorf("registry.home_environment %q is not one of registry.environments %v",
			r.HomeEnvironment, r.Environments)
	}
	switch r.Source {
	case SourceFile:
		if r.FilePath == "" {
			return fmt.Errorf("registry.file_path must not be empty for file source")
		}
	case SourcePostgres:
		if r.Table == "" {
			return fmt.Errorf("registry.table must not be empty for postgres source")
		}
	default:
		return fmt.Errorf("registry.source must be %q or %q, got %q", SourceFile, SourcePostgres, r.Source)
	}
	if r.ReloadInterval < 0 {
		return fmt.Errorf("registry.reload_interval must not be negative")
	}
	if k := c.Security.JWTSigningKey; k != "" && len(k) < 32 {
		return fmt.Errorf("security.jwt_signing_key must be at least 32 characters")
	}
	return nil
}

// ReloadEnabled reports whether the admin reload endpoint is served.
func (c SecurityConfig) ReloadEnabled() bool {
	return c.JWTSigningKey != ""
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{})

	// Database (postgres source only)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "clustermap")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "clustermap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "10m")

	// Registry
	v.SetDefault("registry.home_environment", "public")
	v.SetDefault("registry.environments", []string{})
	v.SetDefault("registry.source", SourceFile)
	v.SetDefault("registry.file_path", "./config/names.yaml")
	v.SetDefault("registry.table", "environment_names")
	v.SetDefault("registry.reload_interval", "5m")
	v.SetDefault("registry.strict_home", false)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Security
	v.SetDefault("security.jwt_signing_key", "")
	v.SetDefault("security.jwt_issuer", "clustermap")
	v.SetDefault("security.jwt_verification_keys", []string{})

	// Worker pools
	v.SetDefault("worker.general_pool_size", 16)
	v.SetDefault("worker.reload_pool_size", 2)
}
