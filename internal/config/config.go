// Package config loads and validates the action run engine configuration.
package config

// Store backends.
const (
	StoreBackendMemory = "memory"
	StoreBackendSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Store     StoreConfig     `mapstructure:"store"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Events    EventsConfig    `mapstructure:"events"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// RedactPatterns are extra regular expressions whose matches are
	// redacted from log output.
	RedactPatterns []string `mapstructure:"redact_patterns"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	CORS           bool     `mapstructure:"cors"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// RequestTimeout bounds non-streaming requests.
	RequestTimeout string `mapstructure:"request_timeout"`
}

// EngineConfig configures the engine facade.
type EngineConfig struct {
	// DefaultSource is recorded on runs whose request names no source.
	DefaultSource string `mapstructure:"default_source"`
}

// SchedulerConfig bounds the simulated completion latency.
type SchedulerConfig struct {
	MinDelay string `mapstructure:"min_delay"`
	MaxDelay string `mapstructure:"max_delay"`
}

// StoreConfig selects the run store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

// CatalogConfig points at an optional YAML catalog replacing the built-in one.
type CatalogConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
