package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: DefaultEnvPrefix,
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: DefaultEnvPrefix,
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// ConfigFileUsed returns the path of the file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (ACTIONRUN_*)
// 3. Project config (.actionrun/config.yaml)
// 4. User config (~/.config/actionrun/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(DefaultConfigName)
		l.v.SetConfigType(DefaultConfigFileExt)
		l.v.AddConfigPath(DefaultConfigDir)
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "actionrun"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", DefaultLogLevel)
	l.v.SetDefault("log.format", DefaultLogFormat)
	l.v.SetDefault("log.redact_patterns", []string{})

	l.v.SetDefault("server.host", DefaultHost)
	l.v.SetDefault("server.port", DefaultPort)
	l.v.SetDefault("server.cors", true)
	l.v.SetDefault("server.allowed_origins", []string{"*"})
	l.v.SetDefault("server.request_timeout", DefaultRequestTimeout)

	l.v.SetDefault("engine.default_source", DefaultSource)

	l.v.SetDefault("scheduler.min_delay", DefaultMinDelay)
	l.v.SetDefault("scheduler.max_delay", DefaultMaxDelay)

	l.v.SetDefault("store.backend", StoreBackendMemory)
	l.v.SetDefault("store.dsn", DefaultStoreDSN)

	l.v.SetDefault("catalog.path", "")
	l.v.SetDefault("catalog.watch", false)

	l.v.SetDefault("events.buffer_size", DefaultEventBuffer)
}

// Delays parses the scheduler bounds. Call after Validate.
func (c SchedulerConfig) Delays() (minDelay, maxDelay time.Duration, err error) {
	minDelay, err = time.ParseDuration(c.MinDelay)
	if err != nil {
		return 0, 0, fmt.Errorf("scheduler.min_delay: %w", err)
	}
	maxDelay, err = time.ParseDuration(c.MaxDelay)
	if err != nil {
		return 0, 0, fmt.Errorf("scheduler.max_delay: %w", err)
	}
	return minDelay, maxDelay, nil
}

// Timeout parses RequestTimeout. Call after Validate.
func (c ServerConfig) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("server.request_timeout: %w", err)
	}
	return d, nil
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
