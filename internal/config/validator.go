package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateServer(&cfg.Server)
	v.validateEngine(&cfg.Engine)
	v.validateScheduler(&cfg.Scheduler)
	v.validateStore(&cfg.Store)
	v.validateCatalog(&cfg.Catalog)
	v.validateEvents(&cfg.Events)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}

	for _, p := range cfg.RedactPatterns {
		if _, err := regexp.Compile(p); err != nil {
			v.addError("log.redact_patterns", p, "invalid regular expression")
		}
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		v.addError("server.port", cfg.Port, "must be between 1 and 65535")
	}
	if cfg.CORS && len(cfg.AllowedOrigins) == 0 {
		v.addError("server.allowed_origins", cfg.AllowedOrigins, "required when cors is enabled")
	}
	if d, err := time.ParseDuration(cfg.RequestTimeout); err != nil {
		v.addError("server.request_timeout", cfg.RequestTimeout, "invalid duration format")
	} else if d <= 0 {
		v.addError("server.request_timeout", cfg.RequestTimeout, "must be positive")
	}
}

func (v *Validator) validateEngine(cfg *EngineConfig) {
	if strings.TrimSpace(cfg.DefaultSource) == "" {
		v.addError("engine.default_source", cfg.DefaultSource, "must not be empty")
	}
}

func (v *Validator) validateScheduler(cfg *SchedulerConfig) {
	minDelay, minErr := time.ParseDuration(cfg.MinDelay)
	if minErr != nil {
		v.addError("scheduler.min_delay", cfg.MinDelay, "invalid duration format")
	} else if minDelay <= 0 {
		v.addError("scheduler.min_delay", cfg.MinDelay, "must be positive")
	}

	maxDelay, maxErr := time.ParseDuration(cfg.MaxDelay)
	if maxErr != nil {
		v.addError("scheduler.max_delay", cfg.MaxDelay, "invalid duration format")
	} else if maxDelay <= 0 {
		v.addError("scheduler.max_delay", cfg.MaxDelay, "must be positive")
	}

	if minErr == nil && maxErr == nil && maxDelay < minDelay {
		v.addError("scheduler.max_delay", cfg.MaxDelay, "must be >= scheduler.min_delay")
	}
}

func (v *Validator) validateStore(cfg *StoreConfig) {
	switch cfg.Backend {
	case StoreBackendMemory:
	case StoreBackendSQLite:
		if cfg.DSN == "" {
			v.addError("store.dsn", cfg.DSN, "required for the sqlite backend")
		}
	default:
		v.addError("store.backend", cfg.Backend, "must be one of: memory, sqlite")
	}
}

func (v *Validator) validateCatalog(cfg *CatalogConfig) {
	if cfg.Watch && cfg.Path == "" {
		v.addError("catalog.watch", cfg.Watch, "requires catalog.path")
	}
}

func (v *Validator) validateEvents(cfg *EventsConfig) {
	if cfg.BufferSize <= 0 {
		v.addError("events.buffer_size", cfg.BufferSize, "must be positive")
	}
}

// ValidateConfig is a convenience function for validating config.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
