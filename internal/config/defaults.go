package config

// Default values shared by the loader and DefaultConfigYAML.
const (
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "auto"
	DefaultHost           = "localhost"
	DefaultPort           = 8080
	DefaultRequestTimeout = "60s"
	DefaultSource         = "dashboard"
	DefaultMinDelay       = "800ms"
	DefaultMaxDelay       = "1700ms"
	DefaultStoreDSN       = ":memory:"
	DefaultEventBuffer    = 100
	DefaultConfigDir      = ".actionrun"
	DefaultConfigName     = "config"
	DefaultCatalogFile    = "catalog.yaml"
	DefaultEnvPrefix      = "ACTIONRUN"
	DefaultConfigFileExt  = "yaml"
)

// DefaultConfigYAML is written by `actionrun init`.
const DefaultConfigYAML = `# Action run engine configuration
#
# Every key can be overridden with an ACTIONRUN_* environment variable,
# e.g. ACTIONRUN_SERVER_PORT=9090.

log:
  level: info
  format: auto
  # Extra regular expressions redacted from log output, on top of the
  # built-in token and key patterns.
  redact_patterns: []

server:
  host: localhost
  port: 8080
  cors: true
  allowed_origins: ["*"]
  # Upper bound for non-streaming requests. Event streams are exempt.
  request_timeout: 60s

engine:
  default_source: dashboard

# Simulated completion latency. Both bounds must be positive.
scheduler:
  min_delay: 800ms
  max_delay: 1700ms

# memory keeps runs in process; sqlite uses modernc.org/sqlite.
# Runs are not durable either way unless dsn points at a file.
store:
  backend: memory
  dsn: ":memory:"

# With watch enabled, edits to the catalog file are picked up without a
# restart. A file that fails to parse is ignored and the previous catalog kept.
catalog:
  path: .actionrun/catalog.yaml
  watch: false

events:
  buffer_size: 100
`
