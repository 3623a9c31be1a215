package config

// Environment variables read by Load.
const (
	EnvVersion   = "THRIFTJAR_VERSION"
	EnvLogLevel  = "THRIFTJAR_LOG_LEVEL"
	EnvLogFormat = "THRIFTJAR_LOG_FORMAT"
	EnvTempDir   = "THRIFTJAR_TMPDIR"
	EnvKeyring   = "THRIFTJAR_KEYRING"
)

// Log output formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

const defaultLogLevel = "info"
