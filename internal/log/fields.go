package log

// Canonical field name constants for structured logging.
const (
	FieldComponent = "component"
	FieldStream    = "stream"

	FieldPlatform = "platform"
	FieldVersion  = "version"
	FieldPath     = "path"
	FieldArgs     = "args"

	FieldPID      = "pid"
	FieldExitCode = "exit_code"
	FieldState    = "state"
)
