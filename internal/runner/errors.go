package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrSpawn is returned when the operating system refuses to start the executable.
	ErrSpawn = errors.New("cannot start executable")
	// ErrInterrupted is returned when the context ends before the child exits.
	// The child is not killed.
	ErrInterrupted = errors.New("interrupted while waiting for executable")
)

// AbnormalTerminationError reports a child that ran and exited non-zero.
type AbnormalTerminationError struct {
	// ExitCode is the child's exit status, or -1 if it was killed by a signal.
	ExitCode int
	// State is the process state as reported by the OS, e.g. "signal: killed".
	State string
}

func (e *AbnormalTerminationError) Error() string {
	if e.ExitCode < 0 && e.State != "" {
		return fmt.Sprintf("thrift compiler terminated abnormally (%s)", e.State)
	}
	return fmt.Sprintf("thrift compiler exited with code %d", e.ExitCode)
}

// ExitCodeOf returns the child's exit code carried by err, if any.
func ExitCodeOf(err error) (int, bool) {
	var abnormal *AbnormalTerminationError
	if errors.As(err, &abnormal) {
		return abnormal.ExitCode, true
	}
	return 0, false
}
