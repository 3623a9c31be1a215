package launcher

import (
	"context"
	"errors"

	"github.com/ZebulonRouseFrantzich/thriftjar/internal/binary"
	"github.com/ZebulonRouseFrantzich/thriftjar/internal/runner"
)

// Process exit statuses reported for launcher failures.
const (
	ExitStartFailure = 1
	ExitInterrupted  = 130
)

// IsStartFailure reports whether err means the compiler never ran: the
// platform is unsupported, the bundle lacks it, extraction or verification
// failed, or the OS refused to start it.
func IsStartFailure(err error) bool {
	return errors.Is(err, binary.ErrUnsupportedPlatform) ||
		errors.Is(err, binary.ErrMissingResource) ||
		errors.Is(err, binary.ErrExtraction) ||
		errors.Is(err, binary.ErrVerification) ||
		errors.Is(err, runner.ErrSpawn)
}

// ExitCode maps the result of Launch to a process exit status.
//
// A compiler that ran and failed keeps its own exit code. Interruption maps
// to 130 and every other failure to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := runner.ExitCodeOf(err); ok {
		if code > 0 {
			return code
		}
		return ExitStartFailure
	}
	if errors.Is(err, runner.ErrInterrupted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return ExitInterrupted
	}
	return ExitStartFailure
}
