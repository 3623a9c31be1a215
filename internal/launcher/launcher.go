// Package launcher runs the bundled thrift compiler for the current machine.
//
// A launch resolves the host platform, extracts the matching compiler into a
// private scratch directory, runs it with the caller's arguments and removes
// the scratch directory again once the compiler has exited.
package launcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/thriftjar/internal/binary"
	"github.com/ZebulonRouseFrantzich/thriftjar/internal/log"
	"github.com/ZebulonRouseFrantzich/thriftjar/internal/platform"
)

// Extractor provides bundled compilers on disk.
type Extractor interface {
	Extract(p platform.ID, version string) (*binary.Executable, error)
}

// Runner executes a compiler and reports its exit status.
type Runner interface {
	Run(ctx context.Context, executable string, args []string) (int, error)
}

// Launcher orchestrates detection, extraction and execution.
type Launcher struct {
	detector  platform.Detector
	extractor Extractor
	runner    Runner
	clock     Clock
	logger    zerolog.Logger
	version   string
}

// New creates a launcher with dependency injection. version is used when the
// arguments carry no --thriftversion= selector.
func New(
	detector platform.Detector,
	extractor Extractor,
	runner Runner,
	clock Clock,
	logger zerolog.Logger,
	version string,
) *Launcher {
	if clock == nil {
		clock = RealClock{}
	}
	if version == "" {
		version = binary.DefaultVersion
	}
	return &Launcher{
		detector:  detector,
		extractor: extractor,
		runner:    runner,
		clock:     clock,
		logger:    logger,
		version:   version,
	}
}

// Launch runs the compiler with args and returns its exit code.
//
// A leading --thriftversion=<value> argument selects the bundled version and
// is not forwarded. Every error is returned to the caller; ExitCode turns it
// into a process status. The scratch directory is removed before Launch
// returns.
func (l *Launcher) Launch(ctx context.Context, args []string) (int, error) {
	version, forwarded, ok := SplitVersionArg(args)
	if !ok {
		version = l.version
	}

	host, err := l.detector.Detect(ctx)
	if err != nil {
		return -1, fmt.Errorf("detect host platform: %w", err)
	}

	id := host.Platform()
	if !id.Supported() {
		return -1, fmt.Errorf("%w: no thrift compiler for os=%s arch=%s (supported: %s)",
			binary.ErrUnsupportedPlatform, host.OS, host.Arch, supportedList())
	}
	l.logger.Debug().
		Str(log.FieldPlatform, id.String()).
		Str(log.FieldVersion, version).
		Str("arch", host.Arch).
		Str("go_arch", host.ArchRaw).
		Msg("resolved platform")

	exe, err := l.extractor.Extract(id, version)
	if err != nil {
		return -1, err
	}
	defer func() {
		if rerr := exe.Release(); rerr != nil {
			l.logger.Warn().Err(rerr).Str(log.FieldPath, exe.Dir).Msg("failed to remove scratch directory")
		}
	}()

	l.logger.Debug().
		Str(log.FieldPath, exe.Path).
		Strs(log.FieldArgs, forwarded).
		Msg("launching thrift compiler")

	start := l.clock.Now()
	code, err := l.runner.Run(ctx, exe.Path, forwarded)
	l.logger.Debug().
		Int(log.FieldExitCode, code).
		Dur("duration", l.clock.Now().Sub(start)).
		Msg("thrift compiler returned")

	return code, err
}

func supportedList() string {
	ids := platform.All()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.String()
	}
	return strings.Join(names, ", ")
}
