// Package runner executes an extracted compiler and forwards its output to
// the log.
//
// Both output streams are drained concurrently with the wait for the child:
// a child blocked on a full pipe would otherwise never exit. Standard output
// is logged at info level, standard error at error level. Ordering between
// the two streams is not preserved.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ZebulonRouseFrantzich/thriftjar/internal/linelog"
	"github.com/ZebulonRouseFrantzich/thriftjar/internal/log"
)

// Runner starts executables and reports their exit status.
type Runner struct {
	logger zerolog.Logger
	stdin  io.Reader
	env    []string
	dir    string
}

// Option configures a Runner.
type Option func(*Runner)

// WithStdin sets the child's standard input. The default is os.Stdin; nil
// means the null device.
func WithStdin(r io.Reader) Option {
	return func(rn *Runner) {
		rn.stdin = r
	}
}

// WithEnv replaces the inherited environment.
func WithEnv(env []string) Option {
	return func(rn *Runner) {
		rn.env = env
	}
}

// WithDir sets the child's working directory. The default is the current one.
func WithDir(dir string) Option {
	return func(rn *Runner) {
		rn.dir = dir
	}
}

// New creates a runner logging child output to logger.
func New(logger zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		logger: logger,
		stdin:  os.Stdin,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts executable with args and blocks until it exits and both of its
// output streams are fully logged.
//
// The child sees the absolute path of executable as argv[0], followed by
// args in order. A zero exit returns (0, nil); a non-zero exit returns the
// code and an *AbnormalTerminationError. If ctx ends first Run returns
// ErrInterrupted and leaves the child running. Its output is still logged in
// the background until it exits.
func (r *Runner) Run(ctx context.Context, executable string, args []string) (int, error) {
	abs, err := filepath.Abs(executable)
	if err != nil {
		return -1, fmt.Errorf("%w: resolve %s: %w", ErrSpawn, executable, err)
	}

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return -1, fmt.Errorf("%w: create stdout pipe: %w", ErrSpawn, err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdoutR, stdoutW)
		return -1, fmt.Errorf("%w: create stderr pipe: %w", ErrSpawn, err)
	}

	cmd := &exec.Cmd{
		Path:   abs,
		Args:   append([]string{abs}, args...),
		Env:    r.env,
		Dir:    r.dir,
		Stdin:  r.stdin,
		Stdout: stdoutW,
		Stderr: stderrW,
	}

	r.logger.Debug().Str(log.FieldPath, abs).Strs(log.FieldArgs, args).Msg("starting thrift compiler")

	if err := cmd.Start(); err != nil {
		closeAll(stdoutR, stdoutW, stderrR, stderrW)
		return -1, fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	// The child holds its own copies of the write ends. Closing ours lets the
	// drainers see end of stream once the child is done writing.
	closeAll(stdoutW, stderrW)

	var drainers errgroup.Group
	drainers.Go(r.drain(stdoutR, "stdout", zerolog.InfoLevel))
	drainers.Go(r.drain(stderrR, "stderr", zerolog.ErrorLevel))

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	var waitErr error
	select {
	case waitErr = <-exited:
	case <-ctx.Done():
		r.logger.Debug().Int(log.FieldPID, cmd.Process.Pid).Msg("stopped waiting for thrift compiler")
		return -1, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	}

	// Exit status is final only once both streams hit end of stream.
	_ = drainers.Wait()

	return r.exitStatus(waitErr)
}

func (r *Runner) drain(stream *os.File, name string, level zerolog.Level) func() error {
	return func() error {
		defer stream.Close()
		linelog.Drain(stream, r.logger.With().Str(log.FieldStream, name).Logger(), level)
		return nil
	}
}

func (r *Runner) exitStatus(waitErr error) (int, error) {
	if waitErr == nil {
		r.logger.Debug().Int(log.FieldExitCode, 0).Msg("thrift compiler finished")
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		r.logger.Debug().Int(log.FieldExitCode, code).Str(log.FieldState, exitErr.String()).Msg("thrift compiler finished")
		return code, &AbnormalTerminationError{ExitCode: code, State: exitErr.String()}
	}

	return -1, fmt.Errorf("wait for thrift compiler: %w", waitErr)
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
