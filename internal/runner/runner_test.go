package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const helperEnv = "THRIFTJAR_WANT_HELPER_PROCESS"

// TestHelperProcess is not a real test. Run re-executes the test binary with
// it selected to stand in for the thrift compiler.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "no helper mode")
		os.Exit(2)
	}
	mode, rest := args[1], args[2:]

	switch mode {
	case "lines":
		fmt.Print("line1\nline2\n")
	case "argv":
		fmt.Println(os.Args[0])
		for _, a := range rest {
			fmt.Printf("[%s]\n", a)
		}
	case "crlf":
		fmt.Print("a\r\n\r\n\rb\r\n")
	case "exit":
		code, _ := strconv.Atoi(rest[0])
		fmt.Fprintln(os.Stderr, "compiler failed")
		os.Exit(code)
	case "flood":
		// Far more than an OS pipe buffer on both streams, then exit 3.
		n, _ := strconv.Atoi(rest[0])
		out := bufio.NewWriter(os.Stdout)
		errw := bufio.NewWriter(os.Stderr)
		for i := 0; i < n; i++ {
			fmt.Fprintf(out, "out %d %s\n", i, strings.Repeat("o", 100))
			fmt.Fprintf(errw, "err %d %s\n", i, strings.Repeat("e", 100))
		}
		out.Flush()
		errw.Flush()
		os.Exit(3)
	case "sleep":
		d, _ := time.ParseDuration(rest[0])
		time.Sleep(d)
	default:
		fmt.Fprintf(os.Stderr, "unknown helper mode %q\n", mode)
		os.Exit(2)
	}
	os.Exit(0)
}

type logRecord struct {
	Level   string `json:"level"`
	Stream  string `json:"stream"`
	Message string `json:"message"`
}

type logCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *logCapture) records(t *testing.T, stream string) []logRecord {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []logRecord
	sc := bufio.NewScanner(bytes.NewReader(c.buf.Bytes()))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var r logRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		if stream == "" || r.Stream == stream {
			out = append(out, r)
		}
	}
	return out
}

func newHelperRunner(t *testing.T) (*Runner, *logCapture) {
	t.Helper()
	t.Setenv(helperEnv, "1")

	capture := &logCapture{}
	logger := zerolog.New(capture).Level(zerolog.DebugLevel)
	return New(logger, WithStdin(nil)), capture
}

func helperArgs(mode string, args ...string) []string {
	return append([]string{"-test.run=^TestHelperProcess$", "--", mode}, args...)
}

func TestRun_ForwardsStdoutAsInfo(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	r, capture := newHelperRunner(t)

	code, err := r.Run(context.Background(), os.Args[0], helperArgs("lines"))
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	stdout := capture.records(t, "stdout")
	require.Len(t, stdout, 2)
	assert.Equal(t, "line1", stdout[0].Message)
	assert.Equal(t, "line2", stdout[1].Message)
	for _, rec := range stdout {
		assert.Equal(t, "info", rec.Level)
	}
	assert.Empty(t, capture.records(t, "stderr"))
}

func TestRun_CarriageReturns(t *testing.T) {
	r, capture := newHelperRunner(t)

	_, err := r.Run(context.Background(), os.Args[0], helperArgs("crlf"))
	require.NoError(t, err)

	var got []string
	for _, rec := range capture.records(t, "stdout") {
		got = append(got, rec.Message)
	}
	assert.Equal(t, []string{"a", "\rb"}, got)
}

func TestRun_ArgumentVector(t *testing.T) {
	r, capture := newHelperRunner(t)

	wd, err := os.Getwd()
	require.NoError(t, err)
	rel, err := filepath.Rel(wd, os.Args[0])
	if err != nil {
		t.Skipf("test binary not reachable by relative path: %v", err)
	}

	forwarded := []string{"--gen", "java", "", "with space", "-out", "gen-java"}
	_, err = r.Run(context.Background(), rel, helperArgs("argv", forwarded...))
	require.NoError(t, err)

	stdout := capture.records(t, "stdout")
	require.Len(t, stdout, 1+len(forwarded))
	assert.True(t, filepath.IsAbs(stdout[0].Message), "argv[0] %q is not absolute", stdout[0].Message)
	for i, arg := range forwarded {
		assert.Equal(t, "["+arg+"]", stdout[i+1].Message)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	r, capture := newHelperRunner(t)

	code, err := r.Run(context.Background(), os.Args[0], helperArgs("exit", "3"))
	require.Error(t, err)
	assert.Equal(t, 3, code)

	var abnormal *AbnormalTerminationError
	require.ErrorAs(t, err, &abnormal)
	assert.Equal(t, 3, abnormal.ExitCode)
	assert.Contains(t, err.Error(), "3")

	got, ok := ExitCodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, 3, got)

	stderr := capture.records(t, "stderr")
	require.Len(t, stderr, 1)
	assert.Equal(t, "error", stderr[0].Level)
	assert.Equal(t, "compiler failed", stderr[0].Message)
}

func TestRun_DrainsFullPipesBeforeReporting(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	r, capture := newHelperRunner(t)

	const lines = 5000 // ~500KiB per stream
	code, err := r.Run(context.Background(), os.Args[0], helperArgs("flood", strconv.Itoa(lines)))
	assert.Equal(t, 3, code)
	var abnormal *AbnormalTerminationError
	require.ErrorAs(t, err, &abnormal)

	stdout := capture.records(t, "stdout")
	stderr := capture.records(t, "stderr")
	require.Len(t, stdout, lines)
	require.Len(t, stderr, lines)
	assert.True(t, strings.HasPrefix(stdout[lines-1].Message, fmt.Sprintf("out %d ", lines-1)))
	assert.True(t, strings.HasPrefix(stderr[lines-1].Message, fmt.Sprintf("err %d ", lines-1)))
}

func TestRun_SpawnFailure(t *testing.T) {
	dir := t.TempDir()

	notExecutable := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(notExecutable, []byte("hello"), 0o600))

	badFormat := filepath.Join(dir, "garbage.exe")
	require.NoError(t, os.WriteFile(badFormat, []byte{0x00, 0x01, 0x02, 0x03}, 0o755))

	tests := []struct {
		name string
		path string
		unix bool
	}{
		{"missing", filepath.Join(dir, "missing.exe"), false},
		{"permission denied", notExecutable, true},
		{"exec format", badFormat, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.unix && runtime.GOOS == "windows" {
				t.Skip("permission bits are not enforced on windows")
			}
			defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

			code, err := New(zerolog.Nop(), WithStdin(nil)).Run(context.Background(), tt.path, nil)
			assert.Equal(t, -1, code)
			assert.ErrorIs(t, err, ErrSpawn)

			_, ok := ExitCodeOf(err)
			assert.False(t, ok)
		})
	}
}

func TestRun_Interrupted(t *testing.T) {
	ignore := goleak.IgnoreCurrent()
	r, _ := newHelperRunner(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	code, err := r.Run(ctx, os.Args[0], helperArgs("sleep", "1s"))
	assert.Equal(t, -1, code)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	// The drainers and the wait outlive Run until the child exits, then stop.
	assert.Eventually(t, func() bool {
		return goleak.Find(ignore) == nil
	}, 10*time.Second, 50*time.Millisecond)
}

func TestRun_Env(t *testing.T) {
	r, capture := newHelperRunner(t)
	WithEnv([]string{helperEnv + "=1", "SYSTEMROOT=" + os.Getenv("SYSTEMROOT")})(r)
	WithDir(t.TempDir())(r)

	code, err := r.Run(context.Background(), os.Args[0], helperArgs("lines"))
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Len(t, capture.records(t, "stdout"), 2)
}

func TestAbnormalTerminationError(t *testing.T) {
	err := fmt.Errorf("launch: %w", &AbnormalTerminationError{ExitCode: 7})
	assert.Equal(t, "launch: thrift compiler exited with code 7", err.Error())

	signaled := &AbnormalTerminationError{ExitCode: -1, State: "signal: killed"}
	assert.Contains(t, signaled.Error(), "signal: killed")

	_, ok := ExitCodeOf(errors.New("other"))
	assert.False(t, ok)
}
