// Package testutil provides utilities for testing the launcher in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZebulonRouseFrantzich/thriftjar/internal/config"
)

// Env is an isolated launcher environment created by SetupTestEnv.
type Env struct {
	// TempDir receives scratch directories; THRIFTJAR_TMPDIR points here.
	TempDir string
}

// SetupTestEnv clears every THRIFTJAR_* variable and points scratch
// directories at a fresh temp directory, so tests never pick up the
// developer's own settings or leave extractions in the system temp dir.
//
// Cleanup is handled by t.TempDir and t.Setenv.
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	tmpDir := filepath.Join(t.TempDir(), "scratch")
	if err := os.MkdirAll(tmpDir, 0o750); err != nil {
		t.Fatalf("failed to create test directory %s: %v", tmpDir, err)
	}

	for _, key := range []string{
		config.EnvVersion,
		config.EnvLogLevel,
		config.EnvLogFormat,
		config.EnvKeyring,
	} {
		t.Setenv(key, "")
	}
	t.Setenv(config.EnvTempDir, tmpDir)

	return &Env{TempDir: tmpDir}
}

// ScratchEntries returns the names left in the scratch directory.
func (e *Env) ScratchEntries(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(e.TempDir)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}
