package binary

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ZebulonRouseFrantzich/thriftjar/internal/platform"
)

// DefaultVersion is the Thrift compiler version used when none is requested.
const DefaultVersion = "0.18.1"

// ExecutableFileName is the name every extracted compiler is copied to,
// whatever platform it was built for.
const ExecutableFileName = "thrift.exe"

// Error kinds returned by Extract. Callers tell "not bundled" apart from
// "disk or permissions problem" with errors.Is.
var (
	ErrUnsupportedPlatform = platform.ErrUnsupportedPlatform
	ErrMissingResource     = errors.New("bundled executable not found")
	ErrExtraction          = errors.New("cannot extract executable")
	ErrVerification        = errors.New("bundled executable failed verification")
)

// VerificationMethod indicates how an extracted binary was verified
type VerificationMethod int

const (
	// VerificationNone means the bundle carried no checksum or signature
	VerificationNone VerificationMethod = iota
	// VerificationGPG indicates a detached OpenPGP signature was checked
	VerificationGPG
	// VerificationSHA256 indicates a SHA256SUMS entry was checked
	VerificationSHA256
)

// String returns the string representation of the verification method
func (v VerificationMethod) String() string {
	switch v {
	case VerificationGPG:
		return "GPG"
	case VerificationSHA256:
		return "SHA256"
	case VerificationNone:
		return "None"
	default:
		return "Unknown"
	}
}

func methodNames(methods []VerificationMethod) []string {
	names := make([]string, 0, len(methods))
	for _, m := range methods {
		names = append(names, m.String())
	}
	return names
}

// Executable is an extracted compiler inside its private scratch directory.
// The owner must call Release once the executable is no longer needed.
type Executable struct {
	Path     string // the extracted executable
	Dir      string // scratch root holding bin/
	Platform platform.ID
	Version  string
	// Source is the resource the executable was copied from.
	Source   string
	Verified []VerificationMethod

	once       sync.Once
	releaseErr error
}

func newExecutable(root string) *Executable {
	return &Executable{
		Dir:  root,
		Path: filepath.Join(root, "bin", ExecutableFileName),
	}
}

// Release removes the executable, the bin directory and the scratch root, in
// that order. It is safe to call more than once and on a partial extraction.
func (e *Executable) Release() error {
	if e == nil {
		return nil
	}
	e.once.Do(func() {
		var errs []error
		for _, p := range []string{e.Path, filepath.Dir(e.Path), e.Dir} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
			}
		}
		e.releaseErr = errors.Join(errs...)
	})
	return e.releaseErr
}
