package binary

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/ZebulonRouseFrantzich/thriftjar/internal/log"
	"github.com/ZebulonRouseFrantzich/thriftjar/internal/platform"
)

// scratchPrefix prefixes every scratch directory name.
const scratchPrefix = "thrift"

// Extractor copies bundled compilers out of a resource set onto disk.
type Extractor struct {
	fsys     fs.FS
	tempDir  string
	verifier *Verifier
	logger   zerolog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTempDir sets the parent directory for scratch directories.
// The default is os.TempDir().
func WithTempDir(dir string) Option {
	return func(e *Extractor) {
		e.tempDir = dir
	}
}

// WithVerifier checks every extracted binary with v.
func WithVerifier(v *Verifier) Option {
	return func(e *Extractor) {
		e.verifier = v
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// NewExtractor creates an extractor reading from fsys. A nil fsys means the
// compilers bundled into this binary.
func NewExtractor(fsys fs.FS, opts ...Option) *Extractor {
	if fsys == nil {
		fsys = Bundled()
	}
	e := &Extractor{
		fsys:     fsys,
		verifier: NewVerifier(nil),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract copies the compiler for p and version into a fresh scratch
// directory and marks it executable. On error nothing is left on disk.
func Extract(p platform.ID, version string) (*Executable, error) {
	return NewExtractor(nil).Extract(p, version)
}

// ResourcePath returns the lookup key of the bundled compiler for p and version.
func ResourcePath(p platform.ID, version string) (string, error) {
	name, err := p.ExecutableName()
	if err != nil {
		return "", err
	}
	return "bin/" + version + "/" + name, nil
}

// Extract copies the compiler for p and version into a fresh scratch
// directory and marks it executable. On error nothing is left on disk.
func (e *Extractor) Extract(p platform.ID, version string) (*Executable, error) {
	key, err := ResourcePath(p, version)
	if err != nil {
		return nil, err
	}

	tempDir := e.tempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	// Mkdir rather than MkdirAll: an existing directory with this name is a
	// hard failure, there is no retry with a new name.
	root := filepath.Join(tempDir, scratchPrefix+uuid.NewString())
	if err := os.Mkdir(root, 0o700); err != nil {
		return nil, fmt.Errorf("%w: create scratch directory: %w", ErrExtraction, err)
	}
	exe := newExecutable(root)
	exe.Platform = p
	exe.Version = version

	if err := e.populate(exe, key); err != nil {
		if rerr := exe.Release(); rerr != nil {
			e.logger.Warn().Err(rerr).Str("dir", root).Msg("failed to clean up partial extraction")
		}
		return nil, err
	}

	e.logger.Debug().
		Str(log.FieldPlatform, p.String()).
		Str(log.FieldVersion, version).
		Str("source", exe.Source).
		Strs("verified", methodNames(exe.Verified)).
		Str(log.FieldPath, exe.Path).
		Msg("extracted thrift compiler")

	return exe, nil
}

func (e *Extractor) populate(exe *Executable, key string) error {
	if err := os.Mkdir(filepath.Dir(exe.Path), 0o700); err != nil {
		return fmt.Errorf("%w: create bin directory: %w", ErrExtraction, err)
	}

	src, source, err := e.open(key)
	if err != nil {
		return err
	}
	defer src.Close()
	exe.Source = source

	if err := copyFile(exe.Path, src); err != nil {
		return err
	}

	if e.verifier != nil {
		methods, err := e.verifier.Verify(e.fsys, key, exe.Path)
		if err != nil {
			return err
		}
		exe.Verified = methods
	}

	if err := SetExecutable(exe.Path); err != nil {
		return fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	return nil
}

// open returns a reader over the resource at key, or over its gzip-compressed
// sibling key+".gz" if only that exists.
func (e *Extractor) open(key string) (io.ReadCloser, string, error) {
	if !fs.ValidPath(key) {
		return nil, "", fmt.Errorf("%w: %s is not a valid resource path", ErrMissingResource, key)
	}

	f, err := e.fsys.Open(key)
	if err == nil {
		return f, key, nil
	}
	if !isNotFound(err) {
		return nil, "", fmt.Errorf("%w: open %s: %w", ErrExtraction, key, err)
	}

	gzKey := key + ".gz"
	gz, gzErr := e.fsys.Open(gzKey)
	if gzErr != nil {
		if isNotFound(gzErr) {
			return nil, "", fmt.Errorf("%w: %s%s", ErrMissingResource, key, e.versionsHint())
		}
		return nil, "", fmt.Errorf("%w: open %s: %w", ErrExtraction, gzKey, gzErr)
	}

	zr, err := gzip.NewReader(gz)
	if err != nil {
		gz.Close()
		return nil, "", fmt.Errorf("%w: read %s: %w", ErrExtraction, gzKey, err)
	}
	return &gzipFile{Reader: zr, file: gz}, gzKey, nil
}

// versionsHint lists the bundled versions for a missing resource error.
func (e *Extractor) versionsHint() string {
	versions, err := Versions(e.fsys)
	if err != nil || len(versions) == 0 {
		return " (bundle contains no versions)"
	}
	return " (bundled versions: " + strings.Join(versions, ", ") + ")"
}

// isNotFound treats keys some fs.FS implementations reject as invalid the
// same as absent ones.
func isNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid)
}

type gzipFile struct {
	*gzip.Reader
	file fs.File
}

func (g *gzipFile) Close() error {
	return errors.Join(g.Reader.Close(), g.file.Close())
}

func copyFile(dest string, src io.Reader) error {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("%w: create file: %w", ErrExtraction, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("%w: write file: %w", ErrExtraction, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: close file: %w", ErrExtraction, err)
	}
	return nil
}

// SetExecutable sets executable permissions on a file
func SetExecutable(path string) error {
	// Set permissions to 0755 (rwxr-xr-x)
	if err := os.Chmod(path, 0o755); err != nil {
		return fmt.Errorf("set executable: %w", err)
	}
	return nil
}
