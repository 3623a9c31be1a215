package binary

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// ChecksumFileName is the per-version checksum manifest inside the bundle.
const ChecksumFileName = "SHA256SUMS"

// Verifier checks extracted binaries against the integrity files shipped
// next to them in the bundle. A bundle without such files is accepted as is.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a verifier. Signatures are only checked when keyring
// holds at least one key.
func NewVerifier(keyring openpgp.EntityList) *Verifier {
	return &Verifier{keyring: keyring}
}

// Verify checks the extracted file at binaryPath, copied from the resource at
// key, and returns the methods that were applied.
//
// Checksums and signatures always cover the uncompressed binary.
func (v *Verifier) Verify(fsys fs.FS, key, binaryPath string) ([]VerificationMethod, error) {
	var methods []VerificationMethod
	dir, name := path.Split(key)

	sums, err := fs.ReadFile(fsys, dir+ChecksumFileName)
	switch {
	case err == nil:
		if err := verifySHA256(binaryPath, name, sums); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrVerification, err)
		}
		methods = append(methods, VerificationSHA256)
	case !isNotFound(err):
		return nil, fmt.Errorf("%w: read %s: %w", ErrVerification, ChecksumFileName, err)
	}

	if len(v.keyring) > 0 {
		verified, err := v.verifyGPG(fsys, key, binaryPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrVerification, err)
		}
		if verified {
			methods = append(methods, VerificationGPG)
		}
	}

	return methods, nil
}

// verifyGPG checks key+".asc" (armored) or key+".sig" (binary). It reports
// false when the bundle has no signature for key.
func (v *Verifier) verifyGPG(fsys fs.FS, key, binaryPath string) (bool, error) {
	for _, sig := range []struct {
		suffix  string
		armored bool
	}{
		{".asc", true},
		{".sig", false},
	} {
		sigFile, err := fsys.Open(key + sig.suffix)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return false, fmt.Errorf("open signature: %w", err)
		}

		err = v.checkSignature(binaryPath, sigFile, sig.armored)
		sigFile.Close()
		if err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (v *Verifier) checkSignature(binaryPath string, signature io.Reader, armored bool) error {
	binaryFile, err := os.Open(binaryPath)
	if err != nil {
		return fmt.Errorf("open binary: %w", err)
	}
	defer binaryFile.Close()

	if armored {
		_, err = openpgp.CheckArmoredDetachedSignature(v.keyring, binaryFile, signature, nil)
	} else {
		_, err = openpgp.CheckDetachedSignature(v.keyring, binaryFile, signature, nil)
	}
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}
	return nil
}

// verifySHA256 compares the file's digest with the entry for name in sums.
func verifySHA256(binaryPath, name string, sums []byte) error {
	actualChecksum, err := calculateSHA256(binaryPath)
	if err != nil {
		return fmt.Errorf("calculate checksum: %w", err)
	}

	expectedChecksum, err := findChecksum(bytes.NewReader(sums), name)
	if err != nil {
		return fmt.Errorf("find checksum: %w", err)
	}

	if !strings.EqualFold(actualChecksum, expectedChecksum) {
		return fmt.Errorf("checksum mismatch for %s:\nactual:   %s\nexpected: %s",
			name, actualChecksum, expectedChecksum)
	}
	return nil
}

// calculateSHA256 calculates the SHA256 checksum of a file
func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

var errChecksumNotFound = errors.New("checksum not found")

// findChecksum finds the checksum for a specific filename in sha256sum output.
// Format: "abc123def456  filename" or "abc123def456 *filename" (binary mode)
func findChecksum(r io.Reader, filename string) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}

		checksumFilename := strings.TrimPrefix(parts[1], "*")
		if checksumFilename == filename || path.Base(checksumFilename) == filename {
			return parts[0], nil
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan checksum file: %w", err)
	}

	return "", fmt.Errorf("%w for %s", errChecksumNotFound, filename)
}
