// Package binary extracts the Thrift compiler bundled for the current
// platform into a private scratch directory.
//
// # Layout
//
// Compilers are looked up as bin/<version>/<platform file>, where the platform
// file name comes from platform.ID.ExecutableName. Whatever the source, the
// extracted copy is always named thrift.exe:
//
//	<tmp>/thrift<uuid>/
//	    bin/
//	        thrift.exe
//
// Every extraction gets its own scratch root. The root is created with a
// single Mkdir, so a name collision fails instead of reusing a directory.
//
// # Errors
//
//   - ErrUnsupportedPlatform: the platform has no bundled file name
//   - ErrMissingResource: nothing is bundled under the lookup key
//   - ErrExtraction: a filesystem step failed (mkdir, copy, chmod)
//   - ErrVerification: a checksum or signature shipped with the bundle did not match
//
// # Cleanup
//
// The caller owns the returned Executable and releases it explicitly:
//
//	exe, err := binary.NewExtractor(nil).Extract(platform.LinuxX86_64, binary.DefaultVersion)
//	if err != nil {
//	    return err
//	}
//	defer exe.Release()
//
// # Verification
//
// A version directory may carry a SHA256SUMS manifest and, per binary, a
// detached OpenPGP signature (<name>.asc or <name>.sig). When present they are
// checked against the extracted file before it is made executable.
package binary
