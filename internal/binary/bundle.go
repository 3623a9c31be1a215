package binary

import (
	"embed"
	"io/fs"
)

// Compilers are embedded at compile time as bin/<version>/<platform file>.
// See bin/README.md for the layout.
//
//go:embed bin
var bundled embed.FS

// Bundled returns the compilers embedded in this binary, rooted so that
// lookup keys start with "bin/".
func Bundled() fs.FS {
	return bundled
}

// Versions lists the version directories present in the bundle.
func Versions(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, "bin")
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, entry := range entries {
		if entry.IsDir() {
			versions = append(versions, entry.Name())
		}
	}
	return versions, nil
}
