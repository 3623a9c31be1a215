// Package platform maps the running machine onto the closed set of platforms
// that ship a bundled Thrift compiler.
//
// Resolution is a pure function of an OS name and an architecture string.
// Detect gathers both from the host: the OS from the Go runtime and the
// architecture from the kernel (uname machine) via gopsutil, so that a
// 64-bit kernel running a 32-bit userland still reports what the kernel
// can execute.
package platform

import (
	"errors"
	"fmt"
)

// ErrUnsupportedPlatform is returned when no bundled executable exists for a platform.
var ErrUnsupportedPlatform = errors.New("no appropriate executable for this machine")

// ID identifies one supported OS and architecture combination.
type ID string

// Supported platform identifiers.
const (
	LinuxX86_64  ID = "linux-x86_64"
	LinuxAarch64 ID = "linux-aarch64"
	LinuxArmv7   ID = "linux-armv7"
	LinuxPpc64le ID = "linux-ppc64le"
	LinuxS390x   ID = "linux-s390x"
	Windows      ID = "windows"
	Unknown      ID = "unknown"
)

// executableNames maps each platform to the file name of its bundled binary.
// A platform without an entry has no executable.
var executableNames = map[ID]string{
	LinuxX86_64:  "thrift-linux_x86_64.exe",
	LinuxAarch64: "thrift-linux_aarch64.exe",
	LinuxArmv7:   "thrift-linux_armv7.exe",
	LinuxPpc64le: "thrift-linux_ppc64le.exe",
	LinuxS390x:   "thrift-linux_s390x.exe",
	Windows:      "thrift-windows.exe",
}

// String returns the platform identifier.
func (id ID) String() string {
	return string(id)
}

// Supported reports whether a bundled executable name is known for id.
func (id ID) Supported() bool {
	_, ok := executableNames[id]
	return ok
}

// ExecutableName returns the file name of the bundled binary for id.
func (id ID) ExecutableName() (string, error) {
	name, ok := executableNames[id]
	if !ok {
		return "", fmt.Errorf("%w: platform %s", ErrUnsupportedPlatform, id)
	}
	return name, nil
}

// All returns every supported platform in a stable order.
func All() []ID {
	return []ID{LinuxX86_64, LinuxAarch64, LinuxArmv7, LinuxPpc64le, LinuxS390x, Windows}
}

// Host describes the machine the launcher runs on.
type Host struct {
	OS      string // runtime.GOOS, e.g. "linux"
	Arch    string // kernel architecture, e.g. "x86_64", "aarch64", "armv7l"
	ArchRaw string // runtime.GOARCH of the launcher itself
}

// Platform resolves the host to a platform identifier.
func (h Host) Platform() ID {
	return Resolve(h.OS, h.Arch)
}
