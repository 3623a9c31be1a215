package platform

import "strings"

// archRule matches a lowercased architecture string against a platform.
type archRule struct {
	id    ID
	match func(arch string) bool
}

// linuxArchRules is checked in order and the first match wins. Architecture
// strings overlap ("armv7" and "aarch64" both say arm), so the order is the
// precedence.
var linuxArchRules = []archRule{
	{LinuxX86_64, containsAny("x8664", "x86_64", "x86-64", "amd64", "x64")},
	{LinuxS390x, containsAny("s390x")},
	{LinuxArmv7, containsAll("arm", "v7")},
	{LinuxPpc64le, containsAny("ppc64le")},
	{LinuxAarch64, containsAny("aarch64", "arm64")},
}

// Resolve maps an OS name and architecture string to a platform identifier.
// Matching is case-insensitive. Anything unrecognized, including 32-bit x86
// Linux, resolves to Unknown.
func Resolve(osName, arch string) ID {
	switch classifyOS(osName) {
	case "windows":
		return Windows
	case "linux":
		return resolveLinuxArch(arch)
	default:
		return Unknown
	}
}

func resolveLinuxArch(arch string) ID {
	arch = normalize(arch)
	if arch == "" {
		return Unknown
	}
	for _, rule := range linuxArchRules {
		if rule.match(arch) {
			return rule.id
		}
	}
	return Unknown
}

// classifyOS accepts both Go names ("linux") and descriptive ones ("Windows 11").
func classifyOS(osName string) string {
	osName = normalize(osName)
	switch {
	case strings.HasPrefix(osName, "linux"):
		return "linux"
	case strings.HasPrefix(osName, "windows"):
		return "windows"
	default:
		return ""
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(subs ...string) func(string) bool {
	return func(arch string) bool {
		for _, sub := range subs {
			if strings.Contains(arch, sub) {
				return true
			}
		}
		return false
	}
}

func containsAll(subs ...string) func(string) bool {
	return func(arch string) bool {
		for _, sub := range subs {
			if !strings.Contains(arch, sub) {
				return false
			}
		}
		return true
	}
}
