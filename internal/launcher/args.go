package launcher

import "strings"

// VersionArgPrefix introduces the optional version selector argument.
const VersionArgPrefix = "--thriftversion="

// SplitVersionArg strips a leading --thriftversion=<value> argument.
//
// Only the first argument is considered, and only when something follows the
// prefix. A bare "--thriftversion=" or a selector in any later position is
// forwarded to the compiler untouched. ok reports whether a version was found.
func SplitVersionArg(args []string) (version string, rest []string, ok bool) {
	if len(args) == 0 {
		return "", args, false
	}
	first := args[0]
	if len(first) <= len(VersionArgPrefix) || !strings.HasPrefix(first, VersionArgPrefix) {
		return "", args, false
	}
	return first[len(VersionArgPrefix):], args[1:], true
}
