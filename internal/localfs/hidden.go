// Package localfs is the local side of transfers: hidden-name detection shared
// with remote listings, local directory listing, opening upload sources and
// saving downloads.
package localfs

import (
	"path/filepath"
	"strings"
)

// IsHidden returns true if the file or directory at the given path is hidden,
// i.e. its base name starts with a dot. The path can be relative or absolute.
func IsHidden(path string) bool {
	return IsHiddenName(filepath.Base(path))
}

// IsHiddenName returns true if the given name (not path) is hidden. The same
// rule applies to remote entry names. Special entries "." and ".." are not hidden.
func IsHiddenName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
