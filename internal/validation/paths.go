// Package validation checks names authored for the dataspace and local save targets.
package validation

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrColon is returned for a remote path containing ':', which the server refuses.
var ErrColon = errors.New("path must not contain a colon")

// HasColon reports whether path contains ':'.
func HasColon(path string) bool {
	return strings.ContainsRune(path, ':')
}

// ValidateRemotePath checks a path the client is about to create on the server
// (a new folder or an uploaded file). Slashes are allowed; colons, empty
// segments other than a trailing one and "." or ".." segments are not.
func ValidateRemotePath(path string) error {
	if HasColon(path) {
		return ErrColon
	}
	trimmed := strings.TrimSuffix(path, "/")
	if trimmed == "" {
		return errors.New("path cannot be empty")
	}
	if strings.ContainsRune(trimmed, 0) {
		return errors.Errorf("path contains null byte: %s", path)
	}
	for _, seg := range strings.Split(trimmed, "/") {
		switch seg {
		case "":
			return errors.Errorf("path contains an empty segment: %s", path)
		case ".", "..":
			return errors.Errorf("path cannot contain %q: %s", seg, path)
		}
	}
	return nil
}

// ValidateFilename validates a filename (not a full path) to prevent path traversal.
// Used for upload names and for names a download is saved under.
//
// Returns an error if the filename:
//   - Is empty
//   - Contains path separators (/ or \)
//   - Is "." or ".."
//   - Contains null bytes
func ValidateFilename(filename string) error {
	if filename == "" {
		return errors.New("filename cannot be empty")
	}

	if strings.ContainsRune(filename, 0) {
		return errors.Errorf("filename contains null byte: %s", filename)
	}

	// Reject path separators (both Unix and Windows style)
	if strings.ContainsRune(filename, '/') || strings.ContainsRune(filename, '\\') {
		return errors.Errorf("filename cannot contain path separators: %s", filename)
	}

	// Names like "data..v2.csv" are fine; only the literal entries are rejected.
	if filename == "." || filename == ".." {
		return errors.Errorf("filename cannot be %q", filename)
	}

	return nil
}

// ValidatePathInDirectory validates that a path, when resolved, stays within baseDir.
//
// Example:
//
//	ValidatePathInDirectory("../../etc/passwd", "/tmp/downloads") // Error: escapes base dir
//	ValidatePathInDirectory("report.zip", "/tmp/downloads")       // OK: within base dir
func ValidatePathInDirectory(path string, baseDir string) error {
	if path == "" {
		return errors.New("path cannot be empty")
	}
	if baseDir == "" {
		return errors.New("base directory cannot be empty")
	}

	cleanBase, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return errors.Wrap(err, "failed to resolve base directory")
	}

	resolved := filepath.Clean(path)
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(cleanBase, resolved)
	}

	rel, err := filepath.Rel(cleanBase, resolved)
	if err != nil {
		return errors.Wrap(err, "failed to compute relative path")
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.Errorf("path escapes base directory: %s (base: %s)", path, baseDir)
	}
	return nil
}
