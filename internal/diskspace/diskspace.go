// Package diskspace checks free space before a download is written locally.
package diskspace

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
)

// SafetyMargin is applied to the announced size of a download.
const SafetyMargin = 1.1

// InsufficientSpaceError indicates that there is not enough disk space available.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	requiredMB := float64(e.RequiredBytes) / (1024 * 1024)
	availableMB := float64(e.AvailableBytes) / (1024 * 1024)
	return fmt.Sprintf("insufficient disk space for %s: need %.2f MB, have %.2f MB available",
		e.Path, requiredMB, availableMB)
}

// CheckAvailableSpace checks the filesystem that will hold targetPath (which
// may not exist yet) for requiredBytes times safetyMargin.
// When the free space cannot be determined the check passes and the write
// fails on its own if space runs out.
func CheckAvailableSpace(targetPath string, requiredBytes int64, safetyMargin float64) error {
	available, ok := availableBytes(filepath.Dir(targetPath))
	if !ok {
		return nil
	}

	required := int64(float64(requiredBytes) * safetyMargin)
	if available < required {
		return &InsufficientSpaceError{
			Path:           targetPath,
			RequiredBytes:  required,
			AvailableBytes: available,
		}
	}
	return nil
}

// GetAvailableSpace returns the available space in bytes for the filesystem
// containing the given path. Returns 0 if unable to determine.
func GetAvailableSpace(path string) int64 {
	available, _ := availableBytes(filepath.Dir(path))
	return available
}

// IsInsufficientSpaceError checks if an error is an InsufficientSpaceError.
func IsInsufficientSpaceError(err error) bool {
	var target *InsufficientSpaceError
	return errors.As(err, &target)
}
