package localfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileEntry represents a file or directory in the local filesystem.
type FileEntry struct {
	Path    string      // Full path to the file
	Name    string      // Base name of the file
	Size    int64       // Size in bytes (0 for directories)
	IsDir   bool        // True if this is a directory
	ModTime time.Time   // Last modification time
	Mode    fs.FileMode // File mode/permissions
}

// ListOptions configures the behavior of ListDirectory.
type ListOptions struct {
	// IncludeHidden includes hidden files (starting with .) in results.
	// Default is false (hidden files excluded).
	IncludeHidden bool
}

// ListDirectory returns the contents of a directory, directories first and
// then by name, filtered by options.
func ListDirectory(path string, opts ListOptions) ([]FileEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	result := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()

		if !opts.IncludeHidden && IsHiddenName(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Skip entries we can't stat (permission issues, etc.)
			continue
		}

		size := info.Size()
		if entry.IsDir() {
			size = 0
		}
		result = append(result, FileEntry{
			Path:    filepath.Join(path, name),
			Name:    name,
			Size:    size,
			IsDir:   entry.IsDir(),
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].IsDir != result[j].IsDir {
			return result[i].IsDir
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}
