package localfs

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Source is a local regular file opened for upload.
type Source struct {
	*os.File
	Name string // base name, used as the remote file name
	Size int64
}

// OpenSource opens path for upload. Directories are refused.
func OpenSource(path string) (*Source, error) {
	path, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot access %s", path)
	}
	if info.IsDir() {
		return nil, errors.Errorf("%s is a directory: only regular files can be uploaded", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	return &Source{File: f, Name: filepath.Base(path), Size: info.Size()}, nil
}
