package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/proactive/dataspace-browser/internal/diskspace"
	"github.com/proactive/dataspace-browser/internal/validation"
)

// Saver writes downloaded content into a local directory. It satisfies
// browser.Saver.
type Saver struct {
	Dir       string
	Overwrite bool // replace an existing file instead of picking a new name
}

// NewSaver creates a saver for dir ("" means the working directory).
func NewSaver(dir string) *Saver {
	if dir == "" {
		dir = "."
	}
	return &Saver{Dir: dir}
}

// Save streams r into Dir/name through a temporary file and renames it into
// place once complete, so a failed download never leaves a truncated file
// under the final name. It returns the path written.
func (s *Saver) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if err := validation.ValidateFilename(name); err != nil {
		return "", errors.Wrap(err, "invalid download name")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create %s", s.Dir)
	}

	target := filepath.Join(s.Dir, name)
	if !s.Overwrite {
		target = UniquePath(target)
	}
	if err := validation.ValidatePathInDirectory(filepath.Base(target), s.Dir); err != nil {
		return "", err
	}
	if size > 0 {
		if err := diskspace.CheckAvailableSpace(target, size, diskspace.SafetyMargin); err != nil {
			return "", err
		}
	}

	tmp, err := os.CreateTemp(s.Dir, "."+name+".partial-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temporary file")
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := io.Copy(tmp, &contextReader{ctx: ctx, r: r}); err != nil {
		cleanup()
		return "", errors.Wrapf(err, "failed to write %s", target)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", errors.Wrapf(err, "failed to close %s", target)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return "", errors.Wrapf(err, "failed to move download to %s", target)
	}
	return target, nil
}

// UniquePath returns path if nothing exists there, otherwise the first free
// "name (n).ext" variant.
func UniquePath(path string) string {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
