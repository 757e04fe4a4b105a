package localfs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ResolvePath turns a user supplied local path into an absolute one.
// A leading "~" expands to the home directory and "" means the working
// directory. Symlinks are resolved on the longest existing prefix so a
// download directory that does not exist yet still resolves under its
// real parent.
func ResolvePath(p string) (string, error) {
	if p == "" {
		return os.Getwd()
	}
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to get home directory")
		}
		p = filepath.Join(home, p[1:])
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.Wrapf(err, "cannot resolve %s", p)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	existing := abs
	var missing []string
	for {
		if _, err := os.Stat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		missing = append([]string{filepath.Base(existing)}, missing...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		resolved = existing
	}
	return filepath.Join(append([]string{resolved}, missing...)...), nil
}
