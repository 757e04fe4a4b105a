//go:build !windows

package diskspace

import "syscall"

// availableBytes returns the space available to non-root users on the
// filesystem holding dir.
func availableBytes(dir string) (int64, bool) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return 0, false
	}
	return int64(stat.Bavail) * int64(stat.Bsize), true
}
