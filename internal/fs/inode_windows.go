//go:build windows

package fs

import "os"

// Windows does not expose POSIX inodes through os.FileInfo; Changed falls
// back to size and mtime.
func inodeOf(info os.FileInfo) uint64 {
	_ = info
	return 0
}
