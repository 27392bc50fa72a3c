//go:build unix

package fs

import (
	"os"
	"syscall"
)

// inodeOf extracts the inode number so a file replaced by rename during
// archiving can be told apart from the original.
func inodeOf(info os.FileInfo) uint64 {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0
	}
	return uint64(st.Ino)
}
