// Package fs defines the filesystem abstraction used by folder-archiver.
// It provides the FS interface and the FileInfo type shared by the archiver
// and the retention enforcer.
package fs

import (
	"context"
	"os"
	"time"
)

type FileInfo struct {
	Path  string
	Size  int64
	MTime time.Time
	Mode  os.FileMode
	Inode uint64
}

// IsDir reports whether the entry is a directory.
func (fi FileInfo) IsDir() bool {
	return fi.Mode.IsDir()
}

type FS interface {
	Stat(path string) (FileInfo, error)
	Remove(ctx context.Context, path string) error
	RenameNoReplace(ctx context.Context, oldPath, newPath string) error
}
