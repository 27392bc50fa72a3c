package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// OSFS is the FS implementation backed by the local filesystem.
// Platform-specific details (such as inode extraction) live in build-tagged files.
type OSFS struct{}

func New() *OSFS {
	return &OSFS{}
}

func (o *OSFS) Stat(path string) (FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return fromOS(path, st), nil
}

// Remove deletes a single file, retrying transient failures.
func (o *OSFS) Remove(ctx context.Context, path string) error {
	return retry(ctx, "remove", func() error {
		return os.Remove(path)
	})
}

// RenameNoReplace moves oldPath to newPath and fails with an error wrapping
// os.ErrExist when newPath is already present. It never overwrites.
func (o *OSFS) RenameNoReplace(ctx context.Context, oldPath, newPath string) error {
	return retry(ctx, "rename", func() error {
		return renameNoReplace(oldPath, newPath)
	})
}

func renameNoReplace(oldPath, newPath string) error {
	// link(2) refuses to replace an existing name, which makes the
	// existence check and the publish a single step.
	err := os.Link(oldPath, newPath)
	if err == nil {
		_ = os.Remove(oldPath)
		return nil
	}
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%s: %w", newPath, os.ErrExist)
	}

	// Filesystems without hard links fall back to check-then-rename.
	if _, statErr := os.Lstat(newPath); statErr == nil {
		return fmt.Errorf("%s: %w", newPath, os.ErrExist)
	}
	return os.Rename(oldPath, newPath)
}

// FromOS converts an os.FileInfo into a FileInfo.
func FromOS(path string, st os.FileInfo) FileInfo {
	return fromOS(path, st)
}

func fromOS(path string, st os.FileInfo) FileInfo {
	return FileInfo{
		Path:  path,
		Size:  st.Size(),
		MTime: st.ModTime(),
		Mode:  st.Mode(),
		Inode: inodeOf(st),
	}
}
