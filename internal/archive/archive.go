// Package archive writes a source directory tree into a single zip snapshot.
// A snapshot is assembled under a hidden temporary name in the destination
// and only published under its final name once it is complete.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/raoulx24/folder-archiver/internal/backuperr"
	"github.com/raoulx24/folder-archiver/internal/fs"
	"github.com/raoulx24/folder-archiver/internal/logging"
	"github.com/raoulx24/folder-archiver/internal/snapshot"
)

const tmpSuffix = ".tmp"

// Result describes a snapshot that was written successfully.
type Result struct {
	Name  string
	Path  string
	Files int
	Bytes int64
	// Changed lists entries whose source file was modified while it was read.
	Changed []string
}

// Archiver creates snapshots.
type Archiver struct {
	fs  fs.FS
	log logging.Logger

	// onEntry is called after each entry is added; tests use it to disturb
	// the source mid-run.
	onEntry func(name string)
}

// New creates an Archiver. A nil filesystem selects the OS filesystem.
func New(filesystem fs.FS, log logging.Logger) *Archiver {
	if filesystem == nil {
		filesystem = fs.New()
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Archiver{fs: filesystem, log: log}
}

// CreateSnapshot archives the full contents of sourceDir into destDir under
// the snapshot name derived from now. It never overwrites an existing file:
// a second snapshot within the same second fails with ArchiveWriteFailed
// wrapping backuperr.ErrNameCollision.
func (a *Archiver) CreateSnapshot(ctx context.Context, sourceDir, destDir string, level Level, now time.Time) (Result, error) {
	if err := a.checkSource(sourceDir); err != nil {
		return Result{}, err
	}
	if err := a.checkDest(destDir); err != nil {
		return Result{}, err
	}

	name := snapshot.Name(now)
	finalPath := filepath.Join(destDir, name)
	if _, err := os.Lstat(finalPath); err == nil {
		return Result{}, backuperr.New(backuperr.ArchiveWriteFailed, "create snapshot", finalPath, backuperr.ErrNameCollision)
	}

	tmp, err := os.CreateTemp(destDir, "."+strings.TrimSuffix(name, snapshot.Ext)+"-*"+snapshot.Ext+tmpSuffix)
	if err != nil {
		return Result{}, backuperr.New(backuperr.DestUnavailable, "create temporary file in", destDir, err)
	}
	tmpPath := tmp.Name()
	a.log.Debug("writing snapshot", "tmp", tmpPath, "final", finalPath, "level", level.String())

	published := false
	defer func() {
		if !published {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	res := Result{Name: name, Path: finalPath}
	if err := a.writeZip(ctx, tmp, sourceDir, level, &res); err != nil {
		if _, statErr := a.fs.Stat(sourceDir); statErr != nil {
			return Result{}, backuperr.New(backuperr.SourceUnavailable, "read source", sourceDir, err)
		}
		return Result{}, backuperr.New(backuperr.ArchiveWriteFailed, "write snapshot", finalPath, err)
	}

	if err := tmp.Sync(); err != nil {
		return Result{}, backuperr.New(backuperr.ArchiveWriteFailed, "sync snapshot", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, backuperr.New(backuperr.ArchiveWriteFailed, "close snapshot", tmpPath, err)
	}

	if err := a.fs.RenameNoReplace(ctx, tmpPath, finalPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			err = fmt.Errorf("%w: %w", backuperr.ErrNameCollision, err)
		}
		return Result{}, backuperr.New(backuperr.ArchiveWriteFailed, "finalize snapshot", finalPath, err)
	}
	published = true

	a.log.Debug("snapshot finalized", "name", name, "files", res.Files, "bytes", res.Bytes)
	return res, nil
}

func (a *Archiver) checkSource(dir string) error {
	st, err := a.fs.Stat(dir)
	if err != nil {
		return backuperr.New(backuperr.SourceUnavailable, "stat source", dir, err)
	}
	if !st.IsDir() {
		return backuperr.New(backuperr.SourceUnavailable, "source is not a directory:", dir, nil)
	}
	f, err := os.Open(dir)
	if err != nil {
		return backuperr.New(backuperr.SourceUnavailable, "open source", dir, err)
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return backuperr.New(backuperr.SourceUnavailable, "list source", dir, err)
	}
	return nil
}

func (a *Archiver) checkDest(dir string) error {
	st, err := a.fs.Stat(dir)
	if err != nil {
		return backuperr.New(backuperr.DestUnavailable, "stat destination", dir, err)
	}
	if !st.IsDir() {
		return backuperr.New(backuperr.DestUnavailable, "destination is not a directory:", dir, nil)
	}
	return nil
}

// writeZip walks sourceDir and streams every entry into out. When the
// destination lives inside the source tree, out itself is skipped.
func (a *Archiver) writeZip(ctx context.Context, out *os.File, sourceDir string, level Level, res *Result) error {
	outName := filepath.Base(out.Name())
	zw := zip.NewWriter(out)
	if level.method() == zip.Deflate {
		fl := level.flateLevel()
		zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(w, fl)
		})
	}

	walkErr := filepath.WalkDir(sourceDir, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)

		switch {
		case d.IsDir():
			err = addDir(zw, d, name)
		case d.Type().IsRegular():
			if d.Name() == outName && isSameFile(path, out) {
				return nil
			}
			err = a.addFile(zw, path, name, level, res)
		case d.Type()&os.ModeSymlink != 0:
			err = a.addSymlinkTarget(zw, path, name, level, res)
		default:
			a.log.Debug("skipping special file", "path", path, "mode", d.Type().String())
			return nil
		}
		if err != nil {
			return err
		}
		if a.onEntry != nil {
			a.onEntry(name)
		}
		return nil
	})
	if walkErr != nil {
		_ = zw.Close()
		return walkErr
	}
	return zw.Close()
}

func isSameFile(path string, f *os.File) bool {
	a, err := os.Stat(path)
	if err != nil {
		return false
	}
	b, err := f.Stat()
	if err != nil {
		return false
	}
	return os.SameFile(a, b)
}

func addDir(zw *zip.Writer, d iofs.DirEntry, name string) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name + "/"
	hdr.Method = zip.Store
	_, err = zw.CreateHeader(hdr)
	return err
}

func (a *Archiver) addFile(zw *zip.Writer, path, name string, level Level, res *Result) error {
	before, err := os.Stat(path)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	hdr, err := zip.FileInfoHeader(before)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = level.method()

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	n, err := io.Copy(w, f)
	if err != nil {
		return fmt.Errorf("copying %s: %w", name, err)
	}

	if after, err := os.Stat(path); err == nil && fs.Changed(fs.FromOS(path, before), fs.FromOS(path, after)) {
		res.Changed = append(res.Changed, name)
	}
	res.Files++
	res.Bytes += n
	return nil
}

// addSymlinkTarget stores the content of a symlink that resolves to a
// regular file. Links to directories or dangling links are skipped so the
// walk never leaves the source tree.
func (a *Archiver) addSymlinkTarget(zw *zip.Writer, path, name string, level Level, res *Result) error {
	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		a.log.Debug("skipping symlink", "path", path)
		return nil
	}
	return a.addFile(zw, path, name, level, res)
}
