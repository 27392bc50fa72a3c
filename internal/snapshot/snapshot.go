// Package snapshot owns the snapshot naming contract and the classifier that
// decides which files in a destination directory may be managed.
package snapshot

import (
	"fmt"
	"strings"
	"time"
)

const (
	// Prefix starts every snapshot file name.
	Prefix = "Backup_"
	// Ext ends every snapshot file name.
	Ext = ".zip"
	// TimeLayout is the zero-padded timestamp between Prefix and Ext. Fixed
	// width keeps lexicographic order equal to chronological order.
	TimeLayout = "20060102_150405"
	// NameLength is the exact length of a trusted snapshot name,
	// e.g. "Backup_20240131_235959.zip".
	NameLength = len(Prefix) + len(TimeLayout) + len(Ext)
)

// Snapshot represents a single archived snapshot in the destination.
type Snapshot struct {
	Name      string
	Path      string
	Timestamp time.Time
	Size      int64
}

// Name returns the snapshot file name for t, in t's location at second resolution.
func Name(t time.Time) string {
	return Prefix + t.Format(TimeLayout) + Ext
}

// HasSnapshotAffixes reports whether name carries the snapshot prefix and
// extension, trusted or not.
func HasSnapshotAffixes(name string) bool {
	return strings.HasPrefix(name, Prefix) && strings.HasSuffix(name, Ext)
}

// IsValidName reports whether name is a trusted snapshot name: the right
// affixes, exactly NameLength bytes, and a timestamp that parses.
func IsValidName(name string) bool {
	_, err := Parse(name)
	return err == nil
}

// Parse extracts the local timestamp encoded in a trusted snapshot name.
func Parse(name string) (time.Time, error) {
	if !HasSnapshotAffixes(name) {
		return time.Time{}, fmt.Errorf("%q: missing %s prefix or %s extension", name, Prefix, Ext)
	}
	if len(name) != NameLength {
		return time.Time{}, fmt.Errorf("%q: length %d, want %d", name, len(name), NameLength)
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, Prefix), Ext)
	t, err := time.ParseInLocation(TimeLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", name, err)
	}
	return t, nil
}
