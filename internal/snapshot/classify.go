package snapshot

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/raoulx24/folder-archiver/internal/backuperr"
)

// Set partitions the snapshot-looking files of a destination directory.
type Set struct {
	// Valid holds trusted snapshots, oldest first.
	Valid []Snapshot
	// Suspect holds names with the snapshot affixes that are not trusted
	// snapshots: the format is off or the entry is not a regular file.
	// Nothing in this system ever mutates them.
	Suspect []string
}

// Names returns the file names of the valid snapshots, oldest first.
func (s Set) Names() []string {
	names := make([]string, len(s.Valid))
	for i, snap := range s.Valid {
		names[i] = snap.Name
	}
	return names
}

// Classify scans destDir without modifying it. Only regular files can be
// valid; directories and links carrying the affixes are reported as suspect.
func Classify(destDir string) (Set, error) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return Set{}, backuperr.New(backuperr.DestUnavailable, "read destination", destDir, err)
	}

	var set Set
	for _, ent := range entries {
		name := ent.Name()
		if !HasSnapshotAffixes(name) {
			continue
		}

		ts, err := Parse(name)
		if err != nil || !ent.Type().IsRegular() {
			set.Suspect = append(set.Suspect, name)
			continue
		}

		snap := Snapshot{
			Name:      name,
			Path:      filepath.Join(destDir, name),
			Timestamp: ts,
		}
		if info, err := ent.Info(); err == nil {
			snap.Size = info.Size()
		}
		set.Valid = append(set.Valid, snap)
	}

	sort.SliceStable(set.Valid, func(i, j int) bool {
		return set.Valid[i].Name < set.Valid[j].Name
	})
	sort.Strings(set.Suspect)

	return set, nil
}
