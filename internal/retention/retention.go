// Package retention decides which snapshots exceed the configured maximum
// and removes them, guarded by a confirmation gate for bulk deletions.
package retention

import (
	"context"
	"fmt"

	"github.com/raoulx24/folder-archiver/internal/backuperr"
	"github.com/raoulx24/folder-archiver/internal/snapshot"
)

// Decision is computed fresh for every pass and never persisted.
type Decision struct {
	// Deletable holds the snapshots to remove, oldest first.
	Deletable []snapshot.Snapshot
	// RequiresConfirmation is set when more than one snapshot would be removed.
	RequiresConfirmation bool
}

// Empty reports whether nothing needs to be deleted.
func (d Decision) Empty() bool {
	return len(d.Deletable) == 0
}

// Names returns the file names in deletion order.
func (d Decision) Names() []string {
	names := make([]string, len(d.Deletable))
	for i, s := range d.Deletable {
		names[i] = s.Name
	}
	return names
}

// Enforce selects the oldest snapshots beyond maxBackups. valid must be
// sorted oldest first, as returned by snapshot.Classify. A single excess
// snapshot is deletable without asking; more than one needs confirmation.
func Enforce(valid []snapshot.Snapshot, maxBackups int) Decision {
	if maxBackups < 0 {
		maxBackups = 0
	}
	if len(valid) <= maxBackups {
		return Decision{}
	}

	k := len(valid) - maxBackups
	deletable := make([]snapshot.Snapshot, k)
	copy(deletable, valid[:k])

	return Decision{
		Deletable:            deletable,
		RequiresConfirmation: k > 1,
	}
}

// Remover deletes a single file.
type Remover interface {
	Remove(ctx context.Context, path string) error
}

// ApplyResult reports the outcome of Apply.
type ApplyResult struct {
	Deleted  []string
	Failures []error
}

// Apply removes every snapshot in d independently. A failure is recorded as
// DeleteFailed and the remaining deletions still run. Names that are not
// trusted snapshot names are refused.
func Apply(ctx context.Context, r Remover, d Decision) ApplyResult {
	var res ApplyResult
	for _, s := range d.Deletable {
		if !snapshot.IsValidName(s.Name) {
			res.Failures = append(res.Failures, backuperr.New(backuperr.DeleteFailed, "delete", s.Name,
				fmt.Errorf("refusing to delete untrusted name")))
			continue
		}
		if err := r.Remove(ctx, s.Path); err != nil {
			res.Failures = append(res.Failures, backuperr.New(backuperr.DeleteFailed, "delete", s.Name, err))
			continue
		}
		res.Deleted = append(res.Deleted, s.Name)
	}
	return res
}
