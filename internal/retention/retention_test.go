package retention

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/raoulx24/folder-archiver/internal/backuperr"
	"github.com/raoulx24/folder-archiver/internal/fs"
	"github.com/raoulx24/folder-archiver/internal/snapshot"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var base = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local)

func snapshots(dir string, n int) []snapshot.Snapshot {
	out := make([]snapshot.Snapshot, n)
	for i := range n {
		ts := base.Add(time.Duration(i) * time.Minute)
		name := snapshot.Name(ts)
		out[i] = snapshot.Snapshot{Name: name, Path: filepath.Join(dir, name), Timestamp: ts}
	}
	return out
}

func TestEnforce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		count, max  int
		wantDeleted int
		wantConfirm bool
	}{
		{"under limit", 3, 5, 0, false},
		{"at limit", 5, 5, 0, false},
		{"one over", 6, 5, 1, false},
		{"two over", 7, 5, 2, true},
		{"max one", 12, 1, 11, true},
		{"empty", 0, 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			valid := snapshots("/dest", tt.count)
			d := Enforce(valid, tt.max)

			assert.Len(t, d.Deletable, tt.wantDeleted)
			assert.Equal(t, tt.wantConfirm, d.RequiresConfirmation)
			assert.Equal(t, tt.wantDeleted == 0, d.Empty())
			if tt.wantDeleted > 0 {
				assert.Equal(t, valid[:tt.wantDeleted], d.Deletable, "oldest snapshots go first")
			}
		})
	}
}

func TestEnforceDoesNotAliasInput(t *testing.T) {
	t.Parallel()

	valid := snapshots("/dest", 4)
	d := Enforce(valid, 1)
	d.Deletable[0].Name = "changed"
	assert.NotEqual(t, "changed", valid[0].Name)
}

func TestGate(t *testing.T) {
	t.Parallel()

	single := Enforce(snapshots("/dest", 2), 1)
	bulk := Enforce(snapshots("/dest", 4), 1)
	ctx := context.Background()

	asked := false
	spy := ConfirmFunc(func(context.Context, int, []string) (bool, error) {
		asked = true
		return false, nil
	})
	ok, err := Gate(ctx, single, spy, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, asked, "single deletion never asks")

	ok, err = Gate(ctx, bulk, AlwaysConfirm, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Gate(ctx, bulk, NeverConfirm, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Gate(ctx, bulk, nil, time.Second)
	require.Error(t, err)
	assert.False(t, ok)

	boom := errors.New("terminal closed")
	ok, err = Gate(ctx, bulk, ConfirmFunc(func(context.Context, int, []string) (bool, error) {
		return true, boom
	}), time.Second)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
}

func TestGatePassesCountAndNames(t *testing.T) {
	t.Parallel()

	d := Enforce(snapshots("/dest", 5), 2)
	var gotCount int
	var gotNames []string
	_, err := Gate(context.Background(), d, ConfirmFunc(func(_ context.Context, n int, names []string) (bool, error) {
		gotCount, gotNames = n, names
		return true, nil
	}), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, gotCount)
	assert.Equal(t, d.Names(), gotNames)
}

func TestGateTimeoutDeclines(t *testing.T) {
	t.Parallel()

	d := Enforce(snapshots("/dest", 4), 1)
	slow := ConfirmFunc(func(ctx context.Context, _ int, _ []string) (bool, error) {
		<-ctx.Done()
		return true, nil
	})

	ok, err := Gate(context.Background(), d, slow, 20*time.Millisecond)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNoAnswer)
}

func TestApply(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	valid := snapshots(dir, 5)
	for _, s := range valid {
		require.NoError(t, os.WriteFile(s.Path, nil, 0o600))
	}

	d := Enforce(valid, 2)
	res := Apply(context.Background(), fs.New(), d)
	assert.Empty(t, res.Failures)
	assert.Equal(t, d.Names(), res.Deleted)

	set, err := snapshot.Classify(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{valid[3].Name, valid[4].Name}, set.Names())
}

type flakyRemover struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (f *flakyRemover) Remove(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, filepath.Base(path))
	if f.fail[filepath.Base(path)] {
		return fmt.Errorf("%s: %w", path, os.ErrPermission)
	}
	return nil
}

func TestApplyContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	valid := snapshots("/dest", 5)
	d := Enforce(valid, 1)
	r := &flakyRemover{fail: map[string]bool{valid[1].Name: true}}

	res := Apply(context.Background(), r, d)

	assert.Equal(t, d.Names(), r.calls)
	assert.Equal(t, []string{valid[0].Name, valid[2].Name, valid[3].Name}, res.Deleted)
	require.Len(t, res.Failures, 1)
	assert.True(t, backuperr.IsCode(res.Failures[0], backuperr.DeleteFailed))
	assert.ErrorIs(t, res.Failures[0], os.ErrPermission)
	assert.Contains(t, res.Failures[0].Error(), valid[1].Name)
}

func TestApplyRefusesUntrustedNames(t *testing.T) {
	t.Parallel()

	r := &flakyRemover{}
	d := Decision{Deletable: []snapshot.Snapshot{{Name: "Backup_old_data.zip", Path: "/dest/Backup_old_data.zip"}}}

	res := Apply(context.Background(), r, d)
	assert.Empty(t, r.calls)
	assert.Empty(t, res.Deleted)
	require.Len(t, res.Failures, 1)
	assert.True(t, backuperr.IsCode(res.Failures[0], backuperr.DeleteFailed))
}
