package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/raoulx24/folder-archiver/internal/config"
	"github.com/raoulx24/folder-archiver/internal/fsprobe"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	path  string
	calls atomic.Int32
	w     *Watcher
}

func start(t *testing.T, mode string) *fixture {
	t.Helper()

	f := &fixture{path: filepath.Join(t.TempDir(), "config.yaml")}
	require.NoError(t, os.WriteFile(f.path, []byte("intervalMinutes: 5\n"), 0o644))

	f.w = New(f.path, config.ReloadConfig{
		Enabled:        true,
		Mode:           mode,
		PollInterval:   20 * time.Millisecond,
		DebounceWindow: 20 * time.Millisecond,
	}, nil, func() { f.calls.Add(1) })
	f.w.stability = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.w.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	return f
}

func (f *fixture) write(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.path, []byte(content), 0o644))
}

func TestPollDetectsChange(t *testing.T) {
	f := start(t, "poll")

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, f.calls.Load(), "baseline is not a change")

	f.write(t, "intervalMinutes: 10\n")
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), f.calls.Load(), "one change is reported once")
}

func TestAcknowledgeSuppressesOwnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("intervalMinutes: 5\n"), 0o644))

	var calls atomic.Int32
	w := New(path, config.ReloadConfig{Mode: "poll"}, nil, func() { calls.Add(1) })
	w.stability = 0

	require.NoError(t, os.WriteFile(path, []byte("intervalMinutes: 15\n"), 0o644))
	w.Acknowledge()
	w.detect()
	assert.Zero(t, calls.Load())

	require.NoError(t, os.WriteFile(path, []byte("intervalMinutes: 120\n"), 0o644))
	w.detect()
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemovedFileIsReportedOnReturn(t *testing.T) {
	f := start(t, "poll")

	require.NoError(t, os.Remove(f.path))
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, f.calls.Load())

	f.write(t, "maxBackups: 3\n")
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestFsNotifyDetectsChange(t *testing.T) {
	if res := fsprobe.Probe(t.TempDir()); !res.FsnotifySupported {
		t.Skipf("fsnotify unsupported: %s", res.Reason)
	}
	f := start(t, "fsnotify")
	time.Sleep(50 * time.Millisecond)

	// Replace through a rename, as editors do.
	tmp := f.path + ".swp"
	require.NoError(t, os.WriteFile(tmp, []byte("intervalMinutes: 30\nmaxBackups: 4\n"), 0o644))
	require.NoError(t, os.Rename(tmp, f.path))

	require.Eventually(t, func() bool { return f.calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestUnknownMode(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "config.yaml"), config.ReloadConfig{Mode: "inotify"}, nil, nil)
	assert.Error(t, w.Start(context.Background()))
}

func TestUpdateConfig(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "config.yaml"), config.ReloadConfig{Mode: "poll"}, nil, nil)
	w.UpdateConfig(config.ReloadConfig{Mode: "fsnotify", PollInterval: time.Second, DebounceWindow: time.Millisecond})

	assert.Equal(t, "fsnotify", w.mode)
	assert.Equal(t, time.Second, w.interval)
	assert.Equal(t, time.Millisecond, w.debounce)
}
