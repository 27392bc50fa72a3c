// Package watcher monitors the config file and reports when its content
// may have changed.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/raoulx24/folder-archiver/internal/config"
	"github.com/raoulx24/folder-archiver/internal/fsprobe"
	"github.com/raoulx24/folder-archiver/internal/logging"
)

// fileState is what a change is measured against.
type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

func (s fileState) equal(o fileState) bool {
	return s.exists == o.exists && s.size == o.size && s.modTime.Equal(o.modTime)
}

// Watcher observes a single file and calls onChange after it settles.
type Watcher struct {
	mu sync.RWMutex

	path      string
	interval  time.Duration
	mode      string
	debounce  time.Duration
	stability time.Duration

	log      logging.Logger
	onChange func()

	last fileState
}

// New creates a watcher for path using the reload configuration. The current
// state of the file is the baseline; only later changes are reported.
func New(path string, cfg config.ReloadConfig, log logging.Logger, onChange func()) *Watcher {
	if log == nil {
		log = logging.Discard()
	}
	w := &Watcher{
		path:      path,
		interval:  cfg.PollInterval,
		mode:      cfg.Mode,
		debounce:  cfg.DebounceWindow,
		stability: 50 * time.Millisecond,
		log:       log,
		onChange:  onChange,
	}
	w.last = w.stat()
	return w
}

// Start chooses the correct watching strategy based on config and blocks
// until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.RLock()
	mode := w.mode
	dir := filepath.Dir(w.path)
	w.mu.RUnlock()

	switch mode {
	case "fsnotify":
		return w.StartFsNotify(ctx)

	case "poll":
		w.StartPolling(ctx)
		return nil

	case "auto", "":
		res := fsprobe.Probe(dir)
		if res.FsnotifySupported {
			return w.StartFsNotify(ctx)
		}
		w.log.Warn("fsnotify disabled, polling config file", "reason", res.Reason)
		w.StartPolling(ctx)
		return nil

	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// Acknowledge makes the file's current state the baseline, so a write the
// program made itself is not reported as a change.
func (w *Watcher) Acknowledge() {
	st := w.stat()
	w.mu.Lock()
	w.last = st
	w.mu.Unlock()
}

func (w *Watcher) stat() fileState {
	w.mu.RLock()
	path := w.path
	w.mu.RUnlock()

	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
}
