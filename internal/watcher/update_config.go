package watcher

import (
	"github.com/raoulx24/folder-archiver/internal/config"
)

// UpdateConfig updates watcher fields atomically for hot‑reload. The mode
// and intervals take effect on the next Start.
func (w *Watcher) UpdateConfig(cfg config.ReloadConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.interval = cfg.PollInterval
	w.mode = cfg.Mode
	w.debounce = cfg.DebounceWindow
}
