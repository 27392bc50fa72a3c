package watcher

import (
	"os"
	"time"
)

// isFileStable reports whether the file size holds still over the stability
// window. A missing file counts as stable.
func (w *Watcher) isFileStable() bool {
	w.mu.RLock()
	path := w.path
	stability := w.stability
	w.mu.RUnlock()

	info1, err := os.Stat(path)
	if err != nil {
		return true
	}

	time.Sleep(stability)

	info2, err := os.Stat(path)
	if err != nil {
		return true
	}

	return info1.Size() == info2.Size()
}
