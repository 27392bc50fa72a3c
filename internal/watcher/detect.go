package watcher

// detect calls onChange if the file exists and differs from the baseline.
// A removed file is recorded but not reported; its reappearance is.
func (w *Watcher) detect() {
	if !w.isFileStable() {
		w.log.Debug("config file still changing")
		return
	}
	cur := w.stat()

	w.mu.Lock()
	last := w.last
	w.last = cur
	w.mu.Unlock()

	if cur.equal(last) || !cur.exists {
		return
	}

	w.log.Debug("config file changed", "modTime", cur.modTime, "size", cur.size)
	if w.onChange != nil {
		w.onChange()
	}
}
