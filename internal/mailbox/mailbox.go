// Package mailbox hands jobs from producers to a single consumer.
package mailbox

import "sync"

// Mailbox is a single-slot buffer where the latest job always wins.
// It is NOT a queue. It holds at most one pending job.
// Put() overwrites any existing job. Take() blocks until a job is available
// or the mailbox is closed.
type Mailbox[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	job    *T
	closed bool
}

// New creates an empty mailbox.
func New[T any]() *Mailbox[T] {
	m := &Mailbox[T]{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Put stores a job in the mailbox, replacing any existing job.
// It never blocks. It reports false if the mailbox is closed.
func (m *Mailbox[T]) Put(j T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.job = &j
	m.mu.Unlock()
	m.cond.Signal() // wake up worker if waiting
	return true
}

// Take blocks until a job is available, then returns it and clears the slot.
// Once the mailbox is closed and empty it returns false.
func (m *Mailbox[T]) Take() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.job == nil && !m.closed {
		m.cond.Wait()
	}

	if m.job == nil {
		var zero T
		return zero, false
	}
	j := *m.job
	m.job = nil
	return j, true
}

// HasJob reports whether a job is currently waiting.
func (m *Mailbox[T]) HasJob() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.job != nil
}

// Close rejects further Puts and drops any pending job, so a consumer
// blocked in Take returns. Closing twice is a no-op.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	m.closed = true
	m.job = nil
	m.mu.Unlock()
	m.cond.Broadcast()
}
