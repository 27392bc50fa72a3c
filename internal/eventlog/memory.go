package eventlog

import "sync"

// DefaultHistory is the number of events a MemorySink keeps by default.
const DefaultHistory = 1000

// MemorySink keeps a bounded history of events and forwards new events to
// subscribers. It backs interactive displays.
type MemorySink struct {
	mu     sync.Mutex
	buf    []Event
	start  int
	size   int
	subs   map[int]chan Event
	nextID int
}

// NewMemorySink creates a sink holding at most capacity events.
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = DefaultHistory
	}
	return &MemorySink{
		buf:  make([]Event, capacity),
		subs: make(map[int]chan Event),
	}
}

// Write stores ev, evicting the oldest event when full. Subscribers that are
// not keeping up miss the event rather than block the writer.
func (m *MemorySink) Write(ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := (m.start + m.size) % len(m.buf)
	m.buf[idx] = ev
	if m.size < len(m.buf) {
		m.size++
	} else {
		m.start = (m.start + 1) % len(m.buf)
	}

	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Events returns the retained history, oldest first.
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, m.size)
	for i := range m.size {
		out[i] = m.buf[(m.start+i)%len(m.buf)]
	}
	return out
}

// Subscribe returns a channel of future events and a function that closes it.
func (m *MemorySink) Subscribe(buffer int) (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan Event, buffer)
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			close(ch)
			m.mu.Unlock()
		})
	}
}
