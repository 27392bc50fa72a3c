package eventlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ErrClosed is returned when writing to a sink that is not open.
var ErrClosed = errors.New("event log is closed")

// WriterSink renders events as lines to an io.Writer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, ev.Line()+"\n")
	return err
}

// FileSink appends lines to a durable log file. It is the only writer of
// that file; each line is flushed before Write returns.
type FileSink struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer
}

// NewFileSink creates a closed sink for path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Path returns the log file location.
func (s *FileSink) Path() string {
	return s.path
}

// Open opens the file for appending, creating it if needed. Opening an
// already open sink is a no-op.
func (s *FileSink) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f != nil {
		return nil
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	s.f = f
	s.w = bufio.NewWriter(f)
	return nil
}

func (s *FileSink) Write(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return ErrClosed
	}
	if _, err := s.w.WriteString(ev.Line() + "\n"); err != nil {
		return err
	}
	return s.w.Flush()
}

// Close flushes and closes the file. Closing a closed sink is a no-op.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	flushErr := s.w.Flush()
	closeErr := s.f.Close()
	s.f, s.w = nil, nil
	return errors.Join(flushErr, closeErr)
}
