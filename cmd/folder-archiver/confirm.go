package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/raoulx24/folder-archiver/internal/config"
	"github.com/raoulx24/folder-archiver/internal/retention"
)

// promptConfirmer asks on the terminal. A single goroutine reads input
// lines and hands each one to the question that is currently open. Lines
// that arrive while no question is open are dropped, so an answer typed
// after a timeout never approves a later question.
type promptConfirmer struct {
	ask sync.Mutex // one question at a time

	in   io.Reader
	out  io.Writer
	once sync.Once

	mu      sync.Mutex
	pending chan string
	eof     bool
	dropped int
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: in, out: out}
}

func (p *promptConfirmer) readLines() {
	go func() {
		sc := bufio.NewScanner(p.in)
		for sc.Scan() {
			p.deliver(sc.Text())
		}
		p.mu.Lock()
		p.eof = true
		if p.pending != nil {
			close(p.pending)
			p.pending = nil
		}
		p.mu.Unlock()
	}()
}

func (p *promptConfirmer) deliver(line string) {
	p.mu.Lock()
	ch := p.pending
	p.pending = nil
	if ch == nil {
		p.dropped++
	}
	p.mu.Unlock()

	if ch != nil {
		ch <- line
	}
}

// droppedLines returns how many lines arrived with no question open.
func (p *promptConfirmer) droppedLines() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

func (p *promptConfirmer) ConfirmBulkDeletion(ctx context.Context, count int, names []string) (bool, error) {
	p.ask.Lock()
	defer p.ask.Unlock()

	answer := make(chan string, 1)
	p.mu.Lock()
	if p.eof {
		p.mu.Unlock()
		return false, io.ErrUnexpectedEOF
	}
	p.pending = answer
	p.mu.Unlock()
	p.once.Do(p.readLines)

	fmt.Fprintf(p.out, "Rotation would delete %d old backup(s):\n", count)
	for _, name := range names {
		fmt.Fprintf(p.out, "  %s\n", name)
	}
	fmt.Fprint(p.out, "Delete them? [y/N]: ")

	select {
	case line, ok := <-answer:
		if !ok {
			return false, io.ErrUnexpectedEOF
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	case <-ctx.Done():
		p.mu.Lock()
		if p.pending == answer {
			p.pending = nil
		}
		p.mu.Unlock()
		fmt.Fprintln(p.out)
		return false, ctx.Err()
	}
}

// modeConfirmer follows the confirmation mode of the current settings.
type modeConfirmer struct {
	mu     sync.RWMutex
	mode   string
	prompt retention.Confirmer
}

func (m *modeConfirmer) SetMode(mode string) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
}

func (m *modeConfirmer) ConfirmBulkDeletion(ctx context.Context, count int, names []string) (bool, error) {
	m.mu.RLock()
	mode := m.mode
	m.mu.RUnlock()

	switch mode {
	case config.ConfirmAccept:
		return retention.AlwaysConfirm.ConfirmBulkDeletion(ctx, count, names)
	case config.ConfirmDecline:
		return retention.NeverConfirm.ConfirmBulkDeletion(ctx, count, names)
	default:
		return m.prompt.ConfirmBulkDeletion(ctx, count, names)
	}
}
