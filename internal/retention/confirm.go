package retention

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Confirmer asks a human whether a bulk deletion may proceed.
type Confirmer interface {
	ConfirmBulkDeletion(ctx context.Context, count int, names []string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, count int, names []string) (bool, error)

func (f ConfirmFunc) ConfirmBulkDeletion(ctx context.Context, count int, names []string) (bool, error) {
	return f(ctx, count, names)
}

var (
	// AlwaysConfirm approves every request.
	AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, int, []string) (bool, error) { return true, nil })
	// NeverConfirm declines every request.
	NeverConfirm Confirmer = ConfirmFunc(func(context.Context, int, []string) (bool, error) { return false, nil })
)

// ErrNoAnswer is returned by Gate when the confirmer did not answer in time.
var ErrNoAnswer = errors.New("no answer to deletion confirmation")

// Gate decides whether d may be applied. No question is asked when the
// decision does not require confirmation. A missing confirmer, an error or no
// answer within timeout all count as a decline; the error explains which.
// A zero timeout waits until ctx is done.
func Gate(ctx context.Context, d Decision, c Confirmer, timeout time.Duration) (bool, error) {
	if !d.RequiresConfirmation {
		return true, nil
	}
	if c == nil {
		return false, errors.New("bulk deletion needs confirmation but no confirmer is configured")
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type answer struct {
		ok  bool
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		ok, err := c.ConfirmBulkDeletion(ctx, len(d.Deletable), d.Names())
		ch <- answer{ok, err}
	}()

	select {
	case a := <-ch:
		if a.err != nil {
			return false, a.err
		}
		return a.ok, nil
	case <-ctx.Done():
		return false, fmt.Errorf("%w: %w", ErrNoAnswer, ctx.Err())
	}
}
