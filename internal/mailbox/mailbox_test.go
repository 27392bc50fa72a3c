package mailbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLatestWins(t *testing.T) {
	mb := New[int]()
	assert.False(t, mb.HasJob())

	assert.True(t, mb.Put(1))
	assert.True(t, mb.Put(2))
	assert.True(t, mb.HasJob())

	got, ok := mb.Take()
	require.True(t, ok)
	assert.Equal(t, 2, got)
	assert.False(t, mb.HasJob())
}

func TestTakeBlocksUntilPut(t *testing.T) {
	mb := New[int]()
	done := make(chan int)
	go func() {
		v, _ := mb.Take()
		done <- v
	}()

	select {
	case <-done:
		t.Fatal("Take returned before Put")
	case <-time.After(20 * time.Millisecond):
	}

	mb.Put(7)
	select {
	case v := <-done:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("Take did not wake up")
	}
}

func TestCloseReleasesTake(t *testing.T) {
	mb := New[int]()
	done := make(chan bool)
	go func() {
		_, ok := mb.Take()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	mb.Close()
	mb.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Take did not return after Close")
	}

	assert.False(t, mb.Put(1))
	assert.False(t, mb.HasJob())
}

func TestCloseDropsPending(t *testing.T) {
	mb := New[int]()
	mb.Put(1)
	mb.Close()

	_, ok := mb.Take()
	assert.False(t, ok)
}
