package stateflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestFlow_ValueAndSet(t *testing.T) {
	f := New(1)
	assert.Equal(t, 1, f.Value())

	f.Set(2)
	assert.Equal(t, 2, f.Value())
}

func TestFlow_SubscribeReceivesCurrentValue(t *testing.T) {
	f := New("initial")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := f.Subscribe(ctx)
	assert.Equal(t, "initial", receive(t, ch))

	f.Set("next")
	assert.Equal(t, "next", receive(t, ch))
}

func TestFlow_SubscribeConflates(t *testing.T) {
	f := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := f.Subscribe(ctx)
	assert.Equal(t, 0, receive(t, ch))

	for i := 1; i <= 100; i++ {
		f.Set(i)
	}

	// The reader eventually observes the last value without seeing every one.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-ch:
			if v == 100 {
				return
			}
		case <-deadline:
			t.Fatal("never observed the latest value")
		}
	}
}

func TestFlow_CloseEndsSubscriptions(t *testing.T) {
	f := New(0)
	ch := f.Subscribe(context.Background())
	assert.Equal(t, 0, receive(t, ch))

	f.Close()
	assert.True(t, f.Closed())

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}

	// Writes after Close are ignored.
	f.Set(5)
	assert.Equal(t, 0, f.Value())

	// Close is idempotent.
	f.Close()
}

func TestFlow_ContextCancelEndsSubscription(t *testing.T) {
	f := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	ch := f.Subscribe(ctx)
	receive(t, ch)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after cancel")
	}
}

func TestFlow_ConcurrentReaders(t *testing.T) {
	f := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		ch := f.Subscribe(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range ch {
				if v == 10 {
					return
				}
			}
		}()
	}

	for i := 1; i <= 10; i++ {
		f.Set(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("readers did not observe final value")
	}
}
