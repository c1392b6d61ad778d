// Package stateflow provides a single-writer, multi-reader state container.
//
// A Flow always holds a current value. Readers either poll Value or Subscribe
// to receive the current value followed by every subsequent change. Delivery is
// conflated: a reader that falls behind only observes the most recent value.
package stateflow

import (
	"context"
	"sync"
)

// Flow is an observable value holder.
type Flow[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
	changed chan struct{}
	closed  bool
}

// New creates a Flow holding initial.
func New[T any](initial T) *Flow[T] {
	return &Flow[T]{
		value:   initial,
		changed: make(chan struct{}),
	}
}

// Value returns the current value.
func (f *Flow[T]) Value() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// Set replaces the current value and wakes all subscribers.
// Set is a no-op once the flow is closed.
func (f *Flow[T]) Set(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.value = v
	f.version++
	close(f.changed)
	f.changed = make(chan struct{})
}

// Close stops the flow. Subscriber channels are closed after they have
// received the last value.
func (f *Flow[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.changed)
}

// Closed reports whether Close has been called.
func (f *Flow[T]) Closed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.closed
}

// Subscribe returns a channel that receives the current value immediately and
// then every change until ctx is done or the flow is closed.
func (f *Flow[T]) Subscribe(ctx context.Context) <-chan T {
	out := make(chan T, 1)

	go func() {
		defer close(out)

		first := true
		var seen uint64
		for {
			f.mu.RLock()
			v, version, changed, closed := f.value, f.version, f.changed, f.closed
			f.mu.RUnlock()

			if first || version != seen {
				// Drop an undelivered older value; we are the only sender.
				select {
				case <-out:
				default:
				}
				out <- v
				seen = version
				first = false
			}

			if closed {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-changed:
			}
		}
	}()

	return out
}
