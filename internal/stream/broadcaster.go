// Package stream provides a latest-value broadcaster for change streams.
package stream

import (
	"context"
	"sync"
)

// Broadcaster fans the most recent value out to any number of subscribers.
// Each subscriber channel holds at most one pending value; a slow reader
// skips intermediate values but always ends up with the latest one, and never
// receives values out of publication order.
type Broadcaster[T any] struct {
	mu      sync.Mutex
	current T
	subs    map[chan T]struct{}
	closed  bool
	done    chan struct{}
}

// NewBroadcaster creates a broadcaster seeded with initial.
func NewBroadcaster[T any](initial T) *Broadcaster[T] {
	return &Broadcaster[T]{
		current: initial,
		subs:    make(map[chan T]struct{}),
		done:    make(chan struct{}),
	}
}

// Current returns the most recently published value.
func (b *Broadcaster[T]) Current() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Publish records v as the current value and offers it to every subscriber.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishLocked(v)
}

// Update applies fn to the current value and publishes the result atomically.
func (b *Broadcaster[T]) Update(fn func(T) T) T {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := fn(b.current)
	b.publishLocked(v)
	return v
}

func (b *Broadcaster[T]) publishLocked(v T) {
	b.current = v
	if b.closed {
		return
	}
	for ch := range b.subs {
		offer(ch, v)
	}
}

// offer replaces any undelivered value in ch with v. Only publishers holding
// the broadcaster lock send on ch, so the send never blocks.
func offer[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}

// Subscribe returns a channel that immediately holds the current value and
// then receives every later value. The channel is closed when ctx is done or
// the broadcaster is closed.
func (b *Broadcaster[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	b.mu.Lock()
	ch <- b.current
	if b.closed {
		close(ch)
		b.mu.Unlock()
		return ch
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			b.unsubscribe(ch)
		case <-b.done:
		}
	}()
	return ch
}

func (b *Broadcaster[T]) unsubscribe(ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

// Close closes every subscriber channel. Later subscribers receive the final
// value on an already-closed channel.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
