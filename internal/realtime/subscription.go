package realtime

import (
	"context"
	"sync"
)

// Subscription is a live query: it emits the full current result set once on
// subscribe and then exactly once per change event on its topic, in event
// order. A single goroutine runs all fetches and emissions, so snapshots for
// one subscription never overlap or reorder.
//
// Lifecycle: subscribed -> emitting -> closed. Close deregisters from the
// broker synchronously; a snapshot already being delivered may still arrive,
// but nothing new is queued afterwards. A fetch error closes the stream with
// Err set, so consumers can tell a dead subscription from an empty result.
type Subscription[T any] struct {
	snapshots chan []T
	done      chan struct{}
	closeOnce sync.Once

	w     *waiter
	unsub func()
	fetch func(context.Context) ([]T, error)

	mu  sync.Mutex
	err error
}

// Subscribe opens a live query on the topic. fetch must return the complete
// current result set in the query's sort order; it is never called
// concurrently with itself.
func Subscribe[T any](ctx context.Context, b *Broker, topic string, fetch func(context.Context) ([]T, error)) *Subscription[T] {
	w, unsub := b.subscribe(topic)
	s := &Subscription[T]{
		snapshots: make(chan []T),
		done:      make(chan struct{}),
		w:         w,
		unsub:     unsub,
		fetch:     fetch,
	}

	go s.run(ctx)
	return s
}

// Snapshots delivers result-set snapshots until the subscription closes.
// The channel is closed on Close, on context cancellation, and on fetch
// failure; check Err afterwards to distinguish the last case.
func (s *Subscription[T]) Snapshots() <-chan []T {
	return s.snapshots
}

// Err returns the failure that closed the stream, if any. Valid once the
// Snapshots channel is closed.
func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close deregisters the listener and stops the stream. Idempotent. After
// Close returns, no new change events reach this subscription.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(func() {
		s.unsub()
		close(s.done)
	})
}

func (s *Subscription[T]) run(ctx context.Context) {
	defer close(s.snapshots)

	if !s.emit(ctx) {
		return
	}

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			s.setErr(ctx.Err())
			s.Close()
			return
		case <-s.w.signal:
			for s.w.takeOne() {
				if !s.emit(ctx) {
					return
				}
			}
		}
	}
}

// emit runs one fetch and delivers the snapshot. Returns false when the
// subscription should stop.
func (s *Subscription[T]) emit(ctx context.Context) bool {
	items, err := s.fetch(ctx)
	if err != nil {
		s.setErr(err)
		s.Close()
		return false
	}

	select {
	case s.snapshots <- items:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		s.setErr(ctx.Err())
		s.Close()
		return false
	}
}

func (s *Subscription[T]) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}
