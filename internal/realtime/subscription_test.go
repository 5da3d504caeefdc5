package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// listStore is a fetch source whose result set changes under a lock, the way
// a real store does between change events.
type listStore struct {
	mu    sync.Mutex
	items []string
	fails error
}

func (s *listStore) set(items ...string) {
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

func (s *listStore) fail(err error) {
	s.mu.Lock()
	s.fails = err
	s.mu.Unlock()
}

func (s *listStore) fetch(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails != nil {
		return nil, s.fails
	}
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out, nil
}

func recvSnapshot(t *testing.T, sub *Subscription[string]) []string {
	t.Helper()
	select {
	case items, ok := <-sub.Snapshots():
		if !ok {
			t.Fatalf("snapshots channel closed unexpectedly: %v", sub.Err())
		}
		return items
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestSubscriptionEmitsInitialSnapshot(t *testing.T) {
	b := NewBroker()
	store := &listStore{}
	store.set("a", "b")

	sub := Subscribe(context.Background(), b, "t", store.fetch)
	defer sub.Close()

	initial := recvSnapshot(t, sub)
	if len(initial) != 2 || initial[0] != "a" || initial[1] != "b" {
		t.Fatalf("unexpected initial snapshot: %v", initial)
	}
}

func TestSubscriptionOneSnapshotPerEvent(t *testing.T) {
	b := NewBroker()
	store := &listStore{}

	sub := Subscribe(context.Background(), b, "t", store.fetch)
	defer sub.Close()

	recvSnapshot(t, sub)

	const events = 5
	for i := 0; i < events; i++ {
		store.set(fmt.Sprintf("item-%d", i))
		b.Publish("t")
		snapshot := recvSnapshot(t, sub)
		if len(snapshot) != 1 || snapshot[0] != fmt.Sprintf("item-%d", i) {
			t.Fatalf("event %d: unexpected snapshot %v", i, snapshot)
		}
	}

	// No further events, no further snapshots.
	select {
	case items := <-sub.Snapshots():
		t.Fatalf("unexpected extra snapshot: %v", items)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriptionQueuedEventsAreNotCoalesced(t *testing.T) {
	b := NewBroker()
	store := &listStore{}

	sub := Subscribe(context.Background(), b, "t", store.fetch)
	defer sub.Close()

	recvSnapshot(t, sub)

	// Publish a burst before consuming anything: every event must still
	// produce its own snapshot.
	const events = 4
	for i := 0; i < events; i++ {
		b.Publish("t")
	}
	for i := 0; i < events; i++ {
		recvSnapshot(t, sub)
	}

	select {
	case items := <-sub.Snapshots():
		t.Fatalf("unexpected extra snapshot: %v", items)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriptionCloseStopsStream(t *testing.T) {
	b := NewBroker()
	store := &listStore{}

	sub := Subscribe(context.Background(), b, "t", store.fetch)
	recvSnapshot(t, sub)

	sub.Close()
	sub.Close() // idempotent

	// Events after Close never reach the subscription.
	b.Publish("t")

	for {
		select {
		case _, ok := <-sub.Snapshots():
			if !ok {
				if sub.Err() != nil {
					t.Fatalf("clean close must not set Err, got %v", sub.Err())
				}
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("snapshots channel did not close after Close")
		}
	}
}

func TestSubscriptionFetchErrorClosesWithErr(t *testing.T) {
	b := NewBroker()
	store := &listStore{}

	sub := Subscribe(context.Background(), b, "t", store.fetch)
	defer sub.Close()

	recvSnapshot(t, sub)

	storeDown := errors.New("store down")
	store.fail(storeDown)
	b.Publish("t")

	for {
		select {
		case _, ok := <-sub.Snapshots():
			if !ok {
				if !errors.Is(sub.Err(), storeDown) {
					t.Fatalf("expected store error, got %v", sub.Err())
				}
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("snapshots channel did not close after fetch error")
		}
	}
}

func TestSubscriptionContextCancelClosesStream(t *testing.T) {
	b := NewBroker()
	store := &listStore{}

	ctx, cancel := context.WithCancel(context.Background())
	sub := Subscribe(ctx, b, "t", store.fetch)

	recvSnapshot(t, sub)
	cancel()

	select {
	case _, ok := <-sub.Snapshots():
		if ok {
			// A snapshot already in flight may land; the channel must
			// still close right after.
			if _, stillOpen := <-sub.Snapshots(); stillOpen {
				t.Fatal("snapshots channel stayed open after cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("snapshots channel did not close after cancel")
	}

	if !errors.Is(sub.Err(), context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", sub.Err())
	}
}

func TestBrokerTopicsAreIndependent(t *testing.T) {
	b := NewBroker()
	storeA := &listStore{}
	storeB := &listStore{}

	subA := Subscribe(context.Background(), b, "topic-a", storeA.fetch)
	defer subA.Close()
	subB := Subscribe(context.Background(), b, "topic-b", storeB.fetch)
	defer subB.Close()

	recvSnapshot(t, subA)
	recvSnapshot(t, subB)

	storeA.set("x")
	b.Publish("topic-a")

	snapshot := recvSnapshot(t, subA)
	if len(snapshot) != 1 || snapshot[0] != "x" {
		t.Fatalf("unexpected snapshot on topic-a: %v", snapshot)
	}

	select {
	case items := <-subB.Snapshots():
		t.Fatalf("topic-b must not receive topic-a events, got %v", items)
	case <-time.After(50 * time.Millisecond):
	}
}
