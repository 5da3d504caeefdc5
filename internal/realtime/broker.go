package realtime

import "sync"

// Broker fans change notifications out to live subscriptions by topic.
// Notifications carry no payload: a subscriber re-reads its full result set
// from the store on every event, so listeners can never observe a partial or
// stale diff. Each subscriber keeps a pending counter instead of a bounded
// queue, so a slow consumer delays its own emissions but never loses events.
type Broker struct {
	mu     sync.Mutex
	topics map[string]map[int64]*waiter
	nextID int64
}

type waiter struct {
	mu      sync.Mutex
	pending int
	signal  chan struct{}
}

func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string]map[int64]*waiter),
	}
}

// Publish records one change event on the topic. Never blocks; safe to call
// from any goroutine, including store write paths.
func (b *Broker) Publish(topic string) {
	b.mu.Lock()
	subs := b.topics[topic]
	waiters := make([]*waiter, 0, len(subs))
	for _, w := range subs {
		waiters = append(waiters, w)
	}
	b.mu.Unlock()

	for _, w := range waiters {
		w.mu.Lock()
		w.pending++
		w.mu.Unlock()
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

// subscribe registers a waiter on the topic and returns it together with a
// deregistration func. Deregistration is synchronous: once it returns, no
// Publish call will touch the waiter again.
func (b *Broker) subscribe(topic string) (*waiter, func()) {
	w := &waiter{signal: make(chan struct{}, 1)}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	subs := b.topics[topic]
	if subs == nil {
		subs = make(map[int64]*waiter)
		b.topics[topic] = subs
	}
	subs[id] = w
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if subs, ok := b.topics[topic]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(b.topics, topic)
			}
		}
		b.mu.Unlock()
	}

	return w, unsubscribe
}

// takeOne consumes a single pending notification, reporting whether one was
// available. The subscription loop calls it once per emission so that k
// change events always produce k snapshots.
func (w *waiter) takeOne() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == 0 {
		return false
	}
	w.pending--
	return true
}

// Topic name helpers shared by publishers and subscribers.

func MatchesTopic(userID string) string {
	return "matches:" + userID
}

func MessagesTopic(matchID string) string {
	return "messages:" + matchID
}

func ProfileTopic(userID string) string {
	return "profile:" + userID
}
