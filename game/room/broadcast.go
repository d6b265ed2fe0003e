package room

import (
	"errors"
	"sync"
)

// DefaultBroadcastBuffer is the per-subscriber buffer of a room broadcast.
const DefaultBroadcastBuffer = 100

var ErrBroadcastClosed = errors.New("broadcast is closed")

// Broadcast is a fan-out channel of text events scoped to one room. Every
// subscriber receives every published message in publication order. A
// subscriber whose buffer is full is dropped and its channel closed, so a slow
// reader never blocks the publisher.
type Broadcast struct {
	mu     sync.Mutex
	buffer int
	subs   map[*Subscription]struct{}
	closed bool
}

// Subscription is one subscriber's view of a Broadcast. C is closed when the
// subscriber is dropped, unsubscribes, or the broadcast closes.
type Subscription struct {
	C <-chan string

	ch chan string
	b  *Broadcast
}

// NewBroadcast creates a broadcast whose subscribers buffer up to buffer
// messages each.
func NewBroadcast(buffer int) *Broadcast {
	if buffer <= 0 {
		buffer = DefaultBroadcastBuffer
	}
	return &Broadcast{
		buffer: buffer,
		subs:   make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscriber.
func (b *Broadcast) Subscribe() (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBroadcastClosed
	}
	ch := make(chan string, b.buffer)
	sub := &Subscription{C: ch, ch: ch, b: b}
	b.subs[sub] = struct{}{}
	return sub, nil
}

// Publish delivers msg to every subscriber and returns how many received it.
func (b *Broadcast) Publish(msg string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0
	}
	delivered := 0
	for sub := range b.subs {
		select {
		case sub.ch <- msg:
			delivered++
		default:
			b.dropLocked(sub)
		}
	}
	return delivered
}

// Close closes every subscriber channel. Further publishes are ignored.
func (b *Broadcast) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		b.dropLocked(sub)
	}
}

// Subscribers returns the number of live subscribers.
func (b *Broadcast) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Closed reports whether Close has been called.
func (b *Broadcast) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Broadcast) dropLocked(sub *Subscription) {
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// Unsubscribe removes the subscription. It is safe to call more than once and
// after the broadcast has closed.
func (s *Subscription) Unsubscribe() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.dropLocked(s)
}
