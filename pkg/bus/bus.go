package bus

import (
	"sync"
	"sync/atomic"
)

// Bus fans outbound events out to subscribers over buffered channels.
//
// Publish never blocks: a subscriber that falls behind has events dropped
// and counted rather than stalling a scheduler tick. This mirrors the
// failure model of the agent, where observability output is best-effort.
type Bus struct {
	mu      sync.RWMutex
	subs    []chan Event
	closed  bool
	dropped atomic.Int64
}

// DefaultSubscriberBuffer is the channel buffer handed to subscribers.
// Default: 256
const DefaultSubscriberBuffer = 256

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers a new subscriber and returns its event channel.
// The channel is closed when the bus is closed.
func (b *Bus) Subscribe() <-chan Event {
	return b.SubscribeBuffered(DefaultSubscriberBuffer)
}

// SubscribeBuffered registers a subscriber with an explicit buffer size.
func (b *Bus) SubscribeBuffered(size int) <-chan Event {
	if size <= 0 {
		size = DefaultSubscriberBuffer
	}

	ch := make(chan Event, size)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}

	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers an event to every subscriber without blocking.
// Events to full subscriber channels are dropped and counted.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns the number of events dropped due to slow subscribers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
