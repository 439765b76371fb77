// Package broadcast fans coordination events out to live subscribers.
//
// Delivery is per-instance ordered and best-effort: events published while
// nobody is subscribed are dropped, and there is no replay. Clients that
// attach late reconcile through the status read path.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/lockstep-ops/lockstep/internal/services/coordination/domain"
)

const defaultBufferSize = 64

// SequencedEvent pairs an event with its per-instance sequence number.
// Sequences start at 1 and increase by one per published event, so a consumer
// can detect its own gaps after a forced drop.
type SequencedEvent struct {
	Sequence int64
	Event    domain.Event
}

// Broker routes published events to the subscribers of their instance.
type Broker struct {
	mu         sync.Mutex
	channels   map[string]*instanceChannel
	bufferSize int
	closed     bool
}

// Option configures the broker.
type Option func(*Broker)

// WithBufferSize sets the per-subscriber buffer. A subscriber whose buffer is
// full when an event arrives is dropped rather than stalling or reordering
// delivery for the rest.
func WithBufferSize(size int) Option {
	return func(b *Broker) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

// New constructs an empty broker.
func New(opts ...Option) *Broker {
	broker := &Broker{
		channels:   make(map[string]*instanceChannel),
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(broker)
		}
	}
	return broker
}

type instanceChannel struct {
	mu          sync.Mutex
	sequence    int64
	subscribers map[*Subscription]struct{}
}

// Subscription is one live attachment to an instance's event channel.
type Subscription struct {
	instanceID string
	events     chan SequencedEvent
	cancel     func()
	dropped    atomic.Bool
	once       sync.Once
}

// Events returns the ordered delivery channel. The channel is closed when the
// subscription is cancelled, the broker shuts down, or the subscriber falls
// too far behind.
func (s *Subscription) Events() <-chan SequencedEvent {
	return s.events
}

// Dropped reports whether the broker closed this subscription because its
// buffer overflowed.
func (s *Subscription) Dropped() bool {
	return s.dropped.Load()
}

// Cancel detaches the subscription and closes its channel.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.cancel()
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.events) })
}

// Subscribe attaches to an instance's event channel. Subscribing does not
// replay anything already published.
func (b *Broker) Subscribe(instanceID string) *Subscription {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub := &Subscription{instanceID: instanceID, events: make(chan SequencedEvent)}
		sub.cancel = func() { sub.close() }
		sub.close()
		return sub
	}
	channel, ok := b.channels[instanceID]
	if !ok {
		channel = &instanceChannel{subscribers: make(map[*Subscription]struct{})}
		b.channels[instanceID] = channel
	}
	b.mu.Unlock()

	sub := &Subscription{
		instanceID: instanceID,
		events:     make(chan SequencedEvent, b.bufferSize),
	}
	sub.cancel = func() { b.unsubscribe(sub) }

	channel.mu.Lock()
	channel.subscribers[sub] = struct{}{}
	channel.mu.Unlock()
	return sub
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	channel, ok := b.channels[sub.instanceID]
	b.mu.Unlock()
	if ok {
		channel.mu.Lock()
		delete(channel.subscribers, sub)
		channel.mu.Unlock()
	}
	sub.close()
}

// Publish delivers one event to every current subscriber of its instance, in
// publish order. Events with no instance id are discarded.
func (b *Broker) Publish(event domain.Event) {
	if event.InstanceID == "" {
		return
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	channel, ok := b.channels[event.InstanceID]
	b.mu.Unlock()
	if !ok {
		return
	}

	channel.mu.Lock()
	channel.sequence++
	sequenced := SequencedEvent{Sequence: channel.sequence, Event: event}
	var overflowed []*Subscription
	for sub := range channel.subscribers {
		select {
		case sub.events <- sequenced:
		default:
			overflowed = append(overflowed, sub)
		}
	}
	for _, sub := range overflowed {
		delete(channel.subscribers, sub)
	}
	channel.mu.Unlock()

	for _, sub := range overflowed {
		sub.dropped.Store(true)
		sub.close()
	}
}

// ReleaseInstance drops a terminal instance's channel and disconnects its
// remaining subscribers.
func (b *Broker) ReleaseInstance(instanceID string) {
	b.mu.Lock()
	channel, ok := b.channels[instanceID]
	delete(b.channels, instanceID)
	b.mu.Unlock()
	if !ok {
		return
	}

	channel.mu.Lock()
	subs := make([]*Subscription, 0, len(channel.subscribers))
	for sub := range channel.subscribers {
		subs = append(subs, sub)
	}
	channel.subscribers = make(map[*Subscription]struct{})
	channel.mu.Unlock()
	for _, sub := range subs {
		sub.close()
	}
}

// Close shuts the broker down and disconnects every subscriber.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	channels := b.channels
	b.channels = make(map[string]*instanceChannel)
	b.mu.Unlock()

	for _, channel := range channels {
		channel.mu.Lock()
		subs := make([]*Subscription, 0, len(channel.subscribers))
		for sub := range channel.subscribers {
			subs = append(subs, sub)
		}
		channel.subscribers = make(map[*Subscription]struct{})
		channel.mu.Unlock()
		for _, sub := range subs {
			sub.close()
		}
	}
}

var _ domain.Broadcaster = (*Broker)(nil)
