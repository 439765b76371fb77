// Package docgen produces instance documents out of band.
package docgen

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lockstep-ops/lockstep/internal/platform/id"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/domain"
)

// Generator accepts document requests and reports completions through the
// broadcast channel. Enqueue never blocks the caller; requests are worked by
// a single background goroutine so completions for one instance arrive in
// request order.
type Generator struct {
	broadcaster domain.Broadcaster
	clock       func() time.Time
	newID       func() (string, error)

	mu      sync.Mutex
	queue   chan domain.DocumentRequest
	done    chan struct{}
	started bool
	closed  bool
}

// Option configures the generator.
type Option func(*Generator)

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(g *Generator) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// WithIDGenerator overrides document id generation, for tests.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(g *Generator) {
		if newID != nil {
			g.newID = newID
		}
	}
}

// New constructs a generator publishing completions to broadcaster.
func New(broadcaster domain.Broadcaster, opts ...Option) *Generator {
	if broadcaster == nil {
		broadcaster = domain.NopBroadcaster{}
	}
	generator := &Generator{
		broadcaster: broadcaster,
		clock:       time.Now,
		newID:       id.NewID,
		queue:       make(chan domain.DocumentRequest, 128),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(generator)
		}
	}
	return generator
}

// Enqueue implements domain.DocumentGenerator. A full queue drops the request
// with a log line rather than blocking activation.
func (g *Generator) Enqueue(_ context.Context, req domain.DocumentRequest) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	if !g.started {
		g.started = true
		go g.run()
	}
	// The send stays under the lock so Close cannot close the queue between
	// the closed check and the send.
	select {
	case g.queue <- req:
	default:
		log.Printf("docgen: queue full, dropping %s document for instance %s", req.Kind, req.InstanceID)
	}
}

// Close stops the worker after draining queued requests.
func (g *Generator) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	started := g.started
	g.mu.Unlock()

	close(g.queue)
	if started {
		<-g.done
	}
}

func (g *Generator) run() {
	defer close(g.done)
	for req := range g.queue {
		documentID, err := g.newID()
		if err != nil {
			log.Printf("docgen: generate document id: %v", err)
			continue
		}
		g.broadcaster.Publish(domain.Event{
			Type:           domain.EventDocumentGenerated,
			InstanceID:     req.InstanceID,
			OrganizationID: req.OrganizationID,
			Timestamp:      g.clock().UTC(),
			DocumentGenerated: &domain.DocumentGeneratedPayload{
				DocumentID: documentID,
				Kind:       req.Kind,
			},
		})
	}
}

var _ domain.DocumentGenerator = (*Generator)(nil)
