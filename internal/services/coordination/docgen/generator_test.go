package docgen

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lockstep-ops/lockstep/internal/services/coordination/domain"
)

type collectingBroadcaster struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *collectingBroadcaster) Publish(event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *collectingBroadcaster) all() []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Event(nil), b.events...)
}

func TestEnqueuePublishesCompletionInOrder(t *testing.T) {
	t.Parallel()

	broadcaster := &collectingBroadcaster{}
	counter := 0
	generator := New(broadcaster,
		WithClock(func() time.Time { return time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() (string, error) {
			counter++
			return map[int]string{1: "doc-1", 2: "doc-2"}[counter], nil
		}),
	)

	generator.Enqueue(context.Background(), domain.DocumentRequest{
		InstanceID:     "inst-1",
		OrganizationID: "org-1",
		Kind:           "activation-brief",
	})
	generator.Enqueue(context.Background(), domain.DocumentRequest{
		InstanceID:     "inst-1",
		OrganizationID: "org-1",
		Kind:           "after-action-report",
	})
	generator.Close()

	events := broadcaster.all()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	first := events[0]
	if first.Type != domain.EventDocumentGenerated || first.InstanceID != "inst-1" {
		t.Fatalf("event = %+v", first)
	}
	if first.DocumentGenerated.DocumentID != "doc-1" || first.DocumentGenerated.Kind != "activation-brief" {
		t.Fatalf("payload = %+v", first.DocumentGenerated)
	}
	if events[1].DocumentGenerated.Kind != "after-action-report" {
		t.Fatalf("second payload = %+v", events[1].DocumentGenerated)
	}
}

func TestEnqueueAfterCloseIsNoOp(t *testing.T) {
	t.Parallel()

	broadcaster := &collectingBroadcaster{}
	generator := New(broadcaster)
	generator.Close()

	generator.Enqueue(context.Background(), domain.DocumentRequest{InstanceID: "inst-1", Kind: "activation-brief"})
	if events := broadcaster.all(); len(events) != 0 {
		t.Fatalf("expected no events after close, got %d", len(events))
	}
}
