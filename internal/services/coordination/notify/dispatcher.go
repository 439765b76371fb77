// Package notify delivers activation alerts to stakeholder rosters.
package notify

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/lockstep-ops/lockstep/internal/services/coordination/domain"
)

// LogDispatcher writes activation alerts to the process log. It stands in for
// a real paging or messaging integration; every roster entry with an id is
// reported delivered.
type LogDispatcher struct {
	logf func(format string, args ...any)
}

// NewLogDispatcher constructs a dispatcher writing through log.Printf.
func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{logf: log.Printf}
}

// Dispatch implements domain.NotificationDispatcher.
func (d *LogDispatcher) Dispatch(_ context.Context, instance domain.ExecutionInstance, roster []domain.Stakeholder) []domain.DeliveryOutcome {
	logf := log.Printf
	if d != nil && d.logf != nil {
		logf = d.logf
	}
	outcomes := make([]domain.DeliveryOutcome, 0, len(roster))
	for _, stakeholder := range roster {
		stakeholderID := strings.TrimSpace(stakeholder.ID)
		if stakeholderID == "" {
			outcomes = append(outcomes, domain.DeliveryOutcome{
				StakeholderID: stakeholder.ID,
				Error:         "stakeholder id is required",
			})
			continue
		}
		logf("notify: instance=%s stakeholder=%s contact=%s", instance.ID, stakeholderID, stakeholder.Contact)
		outcomes = append(outcomes, domain.DeliveryOutcome{
			StakeholderID: stakeholderID,
			Delivered:     true,
		})
	}
	return outcomes
}

// RecordingDispatcher captures dispatches in memory and returns scripted
// failures, for tests and the simulation driver.
type RecordingDispatcher struct {
	mu       sync.Mutex
	failures map[string]string
	sent     []Dispatched
}

// Dispatched is one recorded dispatch call.
type Dispatched struct {
	InstanceID     string
	StakeholderIDs []string
}

// NewRecordingDispatcher constructs an empty recording dispatcher.
func NewRecordingDispatcher() *RecordingDispatcher {
	return &RecordingDispatcher{failures: make(map[string]string)}
}

// FailFor scripts a delivery failure for one stakeholder id.
func (d *RecordingDispatcher) FailFor(stakeholderID, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[stakeholderID] = message
}

// Sent returns the recorded dispatch calls.
func (d *RecordingDispatcher) Sent() []Dispatched {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Dispatched(nil), d.sent...)
}

// Dispatch implements domain.NotificationDispatcher.
func (d *RecordingDispatcher) Dispatch(_ context.Context, instance domain.ExecutionInstance, roster []domain.Stakeholder) []domain.DeliveryOutcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	record := Dispatched{InstanceID: instance.ID}
	outcomes := make([]domain.DeliveryOutcome, 0, len(roster))
	for _, stakeholder := range roster {
		record.StakeholderIDs = append(record.StakeholderIDs, stakeholder.ID)
		if message, failed := d.failures[stakeholder.ID]; failed {
			outcomes = append(outcomes, domain.DeliveryOutcome{
				StakeholderID: stakeholder.ID,
				Error:         message,
			})
			continue
		}
		outcomes = append(outcomes, domain.DeliveryOutcome{
			StakeholderID: stakeholder.ID,
			Delivered:     true,
		})
	}
	d.sent = append(d.sent, record)
	return outcomes
}

var (
	_ domain.NotificationDispatcher = (*LogDispatcher)(nil)
	_ domain.NotificationDispatcher = (*RecordingDispatcher)(nil)
)
