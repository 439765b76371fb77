package domain

import "time"

// EventType identifies the type of a broadcast event.
type EventType string

const (
	// EventTaskUpdated records a task state transition.
	EventTaskUpdated EventType = "task-updated"
	// EventStakeholderAcknowledged records one counted acknowledgment.
	EventStakeholderAcknowledged EventType = "stakeholder-acknowledged"
	// EventCoordinationComplete records the one-shot threshold completion.
	EventCoordinationComplete EventType = "coordination-complete"
	// EventSyncStatusUpdate records an instance status or phase change.
	EventSyncStatusUpdate EventType = "sync-status-update"
	// EventDocumentGenerated records a document reported by the export generator.
	EventDocumentGenerated EventType = "document-generated"
	// EventResourceActivated records a new instance going live.
	EventResourceActivated EventType = "resource-activated"
)

// Event is the broadcast envelope. Exactly one payload field matching Type is
// set; consumers switch on Type and read that field, so the payload set stays
// closed rather than an untyped bag.
type Event struct {
	Type           EventType
	InstanceID     string
	OrganizationID string
	Timestamp      time.Time

	TaskUpdated             *TaskUpdatedPayload
	StakeholderAcknowledged *StakeholderAcknowledgedPayload
	CoordinationComplete    *CoordinationCompletePayload
	SyncStatusUpdate        *SyncStatusUpdatePayload
	DocumentGenerated       *DocumentGeneratedPayload
	ResourceActivated       *ResourceActivatedPayload
}

// TaskUpdatedPayload captures the payload for task-updated events.
type TaskUpdatedPayload struct {
	TaskID     string     `json:"task_id"`
	Status     TaskStatus `json:"status"`
	Outcome    string     `json:"outcome,omitempty"`
	AssignedTo string     `json:"assigned_to,omitempty"`
}

// StakeholderAcknowledgedPayload captures the payload for stakeholder-acknowledged events.
type StakeholderAcknowledgedPayload struct {
	StakeholderID     string  `json:"stakeholder_id"`
	ResponseMinutes   float64 `json:"response_minutes"`
	AcknowledgedCount int     `json:"acknowledged_count"`
	TotalStakeholders int     `json:"total_stakeholders"`
}

// CoordinationCompletePayload captures the payload for coordination-complete events.
type CoordinationCompletePayload struct {
	AcknowledgedCount int     `json:"acknowledged_count"`
	TotalStakeholders int     `json:"total_stakeholders"`
	ExecutionMinutes  float64 `json:"execution_minutes"`
	Outcome           string  `json:"outcome"`
}

// SyncStatusUpdatePayload captures the payload for sync-status-update events.
type SyncStatusUpdatePayload struct {
	Status  InstanceStatus `json:"status"`
	Phase   string         `json:"phase"`
	Outcome string         `json:"outcome,omitempty"`
}

// DocumentGeneratedPayload captures the payload for document-generated events.
type DocumentGeneratedPayload struct {
	DocumentID string `json:"document_id"`
	Kind       string `json:"kind"`
	URL        string `json:"url,omitempty"`
}

// ResourceActivatedPayload captures the payload for resource-activated events.
type ResourceActivatedPayload struct {
	PlanID      string `json:"plan_id"`
	ScenarioID  string `json:"scenario_id"`
	TriggeredBy string `json:"triggered_by"`
	TaskCount   int    `json:"task_count"`
}

// Payload returns the variant matching the event type, or nil when the
// envelope is malformed. The switch is exhaustive over the closed event set.
func (e Event) Payload() any {
	switch e.Type {
	case EventTaskUpdated:
		if e.TaskUpdated != nil {
			return *e.TaskUpdated
		}
	case EventStakeholderAcknowledged:
		if e.StakeholderAcknowledged != nil {
			return *e.StakeholderAcknowledged
		}
	case EventCoordinationComplete:
		if e.CoordinationComplete != nil {
			return *e.CoordinationComplete
		}
	case EventSyncStatusUpdate:
		if e.SyncStatusUpdate != nil {
			return *e.SyncStatusUpdate
		}
	case EventDocumentGenerated:
		if e.DocumentGenerated != nil {
			return *e.DocumentGenerated
		}
	case EventResourceActivated:
		if e.ResourceActivated != nil {
			return *e.ResourceActivated
		}
	}
	return nil
}

// Broadcaster fans events out to currently subscribed observers. Delivery is
// best-effort with no replay; late subscribers reconcile through Status.
type Broadcaster interface {
	Publish(event Event)
}

// NopBroadcaster discards events. Used where fan-out is not wired.
type NopBroadcaster struct{}

// Publish implements Broadcaster.
func (NopBroadcaster) Publish(Event) {}
