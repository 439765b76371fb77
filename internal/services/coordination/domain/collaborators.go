package domain

import "context"

// DeliveryOutcome reports one stakeholder notification attempt.
type DeliveryOutcome struct {
	StakeholderID string
	Delivered     bool
	Error         string
}

// NotificationDispatcher sends activation alerts to the stakeholder roster.
// Delivery failures are surfaced per recipient and never roll back an
// activation; retries are the dispatcher's concern.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, instance ExecutionInstance, roster []Stakeholder) []DeliveryOutcome
}

// DocumentRequest asks the export generator for one instance document.
type DocumentRequest struct {
	InstanceID     string
	OrganizationID string
	Kind           string
}

// DocumentGenerator is the fire-and-forget export collaborator. Completed
// documents are reported back through the broadcast channel, not awaited.
type DocumentGenerator interface {
	Enqueue(ctx context.Context, req DocumentRequest)
}
