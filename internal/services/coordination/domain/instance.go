package domain

import "time"

// InstanceStatus describes the lifecycle state of an execution instance.
type InstanceStatus string

const (
	InstancePending   InstanceStatus = "pending"
	InstanceRunning   InstanceStatus = "running"
	InstanceCompleted InstanceStatus = "completed"
	InstanceFailed    InstanceStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s InstanceStatus) Terminal() bool {
	return s == InstanceCompleted || s == InstanceFailed
}

// InstanceOutcome summarizes how a completed instance ended.
type InstanceOutcome string

const (
	OutcomeNone       InstanceOutcome = ""
	OutcomeSuccessful InstanceOutcome = "successful"
	OutcomePartial    InstanceOutcome = "partial"
	OutcomeFailed     InstanceOutcome = "failed"
)

// Phase labels reported on the instance as coordination progresses.
const (
	PhaseActivation  = "activation"
	PhaseExecution   = "execution"
	PhaseCoordinated = "coordinated"
)

// ExecutionInstance is one live run of a plan against a triggering context.
//
// Instances are created by Activate together with their tasks, mutate through
// task transitions and acknowledgment threshold checks, and are immutable once
// terminal.
type ExecutionInstance struct {
	ID                string
	PlanID            string
	ScenarioID        string
	OrganizationID    string
	TriggeredBy       string
	Status            InstanceStatus
	CurrentPhase      string
	Threshold         float64
	TotalStakeholders int
	StartedAt         time.Time
	CompletedAt       *time.Time
	ExecutionMinutes  *float64
	Outcome           InstanceOutcome
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
