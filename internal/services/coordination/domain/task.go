package domain

import "time"

// TaskStatus describes the lifecycle state of an execution task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskReady      TaskStatus = "ready"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskSkipped    TaskStatus = "skipped"

	// TaskBlocked is a rejection outcome reported to callers whose start
	// request fails on unmet dependencies. It is never stored.
	TaskBlocked TaskStatus = "blocked"
)

// Terminal reports whether the status admits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskSkipped
}

// ValidTaskStatus reports whether value names a storable task status.
func ValidTaskStatus(value TaskStatus) bool {
	switch value {
	case TaskPending, TaskReady, TaskInProgress, TaskCompleted, TaskSkipped:
		return true
	}
	return false
}

// ExecutionTask is one unit of work within an instance, instantiated from a
// plan task template. Tasks are created once at activation and mutate only
// through the task state machine.
type ExecutionTask struct {
	ID              string
	InstanceID      string
	TemplateTaskID  string
	Title           string
	AssignedTo      string
	Status          TaskStatus
	Position        int
	StartedAt       *time.Time
	CompletedAt     *time.Time
	DurationMinutes *float64
	Outcome         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SkipReasonThresholdMet is stamped on tasks auto-skipped when the
// acknowledgment threshold closes an instance with work still open.
const SkipReasonThresholdMet = "coordination-threshold-met"
