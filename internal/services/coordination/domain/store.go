package domain

import (
	"context"
	"time"
)

// Store is the persistence boundary for coordination state. Multi-row writes
// are atomic: either every row of a call lands or none do.
type Store interface {
	// CreateInstance persists one instance, its task set, and its
	// materialized dependency edges in a single transaction.
	CreateInstance(ctx context.Context, instance ExecutionInstance, tasks []ExecutionTask, edges []DependencyEdge) error
	GetInstance(ctx context.Context, instanceID string) (ExecutionInstance, error)
	ListTasks(ctx context.Context, instanceID string) ([]ExecutionTask, error)
	GetTask(ctx context.Context, instanceID, taskID string) (ExecutionTask, error)
	ListDependencies(ctx context.Context, instanceID string) ([]DependencyEdge, error)

	// ApplyTaskTransition writes a task mutation, any readiness promotions,
	// and an optional instance completion in one transaction, so readers
	// never observe a half-propagated state.
	ApplyTaskTransition(ctx context.Context, transition TaskTransition) error
	UpdateTask(ctx context.Context, task ExecutionTask) error
	UpdateInstancePhase(ctx context.Context, instanceID, phase string, updatedAt time.Time) error

	// PutAcknowledgment stores one acknowledgment, deduplicating by
	// stakeholder id. It reports whether the row was newly counted.
	PutAcknowledgment(ctx context.Context, ack Acknowledgment) (bool, error)
	CountAcknowledgments(ctx context.Context, instanceID string) (int, error)
	ListAcknowledgments(ctx context.Context, instanceID string) ([]Acknowledgment, error)

	// CompleteByThreshold performs the one-shot threshold completion as a
	// compare-and-set: the instance is completed only if still running, and
	// remaining open tasks are skipped in the same transaction. It reports
	// whether this call performed the transition and which tasks it skipped.
	CompleteByThreshold(ctx context.Context, completion ThresholdCompletion) (bool, []string, error)
}

// TaskTransition is the atomic write unit for task state machine moves.
type TaskTransition struct {
	InstanceID string
	Task       ExecutionTask
	Promoted   []ExecutionTask
	Instance   *ExecutionInstance
}

// ThresholdCompletion describes the instance completion performed when the
// acknowledgment ratio crosses the coordination threshold.
type ThresholdCompletion struct {
	InstanceID       string
	CompletedAt      time.Time
	ExecutionMinutes float64
	Outcome          InstanceOutcome
	Phase            string
	SkipOutcome      string
}
