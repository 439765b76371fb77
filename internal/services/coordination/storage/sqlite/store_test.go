package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/lockstep-ops/lockstep/internal/platform/errors"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir() + "/coordination.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedInstance(t *testing.T, store *Store, now time.Time) (domain.ExecutionInstance, []domain.ExecutionTask) {
	t.Helper()
	instance := domain.ExecutionInstance{
		ID:                "inst-1",
		PlanID:            "plan-1",
		OrganizationID:    "org-1",
		TriggeredBy:       "user-1",
		Status:            domain.InstanceRunning,
		CurrentPhase:      domain.PhaseActivation,
		Threshold:         0.8,
		TotalStakeholders: 5,
		StartedAt:         now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	tasks := []domain.ExecutionTask{
		{ID: "task-a", InstanceID: "inst-1", TemplateTaskID: "tpl-a", Title: "Page on-call", Status: domain.TaskReady, Position: 1, CreatedAt: now, UpdatedAt: now},
		{ID: "task-b", InstanceID: "inst-1", TemplateTaskID: "tpl-b", Title: "Open bridge", Status: domain.TaskReady, Position: 2, CreatedAt: now, UpdatedAt: now},
		{ID: "task-c", InstanceID: "inst-1", TemplateTaskID: "tpl-c", Title: "Post status", Status: domain.TaskPending, Position: 3, CreatedAt: now, UpdatedAt: now},
	}
	edges := []domain.DependencyEdge{
		{TaskID: "task-c", DependsOn: "task-a"},
		{TaskID: "task-c", DependsOn: "task-b"},
	}
	if err := store.CreateInstance(context.Background(), instance, tasks, edges); err != nil {
		t.Fatalf("create instance: %v", err)
	}
	return instance, tasks
}

func TestCreateInstanceRoundTrip(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	instance, _ := seedInstance(t, store, now)

	got, err := store.GetInstance(context.Background(), instance.ID)
	if err != nil {
		t.Fatalf("get instance: %v", err)
	}
	if got.Status != domain.InstanceRunning || got.CurrentPhase != domain.PhaseActivation {
		t.Fatalf("instance = %s/%s, want running/activation", got.Status, got.CurrentPhase)
	}
	if got.Threshold != 0.8 || got.TotalStakeholders != 5 {
		t.Fatalf("threshold/roster = %v/%d", got.Threshold, got.TotalStakeholders)
	}
	if !got.StartedAt.Equal(now) {
		t.Fatalf("started at = %v, want %v", got.StartedAt, now)
	}
	if got.CompletedAt != nil || got.ExecutionMinutes != nil {
		t.Fatal("fresh instance must have no completion stamps")
	}

	tasks, err := store.ListTasks(context.Background(), instance.ID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("task count = %d, want 3", len(tasks))
	}
	if tasks[0].ID != "task-a" || tasks[2].ID != "task-c" {
		t.Fatalf("tasks out of position order: %s, %s", tasks[0].ID, tasks[2].ID)
	}

	edges, err := store.ListDependencies(context.Background(), instance.ID)
	if err != nil {
		t.Fatalf("list dependencies: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("edge count = %d, want 2", len(edges))
	}
}

func TestGetInstanceNotFound(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetInstance(context.Background(), "missing")
	if errors.CodeOf(err) != errors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetTaskScopedToInstance(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	instance, _ := seedInstance(t, store, now)

	task, err := store.GetTask(context.Background(), instance.ID, "task-a")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task.Title != "Page on-call" || task.Status != domain.TaskReady {
		t.Fatalf("task = %q/%s", task.Title, task.Status)
	}

	if _, err := store.GetTask(context.Background(), "other-instance", "task-a"); errors.CodeOf(err) != errors.CodeNotFound {
		t.Fatalf("expected cross-instance lookup to miss, got %v", err)
	}
}

func TestApplyTaskTransitionIsAtomic(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	instance, tasks := seedInstance(t, store, now)
	ctx := context.Background()

	later := now.Add(5 * time.Minute)
	minutes := 5.0
	finished := tasks[0]
	finished.Status = domain.TaskCompleted
	finished.StartedAt = &now
	finished.CompletedAt = &later
	finished.DurationMinutes = &minutes
	finished.Outcome = "done"
	finished.UpdatedAt = later

	promoted := tasks[2]
	promoted.Status = domain.TaskReady
	promoted.UpdatedAt = later

	if err := store.ApplyTaskTransition(ctx, domain.TaskTransition{
		InstanceID: instance.ID,
		Task:       finished,
		Promoted:   []domain.ExecutionTask{promoted},
	}); err != nil {
		t.Fatalf("apply transition: %v", err)
	}

	gotFinished, err := store.GetTask(ctx, instance.ID, finished.ID)
	if err != nil {
		t.Fatalf("get finished: %v", err)
	}
	if gotFinished.Status != domain.TaskCompleted {
		t.Fatalf("finished status = %s", gotFinished.Status)
	}
	if gotFinished.DurationMinutes == nil || *gotFinished.DurationMinutes != 5 {
		t.Fatalf("duration = %v, want 5", gotFinished.DurationMinutes)
	}
	gotPromoted, err := store.GetTask(ctx, instance.ID, promoted.ID)
	if err != nil {
		t.Fatalf("get promoted: %v", err)
	}
	if gotPromoted.Status != domain.TaskReady {
		t.Fatalf("promoted status = %s", gotPromoted.Status)
	}

	// An instance write rides in the same transaction.
	completed := instance
	completed.Status = domain.InstanceCompleted
	completed.CurrentPhase = domain.PhaseCoordinated
	completed.CompletedAt = &later
	completed.ExecutionMinutes = &minutes
	completed.Outcome = domain.OutcomeSuccessful
	completed.UpdatedAt = later
	finished2 := tasks[1]
	finished2.Status = domain.TaskSkipped
	finished2.Outcome = "not needed"
	finished2.UpdatedAt = later
	if err := store.ApplyTaskTransition(ctx, domain.TaskTransition{
		InstanceID: instance.ID,
		Task:       finished2,
		Instance:   &completed,
	}); err != nil {
		t.Fatalf("apply closing transition: %v", err)
	}
	gotInstance, err := store.GetInstance(ctx, instance.ID)
	if err != nil {
		t.Fatalf("get instance: %v", err)
	}
	if gotInstance.Status != domain.InstanceCompleted || gotInstance.Outcome != domain.OutcomeSuccessful {
		t.Fatalf("instance = %s/%s", gotInstance.Status, gotInstance.Outcome)
	}
	if gotInstance.CompletedAt == nil || !gotInstance.CompletedAt.Equal(later) {
		t.Fatalf("completed at = %v", gotInstance.CompletedAt)
	}
}

func TestUpdateTaskRejectsUnknownStatus(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	_, tasks := seedInstance(t, store, now)

	task := tasks[0]
	task.Status = domain.TaskBlocked
	err := store.UpdateTask(context.Background(), task)
	if errors.CodeOf(err) != errors.CodeTaskInvalidStatus {
		t.Fatalf("expected invalid status rejection, got %v", err)
	}
}

func TestPutAcknowledgmentDeduplicates(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	instance, _ := seedInstance(t, store, now)
	ctx := context.Background()

	counted, err := store.PutAcknowledgment(ctx, domain.Acknowledgment{
		InstanceID:      instance.ID,
		StakeholderID:   "stakeholder-1",
		AcknowledgedAt:  now,
		ResponseMinutes: 1.5,
	})
	if err != nil {
		t.Fatalf("put acknowledgment: %v", err)
	}
	if !counted {
		t.Fatal("first acknowledgment must count")
	}

	counted, err = store.PutAcknowledgment(ctx, domain.Acknowledgment{
		InstanceID:      instance.ID,
		StakeholderID:   "stakeholder-1",
		AcknowledgedAt:  now.Add(time.Minute),
		ResponseMinutes: 2.5,
	})
	if err != nil {
		t.Fatalf("re-put acknowledgment: %v", err)
	}
	if counted {
		t.Fatal("duplicate acknowledgment must not count")
	}

	count, err := store.CountAcknowledgments(ctx, instance.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	acks, err := store.ListAcknowledgments(ctx, instance.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(acks) != 1 || acks[0].ResponseMinutes != 1.5 {
		t.Fatalf("acks = %+v, want the original row preserved", acks)
	}
}

func TestCompleteByThresholdFiresOnceAndSkipsOpenTasks(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	instance, tasks := seedInstance(t, store, now)
	ctx := context.Background()

	// Finish one task so the skip sweep only covers the open remainder.
	done := tasks[0]
	done.Status = domain.TaskCompleted
	done.UpdatedAt = now
	if err := store.UpdateTask(ctx, done); err != nil {
		t.Fatalf("update task: %v", err)
	}

	later := now.Add(12 * time.Minute)
	completion := domain.ThresholdCompletion{
		InstanceID:       instance.ID,
		CompletedAt:      later,
		ExecutionMinutes: 12,
		Outcome:          domain.OutcomeSuccessful,
		Phase:            domain.PhaseCoordinated,
		SkipOutcome:      domain.SkipReasonThresholdMet,
	}
	completed, skipped, err := store.CompleteByThreshold(ctx, completion)
	if err != nil {
		t.Fatalf("complete by threshold: %v", err)
	}
	if !completed {
		t.Fatal("first call must perform the transition")
	}
	if len(skipped) != 2 || skipped[0] != "task-b" || skipped[1] != "task-c" {
		t.Fatalf("skipped = %v, want open tasks b and c", skipped)
	}

	gotInstance, err := store.GetInstance(ctx, instance.ID)
	if err != nil {
		t.Fatalf("get instance: %v", err)
	}
	if gotInstance.Status != domain.InstanceCompleted {
		t.Fatalf("instance status = %s", gotInstance.Status)
	}
	if gotInstance.ExecutionMinutes == nil || *gotInstance.ExecutionMinutes != 12 {
		t.Fatalf("execution minutes = %v", gotInstance.ExecutionMinutes)
	}
	for _, taskID := range skipped {
		task, err := store.GetTask(ctx, instance.ID, taskID)
		if err != nil {
			t.Fatalf("get %s: %v", taskID, err)
		}
		if task.Status != domain.TaskSkipped || task.Outcome != domain.SkipReasonThresholdMet {
			t.Fatalf("task %s = %s/%q", taskID, task.Status, task.Outcome)
		}
	}
	doneTask, err := store.GetTask(ctx, instance.ID, done.ID)
	if err != nil {
		t.Fatalf("get done task: %v", err)
	}
	if doneTask.Status != domain.TaskCompleted {
		t.Fatalf("completed task was overwritten to %s", doneTask.Status)
	}

	completed, skipped, err = store.CompleteByThreshold(ctx, completion)
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if completed || skipped != nil {
		t.Fatalf("second call must lose the compare-and-set, got %v/%v", completed, skipped)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
