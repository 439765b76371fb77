package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lockstep-ops/lockstep/internal/platform/errors"
	"github.com/lockstep-ops/lockstep/internal/platform/id"
)

const tracerName = "lockstep/coordination"

// Engine coordinates execution instances: activation, the task state machine,
// the acknowledgment threshold monitor, and event fan-out.
type Engine struct {
	store       Store
	plans       PlanStore
	broadcaster Broadcaster
	notifier    NotificationDispatcher
	documents   DocumentGenerator
	clock       func() time.Time
	newID       func() (string, error)
	tracer      trace.Tracer
	locks       *instanceLocks
}

// EngineOption configures optional engine collaborators.
type EngineOption func(*Engine)

// WithBroadcaster wires the real-time fan-out channel.
func WithBroadcaster(b Broadcaster) EngineOption {
	return func(e *Engine) {
		if b != nil {
			e.broadcaster = b
		}
	}
}

// WithNotifier wires the stakeholder notification dispatcher.
func WithNotifier(n NotificationDispatcher) EngineOption {
	return func(e *Engine) { e.notifier = n }
}

// WithDocumentGenerator wires the fire-and-forget export collaborator.
func WithDocumentGenerator(g DocumentGenerator) EngineOption {
	return func(e *Engine) { e.documents = g }
}

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithIDGenerator overrides identifier generation, for tests.
func WithIDGenerator(newID func() (string, error)) EngineOption {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// NewEngine constructs the coordination engine over its persistence and plan
// catalog boundaries.
func NewEngine(store Store, plans PlanStore, opts ...EngineOption) *Engine {
	engine := &Engine{
		store:       store,
		plans:       plans,
		broadcaster: NopBroadcaster{},
		clock:       time.Now,
		newID:       id.NewID,
		tracer:      otel.Tracer(tracerName),
		locks:       newInstanceLocks(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}
	return engine
}

// ActivateInput identifies the plan and triggering context for one activation.
type ActivateInput struct {
	OrganizationID string
	ScenarioID     string
	PlanID         string
	TriggeredBy    string
}

// ActivateResult reports a successful activation.
type ActivateResult struct {
	Instance             ExecutionInstance
	Tasks                []ExecutionTask
	StakeholdersNotified int
	DocumentsRequested   []string
	Errors               []string
}

// Activate creates one execution instance from a plan: one task row per
// template task, zero-dependency tasks seeded ready, the dependency graph
// materialized per instance, and the stakeholder roster notified. Creation is
// all-or-nothing; notification failures surface in Errors without rolling the
// instance back.
func (e *Engine) Activate(ctx context.Context, input ActivateInput) (ActivateResult, error) {
	ctx, span := e.tracer.Start(ctx, "coordination.activate")
	defer span.End()

	organizationID := strings.TrimSpace(input.OrganizationID)
	if organizationID == "" {
		return ActivateResult{}, errors.New(errors.CodeOrganizationEmptyID, "organization id is required")
	}
	planID := strings.TrimSpace(input.PlanID)
	if planID == "" {
		return ActivateResult{}, errors.New(errors.CodePlanEmptyID, "plan id is required")
	}
	triggeredBy := strings.TrimSpace(input.TriggeredBy)
	if triggeredBy == "" {
		return ActivateResult{}, errors.New(errors.CodeTriggeringActorEmpty, "triggering actor is required")
	}

	plan, err := e.plans.GetPlan(ctx, planID)
	if err != nil {
		if errors.CodeOf(err) == errors.CodeNotFound {
			return ActivateResult{}, errors.Wrap(errors.CodePlanNotFound, fmt.Sprintf("plan %s not found", planID), err)
		}
		return ActivateResult{}, fmt.Errorf("load plan: %w", err)
	}
	scenarioID := strings.TrimSpace(input.ScenarioID)
	if scenarioID != "" {
		if _, err := e.plans.GetScenario(ctx, scenarioID); err != nil {
			if errors.CodeOf(err) == errors.CodeNotFound {
				return ActivateResult{}, errors.Wrap(errors.CodeScenarioNotFound, fmt.Sprintf("scenario %s not found", scenarioID), err)
			}
			return ActivateResult{}, fmt.Errorf("load scenario: %w", err)
		}
	}
	if len(plan.Tasks) == 0 {
		return ActivateResult{}, errors.New(errors.CodePlanNoTasks, "plan declares no tasks")
	}
	if len(plan.Stakeholders) == 0 {
		return ActivateResult{}, errors.New(errors.CodeRosterEmpty, "plan declares no stakeholder roster")
	}
	threshold := plan.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold <= 0 || threshold > 1 {
		return ActivateResult{}, errors.New(errors.CodeThresholdOutOfRange, "coordination threshold must be in (0, 1]")
	}

	templateIDs := make([]string, 0, len(plan.Tasks))
	for _, template := range plan.Tasks {
		templateIDs = append(templateIDs, template.ID)
	}
	if err := ValidateAcyclic(templateIDs, plan.Dependencies); err != nil {
		return ActivateResult{}, err
	}

	instanceID, err := e.newID()
	if err != nil {
		return ActivateResult{}, fmt.Errorf("generate instance id: %w", err)
	}
	now := e.now()
	instance := ExecutionInstance{
		ID:                instanceID,
		PlanID:            plan.ID,
		ScenarioID:        scenarioID,
		OrganizationID:    organizationID,
		TriggeredBy:       triggeredBy,
		Status:            InstanceRunning,
		CurrentPhase:      PhaseActivation,
		Threshold:         threshold,
		TotalStakeholders: len(plan.Stakeholders),
		StartedAt:         now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	indegree := InDegrees(templateIDs, plan.Dependencies)
	tasks := make([]ExecutionTask, 0, len(plan.Tasks))
	taskIDByTemplate := make(map[string]string, len(plan.Tasks))
	for _, template := range plan.Tasks {
		taskID, idErr := e.newID()
		if idErr != nil {
			return ActivateResult{}, fmt.Errorf("generate task id: %w", idErr)
		}
		status := TaskPending
		if indegree[template.ID] == 0 {
			status = TaskReady
		}
		taskIDByTemplate[template.ID] = taskID
		tasks = append(tasks, ExecutionTask{
			ID:             taskID,
			InstanceID:     instanceID,
			TemplateTaskID: template.ID,
			Title:          template.Title,
			AssignedTo:     template.AssigneeRole,
			Status:         status,
			Position:       template.Position,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	edges := make([]DependencyEdge, 0, len(plan.Dependencies))
	for _, edge := range plan.Dependencies {
		edges = append(edges, DependencyEdge{
			TaskID:    taskIDByTemplate[edge.TaskID],
			DependsOn: taskIDByTemplate[edge.DependsOn],
		})
	}

	if err := e.store.CreateInstance(ctx, instance, tasks, edges); err != nil {
		return ActivateResult{}, fmt.Errorf("create instance: %w", err)
	}
	span.SetAttributes(
		attribute.String("instance.id", instanceID),
		attribute.Int("instance.tasks", len(tasks)),
	)

	result := ActivateResult{Instance: instance, Tasks: tasks}
	if e.notifier != nil {
		for _, outcome := range e.notifier.Dispatch(ctx, instance, plan.Stakeholders) {
			if outcome.Delivered {
				result.StakeholdersNotified++
				continue
			}
			result.Errors = append(result.Errors,
				fmt.Sprintf("notify %s: %s", outcome.StakeholderID, outcome.Error))
		}
	}
	if e.documents != nil {
		const kind = "activation-brief"
		e.documents.Enqueue(ctx, DocumentRequest{
			InstanceID:     instanceID,
			OrganizationID: organizationID,
			Kind:           kind,
		})
		result.DocumentsRequested = append(result.DocumentsRequested, kind)
	}

	e.broadcaster.Publish(Event{
		Type:           EventResourceActivated,
		InstanceID:     instanceID,
		OrganizationID: organizationID,
		Timestamp:      now,
		ResourceActivated: &ResourceActivatedPayload{
			PlanID:      plan.ID,
			ScenarioID:  scenarioID,
			TriggeredBy: triggeredBy,
			TaskCount:   len(tasks),
		},
	})
	return result, nil
}

// StatusView is the aggregate read model for one instance.
type StatusView struct {
	Instance ExecutionInstance
	Tasks    []ExecutionTask
	Stats    CoordinationStats
}

// Status returns the instance, its full task list, and coordination stats.
// When the instance is still running and the threshold has newly been
// crossed, the read performs the completion transition as a side effect.
func (e *Engine) Status(ctx context.Context, instanceID string) (StatusView, error) {
	ctx, span := e.tracer.Start(ctx, "coordination.status")
	defer span.End()

	instanceID = strings.TrimSpace(instanceID)
	if instanceID == "" {
		return StatusView{}, errors.New(errors.CodeInstanceEmptyID, "instance id is required")
	}

	unlock := e.locks.acquire(instanceID)
	defer unlock()

	instance, err := e.getInstance(ctx, instanceID)
	if err != nil {
		return StatusView{}, err
	}
	count, err := e.store.CountAcknowledgments(ctx, instanceID)
	if err != nil {
		return StatusView{}, fmt.Errorf("count acknowledgments: %w", err)
	}
	stats := NewCoordinationStats(count, instance.TotalStakeholders, instance.Threshold)
	if stats.Complete && instance.Status == InstanceRunning {
		instance, err = e.completeByThreshold(ctx, instance, stats)
		if err != nil {
			return StatusView{}, err
		}
	}
	tasks, err := e.store.ListTasks(ctx, instanceID)
	if err != nil {
		return StatusView{}, fmt.Errorf("list tasks: %w", err)
	}
	return StatusView{Instance: instance, Tasks: tasks, Stats: stats}, nil
}

// StartTask moves a ready task into progress. A pending task is rejected with
// the list of its unsatisfied predecessors and left untouched.
func (e *Engine) StartTask(ctx context.Context, instanceID, taskID string) (ExecutionTask, error) {
	ctx, span := e.tracer.Start(ctx, "coordination.start_task")
	defer span.End()

	instanceID = strings.TrimSpace(instanceID)
	taskID = strings.TrimSpace(taskID)
	if instanceID == "" {
		return ExecutionTask{}, errors.New(errors.CodeInstanceEmptyID, "instance id is required")
	}
	if taskID == "" {
		return ExecutionTask{}, errors.New(errors.CodeTaskNotFound, "task id is required")
	}

	unlock := e.locks.acquire(instanceID)
	defer unlock()

	instance, err := e.getInstance(ctx, instanceID)
	if err != nil {
		return ExecutionTask{}, err
	}
	if instance.Status.Terminal() {
		return ExecutionTask{}, errors.New(errors.CodeInstanceAlreadyClosed, "instance is already closed")
	}
	task, err := e.getTask(ctx, instanceID, taskID)
	if err != nil {
		return ExecutionTask{}, err
	}

	switch task.Status {
	case TaskReady:
	case TaskPending:
		unmet, depErr := e.unmetDependencies(ctx, instanceID, taskID)
		if depErr != nil {
			return ExecutionTask{}, depErr
		}
		return ExecutionTask{}, errors.WithMetadata(errors.CodeTaskDependenciesUnmet,
			"task has unsatisfied dependencies",
			map[string]string{"blocking_task_ids": strings.Join(unmet, ",")})
	default:
		return ExecutionTask{}, errors.WithMetadata(errors.CodeTaskNotReady,
			"task cannot start from its current status",
			map[string]string{"status": string(task.Status)})
	}

	now := e.now()
	task.Status = TaskInProgress
	task.StartedAt = &now
	task.UpdatedAt = now
	if err := e.store.UpdateTask(ctx, task); err != nil {
		return ExecutionTask{}, fmt.Errorf("update task: %w", err)
	}
	if instance.CurrentPhase == PhaseActivation {
		if err := e.store.UpdateInstancePhase(ctx, instanceID, PhaseExecution, now); err != nil {
			return ExecutionTask{}, fmt.Errorf("update instance phase: %w", err)
		}
		e.broadcaster.Publish(Event{
			Type:           EventSyncStatusUpdate,
			InstanceID:     instanceID,
			OrganizationID: instance.OrganizationID,
			Timestamp:      now,
			SyncStatusUpdate: &SyncStatusUpdatePayload{
				Status: instance.Status,
				Phase:  PhaseExecution,
			},
		})
	}
	e.publishTaskUpdated(instance, task, now)
	return task, nil
}

// TransitionResult reports a terminal task transition and its propagation.
type TransitionResult struct {
	Task              ExecutionTask
	Promoted          []ExecutionTask
	InstanceCompleted bool
	Instance          ExecutionInstance
}

// CompleteTask marks an in-progress task completed, stamps its measured
// duration, promotes newly satisfied dependents, and closes the instance when
// every task is terminal.
func (e *Engine) CompleteTask(ctx context.Context, instanceID, taskID, outcome string) (TransitionResult, error) {
	return e.finishTask(ctx, instanceID, taskID, TaskCompleted, outcome)
}

// SkipTask marks a task skipped with the given reason and propagates
// readiness exactly as a completion does.
func (e *Engine) SkipTask(ctx context.Context, instanceID, taskID, reason string) (TransitionResult, error) {
	return e.finishTask(ctx, instanceID, taskID, TaskSkipped, reason)
}

func (e *Engine) finishTask(ctx context.Context, instanceID, taskID string, terminal TaskStatus, outcome string) (TransitionResult, error) {
	ctx, span := e.tracer.Start(ctx, "coordination.finish_task",
		trace.WithAttributes(attribute.String("task.terminal_status", string(terminal))))
	defer span.End()

	instanceID = strings.TrimSpace(instanceID)
	taskID = strings.TrimSpace(taskID)
	if instanceID == "" {
		return TransitionResult{}, errors.New(errors.CodeInstanceEmptyID, "instance id is required")
	}
	if taskID == "" {
		return TransitionResult{}, errors.New(errors.CodeTaskNotFound, "task id is required")
	}

	unlock := e.locks.acquire(instanceID)
	defer unlock()

	instance, err := e.getInstance(ctx, instanceID)
	if err != nil {
		return TransitionResult{}, err
	}
	if instance.Status.Terminal() {
		return TransitionResult{}, errors.New(errors.CodeInstanceAlreadyClosed, "instance is already closed")
	}
	task, err := e.getTask(ctx, instanceID, taskID)
	if err != nil {
		return TransitionResult{}, err
	}
	if task.Status.Terminal() {
		return TransitionResult{}, errors.New(errors.CodeTaskAlreadyTerminal, "task already reached a terminal state")
	}
	if terminal == TaskCompleted && task.Status != TaskInProgress {
		return TransitionResult{}, errors.WithMetadata(errors.CodeTaskNotInProgress,
			"task must be in progress to complete",
			map[string]string{"status": string(task.Status)})
	}

	now := e.now()
	task.Status = terminal
	task.CompletedAt = &now
	task.Outcome = strings.TrimSpace(outcome)
	task.UpdatedAt = now
	if task.StartedAt != nil {
		minutes := now.Sub(*task.StartedAt).Minutes()
		task.DurationMinutes = &minutes
	}

	// Snapshot the instance task set once; propagation is a single pass over
	// this consistent view.
	tasks, err := e.store.ListTasks(ctx, instanceID)
	if err != nil {
		return TransitionResult{}, fmt.Errorf("list tasks: %w", err)
	}
	edges, err := e.store.ListDependencies(ctx, instanceID)
	if err != nil {
		return TransitionResult{}, fmt.Errorf("list dependencies: %w", err)
	}
	anySkipped := terminal == TaskSkipped
	allTerminal := true
	for i := range tasks {
		if tasks[i].ID == task.ID {
			tasks[i] = task
		}
		if tasks[i].Status == TaskSkipped {
			anySkipped = true
		}
	}

	var promoted []ExecutionTask
	promotedIDs := PromotableTasks(tasks, edges)
	promotedSet := make(map[string]struct{}, len(promotedIDs))
	for _, promotedID := range promotedIDs {
		promotedSet[promotedID] = struct{}{}
	}
	for i := range tasks {
		if _, ok := promotedSet[tasks[i].ID]; ok {
			tasks[i].Status = TaskReady
			tasks[i].UpdatedAt = now
			promoted = append(promoted, tasks[i])
		}
		if !tasks[i].Status.Terminal() {
			allTerminal = false
		}
	}

	transition := TaskTransition{InstanceID: instanceID, Task: task, Promoted: promoted}
	if allTerminal {
		completed := instance
		completed.Status = InstanceCompleted
		completed.CurrentPhase = PhaseCoordinated
		completed.CompletedAt = &now
		minutes := now.Sub(instance.StartedAt).Minutes()
		completed.ExecutionMinutes = &minutes
		completed.Outcome = OutcomeSuccessful
		if anySkipped {
			completed.Outcome = OutcomePartial
		}
		completed.UpdatedAt = now
		transition.Instance = &completed
		instance = completed
	}

	if err := e.store.ApplyTaskTransition(ctx, transition); err != nil {
		return TransitionResult{}, fmt.Errorf("apply task transition: %w", err)
	}

	e.publishTaskUpdated(instance, task, now)
	for _, promotedTask := range promoted {
		e.publishTaskUpdated(instance, promotedTask, now)
	}
	if transition.Instance != nil {
		e.broadcaster.Publish(Event{
			Type:           EventSyncStatusUpdate,
			InstanceID:     instanceID,
			OrganizationID: instance.OrganizationID,
			Timestamp:      now,
			SyncStatusUpdate: &SyncStatusUpdatePayload{
				Status:  instance.Status,
				Phase:   instance.CurrentPhase,
				Outcome: string(instance.Outcome),
			},
		})
	}
	return TransitionResult{
		Task:              task,
		Promoted:          promoted,
		InstanceCompleted: transition.Instance != nil,
		Instance:          instance,
	}, nil
}

// AckResult reports one acknowledgment.
type AckResult struct {
	ResponseMinutes      float64
	Counted              bool
	Stats                CoordinationStats
	CoordinationComplete bool
}

// Acknowledge records one stakeholder acknowledgment. Re-acknowledgment by
// the same stakeholder is a no-op. When the acknowledgment ratio crosses the
// threshold and the instance is still running, the completion transition
// fires exactly once.
func (e *Engine) Acknowledge(ctx context.Context, instanceID, stakeholderID string) (AckResult, error) {
	ctx, span := e.tracer.Start(ctx, "coordination.acknowledge")
	defer span.End()

	instanceID = strings.TrimSpace(instanceID)
	if instanceID == "" {
		return AckResult{}, errors.New(errors.CodeInstanceEmptyID, "instance id is required")
	}
	stakeholderID = strings.TrimSpace(stakeholderID)
	if stakeholderID == "" {
		return AckResult{}, errors.New(errors.CodeStakeholderEmptyID, "stakeholder id is required")
	}

	unlock := e.locks.acquire(instanceID)
	defer unlock()

	instance, err := e.getInstance(ctx, instanceID)
	if err != nil {
		return AckResult{}, err
	}

	now := e.now()
	responseMinutes := now.Sub(instance.StartedAt).Minutes()
	counted, err := e.store.PutAcknowledgment(ctx, Acknowledgment{
		InstanceID:      instanceID,
		StakeholderID:   stakeholderID,
		AcknowledgedAt:  now,
		ResponseMinutes: responseMinutes,
	})
	if err != nil {
		return AckResult{}, fmt.Errorf("put acknowledgment: %w", err)
	}
	count, err := e.store.CountAcknowledgments(ctx, instanceID)
	if err != nil {
		return AckResult{}, fmt.Errorf("count acknowledgments: %w", err)
	}
	stats := NewCoordinationStats(count, instance.TotalStakeholders, instance.Threshold)

	if counted {
		e.broadcaster.Publish(Event{
			Type:           EventStakeholderAcknowledged,
			InstanceID:     instanceID,
			OrganizationID: instance.OrganizationID,
			Timestamp:      now,
			StakeholderAcknowledged: &StakeholderAcknowledgedPayload{
				StakeholderID:     stakeholderID,
				ResponseMinutes:   responseMinutes,
				AcknowledgedCount: stats.AcknowledgedCount,
				TotalStakeholders: stats.TotalStakeholders,
			},
		})
	}
	if stats.Complete && instance.Status == InstanceRunning {
		if _, err := e.completeByThreshold(ctx, instance, stats); err != nil {
			return AckResult{}, err
		}
	}
	return AckResult{
		ResponseMinutes:      responseMinutes,
		Counted:              counted,
		Stats:                stats,
		CoordinationComplete: stats.Complete,
	}, nil
}

// completeByThreshold performs the trigger #2 completion. The store's
// compare-and-set guarantees a single firing even when concurrent
// acknowledgments race near the threshold; losers observe completed=false and
// publish nothing.
func (e *Engine) completeByThreshold(ctx context.Context, instance ExecutionInstance, stats CoordinationStats) (ExecutionInstance, error) {
	now := e.now()
	minutes := now.Sub(instance.StartedAt).Minutes()
	completed, skippedTaskIDs, err := e.store.CompleteByThreshold(ctx, ThresholdCompletion{
		InstanceID:       instance.ID,
		CompletedAt:      now,
		ExecutionMinutes: minutes,
		Outcome:          OutcomeSuccessful,
		Phase:            PhaseCoordinated,
		SkipOutcome:      SkipReasonThresholdMet,
	})
	if err != nil {
		return instance, fmt.Errorf("complete by threshold: %w", err)
	}
	if !completed {
		return e.getInstance(ctx, instance.ID)
	}

	instance.Status = InstanceCompleted
	instance.CurrentPhase = PhaseCoordinated
	instance.CompletedAt = &now
	instance.ExecutionMinutes = &minutes
	instance.Outcome = OutcomeSuccessful
	instance.UpdatedAt = now

	for _, skippedID := range skippedTaskIDs {
		e.broadcaster.Publish(Event{
			Type:           EventTaskUpdated,
			InstanceID:     instance.ID,
			OrganizationID: instance.OrganizationID,
			Timestamp:      now,
			TaskUpdated: &TaskUpdatedPayload{
				TaskID:  skippedID,
				Status:  TaskSkipped,
				Outcome: SkipReasonThresholdMet,
			},
		})
	}
	e.broadcaster.Publish(Event{
		Type:           EventCoordinationComplete,
		InstanceID:     instance.ID,
		OrganizationID: instance.OrganizationID,
		Timestamp:      now,
		CoordinationComplete: &CoordinationCompletePayload{
			AcknowledgedCount: stats.AcknowledgedCount,
			TotalStakeholders: stats.TotalStakeholders,
			ExecutionMinutes:  minutes,
			Outcome:           string(OutcomeSuccessful),
		},
	})
	e.broadcaster.Publish(Event{
		Type:           EventSyncStatusUpdate,
		InstanceID:     instance.ID,
		OrganizationID: instance.OrganizationID,
		Timestamp:      now,
		SyncStatusUpdate: &SyncStatusUpdatePayload{
			Status:  instance.Status,
			Phase:   instance.CurrentPhase,
			Outcome: string(instance.Outcome),
		},
	})
	return instance, nil
}

func (e *Engine) unmetDependencies(ctx context.Context, instanceID, taskID string) ([]string, error) {
	tasks, err := e.store.ListTasks(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	edges, err := e.store.ListDependencies(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	statusByID := make(map[string]TaskStatus, len(tasks))
	for _, task := range tasks {
		statusByID[task.ID] = task.Status
	}
	return UnmetDependencies(taskID, edges, statusByID), nil
}

func (e *Engine) publishTaskUpdated(instance ExecutionInstance, task ExecutionTask, at time.Time) {
	e.broadcaster.Publish(Event{
		Type:           EventTaskUpdated,
		InstanceID:     task.InstanceID,
		OrganizationID: instance.OrganizationID,
		Timestamp:      at,
		TaskUpdated: &TaskUpdatedPayload{
			TaskID:     task.ID,
			Status:     task.Status,
			Outcome:    task.Outcome,
			AssignedTo: task.AssignedTo,
		},
	})
}

func (e *Engine) getInstance(ctx context.Context, instanceID string) (ExecutionInstance, error) {
	instance, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		if errors.CodeOf(err) == errors.CodeNotFound {
			return ExecutionInstance{}, errors.Wrap(errors.CodeInstanceNotFound,
				fmt.Sprintf("instance %s not found", instanceID), err)
		}
		return ExecutionInstance{}, fmt.Errorf("load instance: %w", err)
	}
	return instance, nil
}

func (e *Engine) getTask(ctx context.Context, instanceID, taskID string) (ExecutionTask, error) {
	task, err := e.store.GetTask(ctx, instanceID, taskID)
	if err != nil {
		if errors.CodeOf(err) == errors.CodeNotFound {
			return ExecutionTask{}, errors.Wrap(errors.CodeTaskNotFound,
				fmt.Sprintf("task %s not found", taskID), err)
		}
		return ExecutionTask{}, fmt.Errorf("load task: %w", err)
	}
	return task, nil
}

func (e *Engine) now() time.Time {
	if e.clock == nil {
		return time.Now().UTC()
	}
	return e.clock().UTC()
}
