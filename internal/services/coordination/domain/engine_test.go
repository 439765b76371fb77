package domain

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lockstep-ops/lockstep/internal/platform/errors"
)

// memStore is an in-memory Store with the same atomicity and compare-and-set
// semantics as the SQLite store.
type memStore struct {
	mu        sync.Mutex
	instances map[string]ExecutionInstance
	tasks     map[string]map[string]ExecutionTask
	edges     map[string][]DependencyEdge
	acks      map[string]map[string]Acknowledgment
}

func newMemStore() *memStore {
	return &memStore{
		instances: make(map[string]ExecutionInstance),
		tasks:     make(map[string]map[string]ExecutionTask),
		edges:     make(map[string][]DependencyEdge),
		acks:      make(map[string]map[string]Acknowledgment),
	}
}

func (s *memStore) CreateInstance(_ context.Context, instance ExecutionInstance, tasks []ExecutionTask, edges []DependencyEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[instance.ID] = instance
	byID := make(map[string]ExecutionTask, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}
	s.tasks[instance.ID] = byID
	s.edges[instance.ID] = append([]DependencyEdge(nil), edges...)
	s.acks[instance.ID] = make(map[string]Acknowledgment)
	return nil
}

func (s *memStore) GetInstance(_ context.Context, instanceID string) (ExecutionInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	instance, ok := s.instances[instanceID]
	if !ok {
		return ExecutionInstance{}, errors.New(errors.CodeNotFound, "instance not found")
	}
	return instance, nil
}

func (s *memStore) ListTasks(_ context.Context, instanceID string) ([]ExecutionTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tasks []ExecutionTask
	for _, task := range s.tasks[instanceID] {
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (s *memStore) GetTask(_ context.Context, instanceID, taskID string) (ExecutionTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[instanceID][taskID]
	if !ok {
		return ExecutionTask{}, errors.New(errors.CodeNotFound, "task not found")
	}
	return task, nil
}

func (s *memStore) ListDependencies(_ context.Context, instanceID string) ([]DependencyEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DependencyEdge(nil), s.edges[instanceID]...), nil
}

func (s *memStore) ApplyTaskTransition(_ context.Context, transition TaskTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[transition.InstanceID][transition.Task.ID] = transition.Task
	for _, promoted := range transition.Promoted {
		s.tasks[transition.InstanceID][promoted.ID] = promoted
	}
	if transition.Instance != nil {
		s.instances[transition.Instance.ID] = *transition.Instance
	}
	return nil
}

func (s *memStore) UpdateTask(_ context.Context, task ExecutionTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.InstanceID][task.ID] = task
	return nil
}

func (s *memStore) UpdateInstancePhase(_ context.Context, instanceID, phase string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	instance := s.instances[instanceID]
	instance.CurrentPhase = phase
	instance.UpdatedAt = updatedAt
	s.instances[instanceID] = instance
	return nil
}

func (s *memStore) PutAcknowledgment(_ context.Context, ack Acknowledgment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.acks[ack.InstanceID][ack.StakeholderID]; exists {
		return false, nil
	}
	s.acks[ack.InstanceID][ack.StakeholderID] = ack
	return true, nil
}

func (s *memStore) CountAcknowledgments(_ context.Context, instanceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.acks[instanceID]), nil
}

func (s *memStore) ListAcknowledgments(_ context.Context, instanceID string) ([]Acknowledgment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var acks []Acknowledgment
	for _, ack := range s.acks[instanceID] {
		acks = append(acks, ack)
	}
	return acks, nil
}

func (s *memStore) CompleteByThreshold(_ context.Context, completion ThresholdCompletion) (bool, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	instance, ok := s.instances[completion.InstanceID]
	if !ok || instance.Status != InstanceRunning {
		return false, nil, nil
	}
	instance.Status = InstanceCompleted
	instance.CurrentPhase = completion.Phase
	completedAt := completion.CompletedAt
	instance.CompletedAt = &completedAt
	minutes := completion.ExecutionMinutes
	instance.ExecutionMinutes = &minutes
	instance.Outcome = completion.Outcome
	instance.UpdatedAt = completion.CompletedAt
	s.instances[completion.InstanceID] = instance

	var skipped []string
	for taskID, task := range s.tasks[completion.InstanceID] {
		if task.Status.Terminal() {
			continue
		}
		task.Status = TaskSkipped
		task.Outcome = completion.SkipOutcome
		task.CompletedAt = &completedAt
		task.UpdatedAt = completion.CompletedAt
		s.tasks[completion.InstanceID][taskID] = task
		skipped = append(skipped, taskID)
	}
	return true, skipped, nil
}

type memPlans struct {
	plans     map[string]Plan
	scenarios map[string]Scenario
}

func (p *memPlans) GetPlan(_ context.Context, planID string) (Plan, error) {
	plan, ok := p.plans[planID]
	if !ok {
		return Plan{}, errors.New(errors.CodeNotFound, "plan not found")
	}
	return plan, nil
}

func (p *memPlans) GetScenario(_ context.Context, scenarioID string) (Scenario, error) {
	scenario, ok := p.scenarios[scenarioID]
	if !ok {
		return Scenario{}, errors.New(errors.CodeNotFound, "scenario not found")
	}
	return scenario, nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []Event
}

func (b *recordingBroadcaster) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) byType(eventType EventType) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var matched []Event
	for _, event := range b.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequentialIDs(prefix string) func() (string, error) {
	var counter int
	var mu sync.Mutex
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		counter++
		return fmt.Sprintf("%s-%03d", prefix, counter), nil
	}
}

func rosterOf(n int) []Stakeholder {
	roster := make([]Stakeholder, 0, n)
	for i := 1; i <= n; i++ {
		roster = append(roster, Stakeholder{ID: fmt.Sprintf("stakeholder-%02d", i)})
	}
	return roster
}

func diamondPlan(stakeholders int) Plan {
	return Plan{
		ID:        "plan-1",
		Name:      "Service outage response",
		Threshold: 0.8,
		Tasks: []TaskTemplate{
			{ID: "tpl-a", PlanID: "plan-1", Title: "Page on-call", Position: 1},
			{ID: "tpl-b", PlanID: "plan-1", Title: "Open bridge", Position: 2},
			{ID: "tpl-c", PlanID: "plan-1", Title: "Post status update", Position: 3},
		},
		Dependencies: []DependencyEdge{
			{TaskID: "tpl-c", DependsOn: "tpl-a"},
			{TaskID: "tpl-c", DependsOn: "tpl-b"},
		},
		Stakeholders: rosterOf(stakeholders),
	}
}

type testEngine struct {
	engine    *Engine
	store     *memStore
	broadcast *recordingBroadcaster
	clock     *fakeClock
}

func newTestEngine(t *testing.T, plan Plan) testEngine {
	t.Helper()
	return newEngineFixture(plan)
}

func newEngineFixture(plan Plan) testEngine {
	store := newMemStore()
	broadcast := &recordingBroadcaster{}
	clock := &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	plans := &memPlans{
		plans:     map[string]Plan{plan.ID: plan},
		scenarios: map[string]Scenario{"scenario-1": {ID: "scenario-1", Name: "Regional outage"}},
	}
	engine := NewEngine(store, plans,
		WithBroadcaster(broadcast),
		WithClock(clock.Now),
		WithIDGenerator(sequentialIDs("id")),
	)
	return testEngine{engine: engine, store: store, broadcast: broadcast, clock: clock}
}

func activate(t *testing.T, te testEngine) ActivateResult {
	t.Helper()
	result, err := te.engine.Activate(context.Background(), ActivateInput{
		OrganizationID: "org-1",
		ScenarioID:     "scenario-1",
		PlanID:         "plan-1",
		TriggeredBy:    "user-1",
	})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	return result
}

func taskByTemplate(t *testing.T, tasks []ExecutionTask, templateID string) ExecutionTask {
	t.Helper()
	for _, task := range tasks {
		if task.TemplateTaskID == templateID {
			return task
		}
	}
	t.Fatalf("no task for template %s", templateID)
	return ExecutionTask{}
}

func TestActivateSeedsReadiness(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, diamondPlan(5))
	result := activate(t, te)

	if result.Instance.Status != InstanceRunning {
		t.Fatalf("instance status = %s, want running", result.Instance.Status)
	}
	if result.Instance.TotalStakeholders != 5 {
		t.Fatalf("total stakeholders = %d, want 5", result.Instance.TotalStakeholders)
	}
	if got := taskByTemplate(t, result.Tasks, "tpl-a").Status; got != TaskReady {
		t.Fatalf("task a status = %s, want ready", got)
	}
	if got := taskByTemplate(t, result.Tasks, "tpl-b").Status; got != TaskReady {
		t.Fatalf("task b status = %s, want ready", got)
	}
	if got := taskByTemplate(t, result.Tasks, "tpl-c").Status; got != TaskPending {
		t.Fatalf("task c status = %s, want pending", got)
	}
	if events := te.broadcast.byType(EventResourceActivated); len(events) != 1 {
		t.Fatalf("expected one resource-activated event, got %d", len(events))
	}
}

func TestActivateUnknownPlanLeavesNoState(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, diamondPlan(3))
	_, err := te.engine.Activate(context.Background(), ActivateInput{
		OrganizationID: "org-1",
		PlanID:         "missing",
		TriggeredBy:    "user-1",
	})
	if errors.CodeOf(err) != errors.CodePlanNotFound {
		t.Fatalf("expected plan not found, got %v", err)
	}
	if len(te.store.instances) != 0 {
		t.Fatal("expected no instance rows after failed activation")
	}
}

func TestActivateUnknownScenario(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, diamondPlan(3))
	_, err := te.engine.Activate(context.Background(), ActivateInput{
		OrganizationID: "org-1",
		ScenarioID:     "missing",
		PlanID:         "plan-1",
		TriggeredBy:    "user-1",
	})
	if errors.CodeOf(err) != errors.CodeScenarioNotFound {
		t.Fatalf("expected scenario not found, got %v", err)
	}
}

func TestActivateRejectsCyclicPlan(t *testing.T) {
	t.Parallel()

	plan := diamondPlan(3)
	plan.Dependencies = append(plan.Dependencies, DependencyEdge{TaskID: "tpl-a", DependsOn: "tpl-c"})
	te := newTestEngine(t, plan)

	_, err := te.engine.Activate(context.Background(), ActivateInput{
		OrganizationID: "org-1",
		PlanID:         "plan-1",
		TriggeredBy:    "user-1",
	})
	if errors.CodeOf(err) != errors.CodePlanDependencyCycle {
		t.Fatalf("expected cycle rejection, got %v", err)
	}
	if len(te.store.instances) != 0 {
		t.Fatal("expected no instance rows for cyclic plan")
	}
}

func TestActivateValidatesInput(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, diamondPlan(3))
	cases := []struct {
		name  string
		input ActivateInput
		want  errors.Code
	}{
		{"missing org", ActivateInput{PlanID: "plan-1", TriggeredBy: "u"}, errors.CodeOrganizationEmptyID},
		{"missing plan", ActivateInput{OrganizationID: "org-1", TriggeredBy: "u"}, errors.CodePlanEmptyID},
		{"missing actor", ActivateInput{OrganizationID: "org-1", PlanID: "plan-1"}, errors.CodeTriggeringActorEmpty},
	}
	for _, tc := range cases {
		if _, err := te.engine.Activate(context.Background(), tc.input); errors.CodeOf(err) != tc.want {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.want, err)
		}
	}
}

func TestStartTaskRejectsUnmetDependencies(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, diamondPlan(3))
	result := activate(t, te)
	taskC := taskByTemplate(t, result.Tasks, "tpl-c")

	_, err := te.engine.StartTask(context.Background(), result.Instance.ID, taskC.ID)
	if errors.CodeOf(err) != errors.CodeTaskDependenciesUnmet {
		t.Fatalf("expected dependency rejection, got %v", err)
	}
	var domainErr *errors.Error
	if !stderrors.As(err, &domainErr) {
		t.Fatalf("expected domain error, got %T", err)
	}
	if domainErr.Metadata["blocking_task_ids"] == "" {
		t.Fatal("expected blocking task ids in rejection metadata")
	}

	stored, getErr := te.store.GetTask(context.Background(), result.Instance.ID, taskC.ID)
	if getErr != nil {
		t.Fatalf("get task: %v", getErr)
	}
	if stored.Status != TaskPending {
		t.Fatalf("rejected task status = %s, want pending", stored.Status)
	}
}

func TestDependencyPropagationAndInstanceCompletion(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, diamondPlan(3))
	result := activate(t, te)
	ctx := context.Background()
	instanceID := result.Instance.ID
	taskA := taskByTemplate(t, result.Tasks, "tpl-a")
	taskB := taskByTemplate(t, result.Tasks, "tpl-b")
	taskC := taskByTemplate(t, result.Tasks, "tpl-c")

	startAndComplete := func(taskID string) TransitionResult {
		if _, err := te.engine.StartTask(ctx, instanceID, taskID); err != nil {
			t.Fatalf("start %s: %v", taskID, err)
		}
		te.clock.Advance(2 * time.Minute)
		transition, err := te.engine.CompleteTask(ctx, instanceID, taskID, "done")
		if err != nil {
			t.Fatalf("complete %s: %v", taskID, err)
		}
		return transition
	}

	transition := startAndComplete(taskA.ID)
	if len(transition.Promoted) != 0 {
		t.Fatalf("completing a alone must not promote c, promoted %v", transition.Promoted)
	}
	if transition.Task.DurationMinutes == nil || *transition.Task.DurationMinutes != 2 {
		t.Fatalf("expected 2 minute measured duration, got %v", transition.Task.DurationMinutes)
	}

	transition = startAndComplete(taskB.ID)
	if len(transition.Promoted) != 1 || transition.Promoted[0].ID != taskC.ID {
		t.Fatalf("completing b must promote c, promoted %v", transition.Promoted)
	}
	if transition.Promoted[0].Status != TaskReady {
		t.Fatalf("promoted status = %s, want ready", transition.Promoted[0].Status)
	}

	transition = startAndComplete(taskC.ID)
	if !transition.InstanceCompleted {
		t.Fatal("completing the last task must complete the instance")
	}
	if transition.Instance.Outcome != OutcomeSuccessful {
		t.Fatalf("outcome = %s, want successful", transition.Instance.Outcome)
	}
	if transition.Instance.CompletedAt == nil || transition.Instance.ExecutionMinutes == nil {
		t.Fatal("expected completion stamps on the instance")
	}
}

func TestSkippedTaskYieldsPartialOutcome(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, diamondPlan(3))
	result := activate(t, te)
	ctx := context.Background()
	instanceID := result.Instance.ID
	taskA := taskByTemplate(t, result.Tasks, "tpl-a")
	taskB := taskByTemplate(t, result.Tasks, "tpl-b")
	taskC := taskByTemplate(t, result.Tasks, "tpl-c")

	if _, err := te.engine.SkipTask(ctx, instanceID, taskA.ID, "not applicable"); err != nil {
		t.Fatalf("skip a: %v", err)
	}
	if _, err := te.engine.StartTask(ctx, instanceID, taskB.ID); err != nil {
		t.Fatalf("start b: %v", err)
	}
	if _, err := te.engine.CompleteTask(ctx, instanceID, taskB.ID, "done"); err != nil {
		t.Fatalf("complete b: %v", err)
	}
	if _, err := te.engine.StartTask(ctx, instanceID, taskC.ID); err != nil {
		t.Fatalf("start c: %v", err)
	}
	transition, err := te.engine.CompleteTask(ctx, instanceID, taskC.ID, "done")
	if err != nil {
		t.Fatalf("complete c: %v", err)
	}
	if !transition.InstanceCompleted {
		t.Fatal("expected instance completion")
	}
	if transition.Instance.Outcome != OutcomePartial {
		t.Fatalf("outcome = %s, want partial when a task was skipped", transition.Instance.Outcome)
	}
}

func TestCompleteRequiresInProgress(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, diamondPlan(3))
	result := activate(t, te)
	taskA := taskByTemplate(t, result.Tasks, "tpl-a")

	_, err := te.engine.CompleteTask(context.Background(), result.Instance.ID, taskA.ID, "done")
	if errors.CodeOf(err) != errors.CodeTaskNotInProgress {
		t.Fatalf("expected in-progress requirement, got %v", err)
	}
}

func TestAcknowledgeThresholdFiresExactlyOnce(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, diamondPlan(30))
	result := activate(t, te)
	ctx := context.Background()
	instanceID := result.Instance.ID

	for i := 1; i <= 23; i++ {
		ackResult, err := te.engine.Acknowledge(ctx, instanceID, fmt.Sprintf("stakeholder-%02d", i))
		if err != nil {
			t.Fatalf("acknowledge %d: %v", i, err)
		}
		if ackResult.CoordinationComplete {
			t.Fatalf("acknowledgment %d must not cross the threshold", i)
		}
	}

	te.clock.Advance(10 * time.Minute)
	ackResult, err := te.engine.Acknowledge(ctx, instanceID, "stakeholder-24")
	if err != nil {
		t.Fatalf("acknowledge 24: %v", err)
	}
	if !ackResult.CoordinationComplete {
		t.Fatal("24th distinct acknowledgment must cross the 0.8 threshold for 30 stakeholders")
	}
	if ackResult.Stats.AcknowledgedCount != 24 || ackResult.Stats.TotalStakeholders != 30 {
		t.Fatalf("stats = %d/%d, want 24/30", ackResult.Stats.AcknowledgedCount, ackResult.Stats.TotalStakeholders)
	}

	completeEvents := te.broadcast.byType(EventCoordinationComplete)
	if len(completeEvents) != 1 {
		t.Fatalf("expected exactly one coordination-complete event, got %d", len(completeEvents))
	}
	if completeEvents[0].CoordinationComplete.AcknowledgedCount != 24 {
		t.Fatalf("event acknowledged count = %d, want 24", completeEvents[0].CoordinationComplete.AcknowledgedCount)
	}

	instance, err := te.store.GetInstance(ctx, instanceID)
	if err != nil {
		t.Fatalf("get instance: %v", err)
	}
	if instance.Status != InstanceCompleted || instance.Outcome != OutcomeSuccessful {
		t.Fatalf("instance = %s/%s, want completed/successful", instance.Status, instance.Outcome)
	}
	if instance.ExecutionMinutes == nil || *instance.ExecutionMinutes != 10 {
		t.Fatalf("execution minutes = %v, want 10", instance.ExecutionMinutes)
	}

	// Open tasks are auto-skipped when the threshold closes the instance.
	tasks, err := te.store.ListTasks(ctx, instanceID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	for _, task := range tasks {
		if !task.Status.Terminal() {
			t.Fatalf("task %s left open after threshold completion", task.ID)
		}
		if task.Status == TaskSkipped && task.Outcome != SkipReasonThresholdMet {
			t.Fatalf("auto-skipped task outcome = %q", task.Outcome)
		}
	}

	// Late acknowledgments are recorded without refiring completion.
	for i := 25; i <= 30; i++ {
		if _, err := te.engine.Acknowledge(ctx, instanceID, fmt.Sprintf("stakeholder-%02d", i)); err != nil {
			t.Fatalf("late acknowledge %d: %v", i, err)
		}
	}
	if count, _ := te.store.CountAcknowledgments(ctx, instanceID); count != 30 {
		t.Fatalf("acknowledged count = %d, want 30", count)
	}
	if events := te.broadcast.byType(EventCoordinationComplete); len(events) != 1 {
		t.Fatalf("late acknowledgments refired completion: %d events", len(events))
	}
}

func TestAcknowledgeDeduplicatesByStakeholder(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, diamondPlan(5))
	result := activate(t, te)
	ctx := context.Background()

	first, err := te.engine.Acknowledge(ctx, result.Instance.ID, "stakeholder-01")
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if !first.Counted {
		t.Fatal("first acknowledgment must count")
	}
	second, err := te.engine.Acknowledge(ctx, result.Instance.ID, "stakeholder-01")
	if err != nil {
		t.Fatalf("re-acknowledge: %v", err)
	}
	if second.Counted {
		t.Fatal("re-acknowledgment must be a no-op")
	}
	if second.Stats.AcknowledgedCount != 1 {
		t.Fatalf("count = %d, want 1", second.Stats.AcknowledgedCount)
	}
	if events := te.broadcast.byType(EventStakeholderAcknowledged); len(events) != 1 {
		t.Fatalf("expected one acknowledged event, got %d", len(events))
	}
}

func TestStatusPerformsThresholdCompletion(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, diamondPlan(5))
	result := activate(t, te)
	ctx := context.Background()

	// Seed acknowledgments directly so the threshold is crossed without the
	// acknowledge path having run its completion check.
	for i := 1; i <= 4; i++ {
		if _, err := te.store.PutAcknowledgment(ctx, Acknowledgment{
			InstanceID:    result.Instance.ID,
			StakeholderID: fmt.Sprintf("stakeholder-%02d", i),
		}); err != nil {
			t.Fatalf("seed acknowledgment: %v", err)
		}
	}

	view, err := te.engine.Status(ctx, result.Instance.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !view.Stats.Complete {
		t.Fatal("expected stats complete at 4/5")
	}
	if view.Instance.Status != InstanceCompleted {
		t.Fatalf("status read must perform the completion transition, got %s", view.Instance.Status)
	}
	if events := te.broadcast.byType(EventCoordinationComplete); len(events) != 1 {
		t.Fatalf("expected one coordination-complete event, got %d", len(events))
	}
}

func TestStatusUnknownInstance(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, diamondPlan(3))
	_, err := te.engine.Status(context.Background(), "missing")
	if errors.CodeOf(err) != errors.CodeInstanceNotFound {
		t.Fatalf("expected instance not found, got %v", err)
	}
}
