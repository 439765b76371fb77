package domain

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"pgregory.net/rapid"
)

// TestReadinessPropagationProperty drives randomly generated dependency
// graphs through random completion orders and checks that readiness always
// tracks the graph: a task is ready or beyond exactly when every one of its
// predecessors is terminal, each task is promoted at most once, and the
// instance completes once the last task does.
func TestReadinessPropagationProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		taskCount := rapid.IntRange(1, 8).Draw(rt, "task_count")
		templateID := func(i int) string { return fmt.Sprintf("tpl-%d", i) }

		// Edges only point from a lower index to a higher one, so every
		// generated graph is acyclic by construction.
		plan := Plan{ID: "plan-1", Name: "generated", Stakeholders: rosterOf(3)}
		for i := 0; i < taskCount; i++ {
			plan.Tasks = append(plan.Tasks, TaskTemplate{
				ID:       templateID(i),
				PlanID:   plan.ID,
				Title:    fmt.Sprintf("task %d", i),
				Position: i + 1,
			})
		}
		for successor := 1; successor < taskCount; successor++ {
			for predecessor := 0; predecessor < successor; predecessor++ {
				if rapid.Bool().Draw(rt, fmt.Sprintf("edge_%d_%d", predecessor, successor)) {
					plan.Dependencies = append(plan.Dependencies, DependencyEdge{
						TaskID:    templateID(successor),
						DependsOn: templateID(predecessor),
					})
				}
			}
		}

		fixture := newEngineFixture(plan)
		ctx := context.Background()
		result, err := fixture.engine.Activate(ctx, ActivateInput{
			OrganizationID: "org-1",
			PlanID:         plan.ID,
			TriggeredBy:    "user-1",
		})
		if err != nil {
			rt.Fatalf("activate: %v", err)
		}
		instanceID := result.Instance.ID

		predecessors := make(map[string][]string)
		for _, edge := range plan.Dependencies {
			predecessors[edge.TaskID] = append(predecessors[edge.TaskID], edge.DependsOn)
		}
		templateOf := make(map[string]string, len(result.Tasks))
		becameReady := make(map[string]int)
		for _, task := range result.Tasks {
			templateOf[task.ID] = task.TemplateTaskID
			if task.Status == TaskReady {
				becameReady[task.ID]++
			}
		}

		checkInvariant := func(tasks []ExecutionTask) {
			terminal := make(map[string]bool, len(tasks))
			for _, task := range tasks {
				terminal[templateOf[task.ID]] = task.Status.Terminal()
			}
			for _, task := range tasks {
				unmet := false
				for _, predecessor := range predecessors[templateOf[task.ID]] {
					if !terminal[predecessor] {
						unmet = true
						break
					}
				}
				if task.Status == TaskPending && !unmet {
					rt.Fatalf("task %s pending with all predecessors terminal", task.ID)
				}
				if task.Status != TaskPending && unmet {
					rt.Fatalf("task %s is %s with unmet predecessors", task.ID, task.Status)
				}
			}
		}

		for {
			tasks, listErr := fixture.store.ListTasks(ctx, instanceID)
			if listErr != nil {
				rt.Fatalf("list tasks: %v", listErr)
			}
			checkInvariant(tasks)

			var ready []string
			allTerminal := true
			for _, task := range tasks {
				if task.Status == TaskReady {
					ready = append(ready, task.ID)
				}
				if !task.Status.Terminal() {
					allTerminal = false
				}
			}
			if allTerminal {
				break
			}
			if len(ready) == 0 {
				rt.Fatalf("no ready task while %d tasks remain open", len(tasks))
			}
			sort.Strings(ready)
			taskID := rapid.SampledFrom(ready).Draw(rt, "next_task")

			if _, err := fixture.engine.StartTask(ctx, instanceID, taskID); err != nil {
				rt.Fatalf("start %s: %v", taskID, err)
			}
			transition, err := fixture.engine.CompleteTask(ctx, instanceID, taskID, "done")
			if err != nil {
				rt.Fatalf("complete %s: %v", taskID, err)
			}
			for _, promoted := range transition.Promoted {
				becameReady[promoted.ID]++
			}
		}

		for taskID, times := range becameReady {
			if times != 1 {
				rt.Fatalf("task %s became ready %d times", taskID, times)
			}
		}
		if len(becameReady) != taskCount {
			rt.Fatalf("%d of %d tasks ever became ready", len(becameReady), taskCount)
		}

		instance, err := fixture.store.GetInstance(ctx, instanceID)
		if err != nil {
			rt.Fatalf("get instance: %v", err)
		}
		if instance.Status != InstanceCompleted || instance.Outcome != OutcomeSuccessful {
			rt.Fatalf("instance = %s/%s, want completed/successful", instance.Status, instance.Outcome)
		}
	})
}
