package domain

import (
	"sort"

	"github.com/lockstep-ops/lockstep/internal/platform/errors"
)

// DependencyEdge declares that Task depends on DependsOn. Edges over plan
// templates use template task ids; edges materialized per instance use
// instance task ids.
type DependencyEdge struct {
	TaskID    string
	DependsOn string
}

// ValidateAcyclic checks every edge references a known task and the graph has
// no cycle. A cyclic plan would leave its tasks permanently pending, so
// activation fails fast instead.
func ValidateAcyclic(taskIDs []string, edges []DependencyEdge) error {
	known := make(map[string]struct{}, len(taskIDs))
	for _, id := range taskIDs {
		known[id] = struct{}{}
	}

	indegree := make(map[string]int, len(taskIDs))
	successors := make(map[string][]string, len(taskIDs))
	for _, edge := range edges {
		if _, ok := known[edge.TaskID]; !ok {
			return errors.WithMetadata(errors.CodePlanUnknownTaskEdge,
				"dependency edge references unknown task",
				map[string]string{"task_id": edge.TaskID})
		}
		if _, ok := known[edge.DependsOn]; !ok {
			return errors.WithMetadata(errors.CodePlanUnknownTaskEdge,
				"dependency edge references unknown predecessor",
				map[string]string{"task_id": edge.DependsOn})
		}
		indegree[edge.TaskID]++
		successors[edge.DependsOn] = append(successors[edge.DependsOn], edge.TaskID)
	}

	// Kahn's algorithm: every task must be removable once all of its
	// predecessors have been removed.
	queue := make([]string, 0, len(taskIDs))
	for _, id := range taskIDs {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	removed := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		removed++
		for _, next := range successors[current] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if removed != len(known) {
		var stuck []string
		for id, degree := range indegree {
			if degree > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		metadata := map[string]string{}
		if len(stuck) > 0 {
			metadata["task_id"] = stuck[0]
		}
		return errors.WithMetadata(errors.CodePlanDependencyCycle,
			"plan dependency graph contains a cycle", metadata)
	}
	return nil
}

// InDegrees counts declared dependencies per task. Tasks with zero in-degree
// are parallel-eligible and start ready.
func InDegrees(taskIDs []string, edges []DependencyEdge) map[string]int {
	indegree := make(map[string]int, len(taskIDs))
	for _, id := range taskIDs {
		indegree[id] = 0
	}
	for _, edge := range edges {
		indegree[edge.TaskID]++
	}
	return indegree
}

// UnmetDependencies lists the predecessors of taskID that are not yet
// terminal, in stable order. An empty result means the task is
// dependency-satisfied.
func UnmetDependencies(taskID string, edges []DependencyEdge, statusByID map[string]TaskStatus) []string {
	var unmet []string
	for _, edge := range edges {
		if edge.TaskID != taskID {
			continue
		}
		if !statusByID[edge.DependsOn].Terminal() {
			unmet = append(unmet, edge.DependsOn)
		}
	}
	sort.Strings(unmet)
	return unmet
}

// PromotableTasks returns the ids of pending tasks whose predecessors are all
// terminal, given a consistent snapshot of the instance task set. Called after
// a task reaches a terminal state to propagate readiness in a single pass.
func PromotableTasks(tasks []ExecutionTask, edges []DependencyEdge) []string {
	statusByID := make(map[string]TaskStatus, len(tasks))
	for _, task := range tasks {
		statusByID[task.ID] = task.Status
	}
	var promotable []string
	for _, task := range tasks {
		if task.Status != TaskPending {
			continue
		}
		if len(UnmetDependencies(task.ID, edges, statusByID)) == 0 {
			promotable = append(promotable, task.ID)
		}
	}
	sort.Strings(promotable)
	return promotable
}
