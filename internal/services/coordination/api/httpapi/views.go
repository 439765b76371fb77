package httpapi

import (
	"time"

	"github.com/lockstep-ops/lockstep/internal/services/coordination/domain"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/simulation"
)

type instanceView struct {
	ID                string     `json:"id"`
	PlanID            string     `json:"plan_id"`
	ScenarioID        string     `json:"scenario_id,omitempty"`
	OrganizationID    string     `json:"organization_id"`
	TriggeredBy       string     `json:"triggered_by"`
	Status            string     `json:"status"`
	CurrentPhase      string     `json:"current_phase"`
	Threshold         float64    `json:"threshold"`
	TotalStakeholders int        `json:"total_stakeholders"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	ExecutionMinutes  *float64   `json:"execution_minutes,omitempty"`
	Outcome           string     `json:"outcome,omitempty"`
}

func instanceFromDomain(instance domain.ExecutionInstance) instanceView {
	return instanceView{
		ID:                instance.ID,
		PlanID:            instance.PlanID,
		ScenarioID:        instance.ScenarioID,
		OrganizationID:    instance.OrganizationID,
		TriggeredBy:       instance.TriggeredBy,
		Status:            string(instance.Status),
		CurrentPhase:      instance.CurrentPhase,
		Threshold:         instance.Threshold,
		TotalStakeholders: instance.TotalStakeholders,
		StartedAt:         instance.StartedAt,
		CompletedAt:       instance.CompletedAt,
		ExecutionMinutes:  instance.ExecutionMinutes,
		Outcome:           string(instance.Outcome),
	}
}

type taskViewBody struct {
	ID              string     `json:"id"`
	TemplateTaskID  string     `json:"template_task_id"`
	Title           string     `json:"title"`
	AssignedTo      string     `json:"assigned_to,omitempty"`
	Status          string     `json:"status"`
	Position        int        `json:"position"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationMinutes *float64   `json:"duration_minutes,omitempty"`
	Outcome         string     `json:"outcome,omitempty"`
}

func taskView(task domain.ExecutionTask) taskViewBody {
	return taskViewBody{
		ID:              task.ID,
		TemplateTaskID:  task.TemplateTaskID,
		Title:           task.Title,
		AssignedTo:      task.AssignedTo,
		Status:          string(task.Status),
		Position:        task.Position,
		StartedAt:       task.StartedAt,
		CompletedAt:     task.CompletedAt,
		DurationMinutes: task.DurationMinutes,
		Outcome:         task.Outcome,
	}
}

func taskViews(tasks []domain.ExecutionTask) []taskViewBody {
	views := make([]taskViewBody, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, taskView(task))
	}
	return views
}

type activationViewBody struct {
	Instance             instanceView   `json:"instance"`
	Tasks                []taskViewBody `json:"tasks"`
	StakeholdersNotified int            `json:"stakeholders_notified"`
	DocumentsRequested   []string       `json:"documents_requested,omitempty"`
	Errors               []string       `json:"errors,omitempty"`
}

func activationView(result domain.ActivateResult) activationViewBody {
	return activationViewBody{
		Instance:             instanceFromDomain(result.Instance),
		Tasks:                taskViews(result.Tasks),
		StakeholdersNotified: result.StakeholdersNotified,
		DocumentsRequested:   result.DocumentsRequested,
		Errors:               result.Errors,
	}
}

type coordinationView struct {
	AcknowledgedCount int     `json:"acknowledged_count"`
	TotalStakeholders int     `json:"total_stakeholders"`
	Threshold         float64 `json:"threshold"`
	Required          int     `json:"required"`
	Progress          float64 `json:"progress"`
	Complete          bool    `json:"complete"`
}

func coordinationFromStats(stats domain.CoordinationStats) coordinationView {
	return coordinationView{
		AcknowledgedCount: stats.AcknowledgedCount,
		TotalStakeholders: stats.TotalStakeholders,
		Threshold:         stats.Threshold,
		Required:          domain.RequiredAcknowledgments(stats.TotalStakeholders, stats.Threshold),
		Progress:          stats.Progress,
		Complete:          stats.Complete,
	}
}

type statusViewBody struct {
	Instance     instanceView     `json:"instance"`
	Tasks        []taskViewBody   `json:"tasks"`
	Coordination coordinationView `json:"coordination"`
}

func statusView(view domain.StatusView) statusViewBody {
	return statusViewBody{
		Instance:     instanceFromDomain(view.Instance),
		Tasks:        taskViews(view.Tasks),
		Coordination: coordinationFromStats(view.Stats),
	}
}

type transitionViewBody struct {
	Task              taskViewBody   `json:"task"`
	Promoted          []taskViewBody `json:"promoted,omitempty"`
	InstanceCompleted bool           `json:"instance_completed"`
	Instance          instanceView   `json:"instance"`
}

func transitionView(transition domain.TransitionResult) transitionViewBody {
	return transitionViewBody{
		Task:              taskView(transition.Task),
		Promoted:          taskViews(transition.Promoted),
		InstanceCompleted: transition.InstanceCompleted,
		Instance:          instanceFromDomain(transition.Instance),
	}
}

type ackViewBody struct {
	Counted              bool             `json:"counted"`
	ResponseMinutes      float64          `json:"response_minutes"`
	Coordination         coordinationView `json:"coordination"`
	CoordinationComplete bool             `json:"coordination_complete"`
}

func ackView(result domain.AckResult) ackViewBody {
	return ackViewBody{
		Counted:              result.Counted,
		ResponseMinutes:      result.ResponseMinutes,
		Coordination:         coordinationFromStats(result.Stats),
		CoordinationComplete: result.CoordinationComplete,
	}
}

type runEntryView struct {
	StakeholderID string  `json:"stakeholder_id"`
	DelaySeconds  float64 `json:"delay_seconds"`
}

type runViewBody struct {
	InstanceID string         `json:"instance_id"`
	Entries    []runEntryView `json:"entries"`
}

func runView(run simulation.Run) runViewBody {
	entries := make([]runEntryView, 0, len(run.Entries))
	for _, entry := range run.Entries {
		entries = append(entries, runEntryView{
			StakeholderID: entry.StakeholderID,
			DelaySeconds:  entry.Delay.Seconds(),
		})
	}
	return runViewBody{InstanceID: run.InstanceID, Entries: entries}
}

type planTaskPayload struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	AssigneeRole string `json:"assignee_role,omitempty"`
	Position     int    `json:"position"`
}

type planEdgePayload struct {
	TaskID    string `json:"task_id"`
	DependsOn string `json:"depends_on"`
}

type planStakeholderPayload struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Contact string `json:"contact,omitempty"`
}

type planPayload struct {
	ID           string                   `json:"id"`
	Name         string                   `json:"name"`
	Threshold    float64                  `json:"threshold,omitempty"`
	Tasks        []planTaskPayload        `json:"tasks,omitempty"`
	Dependencies []planEdgePayload        `json:"dependencies,omitempty"`
	Stakeholders []planStakeholderPayload `json:"stakeholders,omitempty"`
}

func (p planPayload) toDomain() domain.Plan {
	plan := domain.Plan{ID: p.ID, Name: p.Name, Threshold: p.Threshold}
	for _, task := range p.Tasks {
		plan.Tasks = append(plan.Tasks, domain.TaskTemplate{
			ID:           task.ID,
			PlanID:       p.ID,
			Title:        task.Title,
			Description:  task.Description,
			AssigneeRole: task.AssigneeRole,
			Position:     task.Position,
		})
	}
	for _, edge := range p.Dependencies {
		plan.Dependencies = append(plan.Dependencies, domain.DependencyEdge{
			TaskID:    edge.TaskID,
			DependsOn: edge.DependsOn,
		})
	}
	for _, stakeholder := range p.Stakeholders {
		plan.Stakeholders = append(plan.Stakeholders, domain.Stakeholder{
			ID:      stakeholder.ID,
			Name:    stakeholder.Name,
			Contact: stakeholder.Contact,
		})
	}
	return plan
}

func planFromDomain(plan domain.Plan) planPayload {
	payload := planPayload{ID: plan.ID, Name: plan.Name, Threshold: plan.Threshold}
	for _, task := range plan.Tasks {
		payload.Tasks = append(payload.Tasks, planTaskPayload{
			ID:           task.ID,
			Title:        task.Title,
			Description:  task.Description,
			AssigneeRole: task.AssigneeRole,
			Position:     task.Position,
		})
	}
	for _, edge := range plan.Dependencies {
		payload.Dependencies = append(payload.Dependencies, planEdgePayload{
			TaskID:    edge.TaskID,
			DependsOn: edge.DependsOn,
		})
	}
	for _, stakeholder := range plan.Stakeholders {
		payload.Stakeholders = append(payload.Stakeholders, planStakeholderPayload{
			ID:      stakeholder.ID,
			Name:    stakeholder.Name,
			Contact: stakeholder.Contact,
		})
	}
	return payload
}

type scenarioPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Severity    string `json:"severity,omitempty"`
	Description string `json:"description,omitempty"`
}
