package domain

import "context"

// TaskTemplate is one task declaration within a plan.
type TaskTemplate struct {
	ID           string
	PlanID       string
	Title        string
	Description  string
	AssigneeRole string
	Position     int
}

// Stakeholder is one party notified at activation whose acknowledgment counts
// toward the coordination threshold.
type Stakeholder struct {
	ID      string
	Name    string
	Contact string
}

// Plan is a template describing tasks, dependency edges, and the stakeholder
// roster for a class of response scenario.
type Plan struct {
	ID           string
	Name         string
	Threshold    float64
	Tasks        []TaskTemplate
	Dependencies []DependencyEdge
	Stakeholders []Stakeholder
}

// Scenario is the triggering context class an instance runs against.
type Scenario struct {
	ID          string
	Name        string
	Severity    string
	Description string
}

// PlanStore is the plan/template catalog boundary consumed at activation.
type PlanStore interface {
	GetPlan(ctx context.Context, planID string) (Plan, error)
	GetScenario(ctx context.Context, scenarioID string) (Scenario, error)
}
