package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/lockstep-ops/lockstep/internal/platform/errors"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/broadcast"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/domain"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/simulation"
)

// Coordinator is the engine surface the API exposes.
type Coordinator interface {
	Activate(ctx context.Context, input domain.ActivateInput) (domain.ActivateResult, error)
	Status(ctx context.Context, instanceID string) (domain.StatusView, error)
	StartTask(ctx context.Context, instanceID, taskID string) (domain.ExecutionTask, error)
	CompleteTask(ctx context.Context, instanceID, taskID, outcome string) (domain.TransitionResult, error)
	SkipTask(ctx context.Context, instanceID, taskID, reason string) (domain.TransitionResult, error)
	Acknowledge(ctx context.Context, instanceID, stakeholderID string) (domain.AckResult, error)
}

// PlanCatalog is the plan and scenario surface the API exposes.
type PlanCatalog interface {
	domain.PlanStore
	PutPlan(ctx context.Context, plan domain.Plan) error
	ListPlans(ctx context.Context) ([]domain.Plan, error)
	PutScenario(ctx context.Context, scenario domain.Scenario) error
}

// Simulator is the simulation driver surface the API exposes.
type Simulator interface {
	Start(ctx context.Context, instanceID string, roster []domain.Stakeholder, targetDuration time.Duration, seed int64) (simulation.Run, error)
	Stop()
	Active() string
}

// Handler serves the coordination HTTP API.
type Handler struct {
	coordinator Coordinator
	plans       PlanCatalog
	broker      *broadcast.Broker
	simulator   Simulator
}

// NewHandler constructs the API handler. The broker and simulator are
// optional; their routes report unavailable when absent.
func NewHandler(coordinator Coordinator, plans PlanCatalog, broker *broadcast.Broker, simulator Simulator) *Handler {
	return &Handler{
		coordinator: coordinator,
		plans:       plans,
		broker:      broker,
		simulator:   simulator,
	}
}

// Routes returns the API router with standard middleware applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodPost+" /api/v1/activations", h.handleActivate)
	mux.HandleFunc(http.MethodGet+" /api/v1/instances/{id}", h.handleStatus)
	mux.HandleFunc(http.MethodPost+" /api/v1/instances/{id}/tasks/{taskID}", h.handleTaskUpdate)
	mux.HandleFunc(http.MethodPost+" /api/v1/instances/{id}/acknowledgments", h.handleAcknowledge)
	mux.HandleFunc(http.MethodGet+" /api/v1/instances/{id}/events", h.handleEvents)
	mux.HandleFunc(http.MethodPost+" /api/v1/instances/{id}/simulation", h.handleSimulationStart)
	mux.HandleFunc(http.MethodDelete+" /api/v1/instances/{id}/simulation", h.handleSimulationStop)
	mux.HandleFunc(http.MethodPost+" /api/v1/plans", h.handlePutPlan)
	mux.HandleFunc(http.MethodGet+" /api/v1/plans", h.handleListPlans)
	mux.HandleFunc(http.MethodGet+" /api/v1/plans/{id}", h.handleGetPlan)
	mux.HandleFunc(http.MethodPost+" /api/v1/scenarios", h.handlePutScenario)
	mux.HandleFunc(http.MethodGet+" /api/v1/scenarios/{id}", h.handleGetScenario)
	return Chain(mux, RequestID(), RecoverPanic())
}

type activateRequest struct {
	OrganizationID string `json:"organization_id"`
	ScenarioID     string `json:"scenario_id,omitempty"`
	PlanID         string `json:"plan_id"`
	TriggeredBy    string `json:"triggered_by"`
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	result, err := h.coordinator.Activate(RequestContext(r), domain.ActivateInput{
		OrganizationID: req.OrganizationID,
		ScenarioID:     req.ScenarioID,
		PlanID:         req.PlanID,
		TriggeredBy:    req.TriggeredBy,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, activationView(result))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.coordinator.Status(RequestContext(r), r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, statusView(view))
}

type taskUpdateRequest struct {
	Action  string `json:"action"`
	Outcome string `json:"outcome,omitempty"`
}

func (h *Handler) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	var req taskUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	ctx := RequestContext(r)
	instanceID := r.PathValue("id")
	taskID := r.PathValue("taskID")

	switch strings.TrimSpace(req.Action) {
	case "start":
		task, err := h.coordinator.StartTask(ctx, instanceID, taskID)
		if err != nil {
			WriteError(w, err)
			return
		}
		_ = WriteJSON(w, http.StatusOK, map[string]any{"task": taskView(task)})
	case "complete":
		transition, err := h.coordinator.CompleteTask(ctx, instanceID, taskID, req.Outcome)
		if err != nil {
			WriteError(w, err)
			return
		}
		_ = WriteJSON(w, http.StatusOK, transitionView(transition))
	case "skip":
		transition, err := h.coordinator.SkipTask(ctx, instanceID, taskID, req.Outcome)
		if err != nil {
			WriteError(w, err)
			return
		}
		_ = WriteJSON(w, http.StatusOK, transitionView(transition))
	default:
		WriteError(w, errors.New(errors.CodeInvalidRequest, "action must be start, complete, or skip"))
	}
}

type acknowledgeRequest struct {
	StakeholderID string `json:"stakeholder_id"`
}

func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	var req acknowledgeRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	result, err := h.coordinator.Acknowledge(RequestContext(r), r.PathValue("id"), req.StakeholderID)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ackView(result))
}

type simulationStartRequest struct {
	TargetMinutes float64 `json:"target_minutes"`
	Seed          int64   `json:"seed"`
}

func (h *Handler) handleSimulationStart(w http.ResponseWriter, r *http.Request) {
	if h.simulator == nil {
		WriteError(w, errors.New(errors.CodeUnknown, "simulation is not enabled"))
		return
	}
	var req simulationStartRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	ctx := RequestContext(r)
	instanceID := r.PathValue("id")

	view, err := h.coordinator.Status(ctx, instanceID)
	if err != nil {
		WriteError(w, err)
		return
	}
	plan, err := h.plans.GetPlan(ctx, view.Instance.PlanID)
	if err != nil {
		WriteError(w, err)
		return
	}
	run, err := h.simulator.Start(context.WithoutCancel(ctx), instanceID, plan.Stakeholders,
		time.Duration(req.TargetMinutes*float64(time.Minute)), req.Seed)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusAccepted, runView(run))
}

func (h *Handler) handleSimulationStop(w http.ResponseWriter, r *http.Request) {
	if h.simulator == nil {
		WriteError(w, errors.New(errors.CodeUnknown, "simulation is not enabled"))
		return
	}
	instanceID := r.PathValue("id")
	if active := h.simulator.Active(); active != "" && active != instanceID {
		WriteError(w, errors.New(errors.CodeConflict, "another instance's simulation is active"))
		return
	}
	h.simulator.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePutPlan(w http.ResponseWriter, r *http.Request) {
	var req planPayload
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if err := h.plans.PutPlan(RequestContext(r), req.toDomain()); err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

func (h *Handler) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.ListPlans(RequestContext(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	views := make([]planPayload, 0, len(plans))
	for _, plan := range plans {
		views = append(views, planFromDomain(plan))
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"plans": views})
}

func (h *Handler) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.plans.GetPlan(RequestContext(r), r.PathValue("id"))
	if err != nil {
		if errors.CodeOf(err) == errors.CodeNotFound {
			err = errors.Wrap(errors.CodePlanNotFound, "plan not found", err)
		}
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, planFromDomain(plan))
}

func (h *Handler) handlePutScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioPayload
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if err := h.plans.PutScenario(RequestContext(r), domain.Scenario(req)); err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

func (h *Handler) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	scenario, err := h.plans.GetScenario(RequestContext(r), r.PathValue("id"))
	if err != nil {
		if errors.CodeOf(err) == errors.CodeNotFound {
			err = errors.Wrap(errors.CodeScenarioNotFound, "scenario not found", err)
		}
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, scenarioPayload(scenario))
}
