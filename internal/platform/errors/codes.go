// Package errors provides structured error handling for coordination failures.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Plan errors
	CodePlanNotFound        Code = "PLAN_NOT_FOUND"
	CodePlanEmptyID         Code = "PLAN_EMPTY_ID"
	CodePlanNoTasks         Code = "PLAN_NO_TASKS"
	CodePlanDependencyCycle Code = "PLAN_DEPENDENCY_CYCLE"
	CodePlanUnknownTaskEdge Code = "PLAN_UNKNOWN_TASK_EDGE"
	CodeScenarioNotFound    Code = "SCENARIO_NOT_FOUND"

	// Instance errors
	CodeInstanceNotFound      Code = "INSTANCE_NOT_FOUND"
	CodeInstanceNotRunning    Code = "INSTANCE_NOT_RUNNING"
	CodeInstanceEmptyID       Code = "INSTANCE_EMPTY_ID"
	CodeOrganizationEmptyID   Code = "ORGANIZATION_EMPTY_ID"
	CodeTriggeringActorEmpty  Code = "TRIGGERING_ACTOR_EMPTY"
	CodeInstanceAlreadyClosed Code = "INSTANCE_ALREADY_CLOSED"

	// Task errors
	CodeTaskNotFound          Code = "TASK_NOT_FOUND"
	CodeTaskNotReady          Code = "TASK_NOT_READY"
	CodeTaskDependenciesUnmet Code = "TASK_DEPENDENCIES_UNMET"
	CodeTaskNotInProgress     Code = "TASK_NOT_IN_PROGRESS"
	CodeTaskAlreadyTerminal   Code = "TASK_ALREADY_TERMINAL"
	CodeTaskInvalidStatus     Code = "TASK_INVALID_STATUS"

	// Acknowledgment errors
	CodeStakeholderEmptyID  Code = "STAKEHOLDER_EMPTY_ID"
	CodeStakeholderUnknown  Code = "STAKEHOLDER_UNKNOWN"
	CodeRosterEmpty         Code = "ROSTER_EMPTY"
	CodeThresholdOutOfRange Code = "THRESHOLD_OUT_OF_RANGE"

	// Simulation errors
	CodeSimulationRosterEmpty   Code = "SIMULATION_ROSTER_EMPTY"
	CodeSimulationInvalidWindow Code = "SIMULATION_INVALID_WINDOW"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"

	// Transport errors
	CodeInvalidRequest Code = "INVALID_REQUEST"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodePlanEmptyID,
		CodeInstanceEmptyID,
		CodeOrganizationEmptyID,
		CodeTriggeringActorEmpty,
		CodeStakeholderEmptyID,
		CodeRosterEmpty,
		CodeThresholdOutOfRange,
		CodeTaskInvalidStatus,
		CodeSimulationRosterEmpty,
		CodeSimulationInvalidWindow,
		CodeInvalidRequest:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodePlanNoTasks,
		CodePlanDependencyCycle,
		CodePlanUnknownTaskEdge,
		CodeInstanceNotRunning,
		CodeInstanceAlreadyClosed,
		CodeTaskNotReady,
		CodeTaskDependenciesUnmet,
		CodeTaskNotInProgress,
		CodeTaskAlreadyTerminal,
		CodeStakeholderUnknown:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodePlanNotFound,
		CodeScenarioNotFound,
		CodeInstanceNotFound,
		CodeTaskNotFound:
		return codes.NotFound

	// AlreadyExists - unique resource constraint
	case CodeConflict:
		return codes.AlreadyExists

	default:
		return codes.Internal
	}
}

// HTTPStatus maps domain codes to HTTP status codes through their gRPC code.
func (c Code) HTTPStatus() int {
	switch c.GRPCCode() {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition, codes.AlreadyExists:
		return http.StatusConflict
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
