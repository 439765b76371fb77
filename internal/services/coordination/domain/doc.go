// Package domain implements the execution coordination engine: activation of
// plan templates into live execution instances, task readiness propagation
// over the dependency graph, stakeholder acknowledgment tracking against the
// coordination threshold, and the closed event set broadcast on every
// mutation.
package domain
