package engine

import "fmt"

// RunStatus represents the overall status of a deployment run.
type RunStatus string

const (
	// RunStatusRunning indicates the run is currently executing.
	RunStatusRunning RunStatus = "running"

	// RunStatusSucceeded indicates every resource reached a terminal outcome.
	RunStatusSucceeded RunStatus = "succeeded"

	// RunStatusFailed indicates the run was aborted by a fatal error.
	// Changes made before the failure stay applied.
	RunStatusFailed RunStatus = "failed"

	// RunStatusCancelled indicates the run context was cancelled.
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal returns true if the run status represents a final state.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed || s == RunStatusCancelled
}

// Validate checks if the run status is valid.
func (s RunStatus) Validate() error {
	switch s {
	case RunStatusRunning, RunStatusSucceeded, RunStatusFailed, RunStatusCancelled:
		return nil
	default:
		return fmt.Errorf("invalid run status: %s", s)
	}
}

// Outcome is the per-resource result of a reconciliation attempt.
type Outcome string

const (
	OutcomeCreated           Outcome = "created"
	OutcomeUpdated           Outcome = "updated"
	OutcomeUnchanged         Outcome = "unchanged"
	OutcomeRejectedImmutable Outcome = "rejected-immutable"
	OutcomeSkipped           Outcome = "skipped"
	OutcomeDeleted           Outcome = "deleted"
	OutcomeNotFound          Outcome = "not-found"
	OutcomePlannedCreate     Outcome = "planned-create"
	OutcomePlannedUpdate     Outcome = "planned-update"
	OutcomePlannedDelete     Outcome = "planned-delete"
)

// Mutating reports whether the outcome was produced by a remote write.
func (o Outcome) Mutating() bool {
	return o == OutcomeCreated || o == OutcomeUpdated || o == OutcomeDeleted
}

// Planned reports whether the outcome comes from a dry run.
func (o Outcome) Planned() bool {
	return o == OutcomePlannedCreate || o == OutcomePlannedUpdate || o == OutcomePlannedDelete
}

// Validate checks if the outcome is known.
func (o Outcome) Validate() error {
	switch o {
	case OutcomeCreated, OutcomeUpdated, OutcomeUnchanged, OutcomeRejectedImmutable,
		OutcomeSkipped, OutcomeDeleted, OutcomeNotFound,
		OutcomePlannedCreate, OutcomePlannedUpdate, OutcomePlannedDelete:
		return nil
	default:
		return fmt.Errorf("invalid outcome: %s", o)
	}
}

// Scope selects which resources a command acts on.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeFunction Scope = "function"
	ScopeTrigger  Scope = "trigger"
)

// ParseScope parses a command scope, defaulting to ScopeAll for "".
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "":
		return ScopeAll, nil
	case ScopeAll, ScopeFunction, ScopeTrigger:
		return Scope(s), nil
	default:
		return "", fmt.Errorf("invalid scope %q: must be one of all, function, trigger", s)
	}
}

// IncludesFunction reports whether the scope covers the function.
func (s Scope) IncludesFunction() bool { return s == ScopeAll || s == ScopeFunction }

// IncludesTriggers reports whether the scope covers triggers.
func (s Scope) IncludesTriggers() bool { return s == ScopeAll || s == ScopeTrigger }
