package engine

import "time"

// ResourceKind distinguishes function and trigger results.
type ResourceKind string

const (
	ResourceFunction ResourceKind = "function"
	ResourceTrigger  ResourceKind = "trigger"
)

// Field is one labelled line of a projection.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Section is a titled group of projection fields.
type Section struct {
	Header string  `json:"header"`
	Fields []Field `json:"fields"`
}

// Projection is the human-readable rendering of a remote record.
type Projection []Section

// Result is the outcome of reconciling one declared resource.
type Result struct {
	// Kind is function or trigger.
	Kind ResourceKind `json:"kind"`

	// Name identifies the resource: the function URN, or the trigger type code.
	Name string `json:"name"`

	// TriggerType is the upper-cased type code for trigger results.
	TriggerType string `json:"trigger_type,omitempty"`

	// RemoteID is the trigger id or function URN on the platform, when known.
	RemoteID string `json:"remote_id,omitempty"`

	// Outcome is the reconciliation decision.
	Outcome Outcome `json:"outcome"`

	// Message is an informational note, such as why an update was rejected.
	Message string `json:"message,omitempty"`

	// Projection is present only when a remote call returned a record.
	Projection Projection `json:"projection,omitempty"`
}

// Run represents a single deploy, plan or remove invocation.
type Run struct {
	// ID is the unique identifier for this run.
	ID string `json:"id"`

	// Command is deploy, plan or remove.
	Command string `json:"command"`

	// Scope is the resource scope the run acted on.
	Scope Scope `json:"scope"`

	// FunctionURN is the function the run reconciled.
	FunctionURN string `json:"function_urn"`

	// Status is the current status of the run.
	Status RunStatus `json:"status"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the run completed.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error is the fatal error message, if the run failed.
	Error string `json:"error,omitempty"`

	// Results are the per-resource outcomes in declaration order.
	Results []Result `json:"results"`

	// Summary provides outcome counts.
	Summary RunSummary `json:"summary"`
}

// RunSummary counts results by outcome.
type RunSummary struct {
	Total     int             `json:"total"`
	ByOutcome map[Outcome]int `json:"by_outcome"`
}

// Summarize counts results by outcome.
func Summarize(results []Result) RunSummary {
	s := RunSummary{Total: len(results), ByOutcome: make(map[Outcome]int)}
	for _, r := range results {
		s.ByOutcome[r.Outcome]++
	}
	return s
}

// Duration returns the run duration, or zero while the run is in progress.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
