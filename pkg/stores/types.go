package stores

import (
	"context"
	"errors"
	"time"

	"github.com/openfroyo/froyo-fgs/pkg/engine"
)

// ErrNotFound is returned when a looked up record does not exist.
var ErrNotFound = errors.New("not found")

// TriggerBinding remembers which remote trigger a declared trigger resolved
// to. Ordinal is the position of the trigger among the declared triggers of
// the same type.
type TriggerBinding struct {
	FunctionURN string    `json:"function_urn"`
	TriggerType string    `json:"trigger_type"`
	Ordinal     int       `json:"ordinal"`
	TriggerID   string    `json:"trigger_id"`
	LastRunID   string    `json:"last_run_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AuditEntry represents an audit trail entry
type AuditEntry struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`              // e.g. "run.succeeded", "run.failed"
	Actor     string    `json:"actor"`               // user or system identifier
	TargetID  *string   `json:"target_id,omitempty"` // run id or function URN
	Details   *string   `json:"details,omitempty"`   // JSON blob
	Timestamp time.Time `json:"timestamp"`
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	FunctionURN string
	Command     string
	Limit       int
	Offset      int
}

// Store defines the interface for the persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Run operations
	SaveRun(ctx context.Context, run *engine.Run) error
	GetRun(ctx context.Context, id string) (*engine.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*engine.Run, error)
	DeleteRun(ctx context.Context, id string) error

	// TriggerBinding operations
	UpsertTriggerBinding(ctx context.Context, binding *TriggerBinding) error
	GetTriggerBinding(ctx context.Context, functionURN, triggerType string, ordinal int) (*TriggerBinding, error)
	ListTriggerBindings(ctx context.Context, functionURN string) ([]*TriggerBinding, error)
	DeleteTriggerBinding(ctx context.Context, functionURN, triggerType string, ordinal int) error

	// Audit operations
	CreateAuditEntry(ctx context.Context, entry *AuditEntry) error
	ListAuditEntries(ctx context.Context, action *string, limit, offset int) ([]*AuditEntry, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
