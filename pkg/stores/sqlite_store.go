package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/openfroyo/froyo-fgs/pkg/engine"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
	cfg  Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Every connection to :memory: opens its own database.
	if cfg.Path == ":memory:" {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path: cfg.Path,
		cfg:  cfg,
	}, nil
}

// Init opens the database connection.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := s.path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	if s.path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	if s.path != ":memory:" {
		db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// SaveRun inserts or replaces a run together with its results.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *engine.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run id is required")
	}

	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}

	var errMsg *string
	if run.Error != "" {
		errMsg = &run.Error
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, command, scope, function_urn, status, started_at, completed_at, error, summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at,
			error = excluded.error,
			summary = excluded.summary,
			function_urn = excluded.function_urn,
			updated_at = excluded.updated_at
	`,
		run.ID,
		run.Command,
		string(run.Scope),
		run.FunctionURN,
		string(run.Status),
		run.StartedAt.UTC(),
		utcPtr(run.CompletedAt),
		errMsg,
		string(summary),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_results WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to clear run results: %w", err)
	}

	for i := range run.Results {
		r := &run.Results[i]

		var projection *string
		if len(r.Projection) > 0 {
			data, err := json.Marshal(r.Projection)
			if err != nil {
				return fmt.Errorf("failed to encode projection: %w", err)
			}
			p := string(data)
			projection = &p
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_results (run_id, seq, kind, name, trigger_type, remote_id, outcome, message, projection)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID, i, string(r.Kind), r.Name, r.TriggerType, r.RemoteID, string(r.Outcome), r.Message, projection,
		)
		if err != nil {
			return fmt.Errorf("failed to save run result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, command, scope, function_urn, status, started_at, completed_at, error, summary`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*engine.Run, error) {
	var (
		run     engine.Run
		scope   string
		status  string
		errMsg  sql.NullString
		summary string
	)
	if err := row.Scan(
		&run.ID,
		&run.Command,
		&scope,
		&run.FunctionURN,
		&status,
		&run.StartedAt,
		&run.CompletedAt,
		&errMsg,
		&summary,
	); err != nil {
		return nil, err
	}

	run.Scope = engine.Scope(scope)
	run.Status = engine.RunStatus(status)
	run.Error = errMsg.String
	if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode run summary: %w", err)
	}
	return &run, nil
}

// GetRun retrieves a run and its results by ID
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*engine.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	results, err := s.listResults(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Results = results

	return run, nil
}

func (s *SQLiteStore) listResults(ctx context.Context, runID string) ([]engine.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, name, trigger_type, remote_id, outcome, message, projection
		FROM run_results
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run results: %w", err)
	}
	defer rows.Close()

	results := []engine.Result{}
	for rows.Next() {
		var (
			r          engine.Result
			kind       string
			outcome    string
			projection sql.NullString
		)
		if err := rows.Scan(&kind, &r.Name, &r.TriggerType, &r.RemoteID, &outcome, &r.Message, &projection); err != nil {
			return nil, fmt.Errorf("failed to scan run result: %w", err)
		}
		r.Kind = engine.ResourceKind(kind)
		r.Outcome = engine.Outcome(outcome)
		if projection.Valid {
			if err := json.Unmarshal([]byte(projection.String), &r.Projection); err != nil {
				return nil, fmt.Errorf("failed to decode projection: %w", err)
			}
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run results: %w", err)
	}

	return results, nil
}

// ListRuns lists runs newest first. Results are not loaded.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]*engine.Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE (? = '' OR function_urn = ?)
		  AND (? = '' OR command = ?)
		ORDER BY started_at DESC, id
		LIMIT ? OFFSET ?
	`, filter.FunctionURN, filter.FunctionURN, filter.Command, filter.Command, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*engine.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// DeleteRun deletes a run and its results
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}

	return nil
}

// UpsertTriggerBinding records the trigger id a declared trigger resolved to.
func (s *SQLiteStore) UpsertTriggerBinding(ctx context.Context, b *TriggerBinding) error {
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trigger_bindings (function_urn, trigger_type, ordinal, trigger_id, last_run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(function_urn, trigger_type, ordinal) DO UPDATE SET
			trigger_id = excluded.trigger_id,
			last_run_id = excluded.last_run_id,
			updated_at = excluded.updated_at
	`, b.FunctionURN, b.TriggerType, b.Ordinal, b.TriggerID, b.LastRunID, b.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert trigger binding: %w", err)
	}

	return nil
}

// GetTriggerBinding retrieves the binding of one declared trigger.
func (s *SQLiteStore) GetTriggerBinding(ctx context.Context, functionURN, triggerType string, ordinal int) (*TriggerBinding, error) {
	b := &TriggerBinding{}
	err := s.db.QueryRowContext(ctx, `
		SELECT function_urn, trigger_type, ordinal, trigger_id, last_run_id, updated_at
		FROM trigger_bindings
		WHERE function_urn = ? AND trigger_type = ? AND ordinal = ?
	`, functionURN, triggerType, ordinal).Scan(
		&b.FunctionURN,
		&b.TriggerType,
		&b.Ordinal,
		&b.TriggerID,
		&b.LastRunID,
		&b.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trigger binding %s/%s/%d: %w", functionURN, triggerType, ordinal, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trigger binding: %w", err)
	}

	return b, nil
}

// ListTriggerBindings lists the bindings of a function ordered by type and ordinal.
func (s *SQLiteStore) ListTriggerBindings(ctx context.Context, functionURN string) ([]*TriggerBinding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT function_urn, trigger_type, ordinal, trigger_id, last_run_id, updated_at
		FROM trigger_bindings
		WHERE function_urn = ?
		ORDER BY trigger_type, ordinal
	`, functionURN)
	if err != nil {
		return nil, fmt.Errorf("failed to list trigger bindings: %w", err)
	}
	defer rows.Close()

	bindings := []*TriggerBinding{}
	for rows.Next() {
		b := &TriggerBinding{}
		if err := rows.Scan(&b.FunctionURN, &b.TriggerType, &b.Ordinal, &b.TriggerID, &b.LastRunID, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trigger binding: %w", err)
		}
		bindings = append(bindings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trigger bindings: %w", err)
	}

	return bindings, nil
}

// DeleteTriggerBinding forgets a binding. Deleting a missing binding is not an error.
func (s *SQLiteStore) DeleteTriggerBinding(ctx context.Context, functionURN, triggerType string, ordinal int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM trigger_bindings WHERE function_urn = ? AND trigger_type = ? AND ordinal = ?
	`, functionURN, triggerType, ordinal)
	if err != nil {
		return fmt.Errorf("failed to delete trigger binding: %w", err)
	}
	return nil
}

// CreateAuditEntry creates a new audit log entry
func (s *SQLiteStore) CreateAuditEntry(ctx context.Context, entry *AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO audit (action, actor, target_id, details, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`,
		entry.Action,
		entry.Actor,
		entry.TargetID,
		entry.Details,
		entry.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit entry ID: %w", err)
	}

	entry.ID = id
	return nil
}

// ListAuditEntries lists audit entries newest first, optionally filtered by action.
func (s *SQLiteStore) ListAuditEntries(ctx context.Context, action *string, limit, offset int) ([]*AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, actor, target_id, details, timestamp
		FROM audit
		WHERE (? IS NULL OR action = ?)
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, action, action, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []*AuditEntry{}
	for rows.Next() {
		entry := &AuditEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&entry.Actor,
			&entry.TargetID,
			&entry.Details,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

var _ Store = (*SQLiteStore)(nil)
