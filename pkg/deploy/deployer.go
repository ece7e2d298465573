package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openfroyo/froyo-fgs/pkg/config"
	"github.com/openfroyo/froyo-fgs/pkg/engine"
	"github.com/openfroyo/froyo-fgs/pkg/fgs"
	"github.com/openfroyo/froyo-fgs/pkg/function"
	"github.com/openfroyo/froyo-fgs/pkg/policy"
	"github.com/openfroyo/froyo-fgs/pkg/stores"
	"github.com/openfroyo/froyo-fgs/pkg/telemetry"
	"github.com/rs/zerolog"
)

// Commands recorded on runs.
const (
	CommandDeploy = policy.OperationDeploy
	CommandPlan   = policy.OperationPlan
	CommandRemove = policy.OperationRemove
)

// Uploader copies a local code artifact to the object named by codeURL.
type Uploader interface {
	Upload(ctx context.Context, codeURL, localPath string) error
}

// PolicyEvaluator checks a project before anything is sent to the platform.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, project *config.Project, operation string, dryRun bool) (*policy.Result, error)
}

// History records runs and remembers which remote trigger each declared
// trigger was bound to.
type History interface {
	SaveRun(ctx context.Context, run *engine.Run) error
	UpsertTriggerBinding(ctx context.Context, binding *stores.TriggerBinding) error
	DeleteTriggerBinding(ctx context.Context, functionURN, triggerType string, ordinal int) error
	CreateAuditEntry(ctx context.Context, entry *stores.AuditEntry) error
}

// Options configures a Deployer. Every collaborator is optional.
type Options struct {
	// Parallelism is the number of trigger kinds reconciled at once. Values
	// below 2 reconcile triggers one after another.
	Parallelism int

	// StrictLookup makes read failures other than not-found fatal.
	StrictLookup bool

	// Actor is recorded on audit entries.
	Actor string

	Uploader Uploader
	Policy   PolicyEvaluator
	History  History
	Tracer   *telemetry.Tracer
	Metrics  *telemetry.Metrics
}

// Deployer runs deploy, plan and remove for a project.
type Deployer struct {
	client fgs.Client
	logger zerolog.Logger
	opts   Options
}

// NewDeployer creates a deployer that talks to the platform through client.
func NewDeployer(client fgs.Client, logger zerolog.Logger, opts Options) *Deployer {
	if opts.Tracer == nil {
		opts.Tracer = telemetry.NopTracer()
	}
	if opts.Actor == "" {
		opts.Actor = "froyo-fgs"
	}
	return &Deployer{
		client: client,
		logger: logger.With().Str("component", "deployer").Logger(),
		opts:   opts,
	}
}

// Deploy creates or updates the resources in scope.
func (d *Deployer) Deploy(ctx context.Context, project *config.Project, scope engine.Scope) (*engine.Run, error) {
	return d.run(ctx, CommandDeploy, project, scope, false)
}

// Plan reports what Deploy would do without changing anything.
func (d *Deployer) Plan(ctx context.Context, project *config.Project, scope engine.Scope) (*engine.Run, error) {
	return d.run(ctx, CommandPlan, project, scope, true)
}

// Remove deletes the resources in scope, triggers before the function.
func (d *Deployer) Remove(ctx context.Context, project *config.Project, scope engine.Scope) (*engine.Run, error) {
	return d.run(ctx, CommandRemove, project, scope, false)
}

// PlanRemove reports what Remove would delete without changing anything.
func (d *Deployer) PlanRemove(ctx context.Context, project *config.Project, scope engine.Scope) (*engine.Run, error) {
	return d.run(ctx, CommandRemove, project, scope, true)
}

// session holds the state of one run.
type session struct {
	*Deployer
	run      *engine.Run
	project  *config.Project
	dryRun   bool
	log      zerolog.Logger
	function *function.Reconciler
}

func (d *Deployer) run(ctx context.Context, command string, project *config.Project, scope engine.Scope, dryRun bool) (*engine.Run, error) {
	if scope == "" {
		scope = engine.ScopeAll
	}

	run := &engine.Run{
		ID:        uuid.NewString(),
		Command:   command,
		Scope:     scope,
		Status:    engine.RunStatusRunning,
		StartedAt: time.Now().UTC(),
		Results:   []engine.Result{},
	}
	log := d.logger.With().Str("run_id", run.ID).Str("command", command).Str("scope", string(scope)).Logger()

	ctx, span := d.opts.Tracer.StartRunSpan(ctx, run.ID, command)
	d.opts.Metrics.RecordRunStarted(command)
	timer := telemetry.NewTimer()

	s := &session{Deployer: d, run: run, project: project, dryRun: dryRun, log: log}
	err := s.execute(ctx)

	d.finish(ctx, run, err)
	d.opts.Metrics.RecordRunCompleted(command, string(run.Status), timer.Duration())
	telemetry.EndSpan(span, err)

	return run, err
}

func (s *session) execute(ctx context.Context) error {
	if s.project == nil {
		return engine.NewConfigurationError("project", "A project declaration is required.")
	}
	if s.project.Function == nil || s.project.Function.Name == "" {
		return engine.NewConfigurationError("name", function.MsgMissingFunction)
	}
	if _, err := engine.ParseScope(string(s.run.Scope)); err != nil {
		return engine.NewConfigurationError("scope", err.Error())
	}
	if err := config.ValidateProject(s.project); err != nil {
		return err
	}

	s.function = function.NewReconciler(s.client, s.logger, function.Options{
		Region:       s.project.Region,
		ProjectID:    s.project.ProjectID,
		DryRun:       s.dryRun,
		StrictLookup: s.opts.StrictLookup,
	})
	s.run.FunctionURN = s.function.URN(s.project.Function)
	s.log = s.log.With().Str("function_urn", s.run.FunctionURN).Logger()

	if s.run.Command != CommandRemove && s.run.Scope.IncludesFunction() {
		if err := function.Validate(s.project.Function); err != nil {
			return err
		}
	}

	if err := s.checkPolicies(ctx); err != nil {
		return err
	}

	if s.run.Command == CommandRemove {
		if s.run.Scope.IncludesTriggers() {
			if err := s.reconcileTriggers(ctx, s.run.FunctionURN); err != nil {
				return err
			}
		}
		if s.run.Scope.IncludesFunction() {
			return s.reconcileFunction(ctx)
		}
		return nil
	}

	if s.run.Scope.IncludesFunction() {
		if err := s.upload(ctx); err != nil {
			return err
		}
		if err := s.reconcileFunction(ctx); err != nil {
			return err
		}
	}
	if s.run.Scope.IncludesTriggers() {
		return s.reconcileTriggers(ctx, s.run.FunctionURN)
	}
	return nil
}

func (s *session) checkPolicies(ctx context.Context) error {
	if s.opts.Policy == nil {
		return nil
	}

	result, err := s.opts.Policy.Evaluate(ctx, s.project, s.run.Command, s.dryRun)
	if err != nil {
		return fmt.Errorf("failed to evaluate policies: %w", err)
	}
	for _, v := range result.Violations {
		if v.Severity.Blocking() {
			continue
		}
		s.log.Warn().Str("policy", v.Policy).Str("resource", v.Resource).Msg(v.Message)
	}
	for _, w := range result.Warnings {
		s.log.Warn().Msg(w)
	}
	return result.Err()
}

// upload sends the local artifact of an obs function to its code URL.
func (s *session) upload(ctx context.Context) error {
	spec := s.project.Function
	if config.NormalizeCodeType(spec.CodeType) != config.CodeTypeOBS || spec.CodeURI == "" || s.dryRun {
		return nil
	}
	if s.opts.Uploader == nil {
		s.log.Warn().Str("code_url", spec.CodeURL).Msg("No object storage credentials, assuming code is already uploaded")
		return nil
	}

	ctx, span := s.opts.Tracer.StartSpan(ctx, "storage.upload")
	err := s.opts.Uploader.Upload(ctx, spec.CodeURL, spec.CodeURI)
	telemetry.EndSpan(span, err)
	if err != nil {
		return engine.NewRemoteOperationError("upload-code", spec.CodeURL, err)
	}
	s.log.Info().Str("code_url", spec.CodeURL).Msg("Code uploaded")
	return nil
}

func (s *session) reconcileFunction(ctx context.Context) error {
	ctx, span := s.opts.Tracer.StartResourceSpan(ctx, string(engine.ResourceFunction), s.run.FunctionURN)

	var (
		result *engine.Result
		err    error
	)
	if s.run.Command == CommandRemove {
		result, err = s.function.Remove(ctx, s.project.Function)
	} else {
		result, err = s.function.Reconcile(ctx, s.project.Function)
	}
	telemetry.EndSpan(span, err)
	if err != nil {
		return err
	}

	if result.RemoteID != "" && s.run.Command != CommandRemove {
		s.run.FunctionURN = result.RemoteID
	}
	s.record(*result)
	return nil
}

func (s *session) record(result engine.Result) {
	s.run.Results = append(s.run.Results, result)
	s.opts.Metrics.RecordReconciliation(string(result.Kind), result.TriggerType, string(result.Outcome))
}

// finish stamps the run, counts the error and saves the run to history.
func (d *Deployer) finish(ctx context.Context, run *engine.Run, err error) {
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Summary = engine.Summarize(run.Results)

	log := d.logger.With().Str("run_id", run.ID).Logger()

	switch {
	case err == nil:
		run.Status = engine.RunStatusSucceeded
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		run.Status = engine.RunStatusCancelled
		run.Error = err.Error()
	default:
		run.Status = engine.RunStatusFailed
		run.Error = err.Error()
	}

	if err != nil {
		var engErr *engine.EngineError
		if errors.As(err, &engErr) {
			d.opts.Metrics.RecordError(string(engErr.Class), engErr.Code)
		} else {
			d.opts.Metrics.RecordError("unknown", engine.ErrCodeInternal)
		}
		log.Error().Err(err).Str("status", string(run.Status)).Msg("Run failed")
	} else {
		log.Info().Int("resources", run.Summary.Total).Dur("duration", run.Duration()).Msg("Run completed")
	}

	if d.opts.History == nil {
		return
	}

	// The run context may already be cancelled; history is still written.
	saveCtx := context.WithoutCancel(ctx)
	if err := d.opts.History.SaveRun(saveCtx, run); err != nil {
		log.Warn().Err(err).Msg("Failed to save run history")
	}

	entry := &stores.AuditEntry{
		Action:    "run." + string(run.Status),
		Actor:     d.opts.Actor,
		TargetID:  &run.ID,
		Timestamp: now,
	}
	if data, err := json.Marshal(map[string]any{
		"command":      run.Command,
		"scope":        run.Scope,
		"function_urn": run.FunctionURN,
		"summary":      run.Summary,
	}); err == nil {
		details := string(data)
		entry.Details = &details
	}
	if err := d.opts.History.CreateAuditEntry(saveCtx, entry); err != nil {
		log.Warn().Err(err).Msg("Failed to write audit entry")
	}
}
