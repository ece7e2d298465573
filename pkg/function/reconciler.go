package function

import (
	"context"
	"fmt"

	"github.com/openfroyo/froyo-fgs/pkg/config"
	"github.com/openfroyo/froyo-fgs/pkg/engine"
	"github.com/openfroyo/froyo-fgs/pkg/fgs"
	"github.com/rs/zerolog"
)

// Options configures a Reconciler.
type Options struct {
	// Region and ProjectID are used to derive the function URN.
	Region    string
	ProjectID string

	// DryRun performs the lookup only and reports planned outcomes.
	DryRun bool

	// StrictLookup makes read failures other than not-found fatal. By
	// default any failed read means the function does not exist.
	StrictLookup bool
}

// Reconciler creates or updates the declared function.
type Reconciler struct {
	client fgs.Client
	logger zerolog.Logger
	opts   Options
}

// NewReconciler creates a function reconciler.
func NewReconciler(client fgs.Client, logger zerolog.Logger, opts Options) *Reconciler {
	return &Reconciler{
		client: client,
		logger: logger.With().Str("component", "function-reconciler").Logger(),
		opts:   opts,
	}
}

// URN returns the URN spec resolves to under this reconciler's region and
// project.
func (r *Reconciler) URN(spec *config.FunctionSpec) string {
	return URN(spec, r.opts.Region, r.opts.ProjectID)
}

// Reconcile validates spec, then creates the function when it is absent and
// updates it otherwise. The result's RemoteID is the function URN.
func (r *Reconciler) Reconcile(ctx context.Context, spec *config.FunctionSpec) (*engine.Result, error) {
	if err := Validate(spec); err != nil {
		r.logger.Error().Err(err).Msg("Invalid function configuration")
		return nil, err
	}

	urn := r.URN(spec)
	result := &engine.Result{Kind: engine.ResourceFunction, Name: spec.Name, RemoteID: urn}
	log := r.logger.With().Str("function", spec.Name).Str("function_urn", urn).Logger()

	existing, err := r.lookup(ctx, urn, log)
	if err != nil {
		return nil, err
	}

	if r.opts.DryRun {
		if existing == nil {
			result.Outcome = engine.OutcomePlannedCreate
		} else {
			result.Outcome = engine.OutcomePlannedUpdate
		}
		return result, nil
	}

	req, err := BuildRequest(spec)
	if err != nil {
		cfgErr := engine.NewConfigurationError("codeUri", err.Error())
		cfgErr.Err = err
		return nil, cfgErr
	}

	if existing == nil {
		log.Info().Msg("Creating function")
		rec, err := r.client.CreateFunction(ctx, req)
		if err != nil {
			return nil, engine.NewRemoteOperationError(fgs.OpCreateFunction, urn, err)
		}
		if rec.FuncURN != "" {
			result.RemoteID = rec.FuncURN
		}
		result.Outcome = engine.OutcomeCreated
		result.Projection = Project(rec)
		log.Info().Msg("Function created")
		return result, nil
	}

	log.Info().Msg("Updating function")
	rec, err := r.client.UpdateFunction(ctx, urn, req)
	if err != nil {
		return nil, engine.NewRemoteOperationError(fgs.OpUpdateFunction, urn, err)
	}
	if rec == nil || rec.FuncURN == "" {
		rec = existing
	}
	result.Outcome = engine.OutcomeUpdated
	result.Projection = Project(rec)
	log.Info().Msg("Function updated")
	return result, nil
}

// Remove deletes the declared function by URN.
func (r *Reconciler) Remove(ctx context.Context, spec *config.FunctionSpec) (*engine.Result, error) {
	if spec == nil || spec.Name == "" {
		return nil, engine.NewConfigurationError("name", MsgMissingFunction)
	}

	urn := r.URN(spec)
	result := &engine.Result{Kind: engine.ResourceFunction, Name: spec.Name, RemoteID: urn}
	log := r.logger.With().Str("function", spec.Name).Str("function_urn", urn).Logger()

	if r.opts.DryRun {
		existing, err := r.lookup(ctx, urn, log)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			result.Outcome = engine.OutcomeNotFound
		} else {
			result.Outcome = engine.OutcomePlannedDelete
		}
		return result, nil
	}

	if err := r.client.DeleteFunction(ctx, urn); err != nil {
		if fgs.IsNotFound(err) {
			result.Outcome = engine.OutcomeNotFound
			result.Message = fmt.Sprintf("Function [%s] does not exist.", spec.Name)
			log.Info().Msg(result.Message)
			return result, nil
		}
		return nil, engine.NewRemoteOperationError(fgs.OpDeleteFunction, urn, err)
	}
	log.Info().Msg("Function deleted")
	result.Outcome = engine.OutcomeDeleted
	return result, nil
}

// lookup fetches the function. A nil record means the function is treated
// as absent.
func (r *Reconciler) lookup(ctx context.Context, urn string, log zerolog.Logger) (*fgs.FunctionRecord, error) {
	rec, err := r.client.GetFunction(ctx, urn)
	if err == nil {
		return rec, nil
	}
	switch {
	case fgs.IsNotFound(err):
		return nil, nil
	case r.opts.StrictLookup:
		return nil, engine.NewLookupError(urn, err)
	default:
		log.Warn().Err(err).Msg("Fetching function failed, treating function as absent")
		return nil, nil
	}
}
