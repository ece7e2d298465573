package trigger

import (
	"context"
	"fmt"
	"strings"

	"github.com/openfroyo/froyo-fgs/pkg/config"
	"github.com/openfroyo/froyo-fgs/pkg/engine"
	"github.com/openfroyo/froyo-fgs/pkg/fgs"
	"github.com/rs/zerolog"
)

// Options controls how a Reconciler treats reads and writes.
type Options struct {
	// DryRun performs lookups only and reports planned outcomes.
	DryRun bool

	// StrictLookup makes list failures other than not-found fatal. By
	// default a failed list is treated as an empty one.
	StrictLookup bool
}

// Reconciler converges one declared trigger at a time onto a function.
type Reconciler struct {
	client fgs.Client
	logger zerolog.Logger
	opts   Options
}

// NewReconciler creates a trigger reconciler.
func NewReconciler(client fgs.Client, logger zerolog.Logger, opts Options) *Reconciler {
	return &Reconciler{
		client: client,
		logger: logger.With().Str("component", "trigger-reconciler").Logger(),
		opts:   opts,
	}
}

// Reconcile creates the trigger when no equivalent one exists, updates its
// status when it differs and the kind is editable, and otherwise leaves it
// alone. Kinds without an adapter are skipped.
func (r *Reconciler) Reconcile(ctx context.Context, spec config.TriggerSpec, functionURN string) (*engine.Result, error) {
	kind := spec.Kind()
	result := &engine.Result{Kind: engine.ResourceTrigger, Name: kind, TriggerType: kind}
	log := r.logger.With().Str("trigger_type", kind).Str("function_urn", functionURN).Logger()

	adapter, ok := New(spec, functionURN)
	if !ok {
		result.Outcome = engine.OutcomeSkipped
		result.Message = fmt.Sprintf("Trigger type %s is not supported.", kind)
		log.Info().Msg("Skipping trigger without adapter")
		return result, nil
	}

	remote, err := r.find(ctx, adapter, spec, functionURN, log)
	if err != nil {
		return nil, err
	}

	if remote == nil {
		if r.opts.DryRun {
			result.Outcome = engine.OutcomePlannedCreate
			return result, nil
		}
		log.Debug().Interface("event_data", adapter.EventData()).Msg("Creating trigger")
		rec, err := r.client.CreateTrigger(ctx, functionURN, adapter.CreateRequest())
		if err != nil {
			return nil, engine.NewRemoteOperationError(fgs.OpCreateTrigger, kind, err)
		}
		log.Info().Str("trigger_id", rec.TriggerID).Msg("Trigger created")
		result.Outcome = engine.OutcomeCreated
		result.RemoteID = rec.TriggerID
		result.Projection = Project(rec)
		return result, nil
	}

	result.RemoteID = remote.TriggerID
	log = log.With().Str("trigger_id", remote.TriggerID).Logger()

	switch {
	case remote.TriggerStatus == adapter.Status():
		result.Outcome = engine.OutcomeUnchanged
		log.Debug().Msg("Trigger is up to date")
		return result, nil

	case !Editable(kind):
		result.Outcome = engine.OutcomeRejectedImmutable
		result.Message = fmt.Sprintf("The trigger[%s] cannot be updated.", kind)
		log.Info().Str("remote_status", remote.TriggerStatus).Str("declared_status", adapter.Status()).Msg(result.Message)
		return result, nil

	case r.opts.DryRun:
		result.Outcome = engine.OutcomePlannedUpdate
		return result, nil
	}

	rec, err := r.client.UpdateTrigger(ctx, functionURN, adapter.UpdateRequest(remote.TriggerID))
	if err != nil {
		return nil, engine.NewRemoteOperationError(fgs.OpUpdateTrigger, kind, err)
	}
	log.Info().Str("status", adapter.Status()).Msg("Trigger updated")
	result.Outcome = engine.OutcomeUpdated
	result.Projection = Project(rec)
	return result, nil
}

// Remove deletes the remote trigger matching spec, if there is one.
func (r *Reconciler) Remove(ctx context.Context, spec config.TriggerSpec, functionURN string) (*engine.Result, error) {
	kind := spec.Kind()
	result := &engine.Result{Kind: engine.ResourceTrigger, Name: kind, TriggerType: kind}
	log := r.logger.With().Str("trigger_type", kind).Str("function_urn", functionURN).Logger()

	adapter, ok := New(spec, functionURN)
	if !ok {
		result.Outcome = engine.OutcomeSkipped
		result.Message = fmt.Sprintf("Trigger type %s is not supported.", kind)
		return result, nil
	}

	remote, err := r.find(ctx, adapter, spec, functionURN, log)
	if err != nil {
		return nil, err
	}
	if remote == nil {
		result.Outcome = engine.OutcomeNotFound
		result.Message = fmt.Sprintf("The trigger[%s] does not exist.", kind)
		log.Info().Msg(result.Message)
		return result, nil
	}

	result.RemoteID = remote.TriggerID
	if r.opts.DryRun {
		result.Outcome = engine.OutcomePlannedDelete
		return result, nil
	}
	if err := r.client.DeleteTrigger(ctx, functionURN, adapter.DeleteRequest(remote.TriggerID)); err != nil {
		return nil, engine.NewRemoteOperationError(fgs.OpDeleteTrigger, kind, err)
	}
	log.Info().Str("trigger_id", remote.TriggerID).Msg("Trigger deleted")
	result.Outcome = engine.OutcomeDeleted
	return result, nil
}

// find returns the first remote trigger of the adapter's kind that is
// pinned by id or equivalent to the declaration. A nil record means absent.
func (r *Reconciler) find(ctx context.Context, adapter Adapter, spec config.TriggerSpec, functionURN string, log zerolog.Logger) (*fgs.TriggerRecord, error) {
	records, err := r.client.ListTriggers(ctx, functionURN)
	if err != nil {
		switch {
		case fgs.IsNotFound(err):
			return nil, nil
		case r.opts.StrictLookup:
			return nil, engine.NewLookupError(adapter.Kind(), err)
		default:
			log.Warn().Err(err).Msg("Listing triggers failed, treating trigger as absent")
			return nil, nil
		}
	}

	candidates := make([]*fgs.TriggerRecord, 0, len(records))
	for i := range records {
		if strings.EqualFold(records[i].TriggerTypeCode, adapter.Kind()) {
			candidates = append(candidates, &records[i])
		}
	}

	if spec.TriggerID != "" {
		for _, rec := range candidates {
			if rec.TriggerID == spec.TriggerID {
				return rec, nil
			}
		}
	}
	for _, rec := range candidates {
		if adapter.Equivalent(rec.EventData) {
			return rec, nil
		}
	}
	return nil, nil
}
