package deploy

import (
	"context"

	"github.com/openfroyo/froyo-fgs/pkg/config"
	"github.com/openfroyo/froyo-fgs/pkg/engine"
	"github.com/openfroyo/froyo-fgs/pkg/stores"
	"github.com/openfroyo/froyo-fgs/pkg/telemetry"
	"github.com/openfroyo/froyo-fgs/pkg/trigger"
	"golang.org/x/sync/errgroup"
)

// triggerUnit is one declared trigger and its position among the declared
// triggers of the same kind.
type triggerUnit struct {
	index   int
	ordinal int
	spec    config.TriggerSpec
}

// groupByKind returns the units of each kind in declaration order, kinds
// ordered by first appearance.
func groupByKind(specs []config.TriggerSpec) [][]triggerUnit {
	var groups [][]triggerUnit
	position := make(map[string]int)
	for i, spec := range specs {
		kind := spec.Kind()
		g, ok := position[kind]
		if !ok {
			g = len(groups)
			position[kind] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], triggerUnit{index: i, ordinal: len(groups[g]), spec: spec})
	}
	return groups
}

func (s *session) reconcileTriggers(ctx context.Context, functionURN string) error {
	if len(s.project.Triggers) == 0 {
		return nil
	}

	reconciler := trigger.NewReconciler(s.client, s.logger, trigger.Options{
		DryRun:       s.dryRun,
		StrictLookup: s.opts.StrictLookup,
	})

	groups := groupByKind(s.project.Triggers)
	results := make([]*engine.Result, len(s.project.Triggers))

	runGroup := func(ctx context.Context, units []triggerUnit) error {
		for _, u := range units {
			res, err := s.reconcileTrigger(ctx, reconciler, u, functionURN)
			if err != nil {
				return err
			}
			results[u.index] = res
		}
		return nil
	}

	var err error
	if s.opts.Parallelism < 2 || len(groups) < 2 {
		for _, units := range groups {
			if err = runGroup(ctx, units); err != nil {
				break
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.opts.Parallelism)
		for _, units := range groups {
			g.Go(func() error { return runGroup(gctx, units) })
		}
		err = g.Wait()
	}

	for _, res := range results {
		if res != nil {
			s.record(*res)
		}
	}
	return err
}

func (s *session) reconcileTrigger(ctx context.Context, reconciler *trigger.Reconciler, u triggerUnit, functionURN string) (*engine.Result, error) {
	kind := u.spec.Kind()
	ctx, span := s.opts.Tracer.StartResourceSpan(ctx, string(engine.ResourceTrigger), kind)

	var (
		res *engine.Result
		err error
	)
	if s.run.Command == CommandRemove {
		res, err = reconciler.Remove(ctx, u.spec, functionURN)
	} else {
		res, err = reconciler.Reconcile(ctx, u.spec, functionURN)
	}
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.rememberBinding(ctx, functionURN, u.ordinal, res)
	return res, nil
}

// rememberBinding records which remote trigger a declared trigger resolved
// to. Bindings are informational and never steer the lookup.
func (s *session) rememberBinding(ctx context.Context, functionURN string, ordinal int, res *engine.Result) {
	if s.opts.History == nil || s.dryRun {
		return
	}

	var err error
	switch res.Outcome {
	case engine.OutcomeCreated, engine.OutcomeUpdated, engine.OutcomeUnchanged, engine.OutcomeRejectedImmutable:
		if res.RemoteID == "" {
			return
		}
		err = s.opts.History.UpsertTriggerBinding(ctx, &stores.TriggerBinding{
			FunctionURN: functionURN,
			TriggerType: res.TriggerType,
			Ordinal:     ordinal,
			TriggerID:   res.RemoteID,
			LastRunID:   s.run.ID,
		})
	case engine.OutcomeDeleted, engine.OutcomeNotFound:
		err = s.opts.History.DeleteTriggerBinding(ctx, functionURN, res.TriggerType, ordinal)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("trigger_type", res.TriggerType).Msg("Failed to update trigger binding")
	}
}
