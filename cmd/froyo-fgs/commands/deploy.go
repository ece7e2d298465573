package commands

import (
	"context"
	"io"
	"sync"

	"github.com/openfroyo/froyo-fgs/pkg/config"
	"github.com/openfroyo/froyo-fgs/pkg/engine"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newDeployCommand() *cobra.Command {
	var (
		scope       string
		watch       bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or update the function and its triggers",
		Long: `Deploy makes the platform match the project file.

The function is created when it does not exist and updated otherwise. Each
declared trigger is looked up on the function, created when absent, updated
when its kind is editable and the status differs, and left alone otherwise.
Policies are evaluated before anything is sent to the platform.

With --watch the project is redeployed every time the file changes.`,
		Example: `  # Deploy everything
  froyo-fgs deploy

  # Only reconcile the triggers
  froyo-fgs deploy --scope trigger

  # Redeploy on every save and expose metrics
  froyo-fgs deploy --watch --metrics-addr :9464`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := engine.ParseScope(scope)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), appOptions{history: true, metricsAddr: metricsAddr})
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			if watch {
				return a.watchDeploy(cmd.Context(), cmd.OutOrStdout(), s)
			}
			return a.deploy(cmd.Context(), cmd.OutOrStdout(), s)
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "all", "resources to reconcile (all, function, trigger)")
	cmd.Flags().BoolVar(&watch, "watch", false, "redeploy when the project file changes")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve metrics on this address while watching")

	return cmd
}

func (a *app) deploy(ctx context.Context, w io.Writer, scope engine.Scope) error {
	project, err := a.loadProject()
	if err != nil {
		return err
	}
	d, err := a.deployer(project)
	if err != nil {
		return err
	}

	log.Info().
		Str("config", configPath).
		Str("scope", string(scope)).
		Int("parallelism", parallelism).
		Msg("Deploying")

	run, err := d.Deploy(ctx, project, scope)
	if perr := printRun(w, run); perr != nil && err == nil {
		err = perr
	}
	return err
}

// watchDeploy deploys once, then again after every change to the project
// file, until ctx is cancelled. Policy files given with --policy are
// reloaded as they change. Failed runs are logged and do not stop the watch.
func (a *app) watchDeploy(ctx context.Context, w io.Writer, scope engine.Scope) error {
	go func() {
		if err := a.telemetry.Metrics.ServeMetrics(ctx); err != nil {
			log.Error().Err(err).Msg("Metrics endpoint stopped")
		}
	}()

	if len(policyPaths) > 0 {
		if err := a.policies.WatchPolicies(ctx, policyPaths); err != nil {
			log.Warn().Err(err).Msg("Policy reload disabled")
		}
	}

	var mu sync.Mutex
	redeploy := func(ctx context.Context) {
		mu.Lock()
		defer mu.Unlock()
		if err := a.deploy(ctx, w, scope); err != nil {
			log.Error().Err(err).Msg("Deploy failed")
		}
	}

	redeploy(ctx)
	return config.Watch(ctx, configPath, config.DefaultWatchDebounce, a.logger, redeploy)
}
