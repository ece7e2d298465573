package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openfroyo/froyo-fgs/pkg/config"
	"github.com/openfroyo/froyo-fgs/pkg/deploy"
	"github.com/openfroyo/froyo-fgs/pkg/fgs"
	"github.com/openfroyo/froyo-fgs/pkg/policy"
	"github.com/openfroyo/froyo-fgs/pkg/storage"
	"github.com/openfroyo/froyo-fgs/pkg/stores"
	"github.com/openfroyo/froyo-fgs/pkg/telemetry"
	"github.com/rs/zerolog"
)

const readRetries = 3

// appOptions selects which collaborators newApp builds.
type appOptions struct {
	// history opens the run store unless --state is empty.
	history bool

	// metricsAddr exposes the metrics endpoint in watch mode.
	metricsAddr string
}

// app holds everything one command invocation needs.
type app struct {
	env       config.Environment
	loader    *config.Loader
	telemetry *telemetry.Telemetry
	policies  *policy.Engine
	store     *stores.SQLiteStore
	logger    zerolog.Logger
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	env := config.EnvironmentFromOS()

	tel, err := telemetry.NewTelemetry(telemetryConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	a := &app{
		env:       env,
		loader:    config.NewLoader(env),
		telemetry: tel,
		logger:    tel.Logger.Zerolog(),
	}

	a.policies, err = policy.NewEngine(a.logger)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}
	a.policies.SetEnvironment(environment)
	if len(policyPaths) > 0 {
		if err := a.policies.LoadPolicies(ctx, policyPaths); err != nil {
			a.close(ctx)
			return nil, err
		}
	}

	if opts.history && statePath != "" {
		a.store, err = openStore(ctx, statePath)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
	}

	return a, nil
}

func telemetryConfig(opts appOptions) *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = buildVersion
	cfg.Environment = environment
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if traceExporter != "" && traceExporter != "none" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = traceExporter
		cfg.Tracing.Endpoint = otlpEndpoint
	}
	cfg.Metrics.TextfilePath = metricsFile
	cfg.Metrics.ListenAddress = opts.metricsAddr
	return cfg
}

func openStore(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// loadProject reads the project file named by --config.
func (a *app) loadProject() (*config.Project, error) {
	return a.loader.Load(configPath)
}

// deployer builds a deployer bound to the region and project of p.
func (a *app) deployer(p *config.Project) (*deploy.Deployer, error) {
	client, err := fgs.NewHTTPClient(fgs.HTTPConfig{
		Endpoint:    a.env.Endpoint,
		Region:      p.Region,
		ProjectID:   p.ProjectID,
		AuthToken:   a.env.AuthToken,
		ReadRetries: readRetries,
	})
	if err != nil {
		return nil, err
	}

	opts := deploy.Options{
		Parallelism:  parallelism,
		StrictLookup: strictLookup,
		Actor:        actor(),
		Policy:       a.policies,
		Tracer:       a.telemetry.Tracer,
		Metrics:      a.telemetry.Metrics,
	}
	if a.store != nil {
		opts.History = a.store
	}
	if a.env.HasObjectStorageCredentials() {
		obs, err := storage.NewOBS(storage.OBSConfig{
			Region:    p.Region,
			AccessKey: a.env.AccessKey,
			SecretKey: a.env.SecretKey,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		opts.Uploader = obs
	}

	instrumented := fgs.Instrumented(client, a.telemetry.Tracer, a.telemetry.Metrics)
	return deploy.NewDeployer(instrumented, a.logger, opts), nil
}

func (a *app) close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	errs = append(errs, a.telemetry.Shutdown(shutdownCtx))
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn().Err(err).Msg("Shutdown incomplete")
	}
}

func actor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "froyo-fgs"
}
