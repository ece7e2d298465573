package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath    string
	verbose       bool
	jsonOutput    bool
	statePath     string
	policyPaths   []string
	environment   string
	parallelism   int
	strictLookup  bool
	metricsFile   string
	traceExporter string
	otlpEndpoint  string
	envFile       string

	buildVersion = "dev"
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	buildVersion = version

	rootCmd := &cobra.Command{
		Use:   "froyo-fgs",
		Short: "froyo-fgs - FunctionGraph function and trigger reconciler",
		Long: `froyo-fgs makes a FunctionGraph function and its event triggers match a
declarative project file.

Features:
  - YAML, JSON or CUE project files with both key conventions
  - Create, update or leave unchanged, decided against the live platform
  - Per-kind trigger adapters for APIG, OBS, TIMER, CTS, DIS, LTS, KAFKA, SMN
  - Rego policies checked before any remote call
  - Local run history with trigger bindings and an audit trail`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "froyo-fgs.yaml", "project file path (.yaml, .yml, .json or .cue)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVar(&jsonOutput, "json", false, "output in JSON format")
	flags.StringVar(&statePath, "state", ".froyo-fgs/state.db", "run history database, empty to disable")
	flags.StringSliceVar(&policyPaths, "policy", nil, "additional policy files or directories")
	flags.StringVar(&environment, "environment", "development", "environment name passed to policies")
	flags.IntVar(&parallelism, "parallelism", 1, "number of trigger kinds reconciled at once")
	flags.BoolVar(&strictLookup, "strict-lookup", false, "fail when a lookup fails for a reason other than not-found")
	flags.StringVar(&metricsFile, "metrics-file", "", "write metrics in text exposition format to this file on exit")
	flags.StringVar(&traceExporter, "trace-exporter", "none", "trace exporter (otlp, stdout, none)")
	flags.StringVar(&otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC collector endpoint")
	flags.StringVar(&envFile, "env-file", "", "dotenv file with credentials")

	rootCmd.AddCommand(newDeployCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newRemoveCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
