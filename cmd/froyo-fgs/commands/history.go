package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/openfroyo/froyo-fgs/pkg/function"
	"github.com/openfroyo/froyo-fgs/pkg/stores"
	"github.com/spf13/cobra"
)

var errNoState = errors.New("run history is disabled (--state is empty)")

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the local run history",
		Long: `History reads the local state database written by deploy, plan and remove.

It lists past runs, shows the results of a single run, the trigger ids last
bound to each declared trigger, and the audit trail.`,
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryBindingsCommand())
	cmd.AddCommand(newHistoryAuditCommand())

	return cmd
}

// withHistory opens the run store and calls fn with it.
func withHistory(ctx context.Context, fn func(a *app) error) error {
	if statePath == "" {
		return errNoState
	}
	a, err := newApp(ctx, appOptions{history: true})
	if err != nil {
		return err
	}
	defer a.close(ctx)
	return fn(a)
}

func newHistoryListCommand() *cobra.Command {
	var filter stores.RunFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Example: `  # The last 20 runs
  froyo-fgs history list

  # Deploys of one function
  froyo-fgs history list --command deploy --function urn:fss:cn-north-4:proj:function:default:hello:latest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd.Context(), func(a *app) error {
				runs, err := a.store.ListRuns(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return printRuns(cmd.OutOrStdout(), runs)
			})
		},
	}

	cmd.Flags().StringVar(&filter.FunctionURN, "function", "", "only runs of this function URN")
	cmd.Flags().StringVar(&filter.Command, "command", "", "only runs of this command (deploy, plan, remove)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "maximum number of runs")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "number of runs to skip")

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show the results of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd.Context(), func(a *app) error {
				run, err := a.store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printRun(cmd.OutOrStdout(), run)
			})
		},
	}
}

func newHistoryBindingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bindings [FUNCTION_URN]",
		Short: "Show the trigger ids bound to a function",
		Long: `Bindings lists the remote trigger id last seen for each declared trigger.
Without an argument the function URN is derived from the project file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd.Context(), func(a *app) error {
				urn, err := a.functionURN(args)
				if err != nil {
					return err
				}
				bindings, err := a.store.ListTriggerBindings(cmd.Context(), urn)
				if err != nil {
					return err
				}
				return printBindings(cmd.OutOrStdout(), bindings)
			})
		},
	}
}

func newHistoryAuditCommand() *cobra.Command {
	var (
		action string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd.Context(), func(a *app) error {
				var filter *string
				if action != "" {
					filter = &action
				}
				entries, err := a.store.ListAuditEntries(cmd.Context(), filter, limit, 0)
				if err != nil {
					return err
				}
				return printAudit(cmd.OutOrStdout(), entries)
			})
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "only entries with this action, e.g. run.failed")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries")

	return cmd
}

func (a *app) functionURN(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	project, err := a.loadProject()
	if err != nil {
		return "", err
	}
	if project.Function == nil || project.Function.Name == "" {
		return "", fmt.Errorf("%s declares no function; pass a function URN", configPath)
	}
	return function.URN(project.Function, project.Region, project.ProjectID), nil
}
