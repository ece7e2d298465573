package commands

import (
	"github.com/openfroyo/froyo-fgs/pkg/engine"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRemoveCommand() *cobra.Command {
	var (
		scope  string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Delete the declared triggers and the function",
		Long: `Remove deletes every declared trigger that exists on the function, then the
function itself. Resources that are already gone are reported as not-found.

In the production environment the remove-protection policy blocks this
command unless --dry-run is set.`,
		Example: `  # See what would be deleted
  froyo-fgs remove --dry-run

  # Delete only the triggers
  froyo-fgs remove --scope trigger`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := engine.ParseScope(scope)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), appOptions{history: true})
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

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
				Str("scope", string(s)).
				Bool("dry_run", dryRun).
				Msg("Removing")

			remove := d.Remove
			if dryRun {
				remove = d.PlanRemove
			}
			run, err := remove(cmd.Context(), project, s)
			if perr := printRun(cmd.OutOrStdout(), run); perr != nil && err == nil {
				err = perr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "all", "resources to remove (all, function, trigger)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be deleted without deleting")

	return cmd
}
