package commands

import (
	"github.com/openfroyo/froyo-fgs/pkg/engine"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newPlanCommand() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what deploy would change",
		Long: `Plan looks up the function and its triggers and reports what deploy would
do, without creating, updating or deleting anything.

Outcomes are reported as planned-create, planned-update or unchanged.`,
		Example: `  # Plan with the default project file
  froyo-fgs plan

  # Plan as JSON
  froyo-fgs plan --json`,
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

			log.Info().Str("config", configPath).Str("scope", string(s)).Msg("Planning")

			run, err := d.Plan(cmd.Context(), project, s)
			if perr := printRun(cmd.OutOrStdout(), run); perr != nil && err == nil {
				err = perr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "all", "resources to plan (all, function, trigger)")

	return cmd
}
