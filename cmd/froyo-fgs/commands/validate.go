package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/openfroyo/froyo-fgs/pkg/config"
	"github.com/openfroyo/froyo-fgs/pkg/function"
	"github.com/openfroyo/froyo-fgs/pkg/policy"
	"github.com/openfroyo/froyo-fgs/pkg/trigger"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// validationReport is what validate prints.
type validationReport struct {
	Valid       bool     `json:"valid"`
	FunctionURN string   `json:"function_urn,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	Policies    []string `json:"policies"`
}

var errValidationFailed = errors.New("validation failed")

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the project file without contacting the platform",
		Long: `Validate loads the project file, checks the function declaration and every
trigger, and evaluates the policies for a deploy.

No credentials are needed and nothing is sent to the platform.`,
		Example: `  # Validate the default project file
  froyo-fgs validate

  # Validate with extra policies
  froyo-fgs validate -c functions/hello.cue --policy ./policies`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			log.Info().Str("config", configPath).Msg("Validating configuration")

			report := &validationReport{Valid: true}
			project, err := a.loadProject()
			if err != nil {
				report.fail(err)
				return report.print(cmd.OutOrStdout())
			}

			if err := function.Validate(project.Function); err != nil {
				report.fail(err)
			} else {
				report.FunctionURN = function.URN(project.Function, project.Region, project.ProjectID)
			}

			if err := config.ValidateProject(project); err != nil {
				report.fail(err)
			}

			for i, spec := range project.Triggers {
				kind := spec.Kind()
				if _, ok := trigger.New(spec, report.FunctionURN); !ok {
					report.Warnings = append(report.Warnings,
						fmt.Sprintf("trigger %d: %q is not supported and will be skipped", i, kind))
					continue
				}
				if trigger.Unnamed(spec) {
					report.Warnings = append(report.Warnings,
						fmt.Sprintf("trigger %d: %s trigger has no name, a new one is created on every deploy", i, kind))
				}
			}

			result, err := a.policies.Evaluate(cmd.Context(), project, policy.OperationDeploy, true)
			if err != nil {
				report.fail(err)
				return report.print(cmd.OutOrStdout())
			}
			report.Policies = result.EvaluatedPolicies
			report.Warnings = append(report.Warnings, result.Warnings...)
			for _, v := range result.Violations {
				msg := fmt.Sprintf("[%s] %s", v.Policy, v.Message)
				if v.Severity.Blocking() {
					report.Valid = false
					report.Errors = append(report.Errors, msg)
				} else {
					report.Warnings = append(report.Warnings, msg)
				}
			}

			return report.print(cmd.OutOrStdout())
		},
	}

	return cmd
}

func (r *validationReport) fail(err error) {
	r.Valid = false
	r.Errors = append(r.Errors, err.Error())
}

// print writes the report and returns errValidationFailed when it is not
// valid.
func (r *validationReport) print(w io.Writer) error {
	if jsonOutput {
		if err := writeJSON(w, r); err != nil {
			return err
		}
	} else {
		for _, e := range r.Errors {
			fmt.Fprintf(w, "error: %s\n", e)
		}
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warn)
		}
		if r.Valid {
			fmt.Fprintf(w, "Configuration is valid (%d policies evaluated)\n", len(r.Policies))
		}
	}

	if !r.Valid {
		return errValidationFailed
	}
	return nil
}
