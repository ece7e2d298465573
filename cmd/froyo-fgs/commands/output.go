package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/openfroyo/froyo-fgs/pkg/engine"
	"github.com/openfroyo/froyo-fgs/pkg/stores"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// printRun renders a run as a result table followed by a summary line. With
// --verbose the projection of every result is printed as well.
func printRun(w io.Writer, run *engine.Run) error {
	if jsonOutput {
		return writeJSON(w, run)
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "KIND\tNAME\tOUTCOME\tREMOTE ID\tMESSAGE")
	for _, r := range run.Results {
		name := r.Name
		if r.Kind == engine.ResourceTrigger && r.TriggerType != "" {
			name = r.TriggerType
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Kind, name, r.Outcome, dash(r.RemoteID), r.Message)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if verbose {
		for _, r := range run.Results {
			printProjection(w, r.Projection)
		}
	}

	fmt.Fprintf(w, "\n%s %s: %s in %s (%s)\n",
		run.Command, run.ID, run.Status, run.Duration().Round(time.Millisecond), summaryText(run.Summary))
	if run.Error != "" {
		fmt.Fprintf(w, "error: %s\n", run.Error)
	}
	return nil
}

func printProjection(w io.Writer, p engine.Projection) {
	for _, section := range p {
		fmt.Fprintf(w, "\n%s\n", section.Header)
		tw := newTable(w)
		for _, f := range section.Fields {
			fmt.Fprintf(tw, "  %s:\t%s\n", f.Label, f.Value)
		}
		_ = tw.Flush()
	}
}

// summaryText renders outcome counts in a stable order, e.g.
// "3 resources, created=1 unchanged=2".
func summaryText(s engine.RunSummary) string {
	outcomes := make([]string, 0, len(s.ByOutcome))
	for o := range s.ByOutcome {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)

	parts := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		parts = append(parts, fmt.Sprintf("%s=%d", o, s.ByOutcome[engine.Outcome(o)]))
	}

	text := fmt.Sprintf("%d resources", s.Total)
	if s.Total == 1 {
		text = "1 resource"
	}
	if len(parts) > 0 {
		text += ", " + strings.Join(parts, " ")
	}
	return text
}

func printRuns(w io.Writer, runs []*engine.Run) error {
	if jsonOutput {
		return writeJSON(w, runs)
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tCOMMAND\tSCOPE\tSTATUS\tSTARTED\tDURATION\tFUNCTION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Command, r.Scope, r.Status,
			r.StartedAt.Local().Format(time.DateTime),
			r.Duration().Round(time.Millisecond),
			dash(r.FunctionURN))
	}
	return tw.Flush()
}

func printBindings(w io.Writer, bindings []*stores.TriggerBinding) error {
	if jsonOutput {
		return writeJSON(w, bindings)
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "TYPE\tORDINAL\tTRIGGER ID\tLAST RUN\tUPDATED")
	for _, b := range bindings {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			b.TriggerType, b.Ordinal, b.TriggerID, dash(b.LastRunID),
			b.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func printAudit(w io.Writer, entries []*stores.AuditEntry) error {
	if jsonOutput {
		return writeJSON(w, entries)
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "TIME\tACTION\tACTOR\tTARGET\tDETAILS")
	for _, e := range entries {
		target, details := "-", ""
		if e.TargetID != nil {
			target = *e.TargetID
		}
		if e.Details != nil {
			details = *e.Details
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Action, e.Actor, target, details)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
