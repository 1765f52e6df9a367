package cli

import (
	"fmt"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/fetchplan/internal/ir"
	"github.com/roach88/fetchplan/internal/plan"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Request FetchRequest
}

// Explanation is the plan of one fetch.
type Explanation struct {
	Resource     string             `json:"resource"`
	SQL          string             `json:"sql"`
	Params       []any              `json:"params"`
	Fingerprint  string             `json:"fingerprint"`
	Plan         map[string]any     `json:"plan"`
	Associations []plan.Association `json:"associations"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <resource>",
		Short: "Show how a fetch would be planned",
		Long: `Plan a fetch without running it.

Prints the base SQL, the relations joined into it, the relations loaded by
separate queries and the plan fingerprint.

Examples:
  fetchplan explain Articles --contain Authors,Comments
  fetchplan explain Articles --matching Tags --where published=true
  fetchplan explain Articles --contain-file contain.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd)
		},
	}

	opts.Request.AddFlags(cmd.Flags())

	return cmd
}

func runExplain(opts *ExplainOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cat, err := openCatalog(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	q, err := cat.Query(name, nil)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), err)
	}
	if err := opts.Request.Apply(q); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadRequest, err.Error(), err)
	}

	ex := &Explanation{Resource: name}
	if ex.SQL, ex.Params, err = q.SQL(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodePlan, err.Error(), err)
	}
	if ex.Params == nil {
		ex.Params = []any{}
	}
	if ex.Plan, err = q.Describe(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodePlan, err.Error(), err)
	}
	if ex.Associations, err = q.Associations(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodePlan, err.Error(), err)
	}
	if ex.Fingerprint, err = ir.PlanFingerprint(ex.Plan); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
	}
	slog.Debug("fetch planned", "resource", name, "fingerprint", ex.Fingerprint, "associations", len(ex.Associations))

	if formatter.Format == "json" {
		return formatter.Success(ex)
	}
	outputExplainText(formatter, ex)
	return nil
}

func outputExplainText(formatter *OutputFormatter, ex *Explanation) {
	w := formatter.Writer
	fmt.Fprintf(w, "Resource:    %s\n", ex.Resource)
	fmt.Fprintf(w, "Fingerprint: %s\n\n", ex.Fingerprint)
	fmt.Fprintf(w, "%s\n", ex.SQL)
	if len(ex.Params) > 0 {
		fmt.Fprintf(w, "Params: %v\n", ex.Params)
	}
	fmt.Fprintln(w)

	if len(ex.Associations) == 0 {
		fmt.Fprintln(w, "No associations.")
		return
	}

	rows := make([]table.Row, 0, len(ex.Associations))
	for _, a := range ex.Associations {
		loading := "external"
		if a.CanBeJoined {
			loading = "joined"
		}
		if a.Matching {
			loading += " (matching)"
		}
		rows = append(rows, table.Row{a.AliasPath, a.PropertyPath, a.Target, a.Cardinality, loading})
	}
	formatter.Table("Associations", table.Row{"Alias path", "Property", "Target", "Cardinality", "Loading"}, rows)

	external, _ := ex.Plan["external"].([]any)
	if len(external) == 0 {
		return
	}
	rows = rows[:0]
	for _, item := range external {
		e, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rows = append(rows, table.Row{e["alias_path"], e["strategy"], e["requires_keys"]})
	}
	fmt.Fprintln(w)
	formatter.Table("External loads", table.Row{"Alias path", "Strategy", "Requires keys"}, rows)
}
