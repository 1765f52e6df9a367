package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fetchplan/internal/ir"
	"github.com/roach88/fetchplan/internal/store"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	Request FetchRequest
}

// FetchResult holds the records returned by a fetch.
type FetchResult struct {
	Resource string      `json:"resource"`
	Count    int         `json:"count"`
	Records  []ir.Record `json:"records"`
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch <resource>",
		Short: "Run a fetch and print the nested records",
		Long: `Run a fetch against the configured SQLite database.

The base query and every external load run against --database. With --seed,
the SQL script runs first, which makes :memory: databases usable.

Examples:
  fetchplan fetch Articles --contain Authors,Comments --database blog.db
  fetchplan fetch Articles --seed seed.sql --finder published --limit 10`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(opts, args[0], cmd)
		},
	}

	opts.Request.AddFlags(cmd.Flags())

	return cmd
}

func runFetch(opts *FetchOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	cat, err := openCatalog(opts.RootOptions, formatter)
	if err != nil {
		return err
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), err)
	}
	defer st.Close()

	if opts.Seed != "" {
		script, err := os.ReadFile(opts.Seed)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("reading seed: %v", err), err)
		}
		if err := st.Exec(ctx, string(script)); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("seeding: %v", err), err)
		}
		formatter.VerboseLog("Seeded %s from %s", opts.Database, opts.Seed)
	}

	q, err := cat.Query(name, st)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), err)
	}
	if err := opts.Request.Apply(q); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadRequest, err.Error(), err)
	}

	start := time.Now()
	records, err := q.All(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), err)
	}
	slog.Debug("fetch command done",
		"resource", name,
		"query_id", q.ID(),
		"records", len(records),
		"elapsed", time.Since(start),
	)

	result := FetchResult{Resource: name, Count: len(records), Records: records}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if err := writeJSON(formatter.Writer, records); err != nil {
		return err
	}
	formatter.VerboseLog("%d record(s)", len(records))
	return nil
}
