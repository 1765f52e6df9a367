package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/fetchplan/internal/config"
)

// RootOptions holds global flags for all commands. PersistentPreRunE
// replaces them with the merged configuration.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Config   string // explicit config file
	Catalog  string // directory of CUE resource definitions
	Database string // SQLite path
	Seed     string // SQL script run before fetching
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the fetchplan CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fetchplan",
		Short: "fetchplan - eager loading fetch plans",
		Long: `Plan and run eager loading fetches over a catalog of related resources.

Relations that can share the base query are joined into it; the rest are
loaded with a second query per relation and merged into the base records.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.Config, cmd.Flags())
			if err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			if !isValidFormat(cfg.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", cfg.Format, ValidFormats))
			}
			opts.Format = cfg.Format
			opts.Verbose = cfg.Verbose
			opts.Catalog = cfg.Catalog
			opts.Database = cfg.Database
			opts.Seed = cfg.Seed

			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			if cfg.File != "" {
				slog.Debug("config loaded", "file", cfg.File)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", config.DefaultFormat, "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (default ./fetchplan.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Catalog, "catalog", config.DefaultCatalog, "directory of CUE resource definitions")
	cmd.PersistentFlags().StringVar(&opts.Database, "database", config.DefaultDatabase, "SQLite database path")
	cmd.PersistentFlags().StringVar(&opts.Seed, "seed", "", "SQL script to run before fetching")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewFetchCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// catalogDir returns the positional catalog argument or the configured
// catalog.
func (o *RootOptions) catalogDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return o.Catalog
}

// formatter builds the output formatter of a command.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
