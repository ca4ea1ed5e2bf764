// Package cli implements the fmu command: checking variable declarations,
// describing slaves, running co-simulation scenarios and inspecting the
// recorded runs.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/fmu/internal/registry"
	"github.com/roach88/fmu/internal/slaves"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Factories are the slave classes known to describe and run. Nil means
	// the built-in slaves.
	Factories *registry.Factories
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

func (o *RootOptions) factories() *registry.Factories {
	if o.Factories == nil {
		o.Factories = slaves.Factories()
	}
	return o.Factories
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// NewRootCommand creates the root command of the fmu CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fmu",
		Short: "FMI 2.0 co-simulation slave runtime",
		Long: `fmu declares, validates and drives FMI 2.0 co-simulation slaves.

Slaves are built in Go or declared in CUE files, checked against the
FMI 2.0 variable rules, described as modelDescription.xml and run in
lock-step from YAML scenarios whose results land in a SQLite database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewDescribeCommand(opts))
	cmd.AddCommand(NewRulesCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewPlotCommand(opts))

	return cmd
}
