package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fmu/internal/rules"
)

// RuleRow is one legal (variability, causality) pair.
type RuleRow struct {
	Variability    string   `json:"variability"`
	Causality      string   `json:"causality"`
	DefaultInitial string   `json:"default_initial"`
	Allowed        []string `json:"allowed_initials"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the legal variability/causality pairs",
		Long: `List every (variability, causality) pair FMI 2.0 permits together with
the initial kind assumed when none is declared and the kinds allowed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(rootOpts, cmd)
		},
	}
	return cmd
}

func legalRows() ([]RuleRow, error) {
	var rows []RuleRow
	for _, p := range rules.Legal() {
		def, err := rules.DefaultInitial(p.Variability, p.Causality)
		if err != nil {
			return nil, err
		}
		allowed, err := rules.AllowedInitials(p.Variability, p.Causality)
		if err != nil {
			return nil, err
		}
		row := RuleRow{
			Variability:    p.Variability.String(),
			Causality:      p.Causality.String(),
			DefaultInitial: def.String(),
		}
		for _, i := range allowed {
			row.Allowed = append(row.Allowed, i.String())
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func runRules(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	rows, err := legalRows()
	if err != nil {
		return WrapExitError(ExitFailure, "rules table is inconsistent", err)
	}
	return formatter.Emit(rows, func(w io.Writer) {
		fmt.Fprintf(w, "%-12s %-20s %-11s %s\n", "VARIABILITY", "CAUSALITY", "DEFAULT", "ALLOWED")
		for _, r := range rows {
			fmt.Fprintf(w, "%-12s %-20s %-11s %s\n", r.Variability, r.Causality, r.DefaultInitial, strings.Join(r.Allowed, ","))
		}
		fmt.Fprintf(w, "%d legal pairs\n", len(rows))
	})
}
