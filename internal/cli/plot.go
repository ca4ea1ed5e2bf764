package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
)

// PlotOptions holds flags for the plot command.
type PlotOptions struct {
	*RootOptions
	Database string
	RunID    string
	Variable string
	Height   int
	Width    int
}

// PlotData is the JSON output of plot.
type PlotData struct {
	RunID    string    `json:"run_id"`
	Variable string    `json:"variable"`
	Times    []float64 `json:"times"`
	Values   []float64 `json:"values"`
}

// NewPlotCommand creates the plot command.
func NewPlotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Chart a recorded variable in the terminal",
		Long: `Draw an ASCII chart of one recorded real, integer or boolean variable
of a run. Booleans are drawn as 0 and 1.

Examples:
  fmu plot --db ./runs.db --var sine.y
  fmu plot --db ./runs.db --run 0192f0c4-... --var sum.s --height 15`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Variable, "var", "", "instance.variable to plot (required)")
	_ = cmd.MarkFlagRequired("var")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID (default: latest run)")
	cmd.Flags().IntVar(&opts.Height, "height", 10, "chart height in rows")
	cmd.Flags().IntVar(&opts.Width, "width", 80, "chart width in columns")

	return cmd
}

func runPlot(opts *PlotOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	inst, name, err := splitVariable(opts.Variable)
	if err != nil {
		return err
	}
	st, run, err := openRun(ctx, opts.Database, opts.RunID)
	if err != nil {
		return err
	}
	defer st.Close()

	times, values, err := st.Series(ctx, run.ID, inst, name)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load samples", err)
	}
	if len(values) == 0 {
		msg := fmt.Sprintf("run %s recorded no numeric samples of %s", run.ID, opts.Variable)
		_ = formatter.Error(ErrCodeNoSamples, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	data := PlotData{RunID: run.ID, Variable: opts.Variable, Times: times, Values: values}
	return formatter.Emit(data, func(w io.Writer) {
		graph := asciigraph.Plot(values,
			asciigraph.Height(opts.Height),
			asciigraph.Width(opts.Width),
			asciigraph.Caption(fmt.Sprintf("%s, t=[%g, %g]", opts.Variable, times[0], times[len(times)-1])),
		)
		fmt.Fprintln(w, graph)
	})
}
