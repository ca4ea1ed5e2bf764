package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/fmilog"
	"github.com/roach88/fmu/internal/scenario"
	"github.com/roach88/fmu/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunSummary is the output of a completed run.
type RunSummary struct {
	RunID    string                    `json:"run_id,omitempty"`
	Scenario string                    `json:"scenario"`
	Steps    int64                     `json:"steps"`
	Time     float64                   `json:"time"`
	Status   string                    `json:"status"`
	Messages int                       `json:"messages"`
	Final    map[string]map[string]any `json:"final"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a co-simulation scenario",
		Long: `Instantiate the slaves of a scenario, initialize them and advance them
in lock-step from start_time to stop_time.

With --db the recorded variables and every log message are stored in a
SQLite database (created if it does not exist) for trace and plot.

Example:
  fmu run ./scenarios/feed.yaml
  fmu run ./scenarios/feed.yaml --db ./runs.db -v`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for recording")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(formatter.GetErrWriter(), &slog.HandlerOptions{Level: logLevel}))

	sc, err := scenario.Load(path)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	runOpts := []scenario.Option{
		scenario.WithFactories(opts.factories()),
		scenario.WithLogger(logger),
	}
	if opts.Verbose {
		w := formatter.GetErrWriter()
		runOpts = append(runOpts, scenario.WithCallback(func(instance string, msg fmilog.Message) {
			fmt.Fprintf(w, "%s [%s] %s: %s\n", instance, msg.Status, msg.Category, msg.Text)
		}))
	}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, scenario.WithStore(st))
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := scenario.Run(ctx, sc, runOpts...)
	if err != nil {
		details := map[string]any{"scenario": sc.Name}
		if res != nil {
			details["steps"] = res.Steps
			details["run_id"] = res.RunID
		}
		_ = formatter.Error(ErrCodeRunFailed, err.Error(), details)
		return WrapExitError(ExitFailure, "scenario run failed", err)
	}

	summary := RunSummary{
		RunID:    res.RunID,
		Scenario: sc.Name,
		Steps:    res.Steps,
		Time:     res.Time,
		Status:   res.Status.String(),
		Messages: res.Messages,
		Final:    make(map[string]map[string]any, len(res.Final)),
	}
	for inst, vars := range res.Final {
		out := make(map[string]any, len(vars))
		for name, v := range vars {
			out[name] = fmi2.Primitive(v)
		}
		summary.Final[inst] = out
	}
	return formatter.Emit(summary, func(w io.Writer) { writeSummary(w, summary, res.Final) })
}

func writeSummary(w io.Writer, s RunSummary, final map[string]map[string]fmi2.Value) {
	if s.RunID != "" {
		fmt.Fprintf(w, "Run %s\n", s.RunID)
	}
	fmt.Fprintf(w, "Scenario %s: %d steps to t=%g, status %s, %d message(s)\n", s.Scenario, s.Steps, s.Time, s.Status, s.Messages)
	insts := make([]string, 0, len(final))
	for inst := range final {
		insts = append(insts, inst)
	}
	slices.Sort(insts)
	for _, inst := range insts {
		vars := final[inst]
		names := make([]string, 0, len(vars))
		for name := range vars {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s.%s = %s\n", inst, name, vars[name])
		}
	}
}
