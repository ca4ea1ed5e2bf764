package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Variable string // optional "instance.variable" whose samples are listed
}

// TraceRun describes the traced run.
type TraceRun struct {
	ID        string  `json:"id"`
	Scenario  string  `json:"scenario"`
	Status    string  `json:"status"`
	Steps     int64   `json:"steps"`
	StartTime float64 `json:"start_time"`
	StopTime  float64 `json:"stop_time"`
	StepSize  float64 `json:"step_size"`
	Error     string  `json:"error,omitempty"`
}

// TraceMessage is one stored log message.
type TraceMessage struct {
	Seq      int64  `json:"seq"`
	Step     int64  `json:"step"`
	Instance string `json:"instance"`
	Status   string `json:"status"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

// TraceSample is one stored value.
type TraceSample struct {
	Step  int64   `json:"step"`
	Time  float64 `json:"time"`
	Value any     `json:"value"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      TraceRun       `json:"run"`
	Recorded []string       `json:"recorded"`
	Messages []TraceMessage `json:"messages"`
	Variable string         `json:"variable,omitempty"`
	Samples  []TraceSample  `json:"samples,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show a recorded run",
		Long: `Show a run recorded by "fmu run --db": its outcome, the recorded
variables and every log message in the order the slaves emitted them.

Without --run the most recent run is shown. With --var the samples of one
variable are listed as well.

Examples:
  fmu trace --db ./runs.db
  fmu trace --db ./runs.db --run 0192f0c4-... --var sum.s
  fmu trace --db ./runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID (default: latest run)")
	cmd.Flags().StringVar(&opts.Variable, "var", "", "list samples of instance.variable")

	return cmd
}

// openRun opens an existing database and loads the requested run, or the
// latest one when runID is empty.
func openRun(ctx context.Context, path, runID string) (*store.Store, store.Run, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, store.Run{}, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, store.Run{}, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	var run store.Run
	if runID == "" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.GetRun(ctx, runID)
	}
	if err != nil {
		st.Close()
		if errors.Is(err, store.ErrRunNotFound) {
			return nil, store.Run{}, WrapExitError(ExitCommandError, "run not found", err)
		}
		return nil, store.Run{}, WrapExitError(ExitCommandError, "failed to load run", err)
	}
	return st, run, nil
}

func splitVariable(ref string) (instance, variable string, err error) {
	instance, variable, ok := strings.Cut(ref, ".")
	if !ok || instance == "" || variable == "" {
		return "", "", NewExitError(ExitCommandError, fmt.Sprintf("--var %q must be of the form instance.variable", ref))
	}
	return instance, variable, nil
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	st, run, err := openRun(ctx, opts.Database, opts.RunID)
	if err != nil {
		return err
	}
	defer st.Close()

	result := TraceResult{
		Run: TraceRun{
			ID:        run.ID,
			Scenario:  run.Scenario,
			Status:    run.Status,
			Steps:     run.Steps,
			StartTime: run.StartTime,
			StopTime:  run.StopTime,
			StepSize:  run.StepSize,
			Error:     run.Error,
		},
		Recorded: []string{},
		Messages: []TraceMessage{},
	}

	recorded, err := st.Recorded(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list recorded variables", err)
	}
	for _, r := range recorded {
		result.Recorded = append(result.Recorded, r[0]+"."+r[1])
	}

	msgs, err := st.Messages(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load messages", err)
	}
	for _, m := range msgs {
		result.Messages = append(result.Messages, TraceMessage{
			Seq:      m.Seq,
			Step:     m.Step,
			Instance: m.Instance,
			Status:   m.Status.String(),
			Category: m.Category,
			Text:     m.Text,
		})
	}

	if opts.Variable != "" {
		inst, name, err := splitVariable(opts.Variable)
		if err != nil {
			return err
		}
		samples, err := st.Samples(ctx, run.ID, inst, name)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load samples", err)
		}
		result.Variable = opts.Variable
		for _, s := range samples {
			result.Samples = append(result.Samples, TraceSample{Step: s.Step, Time: s.Time, Value: fmi2.Primitive(s.Value)})
		}
	}

	return formatter.Emit(result, func(w io.Writer) { writeTrace(w, result) })
}

func writeTrace(w io.Writer, r TraceResult) {
	fmt.Fprintf(w, "Run %s (%s) %s: %d steps, t=[%g, %g] step %g\n",
		r.Run.ID, r.Run.Scenario, r.Run.Status, r.Run.Steps, r.Run.StartTime, r.Run.StopTime, r.Run.StepSize)
	if r.Run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", r.Run.Error)
	}
	if len(r.Recorded) > 0 {
		fmt.Fprintf(w, "Recorded: %s\n", strings.Join(r.Recorded, ", "))
	}
	fmt.Fprintf(w, "Messages (%d):\n", len(r.Messages))
	for _, m := range r.Messages {
		fmt.Fprintf(w, "  [step %d] %s %s %s: %s\n", m.Step, m.Instance, m.Status, m.Category, m.Text)
	}
	if r.Variable != "" {
		fmt.Fprintf(w, "Samples of %s (%d):\n", r.Variable, len(r.Samples))
		for _, s := range r.Samples {
			fmt.Fprintf(w, "  %4d  t=%-8g %v\n", s.Step, s.Time, s.Value)
		}
	}
}
