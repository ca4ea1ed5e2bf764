package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fmu/internal/config"
	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/modeldesc"
	"github.com/roach88/fmu/internal/slave"
)

// DescribeOptions holds flags for the describe command.
type DescribeOptions struct {
	*RootOptions
	Output    string
	Timestamp bool
}

// VariableSummary is the JSON form of one described variable.
type VariableSummary struct {
	Name           string `json:"name"`
	ValueReference uint32 `json:"value_reference"`
	Type           string `json:"type"`
	Causality      string `json:"causality"`
	Variability    string `json:"variability"`
	Initial        string `json:"initial,omitempty"`
	Start          any    `json:"start,omitempty"`
}

// Description is the JSON output of describe.
type Description struct {
	Model     string            `json:"model"`
	GUID      string            `json:"guid"`
	Variables []VariableSummary `json:"variables"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DescribeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "describe <class|declarations.cue>",
		Short: "Print the modelDescription.xml of a slave",
		Long: `Build a slave and print its FMI 2.0 model description.

The target is either the class name of a built-in slave or a CUE
declaration file.

Example:
  fmu describe Adder
  fmu describe ./resources/adder.cue -o modelDescription.xml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the XML to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.Timestamp, "timestamp", false, "stamp generationDateAndTime")

	return cmd
}

// buildModel constructs the slave named by target: a .cue declaration file
// or a registered class.
func buildModel(opts *RootOptions, target string) (*slave.Model, error) {
	if strings.EqualFold(filepath.Ext(target), ".cue") {
		decls, err := config.LoadDeclarations(target)
		if err != nil {
			return nil, err
		}
		return decls.Build()
	}
	fn, ok := opts.factories().Lookup(target)
	if !ok {
		return nil, fmt.Errorf("unknown class %q, known classes: %s", target, strings.Join(opts.factories().Classes(), ", "))
	}
	return fn()
}

func runDescribe(opts *DescribeOptions, target string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	m, err := buildModel(opts.RootOptions, target)
	if err != nil {
		code := config.CodeOf(err)
		if code == "" {
			code = ErrCodeUnknownClass
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to build slave", err)
	}

	var docOpts []modeldesc.Option
	if opts.Timestamp {
		docOpts = append(docOpts, modeldesc.WithGenerationTime(time.Now()))
	}
	doc := modeldesc.Build(m, docOpts...)

	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		if err := modeldesc.Write(f, doc); err != nil {
			f.Close()
			return WrapExitError(ExitCommandError, "failed to write model description", err)
		}
		if err := f.Close(); err != nil {
			return WrapExitError(ExitCommandError, "failed to write model description", err)
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
		return formatter.Success(fmt.Sprintf("Wrote model description of %s to %s", m.Info().ModelName, opts.Output))
	}

	desc := Description{Model: m.Info().ModelName, GUID: m.GUID()}
	for _, v := range m.Variables() {
		s := VariableSummary{
			Name:           v.Name,
			ValueReference: v.ValueReference,
			Type:           v.Type.String(),
			Causality:      v.Causality.String(),
			Variability:    v.Variability.String(),
		}
		if v.HasInitial() {
			s.Initial = v.Initial.String()
		}
		if v.HasStart() {
			s.Start = fmi2.Primitive(v.Start)
		}
		desc.Variables = append(desc.Variables, s)
	}

	var writeErr error
	err = formatter.Emit(desc, func(w io.Writer) {
		writeErr = modeldesc.Write(w, doc)
	})
	if err != nil {
		return err
	}
	return writeErr
}
