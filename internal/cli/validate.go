package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fmu/internal/config"
	"github.com/roach88/fmu/internal/variable"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	File      string            `json:"file"`
	Model     string            `json:"model,omitempty"`
	Variables int               `json:"variables"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// ValidationError is one rejected declaration.
type ValidationError struct {
	Code     string `json:"code"`
	Variable string `json:"variable,omitempty"`
	Message  string `json:"message"`
	Line     int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <declarations.cue>",
		Short: "Check variable declarations against the FMI 2.0 rules",
		Long: `Check a CUE variable declaration file without instantiating it.

Every variable is validated on its own, so all invalid declarations are
reported at once together with their line numbers.

Example:
  fmu validate ./resources/adder.cue
  fmu validate ./resources/adder.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	decls, err := config.LoadDeclarations(path)
	if err != nil {
		if config.CodeOf(err) == config.ErrCodeReadFailed {
			_ = formatter.Error(config.ErrCodeReadFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read declarations", err)
		}
		result := ValidationResult{File: path, Errors: []ValidationError{toValidationError(err)}}
		return outputValidation(formatter, result)
	}
	formatter.VerboseLog("Loaded %d declaration(s) from %s", len(decls.Variables), path)

	result := ValidationResult{
		Valid:     true,
		File:      path,
		Model:     decls.Info.ModelName,
		Variables: len(decls.Variables),
	}
	for _, err := range decls.Check() {
		result.Errors = append(result.Errors, toValidationError(err))
	}
	result.Valid = len(result.Errors) == 0
	return outputValidation(formatter, result)
}

func toValidationError(err error) ValidationError {
	ve := ValidationError{Code: config.CodeOf(err), Message: err.Error()}
	var le *config.LoadError
	if errors.As(err, &le) {
		ve.Message = le.Message
		if le.Pos.IsValid() {
			ve.Line = le.Pos.Line()
		}
	}
	var ce *variable.ConfigError
	if errors.As(err, &ce) {
		ve.Code = ce.Code
		ve.Variable = ce.Variable
		ve.Message = ce.Message
	}
	if ve.Code == "" {
		ve.Code = ErrCodeGeneric
	}
	return ve
}

func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	err := formatter.Emit(result, func(w io.Writer) {
		if result.Valid {
			fmt.Fprintf(w, "OK: %s declares %d variable(s) (%s)\n", result.Model, result.Variables, result.File)
			return
		}
		fmt.Fprintf(w, "%s: %d error(s)\n", result.File, len(result.Errors))
		for _, e := range result.Errors {
			loc := ""
			if e.Line > 0 {
				loc = fmt.Sprintf("line %d: ", e.Line)
			}
			name := ""
			if e.Variable != "" {
				name = e.Variable + ": "
			}
			fmt.Fprintf(w, "  %s[%s] %s%s\n", loc, e.Code, name, e.Message)
		}
	})
	if err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}
