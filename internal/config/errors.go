package config

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Configuration error codes (E300-E399)
const (
	ErrCodeReadFailed   = "E301" // file could not be read
	ErrCodeInvalidJSON  = "E302" // side-car is not valid JSON
	ErrCodeSchema       = "E303" // document violates the schema
	ErrCodeLegacyKeys   = "E304" // slave_script/slave_class keys
	ErrCodeScriptPath   = "E305" // main_script escapes or is missing from resources
	ErrCodeBuildFailed  = "E306" // CUE build failed
	ErrCodeDeclaration  = "E307" // a variable declaration is invalid
	ErrCodeResourcesURI = "E308" // resources location is not a usable file URI
)

// LoadError reports a configuration problem, with the CUE source position
// when one is known.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// CodeOf returns the configuration error code carried by err, or "".
func CodeOf(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// fromCUE converts the first CUE error into a LoadError with its position.
func fromCUE(code string, err error) *LoadError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error(), Err: err}
	}
	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error(), Err: err}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
