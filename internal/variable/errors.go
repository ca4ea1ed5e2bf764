package variable

import (
	"errors"
	"fmt"
)

// Declaration error codes (E200-E299)
const (
	ErrEmptyName          = "E201" // variable name is empty
	ErrBadToken           = "E202" // unrecognized type/causality/variability/initial
	ErrIllegalCombination = "E203" // variability/causality pair not permitted
	ErrInitialNotAllowed  = "E204" // initial outside the allowed set for the pair
	ErrStartUnknownType   = "E205" // start required but neither start nor type given
	ErrStartForbidden     = "E206" // start given where it must be absent
	ErrTypeUnresolved     = "E207" // no type and no start to infer it from
	ErrStartTypeMismatch  = "E208" // start value of a different data type
	ErrContinuousNonReal  = "E209" // only real variables may be continuous
	ErrReferenceInUse     = "E210" // explicit value reference already taken
	ErrBadStart           = "E211" // start value is not an fmi2 primitive
	ErrDuplicateName      = "E212" // name already declared in this instance
)

// ConfigError reports a variable declaration that violates the FMI 2.0
// rules. It is raised at registration time and aborts construction of the
// whole slave.
type ConfigError struct {
	Variable string `json:"variable"`
	Code     string `json:"code"`
	Message  string `json:"message"`

	// Err is the underlying rules or parse error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Variable, e.Message)
}

// Unwrap exposes the underlying rule violation.
func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// CodeOf returns the declaration error code carried by err, or "".
func CodeOf(err error) string {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
