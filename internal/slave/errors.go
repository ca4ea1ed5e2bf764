package slave

import (
	"errors"
	"fmt"

	"github.com/roach88/fmu/internal/fmi2"
)

// AccessErrorCode categorizes rejected get/set batches.
type AccessErrorCode string

const (
	// ErrCodeTypeMismatch indicates a reference whose declared type differs
	// from the requested primitive family.
	ErrCodeTypeMismatch AccessErrorCode = "TYPE_MISMATCH"

	// ErrCodeUnknownReference indicates a value reference no variable has.
	ErrCodeUnknownReference AccessErrorCode = "UNKNOWN_REFERENCE"

	// ErrCodeLengthMismatch indicates a values or output buffer of the wrong
	// length.
	ErrCodeLengthMismatch AccessErrorCode = "LENGTH_MISMATCH"

	// ErrCodeNotWritable indicates a write to a constant or independent
	// variable.
	ErrCodeNotWritable AccessErrorCode = "NOT_WRITABLE"

	// ErrCodeUnknownVariable indicates a lookup by a name never declared.
	ErrCodeUnknownVariable AccessErrorCode = "UNKNOWN_VARIABLE"
)

// AccessError rejects a whole get/set batch. No slot and no output buffer
// is modified when one is returned.
type AccessError struct {
	Code     AccessErrorCode
	Ref      uint32
	Variable string
	Message  string
}

// Error implements the error interface.
func (e *AccessError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("%s: %s (vr=%d, variable=%s)", e.Code, e.Message, e.Ref, e.Variable)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func typeMismatch(s *slot, requested fmi2.DataType) *AccessError {
	return &AccessError{
		Code:     ErrCodeTypeMismatch,
		Ref:      s.spec.ValueReference,
		Variable: s.spec.Name,
		Message:  fmt.Sprintf("variable is %s, requested %s", s.spec.Type, requested),
	}
}

// IsTypeMismatch returns true if err is a type mismatch.
func IsTypeMismatch(err error) bool {
	var ae *AccessError
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeTypeMismatch
	}
	return false
}

// IsUnknownReference returns true if err names a missing value reference.
func IsUnknownReference(err error) bool {
	var ae *AccessError
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeUnknownReference
	}
	return false
}

// LifecycleError reports an operation called in a state that does not
// permit it.
type LifecycleError struct {
	Op    string
	State State
}

// Error implements the error interface.
func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", e.Op, e.State)
}

// IsLifecycleError returns true if err is a lifecycle violation.
func IsLifecycleError(err error) bool {
	var le *LifecycleError
	return errors.As(err, &le)
}

// HookPanicError wraps a panic recovered from a slave hook.
type HookPanicError struct {
	Op    string
	Value any
}

// Error implements the error interface.
func (e *HookPanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Op, e.Value)
}

// StatusFromError maps an error to the status reported to the host. A
// recovered panic is fatal; every other failure is an error.
func StatusFromError(err error) fmi2.Status {
	if err == nil {
		return fmi2.OK
	}
	var hp *HookPanicError
	if errors.As(err, &hp) {
		return fmi2.Fatal
	}
	return fmi2.Error
}
