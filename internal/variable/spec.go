// Package variable builds validated scalar variable declarations.
//
// New runs the declaration pipeline in a fixed order and fails fast with a
// *ConfigError naming the violated rule:
//
//  1. normalize type, causality, variability and initial tokens
//  2. check the (variability, causality) pair
//  3. default initial when unset, then check it against the allowed set
//  4. synthesize or reject the start value
//  5. infer the data type from the start value when unset
//  6. check the start value type and the real-only continuous rule
//  7. allocate a value reference unless one was given
//
// The allowed-initial check runs directly after defaulting so that the
// start-value rules only ever see legal triples.
package variable

import (
	"errors"
	"fmt"

	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/rules"
)

// Options is a raw, user-supplied declaration. Empty strings mean "not
// given". Start may be nil, an fmi2.Value or a Go primitive.
type Options struct {
	Type           string
	Causality      string
	Variability    string
	Initial        string
	Start          any
	Description    string
	ValueReference *uint32
}

// Spec is a validated scalar variable. Specs are immutable once built.
type Spec struct {
	Name           string           `json:"name"`
	Type           fmi2.DataType    `json:"type"`
	Causality      fmi2.Causality   `json:"causality"`
	Variability    fmi2.Variability `json:"variability"`
	Initial        fmi2.Initial     `json:"initial"`
	Start          fmi2.Value       `json:"start,omitempty"`
	Description    string           `json:"description,omitempty"`
	ValueReference uint32           `json:"value_reference"`
}

// HasInitial reports whether the initial attribute is emitted.
func (s *Spec) HasInitial() bool { return s.Initial != fmi2.InitialNone }

// HasStart reports whether the variable carries a start value.
func (s *Spec) HasStart() bool { return s.Start != nil }

func (s *Spec) String() string {
	return fmt.Sprintf("%s(vr=%d %s %s/%s/%s)", s.Name, s.ValueReference, s.Type, s.Causality, s.Variability, s.Initial)
}

// Ref is a convenience for explicit value references in Options.
func Ref(vr uint32) *uint32 { return &vr }

// New validates a declaration and allocates its value reference from alloc.
// alloc is only touched when every other check has passed.
func New(name string, opts Options, alloc *Allocator) (*Spec, error) {
	fail := func(code, msg string, err error) (*Spec, error) {
		return nil, &ConfigError{Variable: name, Code: code, Message: msg, Err: err}
	}
	if name == "" {
		return fail(ErrEmptyName, "variable name is required", nil)
	}

	// 1. normalize
	s := &Spec{Name: name, Description: opts.Description, Initial: fmi2.InitialNone}
	typeKnown := false
	if opts.Type != "" {
		t, err := fmi2.ParseDataType(opts.Type)
		if err != nil {
			return fail(ErrBadToken, err.Error(), err)
		}
		s.Type, typeKnown = t, true
	}
	s.Causality = fmi2.Local
	if opts.Causality != "" {
		c, err := fmi2.ParseCausality(opts.Causality)
		if err != nil {
			return fail(ErrBadToken, err.Error(), err)
		}
		s.Causality = c
	}
	s.Variability = fmi2.Continuous
	if opts.Variability != "" {
		v, err := fmi2.ParseVariability(opts.Variability)
		if err != nil {
			return fail(ErrBadToken, err.Error(), err)
		}
		s.Variability = v
	}
	initialGiven := false
	if opts.Initial != "" {
		i, err := fmi2.ParseInitial(opts.Initial)
		if err != nil {
			return fail(ErrBadToken, err.Error(), err)
		}
		s.Initial, initialGiven = i, i != fmi2.InitialNone
	}
	var start fmi2.Value
	if opts.Start != nil {
		v, err := fmi2.ValueOf(opts.Start)
		if err != nil {
			return fail(ErrBadStart, err.Error(), err)
		}
		start = v
	}

	// 2. pair legality
	if err := rules.Validate(s.Variability, s.Causality); err != nil {
		return fail(ErrIllegalCombination, err.Error(), err)
	}

	// 3. initial
	if !initialGiven {
		def, err := rules.DefaultInitial(s.Variability, s.Causality)
		if err != nil {
			return fail(ErrIllegalCombination, err.Error(), err)
		}
		s.Initial = def
	}
	if err := rules.CheckInitial(s.Variability, s.Causality, s.Initial); err != nil {
		return fail(ErrInitialNotAllowed, err.Error(), err)
	}

	// 4. start requirement
	switch {
	case rules.StartRequired(s.Variability, s.Causality, s.Initial) && start == nil:
		if !typeKnown {
			return fail(ErrStartUnknownType, fmt.Sprintf(
				"a start value is required for %s/%s with initial %s, and no data type was given to synthesize one",
				s.Variability, s.Causality, s.Initial), nil)
		}
		start = fmi2.Zero(s.Type)
	case rules.StartForbidden(s.Variability, s.Causality, s.Initial) && start != nil:
		return fail(ErrStartForbidden, fmt.Sprintf(
			"a start value must not be given for %s/%s with initial %s", s.Variability, s.Causality, s.Initial), nil)
	}

	// 5. type inference
	if !typeKnown {
		if start == nil {
			return fail(ErrTypeUnresolved, "data type is required when no start value is given", nil)
		}
		s.Type = start.Type()
	}

	// 6. type checks
	if start != nil && start.Type() != s.Type {
		return fail(ErrStartTypeMismatch, fmt.Sprintf(
			"start value %v is %s, declared type is %s", start, start.Type(), s.Type), nil)
	}
	if s.Variability == fmi2.Continuous && s.Type != fmi2.Real {
		return fail(ErrContinuousNonReal, fmt.Sprintf(
			"only Real variables may be continuous, got %s", s.Type), nil)
	}
	s.Start = start

	// 7. value reference
	if alloc == nil {
		return fail(ErrReferenceInUse, "no value reference allocator", errors.New("nil allocator"))
	}
	if opts.ValueReference != nil {
		if err := alloc.Reserve(*opts.ValueReference); err != nil {
			return fail(ErrReferenceInUse, err.Error(), err)
		}
		s.ValueReference = *opts.ValueReference
	} else {
		s.ValueReference = alloc.Next()
	}
	return s, nil
}
