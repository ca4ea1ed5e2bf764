// Package rules encodes the FMI 2.0 legality table for scalar variables:
// which (variability, causality) pairs are permitted, which initial kinds
// each pair admits, and when a start value is required or forbidden.
//
// The table is a fixed array indexed by enum ordinals and is built once at
// package initialization. Every lookup is O(1) and allocation free.
package rules

import (
	"fmt"
	"slices"

	"github.com/roach88/fmu/internal/fmi2"
)

// Rule violation codes (E100-E199)
const (
	ErrConstantWithInput        = "E101" // constant with parameter, calculatedParameter or input
	ErrDiscreteAsParameter      = "E102" // discrete/continuous with parameter or calculatedParameter
	ErrIndependentNotContinuous = "E103" // independent with anything but continuous
	ErrFixedTunableInput        = "E104" // fixed/tunable input
	ErrFixedTunableOutput       = "E105" // fixed/tunable output
	ErrInitialNotAllowed        = "E106" // initial outside the allowed set
	ErrIllegalPair              = "E107" // lookup on an illegal pair
	ErrOutOfRange               = "E108" // enum ordinal outside its range
)

// Error reports a violated legality rule.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Pair is a (variability, causality) combination.
type Pair struct {
	Variability fmi2.Variability
	Causality   fmi2.Causality
}

func (p Pair) String() string {
	return p.Variability.String() + "/" + p.Causality.String()
}

type entry struct {
	err     *Error
	initial fmi2.Initial
	allowed []fmi2.Initial
}

var table [fmi2.NumVariabilities][fmi2.NumCausalities]entry

var (
	errA = &Error{Code: ErrConstantWithInput, Message: "a constant with causality parameter, calculatedParameter or input makes no sense: a parameter is meant to be changed by the environment and an input is expected to change"}
	errB = &Error{Code: ErrDiscreteAsParameter, Message: "discrete or continuous variability with causality parameter or calculatedParameter makes no sense: a parameter does not change during simulation"}
	errC = &Error{Code: ErrIndependentNotContinuous, Message: "causality independent is only allowed with variability continuous: the independent variable is time"}
	errD = &Error{Code: ErrFixedTunableInput, Message: "a fixed or tunable input is a parameter and should be declared with causality parameter"}
	errE = &Error{Code: ErrFixedTunableOutput, Message: "a fixed or tunable output is a calculated parameter and should be declared with causality calculatedParameter"}
)

// The four initial cases of the FMI 2.0 standard (table in section 2.2.7).
var (
	caseA = entry{initial: fmi2.Exact, allowed: []fmi2.Initial{fmi2.Exact}}
	caseB = entry{initial: fmi2.Calculated, allowed: []fmi2.Initial{fmi2.Approx, fmi2.Calculated}}
	caseC = entry{initial: fmi2.Calculated, allowed: []fmi2.Initial{fmi2.Exact, fmi2.Approx, fmi2.Calculated}}
	caseD = entry{initial: fmi2.InitialNone, allowed: []fmi2.Initial{fmi2.InitialNone}}
)

func init() {
	const (
		par  = fmi2.Parameter
		cpar = fmi2.CalculatedParameter
		in   = fmi2.Input
		out  = fmi2.Output
		loc  = fmi2.Local
		ind  = fmi2.Independent
	)
	set := func(v fmi2.Variability, e entry, cs ...fmi2.Causality) {
		for _, c := range cs {
			table[v][c] = e
		}
	}
	illegal := func(v fmi2.Variability, err *Error, cs ...fmi2.Causality) {
		for _, c := range cs {
			table[v][c] = entry{err: err}
		}
	}

	illegal(fmi2.Constant, errA, par, cpar, in)
	illegal(fmi2.Constant, errC, ind)
	set(fmi2.Constant, caseA, out, loc)

	for _, v := range []fmi2.Variability{fmi2.Fixed, fmi2.Tunable} {
		set(v, caseA, par)
		set(v, caseB, cpar, loc)
		illegal(v, errD, in)
		illegal(v, errE, out)
		illegal(v, errC, ind)
	}

	illegal(fmi2.Discrete, errB, par, cpar)
	illegal(fmi2.Discrete, errC, ind)
	set(fmi2.Discrete, caseC, out, loc)
	set(fmi2.Discrete, caseD, in)

	illegal(fmi2.Continuous, errB, par, cpar)
	set(fmi2.Continuous, caseC, out, loc)
	set(fmi2.Continuous, caseD, in, ind)
}

func lookup(v fmi2.Variability, c fmi2.Causality) (*entry, error) {
	if v < 0 || int(v) >= fmi2.NumVariabilities || c < 0 || int(c) >= fmi2.NumCausalities {
		return nil, &Error{Code: ErrOutOfRange, Message: fmt.Sprintf("no rule for %s/%s", v, c)}
	}
	return &table[v][c], nil
}

// Validate returns nil for a legal pair and a *Error naming the violated
// rule otherwise.
func Validate(v fmi2.Variability, c fmi2.Causality) error {
	e, err := lookup(v, c)
	if err != nil {
		return err
	}
	if e.err != nil {
		return e.err
	}
	return nil
}

// DefaultInitial returns the initial kind assumed when none is declared.
// InitialNone means the pair carries no initial attribute.
func DefaultInitial(v fmi2.Variability, c fmi2.Causality) (fmi2.Initial, error) {
	e, err := legal(v, c)
	if err != nil {
		return 0, err
	}
	return e.initial, nil
}

// AllowedInitials returns the initial kinds permitted for a legal pair.
// The returned slice is a copy.
func AllowedInitials(v fmi2.Variability, c fmi2.Causality) ([]fmi2.Initial, error) {
	e, err := legal(v, c)
	if err != nil {
		return nil, err
	}
	return slices.Clone(e.allowed), nil
}

// CheckInitial verifies that i is permitted for the pair.
func CheckInitial(v fmi2.Variability, c fmi2.Causality, i fmi2.Initial) error {
	e, err := legal(v, c)
	if err != nil {
		return err
	}
	if !slices.Contains(e.allowed, i) {
		return &Error{
			Code:    ErrInitialNotAllowed,
			Message: fmt.Sprintf("initial %s is not allowed for %s/%s, allowed: %v", i, v, c, e.allowed),
		}
	}
	return nil
}

// StartRequired reports whether a start value must be present.
func StartRequired(v fmi2.Variability, c fmi2.Causality, i fmi2.Initial) bool {
	return i == fmi2.Exact || i == fmi2.Approx ||
		c == fmi2.Parameter || c == fmi2.Input ||
		v == fmi2.Constant
}

// StartForbidden reports whether a start value must be absent. For every
// legal (v, c, i) triple this is the negation of StartRequired.
func StartForbidden(v fmi2.Variability, c fmi2.Causality, i fmi2.Initial) bool {
	return i == fmi2.Calculated || c == fmi2.Independent
}

// Legal enumerates the permitted pairs in ordinal order.
func Legal() []Pair {
	var pairs []Pair
	for v := fmi2.Variability(0); v < fmi2.NumVariabilities; v++ {
		for c := fmi2.Causality(0); c < fmi2.NumCausalities; c++ {
			if table[v][c].err == nil {
				pairs = append(pairs, Pair{Variability: v, Causality: c})
			}
		}
	}
	return pairs
}

func legal(v fmi2.Variability, c fmi2.Causality) (*entry, error) {
	e, err := lookup(v, c)
	if err != nil {
		return nil, err
	}
	if e.err != nil {
		return nil, &Error{
			Code:    ErrIllegalPair,
			Message: fmt.Sprintf("%s/%s is not a legal combination: %s", v, c, e.err.Message),
		}
	}
	return e, nil
}
