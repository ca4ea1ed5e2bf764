package fmi2

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DataType is the primitive family of a scalar variable.
type DataType int

const (
	Real DataType = iota
	Integer
	Boolean
	String
)

// NumDataTypes is the number of data types.
const NumDataTypes = 4

var dataTypeNames = [NumDataTypes]string{"Real", "Integer", "Boolean", "String"}

func (t DataType) String() string {
	if t < 0 || int(t) >= NumDataTypes {
		return fmt.Sprintf("DataType(%d)", int(t))
	}
	return dataTypeNames[t]
}

// Causality is the role of a variable in the black-box interface.
type Causality int

const (
	Parameter Causality = iota
	CalculatedParameter
	Input
	Output
	Local
	Independent
)

// NumCausalities is the number of causalities.
const NumCausalities = 6

var causalityNames = [NumCausalities]string{
	"parameter", "calculatedParameter", "input", "output", "local", "independent",
}

func (c Causality) String() string {
	if c < 0 || int(c) >= NumCausalities {
		return fmt.Sprintf("Causality(%d)", int(c))
	}
	return causalityNames[c]
}

// Variability describes how often a variable may change value.
type Variability int

const (
	Constant Variability = iota
	Fixed
	Tunable
	Discrete
	Continuous
)

// NumVariabilities is the number of variabilities.
const NumVariabilities = 5

var variabilityNames = [NumVariabilities]string{
	"constant", "fixed", "tunable", "discrete", "continuous",
}

func (v Variability) String() string {
	if v < 0 || int(v) >= NumVariabilities {
		return fmt.Sprintf("Variability(%d)", int(v))
	}
	return variabilityNames[v]
}

// Initial describes how the start value of a variable is determined.
// InitialNone means the attribute is absent from the model description.
type Initial int

const (
	Exact Initial = iota
	Approx
	Calculated
	InitialNone
)

// NumInitials is the number of initial kinds including InitialNone.
const NumInitials = 4

var initialNames = [NumInitials]string{"exact", "approx", "calculated", "none"}

func (i Initial) String() string {
	if i < 0 || int(i) >= NumInitials {
		return fmt.Sprintf("Initial(%d)", int(i))
	}
	return initialNames[i]
}

// FMUType is the interface kind requested at instantiation.
type FMUType int

const (
	ModelExchange FMUType = iota
	CoSimulation
)

func (t FMUType) String() string {
	switch t {
	case ModelExchange:
		return "modelExchange"
	case CoSimulation:
		return "coSimulation"
	default:
		return fmt.Sprintf("FMUType(%d)", int(t))
	}
}

// Token lookup tables keyed by the normalized (NFC, case-folded) spelling.
var (
	dataTypeTokens = map[string]DataType{
		"real": Real, "float": Real, "double": Real,
		"integer": Integer, "int": Integer,
		"boolean": Boolean, "bool": Boolean,
		"string": String, "str": String,
	}
	causalityTokens = map[string]Causality{
		"parameter":           Parameter,
		"calculatedparameter": CalculatedParameter,
		"input":               Input,
		"output":              Output,
		"local":               Local,
		"independent":         Independent,
	}
	variabilityTokens = map[string]Variability{
		"constant":   Constant,
		"fixed":      Fixed,
		"tunable":    Tunable,
		"discrete":   Discrete,
		"continuous": Continuous,
	}
	initialTokens = map[string]Initial{
		"exact":       Exact,
		"approx":      Approx,
		"approximate": Approx,
		"calculated":  Calculated,
		"none":        InitialNone,
	}
	fmuTypeTokens = map[string]FMUType{
		"modelexchange":  ModelExchange,
		"model_exchange": ModelExchange,
		"me":             ModelExchange,
		"cosimulation":   CoSimulation,
		"co_simulation":  CoSimulation,
		"cs":             CoSimulation,
	}
)

// Normalize returns the canonical lookup form of a user-supplied token:
// surrounding space trimmed, NFC normalized and case folded.
func Normalize(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// ParseError reports a token that does not name any member of an enum.
type ParseError struct {
	Kind  string
	Token string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unrecognized %s %q", e.Kind, e.Token)
}

// ParseDataType accepts the canonical names and the shorthands real/float,
// int/integer, bool/boolean and str/string.
func ParseDataType(s string) (DataType, error) {
	if t, ok := dataTypeTokens[Normalize(s)]; ok {
		return t, nil
	}
	return 0, &ParseError{Kind: "data type", Token: s}
}

// ParseCausality parses a causality token.
func ParseCausality(s string) (Causality, error) {
	if c, ok := causalityTokens[Normalize(s)]; ok {
		return c, nil
	}
	return 0, &ParseError{Kind: "causality", Token: s}
}

// ParseVariability parses a variability token.
func ParseVariability(s string) (Variability, error) {
	if v, ok := variabilityTokens[Normalize(s)]; ok {
		return v, nil
	}
	return 0, &ParseError{Kind: "variability", Token: s}
}

// ParseInitial parses an initial token.
func ParseInitial(s string) (Initial, error) {
	if i, ok := initialTokens[Normalize(s)]; ok {
		return i, nil
	}
	return 0, &ParseError{Kind: "initial", Token: s}
}

// ParseFMUType parses an FMU type token.
func ParseFMUType(s string) (FMUType, error) {
	if t, ok := fmuTypeTokens[Normalize(s)]; ok {
		return t, nil
	}
	return 0, &ParseError{Kind: "fmu type", Token: s}
}
