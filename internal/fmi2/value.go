package fmi2

import (
	"fmt"
	"math"
	"strconv"
)

// Value is a sealed interface holding one scalar of a known data type.
// Only RealValue, IntegerValue, BooleanValue and StringValue implement it.
type Value interface {
	Type() DataType
	String() string
	fmi2Value() // Sealed
}

// RealValue is an fmi2Real.
type RealValue float64

func (RealValue) fmi2Value()       {}
func (RealValue) Type() DataType   { return Real }
func (v RealValue) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }

// IntegerValue is an fmi2Integer.
type IntegerValue int32

func (IntegerValue) fmi2Value()       {}
func (IntegerValue) Type() DataType   { return Integer }
func (v IntegerValue) String() string { return strconv.FormatInt(int64(v), 10) }

// BooleanValue is an fmi2Boolean.
type BooleanValue bool

func (BooleanValue) fmi2Value()       {}
func (BooleanValue) Type() DataType   { return Boolean }
func (v BooleanValue) String() string { return strconv.FormatBool(bool(v)) }

// StringValue is an fmi2String.
type StringValue string

func (StringValue) fmi2Value()       {}
func (StringValue) Type() DataType   { return String }
func (v StringValue) String() string { return string(v) }

// Zero returns the start value synthesized for a variable that requires one
// but was declared without it.
func Zero(t DataType) Value {
	switch t {
	case Real:
		return RealValue(0)
	case Integer:
		return IntegerValue(0)
	case Boolean:
		return BooleanValue(false)
	default:
		return StringValue("")
	}
}

// ValueOf wraps a Go primitive into the matching Value. The concrete Go
// type decides the data type: float64 is real, any integer kind is integer.
func ValueOf(v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return val, nil
	case float64:
		return RealValue(val), nil
	case float32:
		return RealValue(val), nil
	case int:
		return intValue(int64(val))
	case int32:
		return IntegerValue(val), nil
	case int64:
		return intValue(val)
	case bool:
		return BooleanValue(val), nil
	case string:
		return StringValue(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// Coerce converts a decoded document value (YAML, JSON or CUE) to the given
// data type. Integers widen to real; integral reals narrow to integer. Any
// other cross-family conversion is an error.
func Coerce(t DataType, v any) (Value, error) {
	val, err := ValueOf(v)
	if err != nil {
		return nil, err
	}
	if val.Type() == t {
		return val, nil
	}
	switch {
	case t == Real && val.Type() == Integer:
		return RealValue(val.(IntegerValue)), nil
	case t == Integer && val.Type() == Real:
		f := float64(val.(RealValue))
		if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
			return nil, fmt.Errorf("value %v is not representable as %s", f, t)
		}
		return IntegerValue(int32(f)), nil
	}
	return nil, fmt.Errorf("cannot use %s value %v as %s", val.Type(), val, t)
}

// Primitive unwraps a Value into its Go primitive, for encoders.
func Primitive(v Value) any {
	switch val := v.(type) {
	case RealValue:
		return float64(val)
	case IntegerValue:
		return int32(val)
	case BooleanValue:
		return bool(val)
	case StringValue:
		return string(val)
	}
	return nil
}

// Equal reports whether two values have the same type and content.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Type() == b.Type() && a == b
}

func intValue(n int64) (Value, error) {
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil, fmt.Errorf("integer %d overflows fmi2Integer", n)
	}
	return IntegerValue(int32(n)), nil
}
