package store

import (
	"fmt"
	"strconv"

	"github.com/roach88/fmu/internal/fmi2"
)

// marshalValue converts a value to its TEXT column form. Reals use the
// shortest representation that parses back to the same float64, including
// NaN and ±Inf.
func marshalValue(v fmi2.Value) (dataType, text string, err error) {
	if v == nil {
		return "", "", fmt.Errorf("marshal value: nil value")
	}
	return v.Type().String(), v.String(), nil
}

// unmarshalValue parses a TEXT column back into a value of the stored type.
func unmarshalValue(dataType, text string) (fmi2.Value, error) {
	t, err := fmi2.ParseDataType(dataType)
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	switch t {
	case fmi2.Real:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("unmarshal real: %w", err)
		}
		return fmi2.RealValue(f), nil
	case fmi2.Integer:
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("unmarshal integer: %w", err)
		}
		return fmi2.IntegerValue(n), nil
	case fmi2.Boolean:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("unmarshal boolean: %w", err)
		}
		return fmi2.BooleanValue(b), nil
	default:
		return fmi2.StringValue(text), nil
	}
}
