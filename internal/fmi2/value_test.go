package fmi2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZero(t *testing.T) {
	assert.Equal(t, RealValue(0), Zero(Real))
	assert.Equal(t, IntegerValue(0), Zero(Integer))
	assert.Equal(t, BooleanValue(false), Zero(Boolean))
	assert.Equal(t, StringValue(""), Zero(String))
}

func TestValueOf_InfersType(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want DataType
	}{
		{"float64", 1.5, Real},
		{"int", 3, Integer},
		{"int64", int64(3), Integer},
		{"bool", true, Boolean},
		{"string", "x", String},
		{"value passthrough", IntegerValue(4), Integer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ValueOf(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Type())
		})
	}
}

func TestValueOf_Rejects(t *testing.T) {
	_, err := ValueOf([]int{1})
	assert.Error(t, err)

	_, err = ValueOf(int64(1) << 40)
	assert.Error(t, err, "overflow must be rejected")
}

func TestCoerce(t *testing.T) {
	v, err := Coerce(Real, 2)
	require.NoError(t, err)
	assert.Equal(t, RealValue(2), v)

	v, err = Coerce(Integer, 4.0)
	require.NoError(t, err)
	assert.Equal(t, IntegerValue(4), v)

	_, err = Coerce(Integer, 4.5)
	assert.Error(t, err)

	_, err = Coerce(Boolean, "true")
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(RealValue(1), RealValue(1)))
	assert.False(t, Equal(RealValue(1), IntegerValue(1)))
	assert.False(t, Equal(RealValue(1), nil))
	assert.True(t, Equal(nil, nil))
}

func TestPrimitive(t *testing.T) {
	assert.Equal(t, 1.5, Primitive(RealValue(1.5)))
	assert.Equal(t, int32(2), Primitive(IntegerValue(2)))
	assert.Equal(t, "s", Primitive(StringValue("s")))
	assert.Equal(t, "2.5", RealValue(2.5).String())
}

func TestValue_StringThroughInterface(t *testing.T) {
	values := []Value{RealValue(0.25), IntegerValue(-3), BooleanValue(true), StringValue("on")}
	var got []string
	for _, v := range values {
		got = append(got, v.String())
	}
	assert.Equal(t, []string{"0.25", "-3", "true", "on"}, got)
}
