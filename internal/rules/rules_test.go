package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fmu/internal/fmi2"
)

// illegalPairs is written out independently of the table so that the test
// catches an accidental edit to init().
var illegalPairs = map[Pair]string{
	{fmi2.Constant, fmi2.Parameter}:             ErrConstantWithInput,
	{fmi2.Constant, fmi2.CalculatedParameter}:   ErrConstantWithInput,
	{fmi2.Constant, fmi2.Input}:                 ErrConstantWithInput,
	{fmi2.Constant, fmi2.Independent}:           ErrIndependentNotContinuous,
	{fmi2.Fixed, fmi2.Input}:                    ErrFixedTunableInput,
	{fmi2.Fixed, fmi2.Output}:                   ErrFixedTunableOutput,
	{fmi2.Fixed, fmi2.Independent}:              ErrIndependentNotContinuous,
	{fmi2.Tunable, fmi2.Input}:                  ErrFixedTunableInput,
	{fmi2.Tunable, fmi2.Output}:                 ErrFixedTunableOutput,
	{fmi2.Tunable, fmi2.Independent}:            ErrIndependentNotContinuous,
	{fmi2.Discrete, fmi2.Parameter}:             ErrDiscreteAsParameter,
	{fmi2.Discrete, fmi2.CalculatedParameter}:   ErrDiscreteAsParameter,
	{fmi2.Discrete, fmi2.Independent}:           ErrIndependentNotContinuous,
	{fmi2.Continuous, fmi2.Parameter}:           ErrDiscreteAsParameter,
	{fmi2.Continuous, fmi2.CalculatedParameter}: ErrDiscreteAsParameter,
}

func allPairs() []Pair {
	var pairs []Pair
	for v := fmi2.Variability(0); v < fmi2.NumVariabilities; v++ {
		for c := fmi2.Causality(0); c < fmi2.NumCausalities; c++ {
			pairs = append(pairs, Pair{v, c})
		}
	}
	return pairs
}

func TestValidate_AllThirtyPairs(t *testing.T) {
	pairs := allPairs()
	require.Len(t, pairs, 30)

	for _, p := range pairs {
		t.Run(p.String(), func(t *testing.T) {
			err := Validate(p.Variability, p.Causality)
			code, isIllegal := illegalPairs[p]
			if !isIllegal {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var re *Error
			require.ErrorAs(t, err, &re)
			assert.Equal(t, code, re.Code)
		})
	}
}

func TestLegal_FixedSize(t *testing.T) {
	legal := Legal()
	assert.Len(t, legal, 30-len(illegalPairs))
	assert.Len(t, legal, 15)
	for _, p := range legal {
		_, isIllegal := illegalPairs[p]
		assert.False(t, isIllegal, p.String())
	}
}

func TestDefaultInitial_IsAllowed(t *testing.T) {
	for _, p := range Legal() {
		t.Run(p.String(), func(t *testing.T) {
			def, err := DefaultInitial(p.Variability, p.Causality)
			require.NoError(t, err)
			allowed, err := AllowedInitials(p.Variability, p.Causality)
			require.NoError(t, err)
			assert.Contains(t, allowed, def)
			assert.NoError(t, CheckInitial(p.Variability, p.Causality, def))
		})
	}
}

func TestDefaultInitial_Cases(t *testing.T) {
	tests := []struct {
		v       fmi2.Variability
		c       fmi2.Causality
		want    fmi2.Initial
		allowed []fmi2.Initial
	}{
		{fmi2.Constant, fmi2.Output, fmi2.Exact, []fmi2.Initial{fmi2.Exact}},
		{fmi2.Tunable, fmi2.Parameter, fmi2.Exact, []fmi2.Initial{fmi2.Exact}},
		{fmi2.Fixed, fmi2.Local, fmi2.Calculated, []fmi2.Initial{fmi2.Approx, fmi2.Calculated}},
		{fmi2.Continuous, fmi2.Output, fmi2.Calculated, []fmi2.Initial{fmi2.Exact, fmi2.Approx, fmi2.Calculated}},
		{fmi2.Discrete, fmi2.Input, fmi2.InitialNone, []fmi2.Initial{fmi2.InitialNone}},
		{fmi2.Continuous, fmi2.Independent, fmi2.InitialNone, []fmi2.Initial{fmi2.InitialNone}},
	}
	for _, tt := range tests {
		t.Run(Pair{tt.v, tt.c}.String(), func(t *testing.T) {
			got, err := DefaultInitial(tt.v, tt.c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			allowed, err := AllowedInitials(tt.v, tt.c)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, allowed)
		})
	}
}

func TestLookupOnIllegalPair(t *testing.T) {
	_, err := DefaultInitial(fmi2.Constant, fmi2.Input)
	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrIllegalPair, re.Code)

	_, err = AllowedInitials(fmi2.Fixed, fmi2.Output)
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrIllegalPair, re.Code)
}

func TestOutOfRange(t *testing.T) {
	err := Validate(fmi2.Variability(7), fmi2.Input)
	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrOutOfRange, re.Code)
}

func TestCheckInitial_Rejects(t *testing.T) {
	err := CheckInitial(fmi2.Continuous, fmi2.Input, fmi2.Exact)
	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrInitialNotAllowed, re.Code)
	assert.Contains(t, err.Error(), "exact")
}

// Start required and start forbidden partition every legal triple.
func TestStartRequiredAndForbiddenAreExclusive(t *testing.T) {
	for _, p := range Legal() {
		allowed, err := AllowedInitials(p.Variability, p.Causality)
		require.NoError(t, err)
		for _, i := range allowed {
			req := StartRequired(p.Variability, p.Causality, i)
			forb := StartForbidden(p.Variability, p.Causality, i)
			assert.NotEqual(t, req, forb, "%s initial=%s", p, i)
		}
	}
}

func TestStartRequired(t *testing.T) {
	assert.True(t, StartRequired(fmi2.Continuous, fmi2.Input, fmi2.InitialNone))
	assert.True(t, StartRequired(fmi2.Fixed, fmi2.Parameter, fmi2.Exact))
	assert.True(t, StartRequired(fmi2.Constant, fmi2.Output, fmi2.Exact))
	assert.True(t, StartRequired(fmi2.Continuous, fmi2.Output, fmi2.Approx))
	assert.False(t, StartRequired(fmi2.Continuous, fmi2.Output, fmi2.Calculated))
	assert.False(t, StartRequired(fmi2.Continuous, fmi2.Independent, fmi2.InitialNone))
}

func TestStartForbidden(t *testing.T) {
	assert.True(t, StartForbidden(fmi2.Continuous, fmi2.Output, fmi2.Calculated))
	assert.True(t, StartForbidden(fmi2.Continuous, fmi2.Independent, fmi2.InitialNone))
	assert.False(t, StartForbidden(fmi2.Continuous, fmi2.Input, fmi2.InitialNone))
}

func TestAllowedInitials_ReturnsCopy(t *testing.T) {
	a, err := AllowedInitials(fmi2.Continuous, fmi2.Output)
	require.NoError(t, err)
	a[0] = fmi2.InitialNone

	b, err := AllowedInitials(fmi2.Continuous, fmi2.Output)
	require.NoError(t, err)
	assert.Equal(t, fmi2.Exact, b[0])
}
