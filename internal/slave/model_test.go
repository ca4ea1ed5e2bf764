package slave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/fmilog"
	"github.com/roach88/fmu/internal/variable"
)

// adder computes c = a + b on every step.
type adder struct {
	NopHooks
	a, b, c Var[float64]
}

func newAdder(t *testing.T) (*Model, *adder) {
	t.Helper()
	h := &adder{}
	m := New(Info{ModelName: "Adder"}, WithHooks(h))
	_, err := m.Register("a", variable.Options{Type: "real", Causality: "input", Start: 0.0})
	require.NoError(t, err)
	_, err = m.Register("b", variable.Options{Type: "real", Causality: "input", Start: 0.0})
	require.NoError(t, err)
	_, err = m.Register("c", variable.Options{Type: "real", Causality: "output", Initial: "calculated"})
	require.NoError(t, err)
	h.a = MustLookup[float64](m, "a")
	h.b = MustLookup[float64](m, "b")
	h.c = MustLookup[float64](m, "c")
	return m, h
}

func (h *adder) DoStep(float64, float64, bool) fmi2.Status {
	h.c.Set(h.a.Get() + h.b.Get())
	return fmi2.OK
}

func initialize(t *testing.T, m *Model) {
	t.Helper()
	_, err := m.SetupExperiment(0, nil, nil)
	require.NoError(t, err)
	_, err = m.EnterInitializationMode()
	require.NoError(t, err)
	_, err = m.ExitInitializationMode()
	require.NoError(t, err)
}

func TestAdder_EndToEnd(t *testing.T) {
	m, _ := newAdder(t)
	initialize(t, m)

	a, _ := m.Variable("a")
	b, _ := m.Variable("b")
	c, _ := m.Variable("c")

	require.Equal(t, fmi2.OK, m.SetReal([]uint32{a.ValueReference, b.ValueReference}, []float64{1, 2}))
	status, err := m.DoStep(0, 1, false)
	require.NoError(t, err)
	require.Equal(t, fmi2.OK, status)

	out := make([]float64, 1)
	require.NoError(t, m.GetReal([]uint32{c.ValueReference}, out))
	assert.Equal(t, []float64{3}, out)
	assert.Equal(t, 1.0, m.Time())
}

func TestRegister_SequentialReferences(t *testing.T) {
	m, _ := newAdder(t)
	var refs []uint32
	for _, v := range m.Variables() {
		refs = append(refs, v.ValueReference)
	}
	assert.Equal(t, []uint32{0, 1, 2}, refs)
}

func TestRegister_DuplicateName(t *testing.T) {
	m, _ := newAdder(t)
	_, err := m.Register("a", variable.Options{Type: "real"})
	assert.Equal(t, variable.ErrDuplicateName, variable.CodeOf(err))
}

func TestRegister_ConfigErrorPropagates(t *testing.T) {
	m := New(Info{ModelName: "m"})
	_, err := m.Register("x", variable.Options{Type: "real", Causality: "input", Initial: "exact"})
	require.Error(t, err)
	assert.True(t, variable.IsConfigError(err))
	assert.Empty(t, m.Variables())
}

func TestRegister_AfterInitializationIsRejected(t *testing.T) {
	m, _ := newAdder(t)
	initialize(t, m)

	_, err := m.Register("late", variable.Options{Type: "real"})
	require.Error(t, err)
	assert.True(t, IsLifecycleError(err))
	assert.Len(t, m.Variables(), 3)
}

func TestRegister_DuringInitializationIsAllowed(t *testing.T) {
	m, _ := newAdder(t)
	_, err := m.EnterInitializationMode()
	require.NoError(t, err)

	_, err = m.Register("d", variable.Options{Type: "real"})
	assert.NoError(t, err)
}

func TestRegister_PresetOverwrittenByDifferingStart(t *testing.T) {
	m := New(Info{ModelName: "m"})
	m.Logger().SetDebugLogging(true, []string{fmilog.LogStatusWarning})

	require.NoError(t, m.Preset("k", 5.0))
	_, err := m.Register("k", variable.Options{Causality: "parameter", Variability: "fixed", Start: 7.0})
	require.NoError(t, err)

	v, err := m.Value("k")
	require.NoError(t, err)
	assert.Equal(t, fmi2.RealValue(7), v)

	msgs, err := m.Logger().PopMessages(1)
	require.NoError(t, err)
	assert.Equal(t, fmi2.Warning, msgs[0].Status)
	assert.Contains(t, msgs[0].Text, "differs from declared start")
}

func TestRegister_PresetKeptForCalculated(t *testing.T) {
	m := New(Info{ModelName: "m"})
	require.NoError(t, m.Preset("y", 4.0))
	_, err := m.Register("y", variable.Options{Type: "real", Causality: "output"})
	require.NoError(t, err)

	v, err := m.Value("y")
	require.NoError(t, err)
	assert.Equal(t, fmi2.RealValue(4), v)
}

func TestRegister_PresetTypeMismatch(t *testing.T) {
	m := New(Info{ModelName: "m"})
	require.NoError(t, m.Preset("y", "text"))
	_, err := m.Register("y", variable.Options{Type: "real", Causality: "output"})
	assert.Equal(t, variable.ErrStartTypeMismatch, variable.CodeOf(err))

	// the rejected declaration must not consume a reference
	spec, err := m.RegisterInput("u", 0.0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), spec.ValueReference)
}

func TestRegisterShortcuts(t *testing.T) {
	m := New(Info{ModelName: "m"})

	in, err := m.RegisterInput("flag", true)
	require.NoError(t, err)
	assert.Equal(t, fmi2.Boolean, in.Type)
	assert.Equal(t, fmi2.Discrete, in.Variability)

	out, err := m.RegisterOutput("y", "real")
	require.NoError(t, err)
	assert.Equal(t, fmi2.Continuous, out.Variability)
	assert.Equal(t, fmi2.Calculated, out.Initial)

	p, err := m.RegisterParameter("gain", 2.0)
	require.NoError(t, err)
	assert.Equal(t, fmi2.Tunable, p.Variability)
	assert.Equal(t, fmi2.Exact, p.Initial)
}

func TestComputedBinding(t *testing.T) {
	m := New(Info{ModelName: "m"})
	n := 0.0
	_, err := m.RegisterOutput("y", "real", Computed(func() float64 { n++; return n }))
	require.NoError(t, err)

	out := make([]float64, 1)
	require.NoError(t, m.GetReal([]uint32{0}, out))
	require.NoError(t, m.GetReal([]uint32{0}, out))
	assert.Equal(t, 2.0, out[0])
}

func TestSetterBinding(t *testing.T) {
	m := New(Info{ModelName: "m"})
	var seen []fmi2.Value
	_, err := m.RegisterInput("u", 0.0, WithSetter(func(v fmi2.Value) { seen = append(seen, v) }))
	require.NoError(t, err)

	require.Equal(t, fmi2.OK, m.SetReal([]uint32{0}, []float64{3}))
	assert.Equal(t, []fmi2.Value{fmi2.RealValue(3)}, seen)
}

func TestGUID_Deterministic(t *testing.T) {
	m1, _ := newAdder(t)
	m2, _ := newAdder(t)
	assert.Equal(t, m1.GUID(), m2.GUID())
	assert.Regexp(t, `^\{[0-9a-f-]{36}\}$`, m1.GUID())

	m3 := New(Info{ModelName: "Other"})
	assert.NotEqual(t, m1.GUID(), m3.GUID())

	m4 := New(Info{ModelName: "Fixed", GUID: "{abc}"})
	assert.Equal(t, "{abc}", m4.GUID())
}

func TestCategories_StandardByDefault(t *testing.T) {
	m := New(Info{ModelName: "m"})
	assert.Equal(t, fmilog.StandardCategories(), m.Categories())

	require.NoError(t, m.RegisterLogCategory("custom"))
	assert.Contains(t, m.Categories(), "custom")
}

func TestSetValue(t *testing.T) {
	m, _ := newAdder(t)
	require.NoError(t, m.SetValue("a", 2))
	v, err := m.Value("a")
	require.NoError(t, err)
	assert.Equal(t, fmi2.RealValue(2), v, "integer coerced to real")

	assert.Error(t, m.SetValue("a", "x"))
	assert.Error(t, m.SetValue("missing", 1.0))
}

func TestLookup_WrongType(t *testing.T) {
	m, _ := newAdder(t)
	_, err := Lookup[int32](m, "a")
	assert.True(t, IsTypeMismatch(err))

	assert.Panics(t, func() { MustLookup[float64](m, "nope") })
}

func TestCallTracing(t *testing.T) {
	h := &adder{}
	m := New(Info{ModelName: "Adder"}, WithHooks(h), WithCallTracing())
	_, err := m.RegisterInput("a", 0.0)
	require.NoError(t, err)
	assert.Contains(t, m.Categories(), fmilog.InternalCategory)
	assert.True(t, m.Logger().IsActive(fmilog.InternalCategory))

	require.Equal(t, fmi2.OK, m.SetReal([]uint32{0}, []float64{2}))
	_, err = m.SetupExperiment(0, nil, nil)
	require.NoError(t, err)

	var texts []string
	for _, msg := range m.Logger().Drain() {
		assert.Equal(t, fmilog.InternalCategory, msg.Category)
		texts = append(texts, msg.Text)
	}
	assert.Equal(t, []string{
		"FMI call tracing enabled",
		"calling set Real with refs=[0] values=[2]",
		"set Real returned ok",
		"calling setup experiment with start=0 stop=unset tolerance=unset",
		"setup experiment returned ok",
	}, texts)
}

func TestCallTracing_OffByDefault(t *testing.T) {
	m, _ := newAdder(t)
	m.Logger().SetDebugLogging(true, []string{fmilog.LogAll})
	require.Equal(t, fmi2.OK, m.SetReal([]uint32{0}, []float64{2}))
	assert.Zero(t, m.Logger().Len())
	assert.NotContains(t, m.Categories(), fmilog.InternalCategory)
}
