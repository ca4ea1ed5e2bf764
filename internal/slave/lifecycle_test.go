package slave

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/fmilog"
)

func TestLifecycle_HappyPath(t *testing.T) {
	m, _ := newAdder(t)
	assert.Equal(t, StateConfigured, m.State())

	stop := 10.0
	status, err := m.SetupExperiment(2, &stop, nil)
	require.NoError(t, err)
	assert.Equal(t, fmi2.OK, status)
	assert.Equal(t, 2.0, m.Time())

	_, err = m.EnterInitializationMode()
	require.NoError(t, err)
	assert.Equal(t, StateInitializing, m.State())

	_, err = m.ExitInitializationMode()
	require.NoError(t, err)
	assert.Equal(t, StateInitialized, m.State())

	for i := 0; i < 3; i++ {
		_, err = m.DoStep(2+float64(i)*0.5, 0.5, true)
		require.NoError(t, err)
	}
	assert.Equal(t, 3.5, m.Time())

	_, err = m.Terminate()
	require.NoError(t, err)
	assert.Equal(t, StateTerminated, m.State())
}

func TestLifecycle_DoStepBeforeExitInitIsRejected(t *testing.T) {
	m, _ := newAdder(t)

	status, err := m.DoStep(0, 1, false)
	assert.Equal(t, fmi2.Error, status)
	require.Error(t, err)
	assert.True(t, IsLifecycleError(err))

	_, err = m.EnterInitializationMode()
	require.NoError(t, err)
	_, err = m.DoStep(0, 1, false)
	assert.True(t, IsLifecycleError(err))
}

func TestLifecycle_IllegalTransitions(t *testing.T) {
	m, _ := newAdder(t)

	_, err := m.ExitInitializationMode()
	assert.True(t, IsLifecycleError(err))

	_, err = m.Terminate()
	assert.True(t, IsLifecycleError(err))

	initialize(t, m)
	_, err = m.SetupExperiment(0, nil, nil)
	assert.True(t, IsLifecycleError(err))
	_, err = m.EnterInitializationMode()
	assert.True(t, IsLifecycleError(err))
}

func TestLifecycle_InvalidStepSize(t *testing.T) {
	for _, h := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		m, _ := newAdder(t)
		initialize(t, m)
		status, err := m.DoStep(0, h, false)
		assert.Error(t, err, "step size %g", h)
		assert.Equal(t, fmi2.Error, status)
		assert.Equal(t, 0.0, m.Time())
	}
}

func TestReset_RestoresStartValues(t *testing.T) {
	m, _ := newAdder(t)
	initialize(t, m)
	require.Equal(t, fmi2.OK, m.SetReal([]uint32{0, 1}, []float64{4, 5}))
	_, err := m.DoStep(0, 1, false)
	require.NoError(t, err)

	status, err := m.Reset()
	require.NoError(t, err)
	assert.Equal(t, fmi2.OK, status)
	assert.Equal(t, StateConfigured, m.State())

	got, err := m.Get([]uint32{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []fmi2.Value{fmi2.RealValue(0), fmi2.RealValue(0), fmi2.RealValue(0)}, got)

	initialize(t, m)
}

func TestReset_NotifiesSetters(t *testing.T) {
	m := New(Info{ModelName: "m"})
	mirror := -1.0
	_, err := m.RegisterInput("u", 0.5, WithSetter(func(v fmi2.Value) { mirror = float64(v.(fmi2.RealValue)) }))
	require.NoError(t, err)
	require.Equal(t, fmi2.OK, m.SetReal([]uint32{0}, []float64{7}))
	require.Equal(t, 7.0, mirror)

	_, err = m.Reset()
	require.NoError(t, err)
	assert.Equal(t, 0.5, mirror)
	v, err := m.Value("u")
	require.NoError(t, err)
	assert.Equal(t, fmi2.RealValue(0.5), v)
}

func TestReset_SetterPanicIsFatal(t *testing.T) {
	m := New(Info{ModelName: "m"})
	armed := false
	_, err := m.RegisterInput("u", 0.0, WithSetter(func(fmi2.Value) {
		if armed {
			panic("restore failed")
		}
	}))
	require.NoError(t, err)
	armed = true

	status, err := m.Reset()
	assert.Equal(t, fmi2.Fatal, status)
	var hp *HookPanicError
	require.ErrorAs(t, err, &hp)
	assert.Equal(t, StateFailed, m.State())
}

type panicky struct {
	NopHooks
}

func (panicky) DoStep(float64, float64, bool) fmi2.Status {
	panic("model diverged")
}

func TestHookPanicIsFatal(t *testing.T) {
	m := New(Info{ModelName: "p"}, WithHooks(panicky{}))
	m.Logger().SetDebugLogging(true, []string{fmilog.LogStatusFatal})
	initialize(t, m)

	status, err := m.DoStep(0, 1, false)
	assert.Equal(t, fmi2.Fatal, status)
	var hp *HookPanicError
	require.ErrorAs(t, err, &hp)
	assert.Equal(t, fmi2.Fatal, StatusFromError(err))
	assert.Equal(t, StateFailed, m.State())

	_, err = m.DoStep(1, 1, false)
	assert.True(t, IsLifecycleError(err), "no stepping after a fatal error")

	msgs := m.Logger().Drain()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "model diverged")
}

type failingInit struct {
	NopHooks
}

func (failingInit) ExitInitializationMode() fmi2.Status { return fmi2.Error }

func TestHookErrorStatusKeepsState(t *testing.T) {
	m := New(Info{ModelName: "f"}, WithHooks(failingInit{}))
	_, err := m.EnterInitializationMode()
	require.NoError(t, err)

	status, err := m.ExitInitializationMode()
	require.NoError(t, err)
	assert.Equal(t, fmi2.Error, status)
	assert.Equal(t, StateInitializing, m.State())
}

func TestStatusFromError(t *testing.T) {
	assert.Equal(t, fmi2.OK, StatusFromError(nil))
	assert.Equal(t, fmi2.Error, StatusFromError(&LifecycleError{Op: "x"}))
	assert.Equal(t, fmi2.Fatal, StatusFromError(&HookPanicError{Op: "x", Value: 1}))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "initialized", StateInitialized.String())
	assert.Equal(t, "State(9)", State(9).String())
}
