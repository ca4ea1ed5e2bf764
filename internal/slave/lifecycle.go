package slave

import (
	"fmt"
	"math"

	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/fmilog"
)

// State is a lifecycle state.
type State int

const (
	StateConfigured State = iota
	StateInitializing
	StateInitialized
	StateTerminated
	// StateFailed follows a hook that returned Fatal or panicked. Only
	// Reset leaves it.
	StateFailed
)

var stateNames = [...]string{"configured", "initializing", "initialized", "terminated", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Hooks is the behavior a slave author supplies. Each method returns the
// status reported to the host.
type Hooks interface {
	SetupExperiment(startTime float64, stopTime, tolerance *float64) fmi2.Status
	EnterInitializationMode() fmi2.Status
	ExitInitializationMode() fmi2.Status
	DoStep(currentTime, stepSize float64, noSetStatePrior bool) fmi2.Status
	Reset() fmi2.Status
	Terminate() fmi2.Status
}

// NopHooks implements Hooks with every method returning fmi2.OK. Embed it
// and override what the slave needs.
type NopHooks struct{}

func (NopHooks) SetupExperiment(float64, *float64, *float64) fmi2.Status { return fmi2.OK }
func (NopHooks) EnterInitializationMode() fmi2.Status                   { return fmi2.OK }
func (NopHooks) ExitInitializationMode() fmi2.Status                    { return fmi2.OK }
func (NopHooks) DoStep(float64, float64, bool) fmi2.Status              { return fmi2.OK }
func (NopHooks) Reset() fmi2.Status                                     { return fmi2.OK }
func (NopHooks) Terminate() fmi2.Status                                 { return fmi2.OK }

// State returns the current lifecycle state.
func (m *Model) State() State { return m.state }

// Time returns the communication point reached by the last successful step,
// or the experiment start time before the first step.
func (m *Model) Time() float64 { return m.time }

// call runs a hook. A panic becomes a HookPanicError; a panic or a Fatal
// status moves the model to StateFailed. args only feeds call tracing.
func (m *Model) call(op, args string, hook func() fmi2.Status) (status fmi2.Status, err error) {
	m.traceCall(op, args)
	defer func() {
		if err != nil {
			status = fmi2.Fatal
		}
	}()
	defer m.guard(op, &err)
	status = hook()
	if status == fmi2.Fatal {
		m.state = StateFailed
	}
	if status != fmi2.OK {
		m.logger.Logf(status, fmilog.InternalCategory, "%s returned %s", op, status)
	} else {
		m.traceOK(op)
	}
	return status, nil
}

func (m *Model) require(op string, allowed ...State) error {
	for _, s := range allowed {
		if m.state == s {
			return nil
		}
	}
	err := &LifecycleError{Op: op, State: m.state}
	m.logger.Logf(fmi2.Error, fmilog.InternalCategory, "%v", err)
	return err
}

// advance moves to next unless the hook failed.
func (m *Model) advance(status fmi2.Status, next State) {
	if status == fmi2.OK || status == fmi2.Warning {
		m.state = next
	}
}

// SetupExperiment records the experiment bounds and calls the hook.
func (m *Model) SetupExperiment(startTime float64, stopTime, tolerance *float64) (fmi2.Status, error) {
	const op = "setup experiment"
	if err := m.require(op, StateConfigured); err != nil {
		return fmi2.Error, err
	}
	args := fmt.Sprintf("start=%g stop=%s tolerance=%s", startTime, optional(stopTime), optional(tolerance))
	status, err := m.call(op, args, func() fmi2.Status {
		return m.hooks.SetupExperiment(startTime, stopTime, tolerance)
	})
	if err == nil && status <= fmi2.Warning {
		m.time = startTime
	}
	return status, err
}

// EnterInitializationMode moves from Configured to Initializing.
func (m *Model) EnterInitializationMode() (fmi2.Status, error) {
	const op = "enter initialization mode"
	if err := m.require(op, StateConfigured); err != nil {
		return fmi2.Error, err
	}
	status, err := m.call(op, "", m.hooks.EnterInitializationMode)
	if err == nil {
		m.advance(status, StateInitializing)
	}
	return status, err
}

// ExitInitializationMode moves from Initializing to Initialized. No
// variable may be registered afterwards.
func (m *Model) ExitInitializationMode() (fmi2.Status, error) {
	const op = "exit initialization mode"
	if err := m.require(op, StateInitializing); err != nil {
		return fmi2.Error, err
	}
	status, err := m.call(op, "", m.hooks.ExitInitializationMode)
	if err == nil {
		m.advance(status, StateInitialized)
	}
	return status, err
}

// DoStep advances the slave from currentTime by stepSize. It is only
// allowed once initialization mode has been exited.
func (m *Model) DoStep(currentTime, stepSize float64, noSetStatePrior bool) (fmi2.Status, error) {
	const op = "do step"
	if err := m.require(op, StateInitialized); err != nil {
		return fmi2.Error, err
	}
	if !(stepSize >= 0) || math.IsInf(stepSize, 0) {
		err := fmt.Errorf("do step: invalid step size %g", stepSize)
		m.logger.Logf(fmi2.Error, fmilog.InternalCategory, "%v", err)
		return fmi2.Error, err
	}
	args := fmt.Sprintf("t=%g h=%g noSetFMUStatePriorToCurrentPoint=%t", currentTime, stepSize, noSetStatePrior)
	status, err := m.call(op, args, func() fmi2.Status {
		return m.hooks.DoStep(currentTime, stepSize, noSetStatePrior)
	})
	if err == nil && status <= fmi2.Warning {
		m.time = currentTime + stepSize
	}
	return status, err
}

// Terminate ends the simulation run.
func (m *Model) Terminate() (fmi2.Status, error) {
	const op = "terminate"
	if err := m.require(op, StateInitializing, StateInitialized); err != nil {
		return fmi2.Error, err
	}
	status, err := m.call(op, "", m.hooks.Terminate)
	if err == nil {
		m.advance(status, StateTerminated)
	}
	return status, err
}

// Reset returns the model to Configured and restores every declared start
// value through the variable's setter binding. It is allowed in any state.
func (m *Model) Reset() (fmi2.Status, error) {
	status, err := m.call("reset", "", m.hooks.Reset)
	if err != nil || status > fmi2.Warning {
		return status, err
	}
	if err := m.restoreStarts(); err != nil {
		return fmi2.Fatal, err
	}
	m.state = StateConfigured
	m.time = 0
	return status, nil
}

func (m *Model) restoreStarts() (err error) {
	defer m.guard("reset", &err)
	for _, v := range m.variables {
		start := v.Start
		if start == nil {
			start = fmi2.Zero(v.Type)
		}
		m.byName[v.Name].write(start)
	}
	return nil
}

func optional(f *float64) string {
	if f == nil {
		return "unset"
	}
	return fmt.Sprintf("%g", *f)
}
