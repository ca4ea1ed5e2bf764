package registry

import (
	"fmt"

	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/fmilog"
	"github.com/roach88/fmu/internal/slave"
	"github.com/roach88/fmu/internal/variable"
)

// Every operation on an unknown handle returns fmi2.Error and an error
// wrapping ErrUnknownHandle.

// InstanceInfo describes a live instance.
type InstanceInfo struct {
	Handle  Handle
	Name    string
	Model   string
	GUID    string
	Visible bool
	State   slave.State
	Time    float64
}

// Instance returns a snapshot of the instance behind h.
func (c *Context) Instance(h Handle) (InstanceInfo, error) {
	var info InstanceInfo
	err := c.with(h, func(inst *instance) error {
		info = InstanceInfo{
			Handle:  h,
			Name:    inst.name,
			Model:   inst.model.Info().ModelName,
			GUID:    inst.model.GUID(),
			Visible: inst.visible,
			State:   inst.model.State(),
			Time:    inst.model.Time(),
		}
		return nil
	})
	return info, err
}

// Variables returns the declarations of the instance in declaration order.
func (c *Context) Variables(h Handle) ([]*variable.Spec, error) {
	var out []*variable.Spec
	err := c.with(h, func(inst *instance) error {
		out = inst.model.Variables()
		return nil
	})
	return out, err
}

// Resolve maps variable names to value references and data types.
func (c *Context) Resolve(h Handle, names ...string) ([]uint32, []fmi2.DataType, error) {
	refs := make([]uint32, len(names))
	types := make([]fmi2.DataType, len(names))
	err := c.with(h, func(inst *instance) error {
		for i, name := range names {
			spec, ok := inst.model.Variable(name)
			if !ok {
				return &slave.AccessError{Code: slave.ErrCodeUnknownVariable, Variable: name,
					Message: fmt.Sprintf("instance %s has no variable %q", inst.name, name)}
			}
			refs[i] = spec.ValueReference
			types[i] = inst.types[spec.ValueReference]
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return refs, types, nil
}

// lifecycle runs a status-returning model call under the instance lock.
func (c *Context) lifecycle(h Handle, fn func(m *slave.Model) (fmi2.Status, error)) (fmi2.Status, error) {
	status := fmi2.Error
	err := c.with(h, func(inst *instance) error {
		var err error
		status, err = fn(inst.model)
		return err
	})
	return status, err
}

// SetupExperiment forwards to the instance.
func (c *Context) SetupExperiment(h Handle, startTime float64, stopTime, tolerance *float64) (fmi2.Status, error) {
	return c.lifecycle(h, func(m *slave.Model) (fmi2.Status, error) {
		return m.SetupExperiment(startTime, stopTime, tolerance)
	})
}

// EnterInitializationMode forwards to the instance.
func (c *Context) EnterInitializationMode(h Handle) (fmi2.Status, error) {
	return c.lifecycle(h, (*slave.Model).EnterInitializationMode)
}

// ExitInitializationMode forwards to the instance.
func (c *Context) ExitInitializationMode(h Handle) (fmi2.Status, error) {
	return c.lifecycle(h, (*slave.Model).ExitInitializationMode)
}

// DoStep forwards to the instance.
func (c *Context) DoStep(h Handle, currentTime, stepSize float64, noSetStatePrior bool) (fmi2.Status, error) {
	return c.lifecycle(h, func(m *slave.Model) (fmi2.Status, error) {
		return m.DoStep(currentTime, stepSize, noSetStatePrior)
	})
}

// Terminate forwards to the instance.
func (c *Context) Terminate(h Handle) (fmi2.Status, error) {
	return c.lifecycle(h, (*slave.Model).Terminate)
}

// Reset forwards to the instance.
func (c *Context) Reset(h Handle) (fmi2.Status, error) {
	return c.lifecycle(h, (*slave.Model).Reset)
}

// SetDebugLogging forwards to the instance logger. Bad arguments yield
// fmi2.Warning without an error.
func (c *Context) SetDebugLogging(h Handle, on bool, categories []string) (fmi2.Status, error) {
	return c.lifecycle(h, func(m *slave.Model) (fmi2.Status, error) {
		return m.SetDebugLogging(on, categories), nil
	})
}

// PopMessages removes the n oldest buffered log messages of the instance.
func (c *Context) PopMessages(h Handle, n int) ([]fmilog.Message, error) {
	var out []fmilog.Message
	err := c.with(h, func(inst *instance) error {
		var err error
		out, err = inst.model.Logger().PopMessages(n)
		return err
	})
	return out, err
}

// DrainMessages removes every buffered log message of the instance.
func (c *Context) DrainMessages(h Handle) ([]fmilog.Message, error) {
	var out []fmilog.Message
	err := c.with(h, func(inst *instance) error {
		out = inst.model.Logger().Drain()
		return nil
	})
	return out, err
}

// checkRefs validates refs against the types recorded at instantiation
// before the model is touched.
func (inst *instance) checkRefs(refs []uint32, want fmi2.DataType) error {
	for _, vr := range refs {
		t, ok := inst.types[vr]
		if !ok {
			return &slave.AccessError{Code: slave.ErrCodeUnknownReference, Ref: vr,
				Message: fmt.Sprintf("instance %s has no value reference %d", inst.name, vr)}
		}
		if t != want {
			return &slave.AccessError{Code: slave.ErrCodeTypeMismatch, Ref: vr, Variable: inst.names[vr],
				Message: fmt.Sprintf("variable is %s, requested %s", t, want)}
		}
	}
	return nil
}

func get[T slave.Primitive](c *Context, h Handle, want fmi2.DataType, refs []uint32, out []T,
	read func(*slave.Model, []uint32, []T) error) (fmi2.Status, error) {
	err := c.with(h, func(inst *instance) error {
		if err := inst.checkRefs(refs, want); err != nil {
			inst.model.Logger().Logf(fmi2.Error, fmilog.InternalCategory, "get %s: %v", want, err)
			return err
		}
		return read(inst.model, refs, out)
	})
	if err != nil {
		return slave.StatusFromError(err), err
	}
	return fmi2.OK, nil
}

func set[T slave.Primitive](c *Context, h Handle, want fmi2.DataType, refs []uint32, values []T,
	write func(*slave.Model, []uint32, []T) fmi2.Status) (fmi2.Status, error) {
	status := fmi2.Error
	err := c.with(h, func(inst *instance) error {
		if err := inst.checkRefs(refs, want); err != nil {
			inst.model.Logger().Logf(fmi2.Error, fmilog.InternalCategory, "set %s: %v", want, err)
			return err
		}
		status = write(inst.model, refs, values)
		return nil
	})
	return status, err
}

// GetReal reads real variables into out.
func (c *Context) GetReal(h Handle, refs []uint32, out []float64) (fmi2.Status, error) {
	return get(c, h, fmi2.Real, refs, out, (*slave.Model).GetReal)
}

// GetInteger reads integer variables into out.
func (c *Context) GetInteger(h Handle, refs []uint32, out []int32) (fmi2.Status, error) {
	return get(c, h, fmi2.Integer, refs, out, (*slave.Model).GetInteger)
}

// GetBoolean reads boolean variables into out.
func (c *Context) GetBoolean(h Handle, refs []uint32, out []bool) (fmi2.Status, error) {
	return get(c, h, fmi2.Boolean, refs, out, (*slave.Model).GetBoolean)
}

// GetString reads string variables into out.
func (c *Context) GetString(h Handle, refs []uint32, out []string) (fmi2.Status, error) {
	return get(c, h, fmi2.String, refs, out, (*slave.Model).GetString)
}

// SetReal writes real variables. A rejected batch writes nothing.
func (c *Context) SetReal(h Handle, refs []uint32, values []float64) (fmi2.Status, error) {
	return set(c, h, fmi2.Real, refs, values, (*slave.Model).SetReal)
}

// SetInteger writes integer variables. A rejected batch writes nothing.
func (c *Context) SetInteger(h Handle, refs []uint32, values []int32) (fmi2.Status, error) {
	return set(c, h, fmi2.Integer, refs, values, (*slave.Model).SetInteger)
}

// SetBoolean writes boolean variables. A rejected batch writes nothing.
func (c *Context) SetBoolean(h Handle, refs []uint32, values []bool) (fmi2.Status, error) {
	return set(c, h, fmi2.Boolean, refs, values, (*slave.Model).SetBoolean)
}

// SetString writes string variables. A rejected batch writes nothing.
func (c *Context) SetString(h Handle, refs []uint32, values []string) (fmi2.Status, error) {
	return set(c, h, fmi2.String, refs, values, (*slave.Model).SetString)
}

// Get reads variables of any type.
func (c *Context) Get(h Handle, refs []uint32) ([]fmi2.Value, error) {
	var out []fmi2.Value
	err := c.with(h, func(inst *instance) error {
		var err error
		out, err = inst.model.Get(refs)
		return err
	})
	return out, err
}

// Set writes variables of any type. A rejected batch writes nothing.
func (c *Context) Set(h Handle, refs []uint32, values []fmi2.Value) (fmi2.Status, error) {
	err := c.with(h, func(inst *instance) error {
		return inst.model.Set(refs, values)
	})
	if err != nil {
		return slave.StatusFromError(err), err
	}
	return fmi2.OK, nil
}
