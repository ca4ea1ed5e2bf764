package slave

import (
	"fmt"

	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/fmilog"
)

// Primitive is the set of Go types backing the four fmi2 data types.
type Primitive interface {
	float64 | int32 | bool | string
}

func dataTypeOf[T Primitive]() fmi2.DataType {
	var zero T
	switch any(zero).(type) {
	case float64:
		return fmi2.Real
	case int32:
		return fmi2.Integer
	case bool:
		return fmi2.Boolean
	default:
		return fmi2.String
	}
}

// resolve validates an entire batch before anything is read or written.
// With checkType set every variable must be of type want.
func (m *Model) resolve(refs []uint32, want fmi2.DataType, checkType bool) ([]*slot, error) {
	slots := make([]*slot, len(refs))
	for i, vr := range refs {
		s, ok := m.byRef[vr]
		if !ok {
			return nil, &AccessError{
				Code:    ErrCodeUnknownReference,
				Ref:     vr,
				Message: fmt.Sprintf("no variable has value reference %d", vr),
			}
		}
		if checkType && s.spec.Type != want {
			return nil, typeMismatch(s, want)
		}
		slots[i] = s
	}
	return slots, nil
}

func (m *Model) checkWritable(slots []*slot) error {
	for _, s := range slots {
		if s.spec.Variability == fmi2.Constant || s.spec.Causality == fmi2.Independent {
			return &AccessError{
				Code:     ErrCodeNotWritable,
				Ref:      s.spec.ValueReference,
				Variable: s.spec.Name,
				Message:  fmt.Sprintf("%s %s variable cannot be set", s.spec.Variability, s.spec.Causality),
			}
		}
	}
	return nil
}

// guard recovers a panic raised by a hook or a getter or setter binding.
// It is deferred directly so recover sees the panic.
func (m *Model) guard(op string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	*err = &HookPanicError{Op: op, Value: r}
	m.state = StateFailed
	m.logger.Logf(fmi2.Fatal, fmilog.InternalCategory, "%v", *err)
}

func (m *Model) reject(op string, err error) error {
	m.logger.Logf(fmi2.Error, fmilog.InternalCategory, "%s: %v", op, err)
	return err
}

// Get reads a batch of variables of any type.
func (m *Model) Get(refs []uint32) (out []fmi2.Value, err error) {
	m.traceCall("get", fmt.Sprintf("refs=%v", refs))
	defer m.guard("get", &err)
	slots, err := m.resolve(refs, 0, false)
	if err != nil {
		return nil, m.reject("get", err)
	}
	vals := make([]fmi2.Value, len(slots))
	for i, s := range slots {
		vals[i] = s.read()
	}
	m.traceOK("get")
	return vals, nil
}

// Set writes a batch of variables of any type. Every reference and value is
// checked before the first write, so a rejected batch changes nothing.
func (m *Model) Set(refs []uint32, values []fmi2.Value) (err error) {
	m.traceCall("set", fmt.Sprintf("refs=%v values=%v", refs, values))
	defer m.guard("set", &err)
	if len(refs) != len(values) {
		return m.reject("set", &AccessError{
			Code:    ErrCodeLengthMismatch,
			Message: fmt.Sprintf("%d references but %d values", len(refs), len(values)),
		})
	}
	slots, err := m.resolve(refs, 0, false)
	if err != nil {
		return m.reject("set", err)
	}
	for i, s := range slots {
		if values[i] == nil || values[i].Type() != s.spec.Type {
			return m.reject("set", &AccessError{
				Code:     ErrCodeTypeMismatch,
				Ref:      s.spec.ValueReference,
				Variable: s.spec.Name,
				Message:  fmt.Sprintf("variable is %s, value is %v", s.spec.Type, values[i]),
			})
		}
	}
	if err := m.checkWritable(slots); err != nil {
		return m.reject("set", err)
	}
	for i, s := range slots {
		s.write(values[i])
	}
	m.traceOK("set")
	return nil
}

func getTyped[T Primitive](m *Model, refs []uint32, out []T) (err error) {
	want := dataTypeOf[T]()
	op := "get " + want.String()
	m.traceCall(op, fmt.Sprintf("refs=%v", refs))
	defer m.guard(op, &err)
	if len(out) < len(refs) {
		return m.reject(op, &AccessError{
			Code:    ErrCodeLengthMismatch,
			Message: fmt.Sprintf("%d references but output buffer holds %d", len(refs), len(out)),
		})
	}
	slots, err := m.resolve(refs, want, true)
	if err != nil {
		return m.reject(op, err)
	}
	vals := make([]T, len(slots))
	for i, s := range slots {
		p, ok := fmi2.Primitive(s.read()).(T)
		if !ok {
			return m.reject(op, typeMismatch(s, want))
		}
		vals[i] = p
	}
	copy(out, vals)
	m.traceOK(op)
	return nil
}

func setTyped[T Primitive](m *Model, refs []uint32, values []T) fmi2.Status {
	return StatusFromError(writeTyped(m, refs, values))
}

func writeTyped[T Primitive](m *Model, refs []uint32, values []T) (err error) {
	want := dataTypeOf[T]()
	op := "set " + want.String()
	m.traceCall(op, fmt.Sprintf("refs=%v values=%v", refs, values))
	defer m.guard(op, &err)
	if len(refs) != len(values) {
		return m.reject(op, &AccessError{
			Code:    ErrCodeLengthMismatch,
			Message: fmt.Sprintf("%d references but %d values", len(refs), len(values)),
		})
	}
	slots, err := m.resolve(refs, want, true)
	if err != nil {
		return m.reject(op, err)
	}
	if err := m.checkWritable(slots); err != nil {
		return m.reject(op, err)
	}
	for i, s := range slots {
		v, _ := fmi2.ValueOf(any(values[i]))
		s.write(v)
	}
	m.traceOK(op)
	return nil
}

// GetReal copies the values of refs into out. On error out is untouched.
func (m *Model) GetReal(refs []uint32, out []float64) error { return getTyped(m, refs, out) }

// GetInteger copies the values of refs into out. On error out is untouched.
func (m *Model) GetInteger(refs []uint32, out []int32) error { return getTyped(m, refs, out) }

// GetBoolean copies the values of refs into out. On error out is untouched.
func (m *Model) GetBoolean(refs []uint32, out []bool) error { return getTyped(m, refs, out) }

// GetString copies the values of refs into out. On error out is untouched.
func (m *Model) GetString(refs []uint32, out []string) error { return getTyped(m, refs, out) }

// SetReal writes values to refs. The whole batch is rejected on the first
// invalid reference.
func (m *Model) SetReal(refs []uint32, values []float64) fmi2.Status { return setTyped(m, refs, values) }

// SetInteger writes values to refs.
func (m *Model) SetInteger(refs []uint32, values []int32) fmi2.Status {
	return setTyped(m, refs, values)
}

// SetBoolean writes values to refs.
func (m *Model) SetBoolean(refs []uint32, values []bool) fmi2.Status {
	return setTyped(m, refs, values)
}

// SetString writes values to refs.
func (m *Model) SetString(refs []uint32, values []string) fmi2.Status {
	return setTyped(m, refs, values)
}

// Var is a typed accessor bound to one variable's slot.
type Var[T Primitive] struct {
	s *slot
}

// Get returns the current value.
func (v Var[T]) Get() T {
	p, _ := fmi2.Primitive(v.s.read()).(T)
	return p
}

// Set stores a new value.
func (v Var[T]) Set(x T) {
	val, _ := fmi2.ValueOf(any(x))
	v.s.write(val)
}

// Lookup binds a typed accessor to a declared variable.
func Lookup[T Primitive](m *Model, name string) (Var[T], error) {
	s, err := m.slotByName(name)
	if err != nil {
		return Var[T]{}, err
	}
	if want := dataTypeOf[T](); s.spec.Type != want {
		return Var[T]{}, typeMismatch(s, want)
	}
	return Var[T]{s: s}, nil
}

// MustLookup is Lookup for declarations known to exist; it panics
// otherwise.
func MustLookup[T Primitive](m *Model, name string) Var[T] {
	v, err := Lookup[T](m, name)
	if err != nil {
		panic(err)
	}
	return v
}
