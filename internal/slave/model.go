// Package slave provides Model, the per-instance object behind one FMI 2.0
// co-simulation slave.
//
// A Model binds validated variable declarations to typed storage slots,
// answers batched get/set calls addressed by value reference, and drives
// the lifecycle state machine:
//
//	Configured --EnterInitializationMode--> Initializing
//	Initializing --ExitInitializationMode--> Initialized
//	Initialized --DoStep--> Initialized
//	Initializing|Initialized --Terminate--> Terminated
//	any --Reset--> Configured
//
// Slave authors supply behavior through Hooks. Every hook defaults to a
// no-op returning fmi2.OK (embed NopHooks).
//
// A Model is not safe for concurrent use. The host drives one call at a
// time per instance; the registry package enforces that.
package slave

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/fmilog"
	"github.com/roach88/fmu/internal/variable"
)

// Info is descriptive metadata emitted into the model description.
type Info struct {
	ModelName   string `json:"model_name"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	Copyright   string `json:"copyright,omitempty"`

	// GUID overrides the identifier derived from the declarations.
	GUID string `json:"guid,omitempty"`
}

// slot is the storage behind one variable name.
type slot struct {
	spec  *variable.Spec // nil for a preset slot not yet declared
	value fmi2.Value
	get   func() fmi2.Value
	set   func(fmi2.Value)
}

func (s *slot) read() fmi2.Value {
	if s.get != nil {
		return s.get()
	}
	return s.value
}

func (s *slot) write(v fmi2.Value) {
	s.value = v
	if s.set != nil {
		s.set(v)
	}
}

// Model is one slave instance.
type Model struct {
	info      Info
	hooks     Hooks
	logger    *fmilog.Logger
	alloc     *variable.Allocator
	variables []*variable.Spec
	byName    map[string]*slot
	byRef     map[uint32]*slot
	state     State
	time      float64
	tracing   bool
}

// Option configures a Model.
type Option func(*Model)

// WithHooks sets the lifecycle hooks.
func WithHooks(h Hooks) Option {
	return func(m *Model) {
		m.hooks = h
	}
}

// WithLogger replaces the instance logger.
func WithLogger(l *fmilog.Logger) Option {
	return func(m *Model) {
		m.logger = l
	}
}

// WithCallTracing logs every FMI call with its arguments, and the status it
// returned, under fmilog.InternalCategory. The category is registered and
// activated on the instance logger.
func WithCallTracing() Option {
	return func(m *Model) {
		m.tracing = true
	}
}

// New creates a model in state Configured. The logger has the ten standard
// categories registered unless WithLogger supplies another one.
func New(info Info, opts ...Option) *Model {
	m := &Model{
		info:   info,
		hooks:  NopHooks{},
		alloc:  variable.NewAllocator(),
		byName: make(map[string]*slot),
		byRef:  make(map[uint32]*slot),
		state:  StateConfigured,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = fmilog.New(fmilog.WithStandardCategories())
	}
	if m.tracing {
		if !m.logger.HasCategory(fmilog.InternalCategory) {
			_ = m.logger.RegisterCategory(fmilog.InternalCategory)
		}
		m.logger.SetDebugLogging(true, []string{fmilog.InternalCategory})
		m.logger.Log("FMI call tracing enabled", fmilog.InCategory(fmilog.InternalCategory))
	}
	return m
}

func (m *Model) traceCall(op, args string) {
	if !m.tracing {
		return
	}
	if args == "" {
		m.logger.Logf(fmi2.OK, fmilog.InternalCategory, "calling %s", op)
		return
	}
	m.logger.Logf(fmi2.OK, fmilog.InternalCategory, "calling %s with %s", op, args)
}

func (m *Model) traceOK(op string) {
	if m.tracing {
		m.logger.Logf(fmi2.OK, fmilog.InternalCategory, "%s returned ok", op)
	}
}

// Info returns the model metadata.
func (m *Model) Info() Info { return m.info }

// Logger returns the instance logger.
func (m *Model) Logger() *fmilog.Logger { return m.logger }

// GUID returns Info.GUID when set and otherwise a name-based UUID derived
// from the model name and every declaration, so identical declarations
// always yield the same GUID.
func (m *Model) GUID() string {
	if m.info.GUID != "" {
		return m.info.GUID
	}
	var b strings.Builder
	b.WriteString(m.info.ModelName)
	for _, v := range m.variables {
		fmt.Fprintf(&b, "|%s:%d:%s:%s:%s:%s", v.Name, v.ValueReference, v.Type, v.Causality, v.Variability, v.Initial)
		if v.Start != nil {
			fmt.Fprintf(&b, "=%v", v.Start)
		}
	}
	return "{" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(b.String())).String() + "}"
}

// Binding attaches accessor functions to a variable at registration.
type Binding func(*slot)

// WithGetter computes the variable's value on every read instead of using
// stored state.
func WithGetter(fn func() fmi2.Value) Binding {
	return func(s *slot) {
		s.get = fn
	}
}

// WithSetter observes every write after it has been stored.
func WithSetter(fn func(fmi2.Value)) Binding {
	return func(s *slot) {
		s.set = fn
	}
}

// Computed is a typed WithGetter.
func Computed[T Primitive](fn func() T) Binding {
	return WithGetter(func() fmi2.Value {
		v, _ := fmi2.ValueOf(any(fn()))
		return v
	})
}

// Preset stores a value under name before the variable is declared. When
// the declaration follows, the preset value is kept unless the declaration
// carries an exact or approx start that differs from it.
func (m *Model) Preset(name string, value any) error {
	v, err := fmi2.ValueOf(value)
	if err != nil {
		return fmt.Errorf("preset %s: %w", name, err)
	}
	if s, ok := m.byName[name]; ok {
		if s.spec != nil && s.spec.Type != v.Type() {
			return &AccessError{Code: ErrCodeTypeMismatch, Ref: s.spec.ValueReference, Variable: name,
				Message: fmt.Sprintf("variable is %s, preset is %s", s.spec.Type, v.Type())}
		}
		s.value = v
		return nil
	}
	m.byName[name] = &slot{value: v}
	return nil
}

// Register declares a variable. Registration is rejected once the model
// has left initialization mode.
func (m *Model) Register(name string, opts variable.Options, bindings ...Binding) (*variable.Spec, error) {
	if m.state != StateConfigured && m.state != StateInitializing {
		return nil, &LifecycleError{Op: "register " + name, State: m.state}
	}
	existing, exists := m.byName[name]
	if exists && existing.spec != nil {
		return nil, &variable.ConfigError{Variable: name, Code: variable.ErrDuplicateName, Message: "variable already declared"}
	}

	spec, err := variable.New(name, opts, m.alloc)
	if err != nil {
		return nil, err
	}

	s := existing
	if !exists {
		s = &slot{value: spec.Start}
		if s.value == nil {
			s.value = fmi2.Zero(spec.Type)
		}
	} else {
		if s.value.Type() != spec.Type {
			m.alloc.Release(spec.ValueReference)
			return nil, &variable.ConfigError{Variable: name, Code: variable.ErrStartTypeMismatch,
				Message: fmt.Sprintf("preset value %v is %s, declared type is %s", s.value, s.value.Type(), spec.Type)}
		}
		if (spec.Initial == fmi2.Exact || spec.Initial == fmi2.Approx) && !fmi2.Equal(s.value, spec.Start) {
			m.logger.Logf(fmi2.Warning, fmilog.InternalCategory,
				"variable %s: preset value %v differs from declared start %v, using the start value", name, s.value, spec.Start)
			s.value = spec.Start
		}
	}
	s.spec = spec
	for _, b := range bindings {
		b(s)
	}

	m.byName[name] = s
	m.byRef[spec.ValueReference] = s
	m.variables = append(m.variables, spec)
	return spec, nil
}

// RegisterInput declares a discrete or continuous input. Real inputs are
// continuous, all others discrete. The data type is taken from start.
func (m *Model) RegisterInput(name string, start any, bindings ...Binding) (*variable.Spec, error) {
	return m.Register(name, variable.Options{
		Causality:   "input",
		Variability: variabilityFor(start),
		Start:       start,
	}, bindings...)
}

// RegisterOutput declares a calculated output of the given type.
func (m *Model) RegisterOutput(name, dataType string, bindings ...Binding) (*variable.Spec, error) {
	v := "discrete"
	if t, err := fmi2.ParseDataType(dataType); err == nil && t == fmi2.Real {
		v = "continuous"
	}
	return m.Register(name, variable.Options{
		Type:        dataType,
		Causality:   "output",
		Variability: v,
		Initial:     "calculated",
	}, bindings...)
}

// RegisterParameter declares a tunable parameter with the given start.
func (m *Model) RegisterParameter(name string, start any, bindings ...Binding) (*variable.Spec, error) {
	return m.Register(name, variable.Options{
		Causality:   "parameter",
		Variability: "tunable",
		Start:       start,
	}, bindings...)
}

func variabilityFor(start any) string {
	v, err := fmi2.ValueOf(start)
	if err == nil && v.Type() == fmi2.Real {
		return "continuous"
	}
	return "discrete"
}

// RegisterLogCategory adds a custom log category to the instance logger.
func (m *Model) RegisterLogCategory(name string, opts ...fmilog.CategoryOption) error {
	return m.logger.RegisterCategory(name, opts...)
}

// Categories returns every log category the instance exposes.
func (m *Model) Categories() []string {
	return m.logger.AvailableCategories()
}

// Variables returns the declarations in registration order.
func (m *Model) Variables() []*variable.Spec {
	out := make([]*variable.Spec, len(m.variables))
	copy(out, m.variables)
	return out
}

// Variable looks up a declaration by name.
func (m *Model) Variable(name string) (*variable.Spec, bool) {
	s, ok := m.byName[name]
	if !ok || s.spec == nil {
		return nil, false
	}
	return s.spec, true
}

// ByReference looks up a declaration by value reference.
func (m *Model) ByReference(vr uint32) (*variable.Spec, bool) {
	s, ok := m.byRef[vr]
	if !ok {
		return nil, false
	}
	return s.spec, true
}

// Value reads a declared variable by name.
func (m *Model) Value(name string) (fmi2.Value, error) {
	s, err := m.slotByName(name)
	if err != nil {
		return nil, err
	}
	return s.read(), nil
}

// SetValue writes a declared variable by name, bypassing writability and
// lifecycle checks. It is meant for slave hooks updating their own outputs.
func (m *Model) SetValue(name string, value any) error {
	s, err := m.slotByName(name)
	if err != nil {
		return err
	}
	v, err := fmi2.Coerce(s.spec.Type, value)
	if err != nil {
		return &AccessError{Code: ErrCodeTypeMismatch, Ref: s.spec.ValueReference, Variable: name, Message: err.Error()}
	}
	s.write(v)
	return nil
}

func (m *Model) slotByName(name string) (*slot, error) {
	s, ok := m.byName[name]
	if !ok || s.spec == nil {
		return nil, &AccessError{Code: ErrCodeUnknownVariable, Variable: name, Message: "no such variable"}
	}
	return s, nil
}

// Log records a message through the instance logger.
func (m *Model) Log(text string, opts ...fmilog.LogOption) bool {
	return m.logger.Log(text, opts...)
}

// SetDebugLogging forwards to the instance logger.
func (m *Model) SetDebugLogging(on bool, categories []string) fmi2.Status {
	return m.logger.SetDebugLogging(on, categories)
}
