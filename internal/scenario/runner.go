package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/fmu/internal/config"
	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/fmilog"
	"github.com/roach88/fmu/internal/registry"
	"github.com/roach88/fmu/internal/store"
)

// ErrSlaveFailed is wrapped by Run when a slave answers with a status worse
// than fmi2.Warning.
var ErrSlaveFailed = errors.New("slave failed")

// Result summarizes a scenario run.
type Result struct {
	// RunID is the stored run, empty when no store was configured.
	RunID string

	// Steps is the number of completed communication steps.
	Steps int64

	// Time is the simulation time reached.
	Time float64

	// Status is the worst status any slave returned.
	Status fmi2.Status

	// Final holds the last recorded value per instance and variable.
	Final map[string]map[string]fmi2.Value

	// Messages counts the log messages drained from all instances.
	Messages int
}

// Option configures Run.
type Option func(*options)

type options struct {
	store     *store.Store
	factories *registry.Factories
	logger    *slog.Logger
	zap       *zap.Logger
	callback  registry.Callback
}

// WithStore records samples and log messages of the run.
func WithStore(s *store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithFactories sets the slave classes instances may name.
func WithFactories(f *registry.Factories) Option {
	return func(o *options) { o.factories = f }
}

// WithLogger sets the run logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithZapLogger sets the logger of the underlying registry.
func WithZapLogger(l *zap.Logger) Option {
	return func(o *options) { o.zap = l }
}

// WithCallback forwards every message an instance logs as it is logged.
// Instances step in parallel, but cb is never entered concurrently.
func WithCallback(cb registry.Callback) Option {
	return func(o *options) { o.callback = serialized(cb) }
}

func serialized(cb registry.Callback) registry.Callback {
	if cb == nil {
		return nil
	}
	var mu sync.Mutex
	return func(instance string, msg fmilog.Message) {
		mu.Lock()
		defer mu.Unlock()
		cb(instance, msg)
	}
}

type member struct {
	Instance
	handle  registry.Handle
	record  []string
	refs    []uint32
	pending []Input
}

type link struct {
	from, to       *member
	fromRef, toRef uint32
	toType         fmi2.DataType
	label          string
}

type runner struct {
	sc      *Scenario
	o       options
	reg     *registry.Context
	log     *slog.Logger
	tmp     string
	members []*member
	byName  map[string]*member
	links   []link
	res     *Result
}

// Run executes sc: it instantiates every instance into one registry, drives
// them through initialization, advances all of them in lock-step from
// start_time to stop_time and terminates them. Connections are propagated
// and due inputs applied before every step. On failure the partial result
// is returned together with the error.
func Run(ctx context.Context, sc *Scenario, opts ...Option) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	o := options{
		factories: registry.NewFactories(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		zap:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	tmp, err := os.MkdirTemp("", "fmu-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("create resources dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	r := &runner{
		sc:     sc,
		o:      o,
		reg:    registry.New(registry.WithFactories(o.factories), registry.WithZapLogger(o.zap)),
		log:    o.logger.With("scenario", sc.Name),
		tmp:    tmp,
		byName: make(map[string]*member),
		res:    &Result{Final: make(map[string]map[string]fmi2.Value), Time: sc.StartTime},
	}
	defer r.free()

	if o.store != nil {
		run, err := o.store.CreateRun(ctx, sc.Name, sc.StartTime, sc.StopTime, sc.StepSize)
		if err != nil {
			return nil, err
		}
		r.res.RunID = run.ID
	}

	r.log.Info("scenario started", "instances", len(sc.Instances), "steps", sc.Steps())
	err = r.execute(ctx)

	if o.store != nil {
		if ferr := o.store.FinishRun(context.WithoutCancel(ctx), r.res.RunID, r.res.Steps, err); ferr != nil && err == nil {
			err = ferr
		}
	}
	if err != nil {
		r.log.Error("scenario failed", "steps", r.res.Steps, "error", err)
		return r.res, err
	}
	r.log.Info("scenario completed", "steps", r.res.Steps, "status", r.res.Status.String(), "messages", r.res.Messages)
	return r.res, nil
}

func (r *runner) execute(ctx context.Context) error {
	sc := r.sc
	for _, inst := range sc.Instances {
		if err := r.instantiate(inst); err != nil {
			return err
		}
	}
	if err := r.connect(); err != nil {
		return err
	}
	inputs := slices.Clone(sc.Inputs)
	sort.SliceStable(inputs, func(i, j int) bool { return inputs[i].At < inputs[j].At })
	for _, in := range inputs {
		m := r.byName[in.Instance]
		m.pending = append(m.pending, in)
	}

	stop := sc.StopTime
	for _, m := range r.members {
		if err := r.check("setup experiment", m, wrap(r.reg.SetupExperiment(m.handle, sc.StartTime, &stop, nil))); err != nil {
			return err
		}
		if err := r.check("enter initialization mode", m, wrap(r.reg.EnterInitializationMode(m.handle))); err != nil {
			return err
		}
		if len(m.Parameters) > 0 {
			if err := r.set(m, m.Parameters); err != nil {
				return fmt.Errorf("parameters of %s: %w", m.Name, err)
			}
		}
	}
	if err := r.communicate(sc.StartTime); err != nil {
		return err
	}
	for _, m := range r.members {
		if err := r.check("exit initialization mode", m, wrap(r.reg.ExitInitializationMode(m.handle))); err != nil {
			return err
		}
	}
	if err := r.drain(ctx, 0); err != nil {
		return err
	}
	if err := r.sample(ctx, 0, sc.StartTime); err != nil {
		return err
	}

	n := sc.Steps()
	for k := int64(0); k < n; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := sc.StartTime + float64(k)*sc.StepSize
		if err := r.communicate(t); err != nil {
			return err
		}
		stepErr := r.step(ctx, t)
		if err := r.drain(ctx, k+1); err != nil && stepErr == nil {
			stepErr = err
		}
		if stepErr != nil {
			return fmt.Errorf("step %d at t=%g: %w", k, t, stepErr)
		}
		r.res.Steps = k + 1
		r.res.Time = t + sc.StepSize
		if err := r.sample(ctx, k+1, r.res.Time); err != nil {
			return err
		}
	}

	for _, m := range r.members {
		if err := r.check("terminate", m, wrap(r.reg.Terminate(m.handle))); err != nil {
			return err
		}
	}
	return r.drain(ctx, n)
}

func (r *runner) instantiate(inst Instance) error {
	dir, err := r.resources(inst)
	if err != nil {
		return fmt.Errorf("instance %s: %w", inst.Name, err)
	}
	h, err := r.reg.Instantiate(registry.InstantiateArgs{
		InstanceName: inst.Name,
		FMUType:      fmi2.CoSimulation,
		ResourcesURI: dir,
		Callback:     r.o.callback,
	})
	if err != nil {
		return err
	}
	m := &member{Instance: inst, handle: h}
	r.members = append(r.members, m)
	r.byName[inst.Name] = m

	if len(inst.LogCategories) > 0 {
		status, err := r.reg.SetDebugLogging(h, true, inst.LogCategories)
		if err != nil {
			return err
		}
		if status != fmi2.OK {
			r.log.Warn("log categories not fully applied", "instance", inst.Name, "categories", inst.LogCategories)
		}
	}

	m.record = inst.Record
	if len(m.record) == 0 {
		vars, err := r.reg.Variables(h)
		if err != nil {
			return err
		}
		for _, v := range vars {
			if v.Causality == fmi2.Output {
				m.record = append(m.record, v.Name)
			}
		}
	}
	m.refs, _, err = r.reg.Resolve(h, m.record...)
	if err != nil {
		return fmt.Errorf("record of %s: %w", inst.Name, err)
	}
	r.log.Debug("instance created", "instance", inst.Name, "handle", int(h), "record", m.record)
	return nil
}

// resources returns the resources directory of inst. An instance given by
// class alone gets a generated side-car naming that class.
func (r *runner) resources(inst Instance) (string, error) {
	if inst.Resources != "" {
		if filepath.IsAbs(inst.Resources) || r.sc.baseDir == "" {
			return inst.Resources, nil
		}
		return filepath.Join(r.sc.baseDir, inst.Resources), nil
	}
	dir := filepath.Join(r.tmp, inst.Class)
	if _, err := os.Stat(dir); err == nil {
		return dir, nil
	}
	data, err := json.Marshal(config.SlaveConfig{MainScript: inst.Class + ".go", MainClass: inst.Class})
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, config.SlaveConfigFile), data, 0o644); err != nil {
		return "", err
	}
	return dir, nil
}

func (r *runner) connect() error {
	for _, c := range r.sc.Connections {
		fromInst, fromVar, _ := splitRef(c.From)
		toInst, toVar, _ := splitRef(c.To)
		from, to := r.byName[fromInst], r.byName[toInst]

		fromRefs, fromTypes, err := r.reg.Resolve(from.handle, fromVar)
		if err != nil {
			return fmt.Errorf("connection %s: %w", c.From, err)
		}
		toRefs, toTypes, err := r.reg.Resolve(to.handle, toVar)
		if err != nil {
			return fmt.Errorf("connection %s: %w", c.To, err)
		}
		if fromTypes[0] != toTypes[0] && (fromTypes[0] != fmi2.Integer || toTypes[0] != fmi2.Real) {
			return fmt.Errorf("connection %s -> %s: cannot feed %s into %s", c.From, c.To, fromTypes[0], toTypes[0])
		}
		r.links = append(r.links, link{
			from: from, to: to,
			fromRef: fromRefs[0], toRef: toRefs[0],
			toType: toTypes[0],
			label:  c.From + " -> " + c.To,
		})
	}
	return nil
}

// communicate propagates every connection and applies the inputs due at t.
// All sources are read before any target is written.
func (r *runner) communicate(t float64) error {
	values := make([]fmi2.Value, len(r.links))
	for i, l := range r.links {
		out, err := r.reg.Get(l.from.handle, []uint32{l.fromRef})
		if err != nil {
			return fmt.Errorf("connection %s: %w", l.label, err)
		}
		v, err := fmi2.Coerce(l.toType, out[0])
		if err != nil {
			return fmt.Errorf("connection %s: %w", l.label, err)
		}
		values[i] = v
	}
	for i, l := range r.links {
		if err := r.check("set", l.to, wrap(r.reg.Set(l.to.handle, []uint32{l.toRef}, []fmi2.Value{values[i]}))); err != nil {
			return fmt.Errorf("connection %s: %w", l.label, err)
		}
	}

	// Inputs at a time between two communication points apply at the later
	// one. The tolerance absorbs accumulated step rounding.
	due := t + r.sc.StepSize*1e-9
	for _, m := range r.members {
		for len(m.pending) > 0 && m.pending[0].At <= due {
			in := m.pending[0]
			m.pending = m.pending[1:]
			if err := r.set(m, in.Values); err != nil {
				return fmt.Errorf("input at %g for %s: %w", in.At, m.Name, err)
			}
			r.log.Debug("input applied", "instance", m.Name, "at", in.At, "time", t)
		}
	}
	return nil
}

func (r *runner) set(m *member, values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)
	refs, types, err := r.reg.Resolve(m.handle, names...)
	if err != nil {
		return err
	}
	vals := make([]fmi2.Value, len(names))
	for i, name := range names {
		v, err := fmi2.Coerce(types[i], values[name])
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		vals[i] = v
	}
	return r.check("set", m, wrap(r.reg.Set(m.handle, refs, vals)))
}

// step advances every instance from t concurrently and waits for all.
func (r *runner) step(ctx context.Context, t float64) error {
	statuses := make([]fmi2.Status, len(r.members))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range r.members {
		i, m := i, m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			status, err := r.reg.DoStep(m.handle, t, r.sc.StepSize, true)
			statuses[i] = status
			return failure("do step", m, status, err)
		})
	}
	err := g.Wait()
	for _, s := range statuses {
		r.res.Status = fmi2.Worse(r.res.Status, s)
	}
	return err
}

// sample reads the recorded variables of every instance at communication
// point step.
func (r *runner) sample(ctx context.Context, step int64, t float64) error {
	var samples []store.Sample
	for _, m := range r.members {
		if len(m.refs) == 0 {
			continue
		}
		values, err := r.reg.Get(m.handle, m.refs)
		if err != nil {
			return fmt.Errorf("record %s: %w", m.Name, err)
		}
		final := r.res.Final[m.Name]
		if final == nil {
			final = make(map[string]fmi2.Value, len(values))
			r.res.Final[m.Name] = final
		}
		for i, v := range values {
			final[m.record[i]] = v
			samples = append(samples, store.Sample{Step: step, Time: t, Instance: m.Name, Variable: m.record[i], Value: v})
		}
	}
	if r.o.store == nil || len(samples) == 0 {
		return nil
	}
	return r.o.store.WriteSamples(ctx, r.res.RunID, samples)
}

// drain empties the message buffer of every instance.
func (r *runner) drain(ctx context.Context, step int64) error {
	for _, m := range r.members {
		msgs, err := r.reg.DrainMessages(m.handle)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			continue
		}
		r.res.Messages += len(msgs)
		for _, msg := range msgs {
			r.log.Debug("slave message", "instance", m.Name, "step", step, "status", msg.Status.String(), "category", msg.Category, "text", msg.Text)
		}
		if r.o.store != nil {
			if _, err := r.o.store.WriteMessages(ctx, r.res.RunID, step, m.Name, msgs); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *runner) free() {
	for _, m := range r.members {
		if err := r.reg.FreeInstance(m.handle); err != nil {
			r.log.Warn("free instance", "instance", m.Name, "error", err)
		}
	}
}

type outcome struct {
	status fmi2.Status
	err    error
}

func wrap(status fmi2.Status, err error) outcome {
	return outcome{status, err}
}

// check folds the status into the result and converts failures to errors.
func (r *runner) check(op string, m *member, o outcome) error {
	r.res.Status = fmi2.Worse(r.res.Status, o.status)
	return failure(op, m, o.status, o.err)
}

func failure(op string, m *member, status fmi2.Status, err error) error {
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, m.Name, err)
	}
	if status > fmi2.Warning {
		return fmt.Errorf("%s %s: %w with status %s", op, m.Name, ErrSlaveFailed, status)
	}
	return nil
}
