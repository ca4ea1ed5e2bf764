// Package registry maps opaque handles to live slave instances so that one
// host process can drive many instances at once.
//
// Handles are the smallest non-negative integers not held by a live or
// half-constructed instance. The handle table is guarded by a RWMutex and
// each instance by its own mutex, so calls on distinct handles proceed in
// parallel while calls on one handle are serialized.
package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/roach88/fmu/internal/config"
	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/fmilog"
	"github.com/roach88/fmu/internal/slave"
)

// Handle addresses one live instance.
type Handle int

var (
	// ErrUnknownHandle is returned for a handle that was never issued or has
	// been freed.
	ErrUnknownHandle = errors.New("unknown slave handle")

	// ErrUnsupportedFMUType is returned when anything but co-simulation is
	// requested.
	ErrUnsupportedFMUType = errors.New("only co-simulation is supported")

	// ErrUnknownClass is returned when main_class names no factory and no
	// declaration file.
	ErrUnknownClass = errors.New("unknown slave class")

	// ErrGUIDMismatch is returned when the host's GUID differs from the
	// model's.
	ErrGUIDMismatch = errors.New("guid mismatch")
)

// Callback receives every message an instance logs, tagged with the
// instance name.
type Callback func(instanceName string, msg fmilog.Message)

// InstantiateArgs mirrors the arguments of fmi2Instantiate.
type InstantiateArgs struct {
	InstanceName string
	FMUType      fmi2.FMUType
	GUID         string
	ResourcesURI string
	Callback     Callback
	Visible      bool
	LoggingOn    bool
}

type instance struct {
	mu      sync.Mutex
	freed   bool
	name    string
	visible bool
	model   *slave.Model
	names   map[uint32]string
	types   map[uint32]fmi2.DataType
}

// Context is the handle table.
type Context struct {
	mu        sync.RWMutex
	instances map[Handle]*instance
	pending   map[Handle]struct{}
	factories *Factories
	resolve   func(uri string) (string, error)
	log       *zap.Logger
}

// Option configures a Context.
type Option func(*Context)

// WithFactories sets the class constructors used by Instantiate.
func WithFactories(f *Factories) Option {
	return func(c *Context) {
		c.factories = f
	}
}

// WithZapLogger sets the process logger. Instance diagnostics go through
// each instance's fmilog.Logger instead.
func WithZapLogger(l *zap.Logger) Option {
	return func(c *Context) {
		c.log = l
	}
}

// WithResolver replaces the resources URI resolver.
func WithResolver(fn func(uri string) (string, error)) Option {
	return func(c *Context) {
		c.resolve = fn
	}
}

// New creates an empty registry.
func New(opts ...Option) *Context {
	c := &Context{
		instances: make(map[Handle]*instance),
		pending:   make(map[Handle]struct{}),
		factories: NewFactories(),
		resolve:   config.ResourcesDir,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// reserve claims the smallest handle that is neither live nor pending.
func (c *Context) reserve() Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := Handle(0)
	for {
		_, live := c.instances[h]
		_, pending := c.pending[h]
		if !live && !pending {
			break
		}
		h++
	}
	c.pending[h] = struct{}{}
	return h
}

func (c *Context) release(h Handle) {
	c.mu.Lock()
	delete(c.pending, h)
	c.mu.Unlock()
}

// Instantiate builds a new instance from the resources directory and
// returns its handle. On failure no handle is consumed.
func (c *Context) Instantiate(args InstantiateArgs) (Handle, error) {
	h := c.reserve()
	log := c.log.With(zap.Int("handle", int(h)), zap.String("instance", args.InstanceName))

	inst, err := c.build(args)
	if err != nil {
		c.release(h)
		log.Warn("instantiate failed", zap.Error(err))
		return -1, fmt.Errorf("instantiate %s: %w", args.InstanceName, err)
	}

	c.mu.Lock()
	delete(c.pending, h)
	c.instances[h] = inst
	n := len(c.instances)
	c.mu.Unlock()

	log.Info("instance created", zap.String("model", inst.model.Info().ModelName), zap.Int("instances", n))
	return h, nil
}

func (c *Context) build(args InstantiateArgs) (*instance, error) {
	if args.FMUType != fmi2.CoSimulation {
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedFMUType, args.FMUType)
	}
	dir, err := c.resolve(args.ResourcesURI)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadSlaveConfig(dir)
	if err != nil {
		return nil, err
	}

	logOpts := []fmilog.Option{fmilog.WithStandardCategories()}
	if args.Callback != nil {
		name, cb := args.InstanceName, args.Callback
		logOpts = append(logOpts, fmilog.WithCallback(func(m fmilog.Message) { cb(name, m) }))
	}
	logger := fmilog.New(logOpts...)

	var modelOpts []slave.Option
	if cfg.TraceCalls() {
		modelOpts = append(modelOpts, slave.WithCallTracing())
	}
	model, err := c.construct(dir, cfg, logger, modelOpts...)
	if err != nil {
		return nil, err
	}
	if args.GUID != "" && args.GUID != model.GUID() {
		return nil, fmt.Errorf("%w: host has %s, %s has %s", ErrGUIDMismatch, args.GUID, cfg.MainClass, model.GUID())
	}
	if args.LoggingOn {
		model.SetDebugLogging(true, model.Categories())
	}
	if cats := cfg.Overrides(); len(cats) > 0 {
		model.Log(fmt.Sprintf("log categories %v activated by %s", cats, config.SlaveConfigFile),
			fmilog.InCategory(fmilog.InternalCategory))
		model.SetDebugLogging(true, cats)
	}

	inst := &instance{
		name:    args.InstanceName,
		visible: args.Visible,
		model:   model,
		names:   make(map[uint32]string),
		types:   make(map[uint32]fmi2.DataType),
	}
	for _, v := range model.Variables() {
		inst.names[v.ValueReference] = v.Name
		inst.types[v.ValueReference] = v.Type
	}
	return inst, nil
}

// construct prefers a registered factory. A main_script ending in .cue
// whose model name equals main_class is built from its declarations.
func (c *Context) construct(dir string, cfg *config.SlaveConfig, logger *fmilog.Logger, opts ...slave.Option) (*slave.Model, error) {
	opts = append([]slave.Option{slave.WithLogger(logger)}, opts...)
	if fn, ok := c.factories.Lookup(cfg.MainClass); ok {
		return fn(opts...)
	}
	if !strings.EqualFold(filepath.Ext(cfg.MainScript), ".cue") {
		return nil, fmt.Errorf("%w %q", ErrUnknownClass, cfg.MainClass)
	}
	path, err := cfg.ScriptPath(dir)
	if err != nil {
		return nil, err
	}
	decls, err := config.LoadDeclarations(path)
	if err != nil {
		return nil, err
	}
	if decls.Info.ModelName != cfg.MainClass {
		return nil, fmt.Errorf("%w %q: %s declares %q", ErrUnknownClass, cfg.MainClass, cfg.MainScript, decls.Info.ModelName)
	}
	return decls.Build(opts...)
}

// FreeInstance removes the instance. It waits for a call in flight on the
// same handle to finish.
func (c *Context) FreeInstance(h Handle) error {
	c.mu.Lock()
	inst, ok := c.instances[h]
	if ok {
		delete(c.instances, h)
	}
	n := len(c.instances)
	c.mu.Unlock()
	if !ok {
		return unknown(h)
	}

	inst.mu.Lock()
	inst.freed = true
	inst.mu.Unlock()

	c.log.Info("instance freed", zap.Int("handle", int(h)), zap.String("instance", inst.name), zap.Int("instances", n))
	return nil
}

func unknown(h Handle) error {
	return fmt.Errorf("handle %d: %w", h, ErrUnknownHandle)
}

// with runs fn holding the instance lock.
func (c *Context) with(h Handle, fn func(*instance) error) error {
	c.mu.RLock()
	inst, ok := c.instances[h]
	c.mu.RUnlock()
	if !ok {
		return unknown(h)
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.freed {
		return unknown(h)
	}
	return fn(inst)
}

// Len returns the number of live instances.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.instances)
}

// Handles returns the live handles in ascending order.
func (c *Context) Handles() []Handle {
	c.mu.RLock()
	out := make([]Handle, 0, len(c.instances))
	for h := range c.instances {
		out = append(out, h)
	}
	c.mu.RUnlock()
	slices.Sort(out)
	return out
}
