package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/fmu/internal/slave"
)

// Factory builds a fresh model. The registry passes the instance logger
// through opts; a factory must forward them to slave.New.
type Factory func(opts ...slave.Option) (*slave.Model, error)

// Factories maps main_class identifiers to constructors.
type Factories struct {
	mu sync.RWMutex
	m  map[string]Factory
}

// NewFactories returns an empty factory set.
func NewFactories() *Factories {
	return &Factories{m: make(map[string]Factory)}
}

// Register adds a constructor under class. Registering a class twice is an
// error.
func (f *Factories) Register(class string, fn Factory) error {
	if class == "" || fn == nil {
		return fmt.Errorf("register factory: class name and constructor are required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.m[class]; ok {
		return fmt.Errorf("register factory %q: already registered", class)
	}
	f.m[class] = fn
	return nil
}

// Lookup returns the constructor registered under class.
func (f *Factories) Lookup(class string) (Factory, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	fn, ok := f.m[class]
	return fn, ok
}

// Classes returns the registered class names, sorted.
func (f *Factories) Classes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.m))
	for c := range f.m {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
