// Package fmilog implements the per-instance FMI 2.0 logging model.
//
// A Logger owns three things:
//
//   - a registry of categories, each with a predicate over
//     (status, category, message)
//   - the set of currently active categories, changed by the host through
//     SetDebugLogging
//   - a FIFO sink of recorded messages, drained with PopMessages
//
// Log consults the predicates of active categories only, in registration
// order, and records the message once on the first match.
package fmilog

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/fmu/internal/fmi2"
)

// DefaultCategory is used by Log when no category is given.
const DefaultCategory = "events"

// InternalCategory tags messages the runtime emits about itself.
const InternalCategory = "fmi2slave"

// ErrAmbiguousCategory is returned when a category is registered with both
// aliases and a custom predicate.
var ErrAmbiguousCategory = errors.New("category may have aliases or a predicate, not both")

// ErrDuplicateCategory is returned when a category name is registered twice.
var ErrDuplicateCategory = errors.New("category already registered")

// Predicate decides whether a message belongs to a category.
type Predicate func(status fmi2.Status, category, message string) bool

// ArgumentError describes malformed SetDebugLogging arguments. It is never
// returned to the caller; it is logged as a warning instead.
type ArgumentError struct {
	Categories []string
	Reason     string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("set debug logging %v: %s", e.Categories, e.Reason)
}

type category struct {
	name      string
	predicate Predicate
}

// Logger is safe for concurrent use.
type Logger struct {
	mu         sync.Mutex
	categories []category
	index      map[string]int
	active     map[string]bool
	sink       *messageQueue
	callback   func(Message)
}

// Option configures a Logger.
type Option func(*Logger)

// WithCallback registers a function invoked for every recorded message,
// after it has been buffered. The callback runs without the logger lock
// held.
func WithCallback(fn func(Message)) Option {
	return func(l *Logger) {
		l.callback = fn
	}
}

// WithStandardCategories registers all ten standard categories.
func WithStandardCategories() Option {
	return func(l *Logger) {
		_ = l.RegisterStandardCategories()
	}
}

// New creates a logger with no active categories.
func New(opts ...Option) *Logger {
	l := &Logger{
		index:  make(map[string]int),
		active: make(map[string]bool),
		sink:   newMessageQueue(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type categoryConfig struct {
	aliases   []string
	predicate Predicate
}

// CategoryOption configures a category at registration.
type CategoryOption func(*categoryConfig)

// WithAliases makes the category match messages logged under any of the
// given names, compared case-insensitively. The category's own name always
// matches.
func WithAliases(aliases ...string) CategoryOption {
	return func(c *categoryConfig) {
		c.aliases = append(c.aliases, aliases...)
	}
}

// WithPredicate replaces name matching with a custom predicate.
func WithPredicate(p Predicate) CategoryOption {
	return func(c *categoryConfig) {
		c.predicate = p
	}
}

// RegisterCategory adds a category. Without options the category matches
// messages whose category equals its name exactly.
func (l *Logger) RegisterCategory(name string, opts ...CategoryOption) error {
	if name == "" {
		return errors.New("category name is required")
	}
	var cfg categoryConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.aliases) > 0 && cfg.predicate != nil {
		return fmt.Errorf("register category %q: %w", name, ErrAmbiguousCategory)
	}

	pred := cfg.predicate
	switch {
	case pred != nil:
	case len(cfg.aliases) > 0:
		pred = aliasPredicate(name, cfg.aliases)
	default:
		pred = func(_ fmi2.Status, c, _ string) bool { return c == name }
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.index[name]; exists {
		return fmt.Errorf("register category %q: %w", name, ErrDuplicateCategory)
	}
	l.index[name] = len(l.categories)
	l.categories = append(l.categories, category{name: name, predicate: pred})
	return nil
}

func aliasPredicate(name string, aliases []string) Predicate {
	set := make(map[string]struct{}, len(aliases)+1)
	set[fmi2.Normalize(name)] = struct{}{}
	for _, a := range aliases {
		set[fmi2.Normalize(a)] = struct{}{}
	}
	return func(_ fmi2.Status, c, _ string) bool {
		_, ok := set[fmi2.Normalize(c)]
		return ok
	}
}

// SetDebugLogging enables or disables categories. Unknown category names or
// an empty list leave the active set unchanged; a warning is logged and
// Warning is returned.
func (l *Logger) SetDebugLogging(on bool, categories []string) fmi2.Status {
	if argErr := l.checkCategories(categories); argErr != nil {
		l.Log(argErr.Error(), InCategory(InternalCategory), WithStatus(fmi2.Warning))
		return fmi2.Warning
	}

	l.mu.Lock()
	for _, c := range categories {
		if on {
			l.active[c] = true
		} else {
			delete(l.active, c)
		}
	}
	l.mu.Unlock()
	return fmi2.OK
}

func (l *Logger) checkCategories(categories []string) *ArgumentError {
	if len(categories) == 0 {
		return &ArgumentError{Categories: categories, Reason: "no categories given"}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var unknown []string
	for _, c := range categories {
		if _, ok := l.index[c]; !ok {
			unknown = append(unknown, c)
		}
	}
	if len(unknown) > 0 {
		return &ArgumentError{
			Categories: categories,
			Reason:     "unknown categories " + strings.Join(unknown, ", "),
		}
	}
	return nil
}

type logConfig struct {
	category string
	status   fmi2.Status
}

// LogOption configures a single Log call.
type LogOption func(*logConfig)

// InCategory sets the message category. Defaults to DefaultCategory.
func InCategory(c string) LogOption {
	return func(cfg *logConfig) {
		if c != "" {
			cfg.category = c
		}
	}
}

// WithStatus sets the message status. Defaults to fmi2.OK.
func WithStatus(s fmi2.Status) LogOption {
	return func(cfg *logConfig) {
		cfg.status = s
	}
}

// Log records a message if any active category matches it and reports
// whether it was recorded.
func (l *Logger) Log(text string, opts ...LogOption) bool {
	cfg := logConfig{category: DefaultCategory, status: fmi2.OK}
	for _, opt := range opts {
		opt(&cfg)
	}

	l.mu.Lock()
	matched := false
	for _, c := range l.categories {
		if !l.active[c.name] {
			continue
		}
		if c.predicate(cfg.status, cfg.category, text) {
			matched = true
			break
		}
	}
	callback := l.callback
	l.mu.Unlock()

	if !matched {
		return false
	}
	msg := Message{Status: cfg.status, Category: cfg.category, Text: text}
	l.sink.Enqueue(msg)
	if callback != nil {
		callback(msg)
	}
	return true
}

// Logf formats and logs a message with an explicit status and category.
func (l *Logger) Logf(status fmi2.Status, category, format string, args ...any) bool {
	return l.Log(fmt.Sprintf(format, args...), InCategory(category), WithStatus(status))
}

// PopMessages drains exactly n of the oldest recorded messages.
func (l *Logger) PopMessages(n int) ([]Message, error) {
	return l.sink.PopN(n)
}

// Drain removes and returns every buffered message.
func (l *Logger) Drain() []Message {
	return l.sink.PopAll()
}

// Len returns the number of buffered messages.
func (l *Logger) Len() int {
	return l.sink.Len()
}

// ActiveCategories returns the active categories in registration order.
func (l *Logger) ActiveCategories() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, c := range l.categories {
		if l.active[c.name] {
			out = append(out, c.name)
		}
	}
	return out
}

// AvailableCategories returns every registered category in registration
// order.
func (l *Logger) AvailableCategories() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.categories))
	for _, c := range l.categories {
		out = append(out, c.name)
	}
	return out
}

// IsActive reports whether the named category is active.
func (l *Logger) IsActive(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[name]
}

// HasCategory reports whether the named category is registered.
func (l *Logger) HasCategory(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.index[name]
	return ok
}
