package fmilog

import (
	"fmt"

	"github.com/roach88/fmu/internal/fmi2"
)

// Standard categories defined by FMI 2.0 section 2.1.5.
const (
	LogEvents                = "logEvents"
	LogSingularLinearSystems = "logSingularLinearSystems"
	LogNonlinearSystems      = "logNonlinearSystems"
	LogDynamicStateSelection = "logDynamicStateSelection"
	LogStatusWarning         = "logStatusWarning"
	LogStatusDiscard         = "logStatusDiscard"
	LogStatusError           = "logStatusError"
	LogStatusFatal           = "logStatusFatal"
	LogStatusPending         = "logStatusPending"
	LogAll                   = "logAll"
)

type standardCategory struct {
	name    string
	aliases []string
	status  *fmi2.Status
	all     bool
}

func statusPtr(s fmi2.Status) *fmi2.Status { return &s }

var standardCategories = []standardCategory{
	{name: LogEvents, aliases: []string{"event", "events"}},
	{name: LogSingularLinearSystems, aliases: []string{"singularlinearsystem", "singularlinearsystems", "sls"}},
	{name: LogNonlinearSystems, aliases: []string{"nonlinearsystem", "nonlinearsystems", "nls"}},
	{name: LogDynamicStateSelection, aliases: []string{"dynamicstateselection", "dss"}},
	{name: LogStatusWarning, status: statusPtr(fmi2.Warning)},
	{name: LogStatusDiscard, status: statusPtr(fmi2.Discard)},
	{name: LogStatusError, status: statusPtr(fmi2.Error)},
	{name: LogStatusFatal, status: statusPtr(fmi2.Fatal)},
	{name: LogStatusPending, status: statusPtr(fmi2.Pending)},
	{name: LogAll, all: true},
}

// StandardCategories returns the names of the ten standard categories.
func StandardCategories() []string {
	out := make([]string, len(standardCategories))
	for i, c := range standardCategories {
		out[i] = c.name
	}
	return out
}

// RegisterStandardCategories registers the named standard categories, or
// all ten when no names are given. Categories already registered are
// skipped.
func (l *Logger) RegisterStandardCategories(names ...string) error {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	for _, c := range standardCategories {
		if len(names) > 0 && !want[c.name] {
			continue
		}
		delete(want, c.name)
		if l.HasCategory(c.name) {
			continue
		}

		var opt CategoryOption
		switch {
		case c.all:
			opt = WithPredicate(func(fmi2.Status, string, string) bool { return true })
		case c.status != nil:
			s := *c.status
			opt = WithPredicate(func(status fmi2.Status, _, _ string) bool { return status == s })
		default:
			opt = WithAliases(c.aliases...)
		}
		if err := l.RegisterCategory(c.name, opt); err != nil {
			return err
		}
	}
	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for n := range want {
			unknown = append(unknown, n)
		}
		return fmt.Errorf("not standard categories: %v", unknown)
	}
	return nil
}
