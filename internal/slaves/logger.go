package slaves

import (
	"fmt"

	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/fmilog"
	"github.com/roach88/fmu/internal/slave"
)

type loggerSlave struct {
	slave.NopHooks
	m       *slave.Model
	a, b, s slave.Var[float64]
}

func (h *loggerSlave) ExitInitializationMode() fmi2.Status {
	h.s.Set(h.a.Get() + h.b.Get())
	h.m.Log(fmt.Sprintf("inputs were set to %g and %g, output is %g", h.a.Get(), h.b.Get(), h.s.Get()),
		fmilog.InCategory(fmilog.LogEvents))
	return fmi2.OK
}

func (h *loggerSlave) DoStep(currentTime, stepSize float64, _ bool) fmi2.Status {
	h.s.Set(h.a.Get() + h.b.Get())
	h.m.Log(fmt.Sprintf("step from %g by %g, s = %g", currentTime, stepSize, h.s.Get()),
		fmilog.InCategory(fmilog.LogEvents))
	if h.s.Get() < 0 {
		h.m.Log("output is negative", fmilog.InCategory(fmilog.LogEvents), fmilog.WithStatus(fmi2.Warning))
		return fmi2.Warning
	}
	return fmi2.OK
}

// NewLogger builds an adder that logs its inputs and every step under
// logEvents and returns Warning when the sum goes negative.
func NewLogger(opts ...slave.Option) (*slave.Model, error) {
	h := &loggerSlave{}
	m := slave.New(slave.Info{ModelName: LoggerClass, Author: "fmu", Description: "Adder that logs every step"},
		append(opts, slave.WithHooks(h))...)
	h.m = m

	if _, err := m.RegisterInput("a", 0.0); err != nil {
		return nil, err
	}
	if _, err := m.RegisterInput("b", 0.0); err != nil {
		return nil, err
	}
	if _, err := m.RegisterOutput("s", "real"); err != nil {
		return nil, err
	}
	h.a = slave.MustLookup[float64](m, "a")
	h.b = slave.MustLookup[float64](m, "b")
	h.s = slave.MustLookup[float64](m, "s")
	return m, nil
}
