package slaves

import (
	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/slave"
	"github.com/roach88/fmu/internal/variable"
)

type adder struct {
	slave.NopHooks
	a, b, s slave.Var[float64]
}

func (h *adder) update() fmi2.Status {
	h.s.Set(h.a.Get() + h.b.Get())
	return fmi2.OK
}

func (h *adder) ExitInitializationMode() fmi2.Status {
	return h.update()
}

func (h *adder) DoStep(float64, float64, bool) fmi2.Status {
	return h.update()
}

// NewAdder builds a slave with real inputs a and b and output s = a + b,
// refreshed on exiting initialization and on every step.
func NewAdder(opts ...slave.Option) (*slave.Model, error) {
	h := &adder{}
	m := slave.New(slave.Info{
		ModelName:   AdderClass,
		Author:      "fmu",
		Description: "Adds two real inputs",
	}, append(opts, slave.WithHooks(h))...)

	if _, err := m.Register("a", variable.Options{Type: "real", Causality: "input", Start: 0.0, Description: "first summand"}); err != nil {
		return nil, err
	}
	if _, err := m.Register("b", variable.Options{Type: "real", Causality: "input", Start: 0.0, Description: "second summand"}); err != nil {
		return nil, err
	}
	if _, err := m.Register("s", variable.Options{Type: "real", Causality: "output", Initial: "calculated", Description: "a + b"}); err != nil {
		return nil, err
	}
	h.a = slave.MustLookup[float64](m, "a")
	h.b = slave.MustLookup[float64](m, "b")
	h.s = slave.MustLookup[float64](m, "s")
	return m, nil
}
