package slaves

import (
	"github.com/roach88/fmu/internal/slave"
)

// NewConstantSignal builds a slave that exposes one parameter of each data
// type and mirrors it on an output: y = k, n_out = n, on_out = on and
// label_out = label.
func NewConstantSignal(opts ...slave.Option) (*slave.Model, error) {
	m := slave.New(slave.Info{
		ModelName:   ConstantSignalClass,
		Author:      "fmu",
		Description: "Produces constant signals of every type",
	}, opts...)

	if _, err := m.RegisterParameter("k", 1.0); err != nil {
		return nil, err
	}
	if _, err := m.RegisterParameter("n", int32(1)); err != nil {
		return nil, err
	}
	if _, err := m.RegisterParameter("on", true); err != nil {
		return nil, err
	}
	if _, err := m.RegisterParameter("label", "constant"); err != nil {
		return nil, err
	}

	k := slave.MustLookup[float64](m, "k")
	n := slave.MustLookup[int32](m, "n")
	on := slave.MustLookup[bool](m, "on")
	label := slave.MustLookup[string](m, "label")

	if _, err := m.RegisterOutput("y", "real", slave.Computed(k.Get)); err != nil {
		return nil, err
	}
	if _, err := m.RegisterOutput("n_out", "integer", slave.Computed(n.Get)); err != nil {
		return nil, err
	}
	if _, err := m.RegisterOutput("on_out", "boolean", slave.Computed(on.Get)); err != nil {
		return nil, err
	}
	if _, err := m.RegisterOutput("label_out", "string", slave.Computed(label.Get)); err != nil {
		return nil, err
	}
	return m, nil
}
