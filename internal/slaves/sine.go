package slaves

import (
	"math"

	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/slave"
	"github.com/roach88/fmu/internal/variable"
)

type sine struct {
	slave.NopHooks
	t                           float64
	amplitude, frequency, phase slave.Var[float64]
}

func (h *sine) SetupExperiment(start float64, _, _ *float64) fmi2.Status {
	h.t = start
	return fmi2.OK
}

func (h *sine) DoStep(currentTime, stepSize float64, _ bool) fmi2.Status {
	h.t = currentTime + stepSize
	return fmi2.OK
}

func (h *sine) Reset() fmi2.Status {
	h.t = 0
	return fmi2.OK
}

func (h *sine) y() float64 {
	return h.amplitude.Get() * math.Sin(h.t*h.frequency.Get()+h.phase.Get())
}

// NewSineGenerator builds a slave whose output y is
// amplitude * sin(t * frequency + phase), evaluated at the current
// communication point.
func NewSineGenerator(opts ...slave.Option) (*slave.Model, error) {
	h := &sine{}
	m := slave.New(slave.Info{
		ModelName:   SineGeneratorClass,
		Author:      "fmu",
		Description: "Single output sine wave generator",
	}, append(opts, slave.WithHooks(h))...)

	params := []struct {
		name, desc string
		start      float64
	}{
		{"amplitude", "amplitude of the sine wave", 1},
		{"frequency", "angular frequency of the sine wave", 1},
		{"phase", "phase of the sine wave", 0},
	}
	for _, p := range params {
		if _, err := m.Register(p.name, variable.Options{
			Causality:   "parameter",
			Variability: "tunable",
			Start:       p.start,
			Description: p.desc,
		}); err != nil {
			return nil, err
		}
	}
	h.amplitude = slave.MustLookup[float64](m, "amplitude")
	h.frequency = slave.MustLookup[float64](m, "frequency")
	h.phase = slave.MustLookup[float64](m, "phase")

	if _, err := m.Register("y", variable.Options{
		Type:        "real",
		Causality:   "output",
		Initial:     "calculated",
		Description: "output of the generator",
	}, slave.Computed(h.y)); err != nil {
		return nil, err
	}
	return m, nil
}
