// Package slaves contains ready-made co-simulation slaves, mostly for tests,
// demos and the fmu command.
package slaves

import (
	"github.com/roach88/fmu/internal/registry"
)

// Class names under which Register installs the slaves.
const (
	AdderClass          = "Adder"
	SineGeneratorClass  = "SineGenerator"
	LoggerClass         = "LoggerSlave"
	ConstantSignalClass = "ConstantSignal"
)

// Register adds every slave in this package to f.
func Register(f *registry.Factories) error {
	for class, fn := range map[string]registry.Factory{
		AdderClass:          NewAdder,
		SineGeneratorClass:  NewSineGenerator,
		LoggerClass:         NewLogger,
		ConstantSignalClass: NewConstantSignal,
	} {
		if err := f.Register(class, fn); err != nil {
			return err
		}
	}
	return nil
}

// Factories returns a fresh factory set holding every slave in this package.
func Factories() *registry.Factories {
	f := registry.NewFactories()
	if err := Register(f); err != nil {
		panic(err)
	}
	return f
}
