package scenario

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario describes a co-simulation of several slave instances advanced
// in lock-step with a fixed communication step.
type Scenario struct {
	// Name identifies the scenario in stored runs.
	Name string `yaml:"name"`

	// Description explains what the scenario simulates.
	Description string `yaml:"description,omitempty"`

	StartTime float64 `yaml:"start_time"`
	StopTime  float64 `yaml:"stop_time"`
	StepSize  float64 `yaml:"step_size"`

	// Instances are instantiated in order; handles follow that order.
	Instances []Instance `yaml:"instances"`

	// Connections copy an output to an input before every step.
	Connections []Connection `yaml:"connections,omitempty"`

	// Inputs are applied at the first communication point at or after At.
	Inputs []Input `yaml:"inputs,omitempty"`

	// baseDir resolves relative resources paths.
	baseDir string
}

// Instance is one slave instance of a scenario.
type Instance struct {
	Name string `yaml:"name"`

	// Class is the main_class of a registered slave. Used when Resources is
	// empty.
	Class string `yaml:"class,omitempty"`

	// Resources is a resources directory holding slave_configuration.json,
	// relative to the scenario file.
	Resources string `yaml:"resources,omitempty"`

	// Parameters are written during initialization mode.
	Parameters map[string]any `yaml:"parameters,omitempty"`

	// Record lists the variables sampled at every communication point.
	// Empty records every output.
	Record []string `yaml:"record,omitempty"`

	// LogCategories are enabled on the instance logger.
	LogCategories []string `yaml:"log_categories,omitempty"`
}

// Connection names an output and the input it feeds, both as
// "instance.variable".
type Connection struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Input sets variables of one instance at a point in time.
type Input struct {
	At       float64        `yaml:"at"`
	Instance string         `yaml:"instance"`
	Values   map[string]any `yaml:"values"`
}

// Load reads and validates a scenario YAML file. Relative resources paths
// are resolved against the file's directory.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	sc.baseDir = filepath.Dir(path)
	return sc, nil
}

// Parse decodes and validates scenario YAML. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// Validate checks the scenario for structural errors. Variable names are
// only checked once the instances exist, at run time.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if sc.StepSize <= 0 || math.IsNaN(sc.StepSize) {
		return fmt.Errorf("step_size must be positive")
	}
	if !(sc.StopTime > sc.StartTime) {
		return fmt.Errorf("stop_time must be greater than start_time")
	}
	if len(sc.Instances) == 0 {
		return fmt.Errorf("instances list is required and must be non-empty")
	}

	names := make(map[string]bool, len(sc.Instances))
	for i, inst := range sc.Instances {
		if inst.Name == "" {
			return fmt.Errorf("instance %d: name is required", i)
		}
		if strings.Contains(inst.Name, ".") {
			return fmt.Errorf("instance %q: name must not contain '.'", inst.Name)
		}
		if names[inst.Name] {
			return fmt.Errorf("instance %q: duplicate name", inst.Name)
		}
		names[inst.Name] = true
		if inst.Class == "" && inst.Resources == "" {
			return fmt.Errorf("instance %q: class or resources is required", inst.Name)
		}
	}

	for i, c := range sc.Connections {
		for _, end := range []string{c.From, c.To} {
			inst, _, err := splitRef(end)
			if err != nil {
				return fmt.Errorf("connection %d: %w", i, err)
			}
			if !names[inst] {
				return fmt.Errorf("connection %d: unknown instance %q", i, inst)
			}
		}
	}
	for i, in := range sc.Inputs {
		if !names[in.Instance] {
			return fmt.Errorf("input %d: unknown instance %q", i, in.Instance)
		}
		if in.At < sc.StartTime || in.At >= sc.StopTime {
			return fmt.Errorf("input %d: at %g outside [%g, %g)", i, in.At, sc.StartTime, sc.StopTime)
		}
		if len(in.Values) == 0 {
			return fmt.Errorf("input %d: values are required", i)
		}
	}
	return nil
}

// Steps returns the number of communication steps between start and stop.
func (sc *Scenario) Steps() int64 {
	return int64(math.Round((sc.StopTime - sc.StartTime) / sc.StepSize))
}

func splitRef(ref string) (instance, variable string, err error) {
	instance, variable, ok := strings.Cut(ref, ".")
	if !ok || instance == "" || variable == "" {
		return "", "", fmt.Errorf("%q is not of the form instance.variable", ref)
	}
	return instance, variable, nil
}
