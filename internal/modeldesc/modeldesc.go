// Package modeldesc renders a slave model as an FMI 2.0 modelDescription.xml
// document and reads such documents back.
package modeldesc

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/slave"
)

// GenerationTool is written into every generated document.
const GenerationTool = "fmu"

// Document is the root fmiModelDescription element.
type Document struct {
	XMLName                  xml.Name       `xml:"fmiModelDescription"`
	FMIVersion               string         `xml:"fmiVersion,attr"`
	ModelName                string         `xml:"modelName,attr"`
	GUID                     string         `xml:"guid,attr"`
	Description              string         `xml:"description,attr,omitempty"`
	Author                   string         `xml:"author,attr,omitempty"`
	Version                  string         `xml:"version,attr,omitempty"`
	Copyright                string         `xml:"copyright,attr,omitempty"`
	GenerationTool           string         `xml:"generationTool,attr,omitempty"`
	GenerationDateAndTime    string         `xml:"generationDateAndTime,attr,omitempty"`
	VariableNamingConvention string         `xml:"variableNamingConvention,attr,omitempty"`
	CoSimulation             CoSimulation   `xml:"CoSimulation"`
	LogCategories            *LogCategories `xml:"LogCategories"`
	ModelVariables           ModelVariables `xml:"ModelVariables"`
	ModelStructure           ModelStructure `xml:"ModelStructure"`
}

// CoSimulation carries the co-simulation capability flags.
type CoSimulation struct {
	ModelIdentifier                        string `xml:"modelIdentifier,attr"`
	NeedsExecutionTool                     bool   `xml:"needsExecutionTool,attr"`
	CanHandleVariableCommunicationStepSize bool   `xml:"canHandleVariableCommunicationStepSize,attr"`
}

// LogCategories lists the categories a host may pass to fmi2SetDebugLogging.
type LogCategories struct {
	Categories []Category `xml:"Category"`
}

// Category is one log category.
type Category struct {
	Name string `xml:"name,attr"`
}

// ModelVariables holds the scalar variables; their 1-based position is the
// index ModelStructure refers to.
type ModelVariables struct {
	Variables []ScalarVariable `xml:"ScalarVariable"`
}

// ScalarVariable is one declared variable. Exactly one typed child is set.
type ScalarVariable struct {
	Name           string `xml:"name,attr"`
	ValueReference uint32 `xml:"valueReference,attr"`
	Description    string `xml:"description,attr,omitempty"`
	Causality      string `xml:"causality,attr"`
	Variability    string `xml:"variability,attr"`
	Initial        string `xml:"initial,attr,omitempty"`
	Real           *Typed `xml:"Real"`
	Integer        *Typed `xml:"Integer"`
	Boolean        *Typed `xml:"Boolean"`
	String         *Typed `xml:"String"`
}

// Typed is the type element of a ScalarVariable.
type Typed struct {
	Start *string `xml:"start,attr"`
}

// ModelStructure lists outputs and initial unknowns by variable index.
type ModelStructure struct {
	Outputs         *Unknowns `xml:"Outputs"`
	InitialUnknowns *Unknowns `xml:"InitialUnknowns"`
}

// Unknowns is a list of Unknown elements.
type Unknowns struct {
	Unknown []Unknown `xml:"Unknown"`
}

// Unknown refers to a ScalarVariable by 1-based index.
type Unknown struct {
	Index        int    `xml:"index,attr"`
	Dependencies string `xml:"dependencies,attr"`
}

type buildConfig struct {
	identifier string
	generated  time.Time
}

// Option configures Build.
type Option func(*buildConfig)

// WithModelIdentifier sets CoSimulation/@modelIdentifier. Defaults to the
// model name.
func WithModelIdentifier(id string) Option {
	return func(c *buildConfig) {
		c.identifier = id
	}
}

// WithGenerationTime stamps generationDateAndTime. Without it the attribute
// is omitted so that output is reproducible.
func WithGenerationTime(t time.Time) Option {
	return func(c *buildConfig) {
		c.generated = t
	}
}

// Build describes m.
func Build(m *slave.Model, opts ...Option) *Document {
	info := m.Info()
	cfg := buildConfig{identifier: info.ModelName}
	for _, opt := range opts {
		opt(&cfg)
	}

	doc := &Document{
		FMIVersion:               "2.0",
		ModelName:                info.ModelName,
		GUID:                     m.GUID(),
		Description:              info.Description,
		Author:                   info.Author,
		Version:                  info.Version,
		Copyright:                info.Copyright,
		GenerationTool:           GenerationTool,
		VariableNamingConvention: "structured",
		CoSimulation: CoSimulation{
			ModelIdentifier:                        cfg.identifier,
			NeedsExecutionTool:                     true,
			CanHandleVariableCommunicationStepSize: true,
		},
	}
	if !cfg.generated.IsZero() {
		doc.GenerationDateAndTime = cfg.generated.UTC().Format(time.RFC3339)
	}

	if cats := m.Categories(); len(cats) > 0 {
		doc.LogCategories = &LogCategories{}
		for _, c := range cats {
			doc.LogCategories.Categories = append(doc.LogCategories.Categories, Category{Name: c})
		}
	}

	var outputs, initial []Unknown
	for i, v := range m.Variables() {
		sv := ScalarVariable{
			Name:           v.Name,
			ValueReference: v.ValueReference,
			Description:    v.Description,
			Causality:      v.Causality.String(),
			Variability:    v.Variability.String(),
		}
		if v.HasInitial() {
			sv.Initial = v.Initial.String()
		}
		typed := &Typed{}
		if v.Start != nil {
			s := v.Start.String()
			typed.Start = &s
		}
		switch v.Type {
		case fmi2.Real:
			sv.Real = typed
		case fmi2.Integer:
			sv.Integer = typed
		case fmi2.Boolean:
			sv.Boolean = typed
		case fmi2.String:
			sv.String = typed
		}
		doc.ModelVariables.Variables = append(doc.ModelVariables.Variables, sv)

		index := i + 1
		if v.Causality == fmi2.Output {
			outputs = append(outputs, Unknown{Index: index})
		}
		calculated := v.Initial == fmi2.Approx || v.Initial == fmi2.Calculated
		if (v.Causality == fmi2.Output && calculated) || v.Causality == fmi2.CalculatedParameter {
			initial = append(initial, Unknown{Index: index})
		}
	}
	if len(outputs) > 0 {
		doc.ModelStructure.Outputs = &Unknowns{Unknown: outputs}
	}
	if len(initial) > 0 {
		doc.ModelStructure.InitialUnknowns = &Unknowns{Unknown: initial}
	}
	return doc
}

// Write encodes doc as indented UTF-8 XML with a declaration.
func Write(w io.Writer, doc *Document) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode model description: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Read decodes a model description.
func Read(r io.Reader) (*Document, error) {
	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode model description: %w", err)
	}
	if doc.FMIVersion != "2.0" {
		return nil, fmt.Errorf("decode model description: fmiVersion %q is not 2.0", doc.FMIVersion)
	}
	return &doc, nil
}

// Variable returns the scalar variable with the given name.
func (d *Document) Variable(name string) (*ScalarVariable, bool) {
	for i := range d.ModelVariables.Variables {
		if d.ModelVariables.Variables[i].Name == name {
			return &d.ModelVariables.Variables[i], true
		}
	}
	return nil, false
}

// DataType reports which typed child is set.
func (v *ScalarVariable) DataType() (fmi2.DataType, error) {
	switch {
	case v.Real != nil:
		return fmi2.Real, nil
	case v.Integer != nil:
		return fmi2.Integer, nil
	case v.Boolean != nil:
		return fmi2.Boolean, nil
	case v.String != nil:
		return fmi2.String, nil
	}
	return 0, fmt.Errorf("variable %s has no type element", v.Name)
}
