package config

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/fmu/internal/fmi2"
	"github.com/roach88/fmu/internal/slave"
	"github.com/roach88/fmu/internal/variable"
)

// Declaration is one variable read from a declaration file.
type Declaration struct {
	Name    string
	Options variable.Options
	Pos     token.Pos
}

// Declarations is the content of a declaration file: model metadata, extra
// log categories and the variables in source order.
type Declarations struct {
	Info          slave.Info
	LogCategories []string
	Variables     []Declaration
}

// LoadDeclarations compiles a CUE declaration file such as:
//
//	model: name: "Adder"
//	variables: {
//		a: {type: "real", causality: "input", start: 0.0}
//		s: {type: "real", causality: "output", initial: "calculated"}
//	}
func LoadDeclarations(path string) (*Declarations, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("read %s: %v", path, err), Err: err}
	}
	return ParseDeclarations(src, path)
}

// ParseDeclarations compiles declaration source. filename is only used in
// error positions.
func ParseDeclarations(src []byte, filename string) (*Declarations, error) {
	var decls *Declarations
	err := withSchema(func(ctx *cue.Context, root cue.Value) error {
		v := ctx.CompileBytes(src, cue.Filename(filename))
		if err := v.Err(); err != nil {
			return fromCUE(ErrCodeBuildFailed, err)
		}
		doc := root.LookupPath(cue.ParsePath("#Declarations")).Unify(v)
		if err := doc.Validate(cue.Concrete(true)); err != nil {
			return fromCUE(ErrCodeSchema, err)
		}
		d, err := compileDeclarations(doc)
		if err != nil {
			return err
		}
		decls = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decls, nil
}

func compileDeclarations(doc cue.Value) (*Declarations, error) {
	d := &Declarations{}

	model := doc.LookupPath(cue.ParsePath("model"))
	d.Info.ModelName = stringField(model, "name")
	d.Info.Author = stringField(model, "author")
	d.Info.Description = stringField(model, "description")
	d.Info.Version = stringField(model, "version")
	d.Info.Copyright = stringField(model, "copyright")
	d.Info.GUID = stringField(model, "guid")

	if cats := doc.LookupPath(cue.ParsePath("log_categories")); cats.Exists() {
		if err := cats.Decode(&d.LogCategories); err != nil {
			return nil, fromCUE(ErrCodeSchema, err)
		}
	}

	vars := doc.LookupPath(cue.ParsePath("variables"))
	iter, err := vars.Fields()
	if err != nil {
		return nil, fromCUE(ErrCodeSchema, err)
	}
	for iter.Next() {
		decl, err := compileVariable(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		d.Variables = append(d.Variables, decl)
	}
	return d, nil
}

func compileVariable(name string, v cue.Value) (Declaration, error) {
	decl := Declaration{
		Name: name,
		Pos:  v.Pos(),
		Options: variable.Options{
			Type:        stringField(v, "type"),
			Causality:   stringField(v, "causality"),
			Variability: stringField(v, "variability"),
			Initial:     stringField(v, "initial"),
			Description: stringField(v, "description"),
		},
	}

	if start := v.LookupPath(cue.ParsePath("start")); start.Exists() {
		s, err := primitive(start)
		if err != nil {
			return decl, err
		}
		decl.Options.Start = s
		// "start: 1" on a real variable means 1.0
		if t, err := fmi2.ParseDataType(decl.Options.Type); err == nil {
			if v, err := fmi2.Coerce(t, s); err == nil {
				decl.Options.Start = v
			}
		}
	}
	if vr := v.LookupPath(cue.ParsePath("value_reference")); vr.Exists() {
		n, err := vr.Int64()
		if err != nil {
			return decl, fromCUE(ErrCodeSchema, err)
		}
		decl.Options.ValueReference = variable.Ref(uint32(n))
	}
	return decl, nil
}

// primitive converts a concrete CUE scalar to the Go type fmi2.ValueOf
// expects. Without a declared type, "0" is an integer start and "0.0" a
// real one.
func primitive(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, fromCUE(ErrCodeSchema, err)
		}
		return n, nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, fromCUE(ErrCodeSchema, err)
		}
		return f, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, fromCUE(ErrCodeSchema, err)
		}
		return b, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, fromCUE(ErrCodeSchema, err)
		}
		return s, nil
	}
	return nil, &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("start must be a scalar, got %s", v.Kind()), Pos: v.Pos()}
}

func stringField(v cue.Value, field string) string {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return ""
	}
	s, err := f.String()
	if err != nil {
		return ""
	}
	return s
}

// Build constructs a model from the declarations. Registration stops at the
// first invalid variable and the error carries that variable's source
// position; no partially registered model is returned.
func (d *Declarations) Build(opts ...slave.Option) (*slave.Model, error) {
	m := slave.New(d.Info, opts...)
	for _, c := range d.LogCategories {
		if err := m.RegisterLogCategory(c); err != nil {
			return nil, &LoadError{Code: ErrCodeDeclaration, Message: err.Error(), Err: err}
		}
	}
	for _, decl := range d.Variables {
		if _, err := m.Register(decl.Name, decl.Options); err != nil {
			return nil, &LoadError{Code: ErrCodeDeclaration, Message: err.Error(), Pos: decl.Pos, Err: err}
		}
	}
	return m, nil
}

// Check registers every declaration against a scratch model and returns
// all failures instead of stopping at the first.
func (d *Declarations) Check() []error {
	var errs []error
	m := slave.New(d.Info)
	for _, decl := range d.Variables {
		if _, err := m.Register(decl.Name, decl.Options); err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeDeclaration, Message: err.Error(), Pos: decl.Pos, Err: err})
		}
	}
	return errs
}

// IsDeclarationError reports whether err came from an invalid variable.
func IsDeclarationError(err error) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Code == ErrCodeDeclaration
}
