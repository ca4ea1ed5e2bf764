// Package config loads the documents a slave instance is built from: the
// side-car slave_configuration.json found in the resources directory and
// optional CUE variable declaration files.
//
// Both are checked against the embedded CUE schema before any Go value is
// produced. The side-car requires main_script and main_class and accepts an
// optional logging block.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

// SlaveConfigFile is the side-car file name inside the resources directory.
const SlaveConfigFile = "slave_configuration.json"

//go:embed schema.cue
var schemaSource string

// SlaveConfig names the implementation of a slave.
type SlaveConfig struct {
	MainScript string         `json:"main_script"`
	MainClass  string         `json:"main_class"`
	Logging    *LoggingConfig `json:"logging,omitempty"`
}

// LoggingConfig overrides the logging of every instance built from the
// resources directory.
type LoggingConfig struct {
	// OverrideLogCategories are activated at instantiation, before the host
	// calls SetDebugLogging.
	OverrideLogCategories []string `json:"override_log_categories,omitempty"`

	// TraceCalls logs every FMI call and its status under the fmi2slave
	// category.
	TraceCalls bool `json:"trace_calls,omitempty"`
}

// Overrides returns the categories to activate at instantiation.
func (c *SlaveConfig) Overrides() []string {
	if c.Logging == nil {
		return nil
	}
	return c.Logging.OverrideLogCategories
}

// TraceCalls reports whether FMI call tracing is requested.
func (c *SlaveConfig) TraceCalls() bool {
	return c.Logging != nil && c.Logging.TraceCalls
}

// schema holds the compiled schema. A cue.Context is not safe for
// concurrent use, so every user takes mu.
var schema struct {
	once sync.Once
	mu   sync.Mutex
	ctx  *cue.Context
	root cue.Value
}

func withSchema(fn func(ctx *cue.Context, root cue.Value) error) error {
	schema.once.Do(func() {
		schema.ctx = cuecontext.New()
		schema.root = schema.ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	})
	schema.mu.Lock()
	defer schema.mu.Unlock()
	if err := schema.root.Err(); err != nil {
		return fromCUE(ErrCodeBuildFailed, err)
	}
	return fn(schema.ctx, schema.root)
}

// ParseSlaveConfig validates a side-car document. filename is only used in
// error positions.
func ParseSlaveConfig(data []byte, filename string) (*SlaveConfig, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidJSON, Message: fmt.Sprintf("%s: %v", filename, err), Err: err}
	}
	if _, ok := raw["slave_script"]; ok {
		return nil, &LoadError{Code: ErrCodeLegacyKeys, Message: "slave_script/slave_class are no longer read, rename them to main_script/main_class"}
	}
	if _, ok := raw["slave_class"]; ok {
		return nil, &LoadError{Code: ErrCodeLegacyKeys, Message: "slave_script/slave_class are no longer read, rename them to main_script/main_class"}
	}

	var cfg SlaveConfig
	err := withSchema(func(ctx *cue.Context, root cue.Value) error {
		expr, err := cuejson.Extract(filename, data)
		if err != nil {
			return fromCUE(ErrCodeInvalidJSON, err)
		}
		doc := root.LookupPath(cue.ParsePath("#SlaveConfiguration")).Unify(ctx.BuildExpr(expr))
		if err := doc.Validate(cue.Concrete(true)); err != nil {
			return fromCUE(ErrCodeSchema, err)
		}
		if err := doc.Decode(&cfg); err != nil {
			return fromCUE(ErrCodeSchema, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadSlaveConfig reads and validates <resourcesDir>/slave_configuration.json.
func LoadSlaveConfig(resourcesDir string) (*SlaveConfig, error) {
	path := filepath.Join(resourcesDir, SlaveConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("read %s: %v", path, err), Err: err}
	}
	return ParseSlaveConfig(data, path)
}

// ScriptPath resolves main_script against the resources directory and
// verifies it names an existing file inside it.
func (c *SlaveConfig) ScriptPath(resourcesDir string) (string, error) {
	rel := filepath.FromSlash(c.MainScript)
	if !filepath.IsLocal(rel) {
		return "", &LoadError{Code: ErrCodeScriptPath, Message: fmt.Sprintf("main_script %q must stay inside the resources directory", c.MainScript)}
	}
	path := filepath.Join(resourcesDir, rel)
	info, err := os.Stat(path)
	if err != nil {
		return "", &LoadError{Code: ErrCodeScriptPath, Message: fmt.Sprintf("main_script %q: %v", c.MainScript, err), Err: err}
	}
	if info.IsDir() {
		return "", &LoadError{Code: ErrCodeScriptPath, Message: fmt.Sprintf("main_script %q is a directory", c.MainScript)}
	}
	return path, nil
}

// ResourcesDir converts the resources location handed over at instantiation
// into a directory path. file:// URIs and plain paths are accepted.
func ResourcesDir(uri string) (string, error) {
	if uri == "" {
		return "", &LoadError{Code: ErrCodeResourcesURI, Message: "resources location is empty"}
	}
	if !strings.Contains(uri, "://") && !strings.HasPrefix(uri, "file:") {
		return filepath.Clean(uri), nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", &LoadError{Code: ErrCodeResourcesURI, Message: fmt.Sprintf("parse %q: %v", uri, err), Err: err}
	}
	if u.Scheme != "file" {
		return "", &LoadError{Code: ErrCodeResourcesURI, Message: fmt.Sprintf("unsupported scheme %q in %q", u.Scheme, uri)}
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", &LoadError{Code: ErrCodeResourcesURI, Message: fmt.Sprintf("remote host %q in %q", u.Host, uri)}
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	// file:///C:/dir parses to path "/C:/dir"
	if runtime.GOOS == "windows" && len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.Clean(filepath.FromSlash(p)), nil
}
