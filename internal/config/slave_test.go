package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseSlaveConfig(t *testing.T) {
	cfg, err := ParseSlaveConfig([]byte(`{"main_script": "models/adder.cue", "main_class": "Adder"}`), "inline.json")
	require.NoError(t, err)
	assert.Equal(t, "models/adder.cue", cfg.MainScript)
	assert.Equal(t, "Adder", cfg.MainClass)
}

func TestParseSlaveConfig_Logging(t *testing.T) {
	cfg, err := ParseSlaveConfig([]byte(`{"main_script": "a.cue", "main_class": "A"}`), "inline.json")
	require.NoError(t, err)
	assert.Nil(t, cfg.Overrides())
	assert.False(t, cfg.TraceCalls())

	cfg, err = ParseSlaveConfig([]byte(`{
		"main_script": "a.cue",
		"main_class": "A",
		"logging": {"override_log_categories": ["logEvents", "logStatusError"], "trace_calls": true}
	}`), "inline.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"logEvents", "logStatusError"}, cfg.Overrides())
	assert.True(t, cfg.TraceCalls())
}

func TestParseSlaveConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code string
	}{
		{"not json", `{main_script:`, ErrCodeInvalidJSON},
		{"legacy script key", `{"slave_script": "a.cue", "slave_class": "A"}`, ErrCodeLegacyKeys},
		{"legacy class key only", `{"main_script": "a.cue", "slave_class": "A"}`, ErrCodeLegacyKeys},
		{"missing class", `{"main_script": "a.cue"}`, ErrCodeSchema},
		{"empty script", `{"main_script": "", "main_class": "A"}`, ErrCodeSchema},
		{"absolute script", `{"main_script": "/etc/a.cue", "main_class": "A"}`, ErrCodeSchema},
		{"bad class", `{"main_script": "a.cue", "main_class": "1A"}`, ErrCodeSchema},
		{"unknown key", `{"main_script": "a.cue", "main_class": "A", "backend": "x"}`, ErrCodeSchema},
		{"wrong type", `{"main_script": 3, "main_class": "A"}`, ErrCodeSchema},
		{"unknown logging key", `{"main_script": "a.cue", "main_class": "A", "logging": {"level": "debug"}}`, ErrCodeSchema},
		{"override not a list", `{"main_script": "a.cue", "main_class": "A", "logging": {"override_log_categories": "logAll"}}`, ErrCodeSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSlaveConfig([]byte(tt.doc), "slave_configuration.json")
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err), err.Error())
		})
	}
}

func TestLoadSlaveConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, SlaveConfigFile, `{"main_script": "adder.cue", "main_class": "Adder"}`)
	script := writeFile(t, dir, "adder.cue", "")

	cfg, err := LoadSlaveConfig(dir)
	require.NoError(t, err)

	path, err := cfg.ScriptPath(dir)
	require.NoError(t, err)
	assert.Equal(t, script, path)
}

func TestLoadSlaveConfig_Missing(t *testing.T) {
	_, err := LoadSlaveConfig(t.TempDir())
	assert.Equal(t, ErrCodeReadFailed, CodeOf(err))
}

func TestScriptPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	for _, script := range []string{"../outside.cue", "missing.cue", "sub"} {
		cfg := &SlaveConfig{MainScript: script, MainClass: "A"}
		_, err := cfg.ScriptPath(dir)
		assert.Equal(t, ErrCodeScriptPath, CodeOf(err), script)
	}
}

func TestResourcesDir(t *testing.T) {
	dir := t.TempDir()

	got, err := ResourcesDir(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	got, err = ResourcesDir("file://" + filepath.ToSlash(dir))
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	got, err = ResourcesDir("file:///tmp/fmu%20resources/")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/tmp/fmu resources"), got)

	for _, bad := range []string{"", "http://example.com/res", "file://remote/res"} {
		_, err := ResourcesDir(bad)
		assert.Equal(t, ErrCodeResourcesURI, CodeOf(err), bad)
	}
}
