package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteResources(t *testing.T) {
	dir := WriteResources(t, "Gain", "model/gain.cue", map[string]string{"model/gain.cue": "model: name: \"Gain\"\n"})

	data, err := os.ReadFile(filepath.Join(dir, "slave_configuration.json"))
	require.NoError(t, err)
	var doc map[string]string
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, map[string]string{"main_script": "model/gain.cue", "main_class": "Gain"}, doc)

	content, err := os.ReadFile(filepath.Join(dir, "model", "gain.cue"))
	require.NoError(t, err)
	assert.Equal(t, "model: name: \"Gain\"\n", string(content))
}

func TestFileURI(t *testing.T) {
	dir := t.TempDir()
	uri := FileURI(dir)
	assert.True(t, strings.HasPrefix(uri, "file://"))
	assert.True(t, strings.HasSuffix(uri, filepath.ToSlash(dir)))
}
