// Package testutil holds helpers shared by tests that need slave resources
// directories on disk.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteResources creates a resources directory in t.TempDir holding a
// slave_configuration.json for class and script plus the given extra files,
// and returns its path.
func WriteResources(t testing.TB, class, script string, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	doc, err := json.Marshal(map[string]string{"main_script": script, "main_class": class})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slave_configuration.json"), doc, 0o644))
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// FileURI turns a directory into the file:// URI a host passes to
// fmi2Instantiate.
func FileURI(dir string) string {
	return "file://" + filepath.ToSlash(dir)
}
