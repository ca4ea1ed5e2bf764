package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()
	require.NotNil(t, root)
	assert.Equal(t, "fmu", root.Use)
	assert.Contains(t, root.Long, "FMI 2.0")
	assert.True(t, root.SilenceUsage)

	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"describe", "plot", "rules", "run", "trace", "validate"} {
		assert.Contains(t, names, want)
	}
}

func TestNewRootCommand_PersistentFlags(t *testing.T) {
	flags := NewRootCommand().PersistentFlags()

	verbose := flags.Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := flags.Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestSubcommandFlags(t *testing.T) {
	// default "" means the flag is optional or has no default
	cases := []struct {
		command   string
		flag      string
		shorthand string
		def       string
	}{
		{"run", "db", "", ""},
		{"trace", "db", "", ""},
		{"trace", "run", "", ""},
		{"trace", "var", "", ""},
		{"plot", "height", "", "10"},
		{"plot", "width", "", "80"},
		{"describe", "output", "o", ""},
	}
	root := NewRootCommand()
	for _, tc := range cases {
		t.Run(tc.command+"/"+tc.flag, func(t *testing.T) {
			sub, _, err := root.Find([]string{tc.command})
			require.NoError(t, err)
			f := sub.Flags().Lookup(tc.flag)
			require.NotNil(t, f, "--%s missing on %s", tc.flag, tc.command)
			assert.Equal(t, tc.shorthand, f.Shorthand)
			assert.Equal(t, tc.def, f.DefValue)
		})
	}
}

func TestUnknownFormatRejected(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--format", "yaml", "rules"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
