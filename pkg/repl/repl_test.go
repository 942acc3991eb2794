package repl

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	r := NewRepl()
	var got string
	r.AddCommand("echo", func(input string, config *REPLConfig) error {
		got = input
		_, err := fmt.Fprintln(config.Writer, input)
		return err
	}, "echo the line. usage: echo <text>")
	r.AddCommand("fail", func(string, *REPLConfig) error {
		return fmt.Errorf("boom")
	}, "always fails")

	var out bytes.Buffer
	config := &REPLConfig{Writer: &out}

	require.NoError(t, r.Execute("  echo hi there ", config))
	assert.Equal(t, "echo hi there", got)
	assert.Equal(t, "echo hi there\n", out.String())

	assert.NoError(t, r.Execute("   ", config))
	assert.EqualError(t, r.Execute("fail", config), "boom")
	assert.ErrorIs(t, r.Execute("nope 1 2", config), ErrUnknownCommand)
}

func TestAddCommand_Ignored(t *testing.T) {
	r := NewRepl()
	noop := func(string, *REPLConfig) error { return nil }
	r.AddCommand("", noop, "empty")
	r.AddCommand(".hidden", noop, "dot")
	assert.Empty(t, r.Commands)
	assert.Empty(t, r.Help)
}

func TestHelpString(t *testing.T) {
	r := NewRepl()
	noop := func(string, *REPLConfig) error { return nil }
	r.AddCommand("w", noop, "write")
	r.AddCommand("r", noop, "read")
	assert.Equal(t, "Commands\n\tr: read\n\tw: write\n", r.HelpString())
}
