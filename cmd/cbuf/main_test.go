package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = newLogger("loud")
	assert.Error(t, err)
}

func TestBenchCmd(t *testing.T) {
	cmd := benchCmd()
	cmd.SetArgs([]string{"--iterations", "10", "--capacity", "32"})
	require.NoError(t, cmd.Execute())
}
