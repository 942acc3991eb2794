package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	results, err := Run(Config{Capacity: 48, Iterations: 1000, Payload: []byte("Hello")})
	require.NoError(t, err)
	require.Len(t, results, 4)

	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
		assert.Equal(t, 1000, r.Iterations)
		assert.GreaterOrEqual(t, r.OpsPerSec(), 0.0)
		assert.Contains(t, r.String(), r.Name)
	}
	assert.Equal(t, []string{"write/read", "write/read_into", "writemsg/readmsg", "writemsg/readmsg_into"}, names)
}

func TestRun_Invalid(t *testing.T) {
	_, err := Run(Config{Capacity: 48, Iterations: 0, Payload: []byte("x")})
	assert.Error(t, err)

	_, err = Run(Config{Capacity: 8, Iterations: 10, Payload: []byte("Hello")})
	assert.ErrorContains(t, err, "does not fit")
}

func TestResult_ZeroElapsed(t *testing.T) {
	assert.Zero(t, Result{Iterations: 10}.OpsPerSec())
}
