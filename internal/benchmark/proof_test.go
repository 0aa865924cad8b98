package benchmark

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProofOverlappingPool(t *testing.T) {
	t.Parallel()

	fake := &fakeEngine{name: "lakebase", delay: 50 * time.Millisecond}
	var r Runner
	p, err := r.Proof(context.Background(), fake, 4, 50*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, "lakebase", p.Engine)
	assert.Equal(t, 4, p.N)
	assert.Equal(t, "SELECT pg_sleep(0.050)", p.Query)
	assert.Equal(t, 8, fake.callCount())

	assert.GreaterOrEqual(t, p.Sequential, 200*time.Millisecond)
	assert.Less(t, p.Concurrent, p.Sequential)
	assert.Greater(t, p.Speedup, 2.0)
	assert.True(t, p.Overlapped())
}

func TestProofSerializingPool(t *testing.T) {
	t.Parallel()

	fake := &fakeEngine{delay: 10 * time.Millisecond, serial: true}
	var r Runner
	p, err := r.Proof(context.Background(), fake, 4, 10*time.Millisecond)
	require.NoError(t, err)

	// The lock is held across the sleep, so the concurrent pass degrades
	// to sequential and the speedup collapses toward 1.
	assert.Less(t, p.Speedup, 1.5)
	assert.False(t, p.Overlapped())
}

func TestProofDefaults(t *testing.T) {
	t.Parallel()

	fake := &fakeEngine{}
	var r Runner
	p, err := r.Proof(context.Background(), fake, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, 5, p.N)
	assert.Equal(t, 500*time.Millisecond, p.Sleep)
	assert.Equal(t, "SELECT pg_sleep(0.500)", p.Query)
	assert.Equal(t, 10, fake.callCount())
}

func TestProofSequentialFailureAborts(t *testing.T) {
	t.Parallel()

	fake := &fakeEngine{failErr: errors.New("pool exhausted")}
	var r Runner
	_, err := r.Proof(context.Background(), fake, 3, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequential pass")
	assert.Contains(t, err.Error(), "pool exhausted")
	assert.Equal(t, 1, fake.callCount())
}

func TestProofConcurrentFailureAborts(t *testing.T) {
	t.Parallel()

	// The first three calls (the sequential pass) succeed; the fan-out
	// hits the failure.
	fake := &fakeEngine{failErr: errors.New("too many connections"), failAfter: 3}
	var r Runner
	_, err := r.Proof(context.Background(), fake, 3, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrent pass")
	assert.Contains(t, err.Error(), "too many connections")
}
