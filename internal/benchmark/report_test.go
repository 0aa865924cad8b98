package benchmark

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/lakebench/internal/engine"
)

func TestWriteReport(t *testing.T) {
	t.Parallel()

	res := &Result{
		Engine:      "lakebase",
		Workload:    "default",
		Concurrency: 10,
		Iterations:  20,
		WallTime:    1250 * time.Millisecond,
		Total:       800,
		Succeeded:   799,
		SuccessRate: 99.9,
		QPS:         640.2,
		Queries: []QueryStats{
			{
				Name: "select_one", Count: 200, Failures: 1,
				Min: 520 * time.Microsecond, Avg: 610 * time.Microsecond,
				Max: 2100 * time.Microsecond, P95: 950 * time.Microsecond,
			},
		},
		Pool: engine.PoolStats{Max: 50, Open: 20, InUse: 0, Idle: 20},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, res))
	out := buf.String()

	assert.Contains(t, out, "lakebase")
	assert.Contains(t, out, "default")
	assert.Contains(t, out, "800 total, 799 ok (99.9%)")
	assert.Contains(t, out, "640.2 queries/sec")
	assert.Contains(t, out, "max 50, open 20, in use 0, idle 20")
	assert.Contains(t, out, "QUERY")
	assert.Contains(t, out, "select_one")
	assert.Contains(t, out, "0.52ms")
	assert.Contains(t, out, "2.10ms")
}

func TestWriteProofVerdicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		speedup float64
		want    string
	}{
		{name: "overlapping", speedup: 4.87, want: "CONCURRENTLY"},
		{name: "serializing", speedup: 1.04, want: "SERIALIZE"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := &Proof{
				Engine:     "lakebase",
				Query:      "SELECT pg_sleep(0.500)",
				N:          5,
				Sleep:      500 * time.Millisecond,
				Sequential: 2510 * time.Millisecond,
				Concurrent: 515 * time.Millisecond,
				Speedup:    tt.speedup,
			}

			var buf bytes.Buffer
			require.NoError(t, WriteProof(&buf, p))
			out := buf.String()

			assert.Contains(t, out, "SELECT pg_sleep(0.500)")
			assert.Contains(t, out, "(x5)")
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestWriteComparison(t *testing.T) {
	t.Parallel()

	cmp := &Comparison{
		Baseline:     &Result{Engine: "postgres", QPS: 100},
		Candidate:    &Result{Engine: "lakebase", QPS: 200},
		QPSRatio:     2.0,
		WallDeltaPct: -50.0,
		Queries: []QueryDelta{
			{
				Name:      "select_one",
				Baseline:  10 * time.Millisecond,
				Candidate: 5 * time.Millisecond,
				DeltaPct:  -50.0,
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteComparison(&buf, cmp))
	out := buf.String()

	assert.Contains(t, out, "postgres")
	assert.Contains(t, out, "lakebase")
	assert.Contains(t, out, "2.00x")
	assert.Contains(t, out, "-50.0%")
	assert.Contains(t, out, "10.00ms")
	assert.Contains(t, out, "5.00ms")
}

func TestWriteJSONRoundTrips(t *testing.T) {
	t.Parallel()

	p := &Proof{
		Engine:     "lakebase",
		Query:      "SELECT pg_sleep(0.100)",
		N:          4,
		Sleep:      100 * time.Millisecond,
		Sequential: 410 * time.Millisecond,
		Concurrent: 108 * time.Millisecond,
		Speedup:    3.8,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, p))

	var got Proof
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, *p, got)
}

func TestFmtDur(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-", fmtDur(0))
	assert.Equal(t, "0.52ms", fmtDur(520*time.Microsecond))
	assert.Equal(t, "1500.00ms", fmtDur(1500*time.Millisecond))
}
