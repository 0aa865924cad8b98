package benchmark

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// WriteReport renders a workload result as a human-oriented table.
func WriteReport(w io.Writer, res *Result) error {
	fmt.Fprintf(w, "Engine:       %s\n", res.Engine)
	fmt.Fprintf(w, "Workload:     %s\n", res.Workload)
	fmt.Fprintf(w, "Concurrency:  %d workers, %d iterations\n", res.Concurrency, res.Iterations)
	fmt.Fprintf(w, "Wall time:    %s\n", res.WallTime.Round(time.Millisecond))
	fmt.Fprintf(w, "Queries:      %d total, %d ok (%.1f%%)\n", res.Total, res.Succeeded, res.SuccessRate)
	fmt.Fprintf(w, "Throughput:   %.1f queries/sec\n", res.QPS)
	fmt.Fprintf(w, "Pool:         max %d, open %d, in use %d, idle %d\n",
		res.Pool.Max, res.Pool.Open, res.Pool.InUse, res.Pool.Idle)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "QUERY\tCOUNT\tFAIL\tMIN\tAVG\tMAX\tP95")
	fmt.Fprintln(tw, "-----\t-----\t----\t---\t---\t---\t---")
	for _, q := range res.Queries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
			q.Name, q.Count, q.Failures,
			fmtDur(q.Min), fmtDur(q.Avg), fmtDur(q.Max), fmtDur(q.P95))
	}
	return tw.Flush()
}

// WriteProof renders the concurrency proof with a plain-language verdict.
func WriteProof(w io.Writer, p *Proof) error {
	verdict := "pool appears to SERIALIZE queries"
	if p.Overlapped() {
		verdict = "pool executes queries CONCURRENTLY"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Engine:\t%s\n", p.Engine)
	fmt.Fprintf(tw, "Query:\t%s (x%d)\n", p.Query, p.N)
	fmt.Fprintf(tw, "Sequential:\t%s\n", p.Sequential.Round(time.Millisecond))
	fmt.Fprintf(tw, "Concurrent:\t%s\n", p.Concurrent.Round(time.Millisecond))
	fmt.Fprintf(tw, "Speedup:\t%.2fx\n", p.Speedup)
	fmt.Fprintf(tw, "Verdict:\t%s\n", verdict)
	return tw.Flush()
}

// WriteComparison renders per-query and aggregate deltas between two runs.
func WriteComparison(w io.Writer, c *Comparison) error {
	fmt.Fprintf(w, "Baseline:   %s (%.1f queries/sec)\n", c.Baseline.Engine, c.Baseline.QPS)
	fmt.Fprintf(w, "Candidate:  %s (%.1f queries/sec)\n", c.Candidate.Engine, c.Candidate.QPS)
	fmt.Fprintf(w, "QPS ratio:  %.2fx\n", c.QPSRatio)
	fmt.Fprintf(w, "Wall time:  %s\n", fmtPct(c.WallDeltaPct))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "QUERY\tBASELINE\tCANDIDATE\tDELTA")
	fmt.Fprintln(tw, "-----\t--------\t---------\t-----")
	for _, q := range c.Queries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			q.Name, fmtDur(q.Baseline), fmtDur(q.Candidate), fmtPct(q.DeltaPct))
	}
	return tw.Flush()
}

// WriteJSON emits any report type as indented JSON for machine consumers.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fmtDur(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
}

// fmtPct keeps the sign visible: latency deltas read wrong without it.
func fmtPct(pct float64) string {
	return fmt.Sprintf("%+.1f%%", pct)
}
