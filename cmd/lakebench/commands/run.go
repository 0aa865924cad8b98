package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/systmms/lakebench/internal/benchmark"
	"github.com/systmms/lakebench/internal/config"
	"github.com/systmms/lakebench/internal/engine"
	lberrors "github.com/systmms/lakebench/internal/errors"
)

func NewRunCommand(app *App) *cobra.Command {
	var (
		workloadFile string
		concurrency  int
		iterations   int
		engineName   string
		jsonOutput   bool
		metricsAddr  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a query workload against the managed instance",
		Long: `Execute a workload of SQL queries with concurrent workers and report
per-query latency, throughput, and pool state.

Against the managed instance, background credential rotation runs for the
duration of the benchmark, so new pool connections keep authenticating
while queries execute.

Examples:
  # Built-in workload against the managed instance
  lakebench run

  # Heavier run with a custom workload file
  lakebench run --workload workloads/heavy.yaml --concurrency 50

  # Conventional engines via the same code path
  lakebench run --engine postgres
  lakebench run --engine mysql

  # Machine-readable output, metrics for scraping
  lakebench run --json --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return err
			}

			workload := config.DefaultWorkload()
			if engineName == "mysql" {
				// The default workload probes Postgres catalogs.
				workload = config.PortableWorkload()
			}
			if workloadFile != "" {
				workload, err = config.LoadWorkload(workloadFile)
				if err != nil {
					return err
				}
			}
			if concurrency > 0 {
				workload.Concurrency = concurrency
			}
			if iterations > 0 {
				workload.Iterations = iterations
			}

			if metricsAddr != "" {
				stop := app.serveMetrics(metricsAddr)
				defer stop()
			}

			var eng engine.Engine
			switch engineName {
			case "lakebase":
				client, err := app.workspaceClient(cfg)
				if err != nil {
					return err
				}
				defer client.Close()

				mgr, err := app.newManager(ctx, cfg, client)
				if err != nil {
					return err
				}
				defer mgr.Close()
				mgr.StartRotation(ctx)

				eng, err = app.managedEngine(ctx, cfg, mgr)
				if err != nil {
					return err
				}
			case "postgres", "mysql":
				eng, err = app.comparisonEngine(cfg, engineName)
				if err != nil {
					return err
				}
			default:
				return lberrors.UserError{
					Message:    fmt.Sprintf("Unknown engine: %s", engineName),
					Suggestion: "Use --engine lakebase, postgres, or mysql",
				}
			}
			defer func() { _ = eng.Close() }()

			// Pre-flight: refuse to benchmark an engine that is already
			// unreachable or exhausted.
			health := engine.CheckHealth(ctx, eng, engine.DefaultHealthConfig())
			if !health.Healthy() {
				return lberrors.UserError{
					Message:    fmt.Sprintf("Engine %s is %s", eng.Name(), health.State),
					Details:    strings.Join(health.Messages, "; "),
					Suggestion: "Run 'lakebench doctor' for a full diagnosis",
				}
			}

			runner := benchmark.Runner{Logger: app.logger()}
			result, err := runner.Run(ctx, eng, workload)
			if err != nil {
				return err
			}

			if jsonOutput {
				return benchmark.WriteJSON(os.Stdout, result)
			}
			return benchmark.WriteReport(os.Stdout, result)
		},
	}

	cmd.Flags().StringVar(&workloadFile, "workload", "", "Workload YAML file (default: built-in workload)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Override the workload's worker count")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "Override the workload's iterations per worker")
	cmd.Flags().StringVar(&engineName, "engine", "lakebase", "Engine to benchmark: lakebase, postgres, mysql")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the raw report as JSON")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address for the run (e.g. :9090)")

	return cmd
}
