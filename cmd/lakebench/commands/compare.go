package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/lakebench/internal/benchmark"
	"github.com/systmms/lakebench/internal/config"
)

func NewCompareCommand(app *App) *cobra.Command {
	var (
		against      string
		workloadFile string
		concurrency  int
		iterations   int
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Benchmark the managed instance against a conventional engine",
		Long: `Run the same workload against a conventional engine (the baseline) and
the managed instance (the candidate), then report per-query and aggregate
deltas side by side.

The baseline engine is configured with the same pool knobs as the managed
one, so the comparison isolates the service rather than the client setup.

Examples:
  # Against a vanilla Postgres (LAKEBENCH_POSTGRES_DSN)
  lakebench compare --against postgres

  # Against MySQL with a dialect-portable workload
  lakebench compare --against mysql

  # Custom workload, machine-readable output
  lakebench compare --against postgres --workload run.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return err
			}

			workload := config.DefaultWorkload()
			if against == "mysql" {
				// Cross-dialect runs cannot probe Postgres catalogs.
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

			baselineEng, err := app.comparisonEngine(cfg, against)
			if err != nil {
				return err
			}
			defer func() { _ = baselineEng.Close() }()

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

			managedEng, err := app.managedEngine(ctx, cfg, mgr)
			if err != nil {
				return err
			}
			defer func() { _ = managedEng.Close() }()

			runner := benchmark.Runner{Logger: app.logger()}

			baseline, err := runner.Run(ctx, baselineEng, workload)
			if err != nil {
				return err
			}
			candidate, err := runner.Run(ctx, managedEng, workload)
			if err != nil {
				return err
			}

			comparison := benchmark.Compare(baseline, candidate)
			if jsonOutput {
				return benchmark.WriteJSON(os.Stdout, comparison)
			}
			return benchmark.WriteComparison(os.Stdout, comparison)
		},
	}

	cmd.Flags().StringVar(&against, "against", "postgres", "Baseline engine: postgres or mysql")
	cmd.Flags().StringVar(&workloadFile, "workload", "", "Workload YAML file (default: built-in workload)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Override the workload's worker count")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "Override the workload's iterations per worker")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the comparison as JSON")

	return cmd
}
