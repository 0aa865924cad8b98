package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/systmms/lakebench/internal/benchmark"
	"github.com/systmms/lakebench/internal/config"
	lberrors "github.com/systmms/lakebench/internal/errors"
)

func NewVerifyCommand(app *App) *cobra.Command {
	var (
		workloadFile string
		queries      int
		sleep        time.Duration
		minSpeedup   float64
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Prove the pool executes queries concurrently",
		Long: `Run N server-side sleep queries back to back, then fan the same N out
against the pool, and compare wall times.

A pool that serializes queries finishes the concurrent pass in roughly the
sequential time (speedup near 1). A pool that overlaps them finishes in
roughly one sleep (speedup near N). The command exits non-zero when the
measured speedup falls below --min-speedup.

Examples:
  # Five 500ms sleeps per pass
  lakebench verify

  # Stricter: ten queries, demand at least 4x
  lakebench verify --queries 10 --min-speedup 4

  # Raw numbers for scripts
  lakebench verify --json

  # Settings from a workload file's proof block (flags still win)
  lakebench verify --workload run.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if workloadFile != "" {
				w, err := config.LoadWorkload(workloadFile)
				if err != nil {
					return err
				}
				if p := w.Proof; p != nil {
					if p.Queries > 0 && !cmd.Flags().Changed("queries") {
						queries = p.Queries
					}
					if p.Sleep > 0 && !cmd.Flags().Changed("sleep") {
						sleep = time.Duration(p.Sleep)
					}
					if p.MinSpeedup > 0 && !cmd.Flags().Changed("min-speedup") {
						minSpeedup = p.MinSpeedup
					}
				}
			}

			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return err
			}

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

			eng, err := app.managedEngine(ctx, cfg, mgr)
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			runner := benchmark.Runner{Logger: app.logger()}
			proof, err := runner.Proof(ctx, eng, queries, sleep)
			if err != nil {
				return err
			}

			if jsonOutput {
				err = benchmark.WriteJSON(os.Stdout, proof)
			} else {
				err = benchmark.WriteProof(os.Stdout, proof)
			}
			if err != nil {
				return err
			}

			if proof.Speedup < minSpeedup {
				return lberrors.UserError{
					Message:    fmt.Sprintf("Speedup %.2fx is below the required %.2fx", proof.Speedup, minSpeedup),
					Suggestion: "The pool appears to serialize queries; check pool size and instance capacity",
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workloadFile, "workload", "", "Workload YAML file; its proof block seeds these settings")
	cmd.Flags().IntVar(&queries, "queries", 5, "Sleep queries per pass")
	cmd.Flags().DurationVar(&sleep, "sleep", 500*time.Millisecond, "Server-side sleep per query")
	cmd.Flags().Float64Var(&minSpeedup, "min-speedup", 1.5, "Fail unless the concurrent pass beats sequential by this factor")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the proof as JSON")

	return cmd
}
