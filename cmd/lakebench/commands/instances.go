package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systmms/lakebench/internal/workspace"
)

func NewInstancesCommand(app *App) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "instances",
		Short: "List database instances in the workspace",
		Long: `List every database instance the workspace token can see, with state and
endpoint. Use 'instances get NAME' for the full record of one instance.

Examples:
  lakebench instances
  lakebench instances get bench-primary
  lakebench instances --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			client, err := connectWorkspace(ctx, app)
			if err != nil {
				return err
			}
			defer client.Close()

			instances, err := client.ListDatabaseInstances(ctx)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(instances)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTATE\tPG\tCAPACITY\tENDPOINT")
			fmt.Fprintln(w, "----\t-----\t--\t--------\t--------")
			for _, inst := range instances {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					inst.Name, formatInstanceState(inst.State), orDash(inst.PGVersion),
					orDash(inst.Capacity), orDash(inst.ReadWriteDNS))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Printf("\n%d instance(s)\n", len(instances))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the list as JSON")
	cmd.AddCommand(newInstancesGetCommand(app))

	return cmd
}

func newInstancesGetCommand(app *App) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Show one database instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			client, err := connectWorkspace(ctx, app)
			if err != nil {
				return err
			}
			defer client.Close()

			inst, err := client.GetDatabaseInstance(ctx, args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(inst)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Name:\t%s\n", inst.Name)
			fmt.Fprintf(w, "State:\t%s\n", formatInstanceState(inst.State))
			fmt.Fprintf(w, "Postgres:\t%s\n", orDash(inst.PGVersion))
			fmt.Fprintf(w, "Capacity:\t%s\n", orDash(inst.Capacity))
			fmt.Fprintf(w, "Endpoint:\t%s\n", orDash(inst.ReadWriteDNS))
			fmt.Fprintf(w, "Creator:\t%s\n", orDash(inst.Creator))
			fmt.Fprintf(w, "Created:\t%s\n", orDash(inst.CreationTime))
			fmt.Fprintf(w, "Stopped:\t%t\n", inst.Stopped)
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the instance as JSON")

	return cmd
}

// connectWorkspace loads config and builds the control-plane client; the
// shared preamble of the read-only workspace commands.
func connectWorkspace(ctx context.Context, app *App) (*workspace.Client, error) {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return app.workspaceClient(cfg)
}

func writeJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func formatInstanceState(state string) string {
	switch state {
	case workspace.InstanceAvailable:
		return "✓ " + state
	case "":
		return "-"
	default:
		return "⚠ " + state
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
