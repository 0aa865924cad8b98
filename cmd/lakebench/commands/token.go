package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func NewTokenCommand(app *App) *cobra.Command {
	var (
		show       bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint one database credential and show its claims",
		Long: `Request a single short-lived database credential from the control plane
and display who it authenticates as and when it expires.

The bearer value itself is redacted unless --show is given.

Examples:
  lakebench token
  lakebench token --json
  PGPASSWORD=$(lakebench token --show --json | jq -r .token) psql -h ...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return err
			}

			client, err := app.workspaceClient(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			source, err := app.credentialSource(ctx, cfg, client)
			if err != nil {
				return err
			}

			cred, err := source.Mint(ctx)
			if err != nil {
				return err
			}
			endpoint := source.Endpoint()

			if jsonOutput {
				out := map[string]interface{}{
					"subject":    cred.Subject,
					"expires_at": cred.ExpiresAt,
					"host":       endpoint.Host,
					"port":       endpoint.Port,
					"database":   endpoint.Database,
				}
				if show {
					out["token"] = string(cred.Token)
				}
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(out)
			}

			token := "[REDACTED] (use --show to reveal)"
			if show {
				token = string(cred.Token)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Subject:\t%s\n", cred.Subject)
			fmt.Fprintf(w, "Endpoint:\t%s:%d/%s\n", endpoint.Host, endpoint.Port, endpoint.Database)
			if !cred.ExpiresAt.IsZero() {
				fmt.Fprintf(w, "Expires:\t%s (in %s)\n",
					cred.ExpiresAt.Format(time.RFC3339), time.Until(cred.ExpiresAt).Round(time.Second))
			}
			fmt.Fprintf(w, "Token:\t%s\n", token)
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "Reveal the bearer token value")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the credential as JSON")

	return cmd
}
