package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/systmms/lakebench/internal/config"
	lberrors "github.com/systmms/lakebench/internal/errors"
	"github.com/systmms/lakebench/internal/secrets"
)

// keyringService namespaces lakebench items in the OS keyring.
const keyringService = "lakebench"

func NewLoginCommand(app *App) *cobra.Command {
	var (
		tokenStdin  bool
		deleteToken bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the workspace token in the OS keyring",
		Long: `Store a workspace personal access token in the OS keyring so it never
lives in shell history or checked-in files. The token is keyed by the
workspace host. Afterwards point ` + config.EnvWorkspaceToken + ` at the
printed keyring:// reference.

Examples:
  lakebench login                           # Paste the token at a prompt
  lakebench login --token-stdin < token.txt
  lakebench login --delete                  # Remove the stored token`,
		RunE: func(cmd *cobra.Command, args []string) error {
			host := os.Getenv(config.EnvWorkspaceHost)
			if host == "" {
				return lberrors.ConfigError{
					MissingFields: []string{config.EnvWorkspaceHost},
					Message:       "login keys the token by workspace host",
				}
			}

			account := keyringAccount(host)
			source := secrets.NewKeyringSource(nil)
			logger := app.logger()

			if deleteToken {
				if err := source.Remove(keyringService, account); err != nil {
					return err
				}
				logger.Info("✓ Removed workspace token for %s", account)
				return nil
			}

			token, err := readToken(os.Stdin, tokenStdin)
			if err != nil {
				return err
			}

			if err := source.Store(keyringService, account, token); err != nil {
				return err
			}
			logger.Info("✓ Stored workspace token for %s", account)

			ref := fmt.Sprintf("%s://%s/%s", secrets.SchemeKeyring, keyringService, account)
			fmt.Printf("\nSet the environment to use it:\n")
			fmt.Printf("  export %s=%s\n", config.EnvWorkspaceToken, ref)
			fmt.Println()
			fmt.Println("Next: Run 'lakebench doctor' to verify the setup")
			return nil
		},
	}

	cmd.Flags().BoolVar(&tokenStdin, "token-stdin", false, "Read the token from stdin instead of prompting")
	cmd.Flags().BoolVar(&deleteToken, "delete", false, "Remove the stored token for the configured host")

	return cmd
}

// keyringAccount normalizes a workspace host into a keyring account name.
// The same host must map to the same item whether or not it carries a
// scheme or trailing slash.
func keyringAccount(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimSuffix(host, "/")
	return strings.ToLower(host)
}

// readToken reads the token from in. With fromStdin the whole stream is
// the token (pipe-friendly); otherwise one line is read after a prompt.
// The prompt goes to stderr so redirected stdout stays clean.
func readToken(in io.Reader, fromStdin bool) (string, error) {
	var raw string
	if fromStdin {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read token from stdin: %w", err)
		}
		raw = string(data)
	} else {
		fmt.Fprint(os.Stderr, "Paste workspace token (input is not masked): ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("read token: %w", err)
		}
		raw = line
	}

	token := strings.TrimSpace(raw)
	if token == "" {
		return "", lberrors.UserError{
			Message:    "No token provided",
			Suggestion: "Pipe it in with --token-stdin or paste it at the prompt",
		}
	}
	return token, nil
}
