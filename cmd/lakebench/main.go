package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/lakebench/cmd/lakebench/commands"
	"github.com/systmms/lakebench/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		noColor bool
		debug   bool
	)

	app := &commands.App{}

	rootCmd := &cobra.Command{
		Use:   "lakebench",
		Short: "Benchmark harness for managed Postgres with rotating credentials",
		Long: `lakebench proves a managed database instance executes concurrent queries
through an asynchronous connection pool while its short-lived credentials
rotate underneath, and compares it against conventional engines.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger with parsed flags
			app.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewRunCommand(app),
		commands.NewVerifyCommand(app),
		commands.NewCompareCommand(app),
		commands.NewTokenCommand(app),
		commands.NewInstancesCommand(app),
		commands.NewDoctorCommand(app),
		commands.NewLoginCommand(app),
		commands.NewCompletionCommand(app),
	)

	return rootCmd.Execute()
}
