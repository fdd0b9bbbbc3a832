package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the identity HTTP server",
	Long: `Starts the identity HTTP server. Usage:

	identity serve

Running identity without a subcommand does the same.
`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := app.LoadConfig()

	application, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return application.Run()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
