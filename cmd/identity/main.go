package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/app"
)

var rootCmd = &cobra.Command{
	Use:           "identity",
	Short:         "OOH Marketplace identity service",
	Version:       app.BuildVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "identity: %v\n", err)
		os.Exit(1)
	}
}
