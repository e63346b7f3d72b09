package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/helpdeck/helpdeck/internal/interfaces/cli/migrate"
	"github.com/helpdeck/helpdeck/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "helpdeck",
		Short: "Helpdeck - request security pipeline for the dashboard API",
		Long:  `Helpdeck serves the dashboard API behind a session, validation, and audit pipeline, with migration tooling built in.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
