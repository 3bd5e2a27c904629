package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openforge/reposync/internal/utils/logger"
)

var logLevel string

func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "reposync",
		Short: "Build and maintain a local Arch Linux package repository",
		Long: `reposync resolves package names to concrete artifacts, fetches them
from configured mirrors and folds them into per-repository databases
rebuilt with repo-add.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn or error")

	rootCmd.AddCommand(createSyncCommand())
	rootCmd.AddCommand(createSetupCommand())
	return rootCmd
}

func main() {
	defer logger.Sync()

	if err := createRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
