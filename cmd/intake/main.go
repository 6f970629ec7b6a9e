package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/intake/internal/config"
	"github.com/ehr/intake/internal/platform/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "intake",
		Short:        "Patient intake registration service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(attributeTypesCmd())
	rootCmd.AddCommand(ageCmd())
	rootCmd.AddCommand(cardCmd())
	rootCmd.AddCommand(registryStubCmd())
	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Console: cfg.IsDev(),
		File:    cfg.LogFile,
	})
}
