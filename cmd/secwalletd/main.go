package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/secwallet/cmd/secwalletd/commands"
	"github.com/systmms/secwallet/internal/config"
	"github.com/systmms/secwallet/internal/logging"
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
	var (
		configFile string
		noColor    bool
		verbose    bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "secwalletd",
		Short: "Security Wallet and Credential-Asset Mapping daemon",
		Long: `secwalletd serves the Security Wallet Server and Credential-Asset
Mapping Server over an in-process request/reply transport, persisting
typed credential documents and asset/service/protocol mappings to disk.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := logging.New(verbose, noColor)
			cfg.Path = configFile
			cfg.Logger = logger
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "secwalletd.yaml", "Startup configuration file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored log output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewRunCommand(cfg),
		commands.NewDoctorCommand(cfg),
	)

	return rootCmd.Execute()
}
