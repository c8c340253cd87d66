package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/secwallet/internal/config"
	"github.com/systmms/secwallet/internal/mapping"
	"github.com/systmms/secwallet/internal/policyconfig"
	"github.com/systmms/secwallet/internal/portfolio"
)

// NewDoctorCommand builds the `doctor` subcommand: loads the startup
// configuration and every data file it names and reports whether `run`
// would start cleanly, without binding any transport or serving requests
// (grounded on the teacher's diagnostic-without-side-effects doctor
// command).
func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and data file validity without starting the servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cfg)
		},
	}
	return cmd
}

func runDoctor(cfg *config.Config) error {
	log := cfg.Logger
	log.Info("checking secwalletd configuration...")

	if err := cfg.Load(); err != nil {
		log.Error("configuration error: %v", err)
		return fmt.Errorf("failed to load config: %w", err)
	}
	log.Info("configuration loaded from %s", cfg.Path)
	def := cfg.Definition

	healthy := 0
	total := 0

	total++
	policyData, err := os.ReadFile(def.WalletConfigurationPath)
	if err != nil {
		log.Error("wallet configuration %q: %v", def.WalletConfigurationPath, err)
	} else if _, err := policyconfig.ParseConfigs(policyData); err != nil {
		log.Error("wallet configuration %q: %v", def.WalletConfigurationPath, err)
	} else {
		log.Info("wallet configuration %q is valid", def.WalletConfigurationPath)
		healthy++
	}

	total++
	walletStore := portfolio.NewStore(def.WalletDatabasePath, log)
	if err := walletStore.Load(); err != nil {
		log.Error("wallet database %q: %v", def.WalletDatabasePath, err)
	} else {
		log.Info("wallet database %q is valid (%d portfolios)", def.WalletDatabasePath, len(walletStore.Names()))
		healthy++
	}

	total++
	mappingStore := mapping.NewStore(def.MappingDatabasePath)
	if err := mappingStore.Load(); err != nil {
		log.Error("mapping database %q: %v", def.MappingDatabasePath, err)
	} else {
		log.Info("mapping database %q is valid (%d mappings)", def.MappingDatabasePath, len(mappingStore.All()))
		healthy++
	}

	fmt.Printf("\nSummary: %d/%d checks passed\n", healthy, total)
	if healthy < total {
		return fmt.Errorf("some checks failed")
	}
	log.Info("all systems operational")
	return nil
}
