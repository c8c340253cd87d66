package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/systmms/secwallet/internal/cams"
	"github.com/systmms/secwallet/internal/config"
	"github.com/systmms/secwallet/internal/mapping"
	"github.com/systmms/secwallet/internal/metrics"
	"github.com/systmms/secwallet/internal/notify"
	"github.com/systmms/secwallet/internal/policyconfig"
	"github.com/systmms/secwallet/internal/portfolio"
	"github.com/systmms/secwallet/internal/srr"
	"github.com/systmms/secwallet/internal/sws"
	"github.com/systmms/secwallet/internal/transport"
)

// NewRunCommand builds the `run` subcommand: loads configuration and data
// files, wires the two servers and the SRR processor onto an in-process
// transport, and blocks until interrupted.
func NewRunCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the Security Wallet and Credential-Asset Mapping servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cfg)
		},
	}
	return cmd
}

func runDaemon(cfg *config.Config) error {
	log := cfg.Logger
	log.Info("loading configuration from %s", cfg.Path)
	if err := cfg.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	def := cfg.Definition

	policyData, err := os.ReadFile(def.WalletConfigurationPath)
	if err != nil {
		return fmt.Errorf("reading wallet configuration %q: %w", def.WalletConfigurationPath, err)
	}
	parsedPolicies, err := policyconfig.ParseConfigs(policyData)
	if err != nil {
		return fmt.Errorf("parsing wallet configuration %q: %w", def.WalletConfigurationPath, err)
	}
	policies := make(map[string]*policyconfig.Config, len(parsedPolicies))
	for _, p := range parsedPolicies {
		policies[p.PortfolioName] = p
	}

	walletStore := portfolio.NewStore(def.WalletDatabasePath, log)
	if err := walletStore.Load(); err != nil {
		return fmt.Errorf("loading wallet database %q: %w", def.WalletDatabasePath, err)
	}
	for name := range policies {
		walletStore.EnsurePortfolio(name)
	}

	mappingStore := mapping.NewStore(def.MappingDatabasePath)
	if err := mappingStore.Load(); err != nil {
		return fmt.Errorf("loading mapping database %q: %w", def.MappingDatabasePath, err)
	}

	metrics.Init()
	m := metrics.New()

	metricsServer := metrics.NewServer(metrics.ServerConfig{
		Enabled: def.MetricsEnabled,
		Addr:    metricsAddr(def.MetricsAddr),
		Path:    "/metrics",
	})
	metricsServer.Start(log)

	publisher := transport.NewLocalPublisher()
	notifier := notify.NewManager(publisher, notify.DefaultQueueSize,
		notify.WithOnDropped(m.RecordNotificationDropped),
		notify.WithOnError(func(err error) { log.Warn("notification publish failed: %v", err) }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notifier.Start(ctx)
	defer notifier.Stop()

	swsServer := sws.New(walletStore, policies, notifier, log.With("server", "sws"), sws.WithMetrics(m))
	camsServer := cams.New(mappingStore, log.With("server", "cams"), cams.WithMetrics(m))
	srrProcessor := srr.New(swsServer, camsServer)
	srrServer := srr.NewServer(srrProcessor)

	tr := transport.NewLocalTransport()
	tr.Register(def.SWSAgentName, swsServer.Handle)
	tr.Register(def.CAMSAgentName, camsServer.Handle)
	tr.Register(def.SRRAgentName, srrServer.Handle)

	log.Info("secwalletd ready: sws=%s cams=%s srr=%s endpoint=%s",
		def.SWSAgentName, def.CAMSAgentName, def.SRRAgentName, def.Endpoint)

	waitForSignal()
	log.Info("shutting down")
	return nil
}

func metricsAddr(addr string) string {
	if addr == "" {
		return ":9090"
	}
	return addr
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}
