// Package cli implements the cobra command surface of the Syncdesk
// CLI. Commands talk to the engine only through the driving ports;
// services are wired lazily on first use so tests can inject mocks.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/syncdesk-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/syncdesk-cli/internal/adapters/driven/connectivity"
	remotehttp "github.com/custodia-labs/syncdesk-cli/internal/adapters/driven/remote/http"
	"github.com/custodia-labs/syncdesk-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/syncdesk-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driven"
	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driving"
	"github.com/custodia-labs/syncdesk-cli/internal/core/services"
	"github.com/custodia-labs/syncdesk-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services used by the commands. Tests replace these with mocks;
// production wiring happens in ensureServices.
var (
	offlineManager driving.OfflineManager
	syncEngine     driving.SyncEngine

	// engineImpl and engineConfig are kept for the watch command's
	// scheduler, which needs the concrete engine.
	engineImpl   *services.SyncEngine
	engineConfig domain.Config
)

// Root flags.
var (
	verboseFlag bool
	configFlag  string
	dataDirFlag string
	offlineFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "syncdesk",
	Short: "Offline-first sync engine for the Syncdesk ticketing client",
	Long: `Syncdesk keeps a local cache of server records and a durable queue of
mutations made while disconnected, and reconciles both against the
hosted record service once connectivity returns.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config file (default ~/.syncdesk/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Path to data directory (default ~/.syncdesk/data)")
	rootCmd.PersistentFlags().BoolVar(&offlineFlag, "offline", false, "Force offline mode; no remote calls are made")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ensureServices wires the production services on first use. Commands
// whose services were injected (tests) skip wiring entirely.
func ensureServices(cmd *cobra.Command) error {
	if offlineManager != nil && syncEngine != nil {
		return nil
	}

	path := configFlag
	if path == "" {
		var err error
		path, err = configfile.DefaultPath()
		if err != nil {
			return err
		}
	}
	cfg, err := configfile.Load(path)
	if err != nil {
		return err
	}
	engineConfig = cfg

	remote := remotehttp.NewClient(cfg.RemoteURL, cfg)

	var monitor driven.ConnectivityMonitor
	if offlineFlag || cfg.RemoteURL == "" {
		monitor = connectivity.NewManual(true)
	} else {
		probe := connectivity.NewMonitor(remote, cfg.ProbeInterval, cfg.ProbeDwell)
		probe.Start(cmd.Context())
		monitor = probe
	}

	var (
		cache   driven.CacheStore
		queue   driven.ActionQueue
		syncLog driven.SyncLogStore
	)
	store, err := sqlite.NewStore(dataDirFlag)
	if err != nil {
		// Degrade to in-memory caching; the app keeps working, the
		// queue just will not survive a restart.
		logger.Warn("Durable storage unavailable, continuing in memory: %v", err)
		cmd.PrintErrf("Warning: %v\n", fmt.Errorf("%w: queue will not survive restarts", domain.ErrStorageUnavailable))
		cache = memory.NewCacheStore()
		queue = memory.NewActionQueue()
		syncLog = memory.NewSyncLogStore()
	} else {
		cache = store.CacheStore()
		queue = store.ActionQueue()
		syncLog = store.SyncLogStore()
	}

	manager := services.NewOfflineManager(cache, queue, monitor, cfg)
	if err := manager.Initialize(cmd.Context()); err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			return fmt.Errorf("offline manager initialisation failed: %w", err)
		}
		return err
	}

	engineImpl = services.NewSyncEngine(manager, remote, syncLog, services.NewResolver(cfg.ConflictPolicy), cfg)

	offlineManager = manager
	syncEngine = engineImpl
	return nil
}
