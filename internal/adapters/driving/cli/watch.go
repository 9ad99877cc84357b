package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driving"
	"github.com/custodia-labs/syncdesk-cli/internal/core/services"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the periodic sync scheduler until interrupted",
	Long: `Keeps the process alive and triggers an unfiltered sync pass at the
configured interval whenever the device is online. Ctrl-C stops the
scheduler after any in-flight pass finishes.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if engineImpl == nil || offlineManager == nil {
		return errors.New("scheduler requires the full service wiring")
	}

	unsubComplete := syncEngine.OnComplete(func(r driving.SyncResult) {
		cmd.Printf("Pass finished: synced=%d failed=%d conflicts=%d\n",
			r.SyncedActions, r.FailedActions, len(r.Conflicts))
	})
	defer unsubComplete()
	unsubErr := syncEngine.OnError(func(err error) {
		cmd.PrintErrf("Pass aborted: %v\n", err)
	})
	defer unsubErr()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	scheduler := services.NewScheduler(engineImpl, offlineManager, engineConfig)
	go func() {
		<-sigCh
		cmd.Println("\nStopping scheduler...")
		scheduler.Stop()
		cancel()
	}()

	cmd.Printf("Watching; syncing every %s. Press Ctrl-C to stop.\n", engineConfig.SyncInterval)
	if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
