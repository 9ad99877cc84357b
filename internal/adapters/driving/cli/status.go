package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show offline and sync status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if offlineManager == nil || syncEngine == nil {
		return errors.New("services not configured")
	}

	status, err := offlineManager.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read offline status: %w", err)
	}

	state := "online"
	if status.IsOffline {
		state = "offline"
	}
	cmd.Printf("Connectivity: %s\n", state)
	cmd.Printf("Pending actions: %d\n", status.PendingActions)
	cmd.Printf("Cached data: %s\n", formatBytes(status.CachedDataSize))
	cmd.Printf("Last sync: %s\n", formatTime(status.LastSync))
	if status.SyncInProgress {
		cmd.Println("Sync: in progress")
	}

	syncStatus := syncEngine.Status()
	cmd.Printf("Next scheduled sync: %s\n", formatTime(syncStatus.NextScheduledSync))
	cmd.Printf("Total actions synced: %d\n", syncStatus.TotalActionsSynced)
	cmd.Printf("Total conflicts resolved: %d\n", syncStatus.TotalConflictsResolved)
	if syncStatus.AverageSyncTime > 0 {
		cmd.Printf("Average pass duration: %s\n", syncStatus.AverageSyncTime.Round(time.Millisecond))
	}

	if len(syncStatus.History) > 0 {
		cmd.Printf("\nRecent passes:\n")
		for i := range syncStatus.History {
			r := &syncStatus.History[i]
			outcome := "ok"
			if !r.Success {
				outcome = "failed"
			}
			cmd.Printf("  %s  %s  synced=%d failed=%d conflicts=%d\n",
				r.EndedAt.Format(time.RFC3339), outcome, r.Synced, r.Failed, r.Conflicts)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
