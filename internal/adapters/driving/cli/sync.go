package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
	"github.com/custodia-labs/syncdesk-cli/internal/core/ports/driving"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass against the remote service",
	Long: `Drains the pending action queue against the remote record service.
Without flags the pass is unfiltered; --table, --priority and --type
restrict it, leaving non-matching actions queued untouched.`,
	RunE: runSync,
}

// Sync filter flags.
var (
	syncTables     []string
	syncPriorities []string
	syncTypes      []string
)

func init() {
	syncCmd.Flags().StringSliceVar(&syncTables, "table", nil, "Only sync actions for these tables")
	syncCmd.Flags().StringSliceVar(&syncPriorities, "priority", nil, "Only sync actions with these priorities (high, medium, low)")
	syncCmd.Flags().StringSliceVar(&syncTypes, "type", nil, "Only sync actions of these types (create, update, delete, query)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if syncEngine == nil {
		return errors.New("sync engine not configured")
	}

	filter, err := buildFilter()
	if err != nil {
		return err
	}

	unsubscribe := syncEngine.OnProgress(func(p driving.SyncProgress) {
		cmd.Printf("\rSyncing... %d/%d (%.0f%%)", p.Completed+p.Failed, p.Total, p.Percentage)
	})
	defer unsubscribe()

	result, err := syncEngine.SyncWithFilter(cmd.Context(), filter)
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			return fmt.Errorf("a sync pass is already running, try again shortly: %w", err)
		}
		return fmt.Errorf("sync failed: %w", err)
	}
	cmd.Println()

	printResult(cmd, result)
	if !result.Success {
		return errors.New("sync pass finished with failures")
	}
	return nil
}

// buildFilter validates the flag values into an action filter.
func buildFilter() (domain.ActionFilter, error) {
	var filter domain.ActionFilter
	filter.Tables = syncTables

	for _, p := range syncPriorities {
		priority := domain.Priority(p)
		if !priority.IsValid() {
			return filter, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, p)
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	for _, t := range syncTypes {
		actionType := domain.ActionType(t)
		if !actionType.IsValid() {
			return filter, fmt.Errorf("%w: unknown action type %q", domain.ErrInvalidInput, t)
		}
		filter.Types = append(filter.Types, actionType)
	}
	return filter, nil
}

func printResult(cmd *cobra.Command, result *driving.SyncResult) {
	cmd.Printf("Synced: %d, failed: %d, conflicts: %d\n",
		result.SyncedActions, result.FailedActions, len(result.Conflicts))

	for i := range result.Conflicts {
		c := &result.Conflicts[i]
		cmd.Printf("  conflict %s/%s: %s\n", c.Table, c.RecordID, c.Type)
	}
	for i := range result.Errors {
		e := &result.Errors[i]
		if e.ActionID != "" {
			cmd.Printf("  error %s/%s: %s\n", e.Table, e.RecordID, e.Message)
		} else {
			cmd.Printf("  error: %s\n", e.Message)
		}
	}
}
