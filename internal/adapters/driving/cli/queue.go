package cli

import (
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/syncdesk-cli/internal/core/domain"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the pending action queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued actions in sync order",
	RunE:  runQueueList,
}

var queueRetryCmd = &cobra.Command{
	Use:   "retry <action-id>",
	Short: "Clear a failed action so the next pass retries it",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueRetry,
}

var queueListFailed bool

func init() {
	queueListCmd.Flags().BoolVar(&queueListFailed, "failed", false, "Only show actions past their retry ceiling")
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueRetryCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueList(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if offlineManager == nil {
		return errors.New("offline manager not configured")
	}

	actions, err := offlineManager.PendingActions(cmd.Context(), domain.ActionFilter{IncludeFailed: true})
	if err != nil {
		return err
	}
	if queueListFailed {
		failed := actions[:0]
		for _, a := range actions {
			if a.Failed {
				failed = append(failed, a)
			}
		}
		actions = failed
	}

	if len(actions) == 0 {
		cmd.Println("Queue is empty.")
		return nil
	}
	for i := range actions {
		a := &actions[i]
		state := ""
		if a.Failed {
			state = "  FAILED"
		} else if a.RetryCount > 0 {
			state = "  retries=" + strconv.Itoa(a.RetryCount)
		}
		cmd.Printf("%s  %-7s %-6s %s/%s  %s%s\n",
			a.ID, a.Type, a.Priority, a.Table, a.RecordID,
			a.CreatedAt.Format(time.RFC3339), state)
	}
	return nil
}

func runQueueRetry(cmd *cobra.Command, args []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if offlineManager == nil {
		return errors.New("offline manager not configured")
	}

	if err := offlineManager.ResetAction(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("Action %s re-queued for the next pass.\n", args[0])
	return nil
}
