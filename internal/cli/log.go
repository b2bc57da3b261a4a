package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogCmd создаёт группу команд для работы с журналом операций.
func NewLogCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect the operation log",
	}

	cmd.AddCommand(
		newLogListCmd(clientFn, outputFn),
		newLogShowCmd(clientFn, outputFn),
		newLogRetryCmd(clientFn, outputFn),
	)

	return cmd
}

func newLogListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List log entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			entries, err := client.ListLogs(ListLogsOpts{Status: status, Limit: limit})
			if err != nil {
				return err
			}

			headers := []string{"ID", "QUEUE", "OPERATION", "MODEL", "RECORD_ID", "STATUS", "CREATED_AT"}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				recordID := ""
				if e.RecordID != nil {
					recordID = fmt.Sprintf("%d", *e.RecordID)
				}
				rows[i] = []string{e.ID, e.QueueName, e.Operation, e.ModelName, recordID, e.Status, e.CreatedAt}
			}

			out.Print(headers, rows, entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (new, success, fail)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries")

	return cmd
}

func newLogShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a log entry with payload and error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			e, err := client.GetLog(args[0])
			if err != nil {
				return err
			}

			// Детали всегда в JSON: payload и error в таблицу не помещаются.
			out.JSON(e)
			return nil
		},
	}
}

func newLogRetryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "retry ID",
		Short: "Re-run a log entry from its stored state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			e, err := client.RetryLog(args[0])
			if err != nil {
				return err
			}

			out.Success("Entry reprocessed: " + e.Status)
			out.Print(
				[]string{"ID", "OPERATION", "STATUS", "ERROR"},
				[][]string{{e.ID, e.Operation, e.Status, e.Error}},
				e,
			)
			return nil
		},
	}
}
