package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPurgeCmd создаёт команду ручного retention-свипа.
func NewPurgeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var retentionHours int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete old successful log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			purged, err := client.Purge(retentionHours)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Purged %d entries", purged))
			if out.jsonMode {
				out.JSON(map[string]int64{"purged": purged})
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&retentionHours, "retention-hours", 0, "Retention window in hours (0 = server default)")

	return cmd
}
