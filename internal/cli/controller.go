package cli

import (
	"github.com/spf13/cobra"
)

// NewControllerCmd создаёт группу команд для управления контроллерами.
func NewControllerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "controller",
		Short: "Manage consumer controllers",
	}

	cmd.AddCommand(
		newControllerListCmd(clientFn, outputFn),
		newControllerCreateCmd(clientFn, outputFn),
		newControllerStartCmd(clientFn, outputFn),
		newControllerStopCmd(clientFn, outputFn),
		newControllerDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newControllerListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List controllers",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			controllers, err := client.ListControllers()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "QUEUE", "EXCHANGE_TYPE", "STATE"}
			rows := make([][]string, len(controllers))
			for i, c := range controllers {
				rows[i] = []string{c.ID, c.Name, c.Queue, c.ExchangeType, c.State}
			}

			out.Print(headers, rows, controllers)
			return nil
		},
	}
}

func newControllerCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var exchange string
	var exchangeType string

	cmd := &cobra.Command{
		Use:   "create QUEUE",
		Short: "Create a controller for a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			c, err := client.CreateController(CreateControllerOpts{
				Name:         name,
				Queue:        args[0],
				Exchange:     exchange,
				ExchangeType: exchangeType,
			})
			if err != nil {
				return err
			}

			out.Success("Controller created: " + c.ID)
			out.Print(
				[]string{"ID", "NAME", "QUEUE", "EXCHANGE_TYPE", "STATE"},
				[][]string{{c.ID, c.Name, c.Queue, c.ExchangeType, c.State}},
				c,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Controller name (default: queue name)")
	cmd.Flags().StringVar(&exchange, "exchange", "", "Exchange to bind the queue to")
	cmd.Flags().StringVar(&exchangeType, "exchange-type", "direct", "Exchange type (direct, topic, fanout, headers)")

	return cmd
}

func newControllerStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "start ID",
		Short: "Start the consumer of a controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			c, msg, err := client.StartController(args[0])
			if err != nil {
				return err
			}

			if msg != "" {
				out.Success("Queue " + c.Queue + ": " + msg)
			} else {
				out.Success("Controller started: " + c.Queue)
			}
			out.Print(
				[]string{"ID", "QUEUE", "STATE"},
				[][]string{{c.ID, c.Queue, c.State}},
				c,
			)
			return nil
		},
	}
}

func newControllerStopCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stop ID",
		Short: "Stop the consumer of a controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			c, err := client.StopController(args[0])
			if err != nil {
				return err
			}

			out.Success("Controller stopped: " + c.Queue)
			out.Print(
				[]string{"ID", "QUEUE", "STATE"},
				[][]string{{c.ID, c.Queue, c.State}},
				c,
			)
			return nil
		},
	}
}

func newControllerDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a stopped controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			c, err := client.DeleteController(args[0])
			if err != nil {
				return err
			}

			out.Success("Controller deleted: " + c.Queue)
			return nil
		},
	}
}
