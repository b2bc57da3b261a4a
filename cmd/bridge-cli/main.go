// Bridge CLI — инструмент командной строки для управления
// consumer controller'ами и журналом операций через admin HTTP API.
//
// Использование:
//
//	bridge [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	controller  Управление consumer controller'ами
//	log         Журнал операций
//	purge       Retention-свип журнала
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/attendance-bridge/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "bridge",
		Short:         "Attendance bridge CLI",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8084", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewControllerCmd(clientFn, outputFn),
		cli.NewLogCmd(clientFn, outputFn),
		cli.NewPurgeCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
