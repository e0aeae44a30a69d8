// Blox CLI - host-side tooling for blox devices.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const version = "blox 1.0"

var verbosity int

var rootCmd = &cobra.Command{
	Use:   "blox",
	Short: "Blox host tools",
	Long:  "Blox talks to devices running the blox virtual machine: upload chunks, run them, and watch task state over the serial link.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		commonlog.Configure(verbosity, nil)
	},
}

func main() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbose", "v", 0, "log verbosity")

	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(simCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
