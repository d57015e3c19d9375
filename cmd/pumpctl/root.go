package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// NewRootCommand assembles the pumpctl command tree, mirroring the
// teacher repo's cmd/alex root command structure.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "pumpctl",
		Short:         "Decision kernel CLI for a wastewater lift station's pump control agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to an optional pumpkernel YAML config file")

	root.AddCommand(newDecideCommand())
	root.AddCommand(newReplayCommand())
	root.AddCommand(newServeMetricsCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pumpctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "pumpctl dev")
		},
	}
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pumpctl: %v\n", err)
		os.Exit(1)
	}
}
