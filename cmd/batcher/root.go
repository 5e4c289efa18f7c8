package batcher

import (
	"github.com/spf13/cobra"
)

func BuildBatcherCmd() *cobra.Command {
	var configPath string

	cmd := cobra.Command{
		Use:   "batcher",
		Short: "Preflight and execute batches of on-chain operations",
		Long:  ``,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "batcher.yaml", "Path to the yaml configuration file")

	cmd.AddCommand(buildPreflightCmd(&configPath))
	cmd.AddCommand(buildExecuteCmd(&configPath))
	cmd.AddCommand(buildResumeCmd(&configPath))
	cmd.AddCommand(buildStatusCmd(&configPath))

	return &cmd
}
