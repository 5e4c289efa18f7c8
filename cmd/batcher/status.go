package batcher

import (
	"github.com/spf13/cobra"

	"github.com/walletops/batcher"
	"github.com/walletops/batcher/stores/badgerstore"
)

func buildStatusCmd(configPath *string) *cobra.Command {
	var batchID string

	cmd := cobra.Command{
		Use:   "status",
		Short: "Print the audit report of a batch: succeeded, failed, skipped, and never-attempted items",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			store, err := badgerstore.Open(cfg.StorePath)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			report, err := batcher.BuildReport(cmd.Context(), store, batchID)
			if err != nil {
				return err
			}

			return printJSON(report)
		},
	}

	cmd.Flags().StringVar(&batchID, "batch", "", "Identifier of the batch to inspect")
	_ = cmd.MarkFlagRequired("batch") //nolint:errcheck

	return &cmd
}
