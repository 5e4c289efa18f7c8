package batcher

import (
	"github.com/spf13/cobra"

	"github.com/walletops/batcher"
	"github.com/walletops/batcher/sdk"
	"github.com/walletops/batcher/sdk/evm"
	"github.com/walletops/batcher/stores/badgerstore"
)

func buildResumeCmd(configPath *string) *cobra.Command {
	var batchID string

	cmd := cobra.Command{
		Use:   "resume",
		Short: "Resume a paused or interrupted batch; finished items are never re-attempted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := sdk.LoggerFrom(ctx)

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			client, chainID, err := dialClient()
			if err != nil {
				return err
			}

			auth, err := loadTransactor(chainID)
			if err != nil {
				return err
			}

			store, err := badgerstore.Open(cfg.StorePath)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			executor := batcher.NewExecutor(evm.NewSigner(client, auth), evm.NewChainQuery(client), store)

			report, err := executor.Resume(ctx, batchID, []batcher.Observer{loggingObserver(log)})
			if report != nil {
				if perr := printJSON(report); perr != nil {
					return perr
				}
			}

			return err
		},
	}

	cmd.Flags().StringVar(&batchID, "batch", "", "Identifier of the batch to resume")
	_ = cmd.MarkFlagRequired("batch") //nolint:errcheck

	return &cmd
}
