package batcher

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/walletops/batcher"
	"github.com/walletops/batcher/sdk"
	"github.com/walletops/batcher/sdk/evm"
	"github.com/walletops/batcher/stores/badgerstore"
)

func buildExecuteCmd(configPath *string) *cobra.Command {
	var (
		itemsPath   string
		skipInvalid bool
	)

	cmd := cobra.Command{
		Use:   "execute",
		Short: "Preflight a batch and execute it item by item, recording progress durably",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := sdk.LoggerFrom(ctx)

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			items, err := loadItems(itemsPath)
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

			batch, err := batcher.NewBatchBuilder(auth.From.Hex(), cfg.PlanLimit).
				SetItems(items).
				Build()
			if err != nil {
				return err
			}
			if batch.Truncated > 0 {
				log.Warnf("batch %s: %d items beyond the plan limit were discarded", batch.BatchID, batch.Truncated)
			}

			query := evm.NewChainQuery(client)

			report, err := batcher.NewPreflighter(query).Preflight(ctx, batch)
			if err != nil {
				return err
			}
			if !report.OverallValid && !skipInvalid {
				if perr := printJSON(report); perr != nil {
					return perr
				}
				if report.BatchReason != "" {
					return errors.New(report.BatchReason)
				}

				// Surface the first offending item; rerunning with
				// --skip-invalid executes the valid items anyway.
				first := report.InvalidIndexes()[0]

				return batcher.NewItemValidationError(first, report.PerItem[first].Reason)
			}

			if err = batch.MarkValidated(); err != nil {
				return err
			}

			store, err := badgerstore.Open(cfg.StorePath)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			executor := batcher.NewExecutor(evm.NewSigner(client, auth), query, store)

			var opts []batcher.ExecuteOption
			if skipInvalid {
				opts = append(opts, batcher.WithSkipInvalid(report))
			}

			final, err := executor.Execute(ctx, batch, []batcher.Observer{loggingObserver(log)}, opts...)
			if final != nil {
				if perr := printJSON(final); perr != nil {
					return perr
				}
			}

			return err
		},
	}

	cmd.Flags().StringVar(&itemsPath, "items", "", "Path to the JSON file containing the operation items")
	cmd.Flags().BoolVar(&skipInvalid, "skip-invalid", false, "Execute valid items even when preflight marked some items invalid; invalid items are recorded as Skipped")
	_ = cmd.MarkFlagRequired("items") //nolint:errcheck

	return &cmd
}
