package batcher

import (
	"github.com/spf13/cobra"

	"github.com/walletops/batcher"
	"github.com/walletops/batcher/sdk/evm"
)

func buildPreflightCmd(configPath *string) *cobra.Command {
	var itemsPath string

	cmd := cobra.Command{
		Use:   "preflight",
		Short: "Validate a batch of operations and estimate its cost without executing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			report, err := batcher.NewPreflighter(evm.NewChainQuery(client)).Preflight(cmd.Context(), batch)
			if err != nil {
				return err
			}

			return printJSON(report)
		},
	}

	cmd.Flags().StringVar(&itemsPath, "items", "", "Path to the JSON file containing the operation items")
	_ = cmd.MarkFlagRequired("items") //nolint:errcheck

	return &cmd
}
