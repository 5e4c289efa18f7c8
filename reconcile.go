package batcher

import (
	"context"
	"fmt"

	"github.com/walletops/batcher/sdk"
	"github.com/walletops/batcher/types"
)

// reconcile resolves InFlight records left behind by an interrupted run
// before any new item is submitted.
//
// An InFlight record with a transaction hash was submitted but its outcome is
// unknown; the chain is queried and the record promoted to Succeeded or
// Failed when the outcome is available. A record that is still unconfirmed
// stays InFlight and is waited on by the execution loop. An InFlight record
// without a hash was never submitted (the interruption fell between the
// status write and the signer call), so it is safely requeued as Pending.
func (e *Executor) reconcile(ctx context.Context, batchID string, obs *observers) error {
	records, err := e.store.ListRecords(ctx, batchID)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if rec.Status != types.ItemStatusInFlight {
			continue
		}

		if rec.TxHash == "" {
			rec.Status = types.ItemStatusPending
			if err := e.store.PutItemRecord(ctx, batchID, rec.Index, rec); err != nil {
				return err
			}

			continue
		}

		outcome, err := e.query.GetConfirmation(ctx, rec.TxHash)
		if err != nil {
			return fmt.Errorf("reconciling item %d (%s): %w", rec.Index, rec.TxHash, err)
		}

		switch outcome {
		case types.ConfirmationSuccess:
			rec.Status = types.ItemStatusSucceeded
		case types.ConfirmationReverted:
			rec.Status = types.ItemStatusFailed
			rec.Error = "transaction reverted"
		case types.ConfirmationPending:
			sdk.LoggerFrom(ctx).Infof("batch %s item %d still unconfirmed (%s)", batchID, rec.Index, rec.TxHash)
			continue
		}

		if err := e.store.PutItemRecord(ctx, batchID, rec.Index, rec); err != nil {
			return err
		}

		if rec.Status == types.ItemStatusSucceeded {
			obs.itemSucceeded(batchID, rec.Index, rec.TxHash)
		} else {
			obs.itemFailed(batchID, rec.Index, NewExecutionError(rec.Index, fmt.Errorf("transaction %s reverted", rec.TxHash)))
		}
	}

	return nil
}
