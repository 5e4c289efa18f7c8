package batcher

import (
	"context"

	"github.com/walletops/batcher/types"
)

// BatchReport is the audit summary of a batch after execution halts. It
// always distinguishes items that succeeded, items that failed and why, items
// that were skipped, and items never attempted, so a partially-completed
// batch is auditable.
type BatchReport struct {
	BatchID   string            `json:"batchId"`
	Status    types.BatchStatus `json:"status"`
	Total     int               `json:"total"`
	Succeeded []int             `json:"succeeded"`
	Failed    map[int]string    `json:"failed"`
	Skipped   []int             `json:"skipped"`
	Pending   []int             `json:"pending"`
	InFlight  []int             `json:"inFlight"`
	TxHashes  map[int]string    `json:"txHashes"`
}

// BuildReport assembles a BatchReport from the store's current records.
func BuildReport(ctx context.Context, store BatchStore, batchID string) (*BatchReport, error) {
	batch, err := store.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}

	records, err := store.ListRecords(ctx, batchID)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{
		BatchID:  batchID,
		Status:   batch.Status,
		Total:    len(records),
		Failed:   make(map[int]string),
		TxHashes: make(map[int]string),
	}

	for _, rec := range records {
		switch rec.Status {
		case types.ItemStatusSucceeded:
			report.Succeeded = append(report.Succeeded, rec.Index)
		case types.ItemStatusFailed:
			report.Failed[rec.Index] = rec.Error
		case types.ItemStatusSkipped:
			report.Skipped = append(report.Skipped, rec.Index)
		case types.ItemStatusPending:
			report.Pending = append(report.Pending, rec.Index)
		case types.ItemStatusInFlight:
			report.InFlight = append(report.InFlight, rec.Index)
		}

		if rec.TxHash != "" {
			report.TxHashes[rec.Index] = rec.TxHash
		}
	}

	return report, nil
}
