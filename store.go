package batcher

import (
	"context"

	"github.com/walletops/batcher/types"
)

// BatchStore is the durable record of a batch and its per-item execution
// state. Implementations guarantee read-after-write consistency for a single
// batch accessed from one execution context at a time, and reject item record
// writes that would regress a terminal status.
//
// The store performs no business logic: it never decides whether an item is
// valid or whether a batch is finished.
type BatchStore interface {
	// Create persists a new batch along with one Pending execution record
	// per item. It fails if the batch already exists.
	Create(ctx context.Context, batch *Batch) error

	// Get retrieves a batch by ID, returning ErrBatchNotFound if absent.
	Get(ctx context.Context, batchID string) (*Batch, error)

	// PutItemRecord writes the execution record for (batchID, index). The
	// write is rejected with a RecordRegressionError if the stored record's
	// status does not permit the transition.
	PutItemRecord(ctx context.Context, batchID string, index int, rec types.ItemExecutionRecord) error

	// GetItemRecord retrieves the execution record for (batchID, index).
	GetItemRecord(ctx context.Context, batchID string, index int) (types.ItemExecutionRecord, error)

	// ListRecords returns all execution records for the batch in index order.
	ListRecords(ctx context.Context, batchID string) ([]types.ItemExecutionRecord, error)

	// ListPending returns the indexes of records still Pending, in order.
	ListPending(ctx context.Context, batchID string) ([]int, error)

	// PutBatchStatus updates the batch's lifecycle status.
	PutBatchStatus(ctx context.Context, batchID string, status types.BatchStatus) error
}
