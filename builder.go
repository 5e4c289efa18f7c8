package batcher

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/walletops/batcher/types"
)

// BatchBuilder assembles a Draft batch. The plan limit is a caller-supplied
// policy input: items beyond it are truncated at Build time and the discarded
// count is recorded on the batch, never silently dropped.
type BatchBuilder struct {
	batch     Batch
	planLimit int
}

// NewBatchBuilder creates a new BatchBuilder for the given signer account and
// plan limit.
func NewBatchBuilder(signer string, planLimit int) *BatchBuilder {
	return &BatchBuilder{
		batch: Batch{
			Signer: signer,
			Status: types.BatchStatusDraft,
			Items:  []types.OperationItem{},
		},
		planLimit: planLimit,
	}
}

// SetBatchID overrides the generated batch identifier.
func (b *BatchBuilder) SetBatchID(id string) *BatchBuilder {
	b.batch.BatchID = id

	return b
}

// AddItem appends an item to the batch. The item's Index is assigned from its
// position; any caller-provided value is overwritten.
func (b *BatchBuilder) AddItem(item types.OperationItem) *BatchBuilder {
	item.Index = len(b.batch.Items)
	b.batch.Items = append(b.batch.Items, item)

	return b
}

// SetItems replaces all items of the batch, reindexing them contiguously.
func (b *BatchBuilder) SetItems(items []types.OperationItem) *BatchBuilder {
	b.batch.Items = make([]types.OperationItem, 0, len(items))
	for _, item := range items {
		b.AddItem(item)
	}

	return b
}

// Build truncates to the plan limit, then validates and returns the
// constructed batch.
func (b *BatchBuilder) Build() (*Batch, error) {
	if b.planLimit <= 0 {
		return nil, fmt.Errorf("plan limit must be positive, got %d", b.planLimit)
	}

	if b.batch.BatchID == "" {
		b.batch.BatchID = ulid.Make().String()
	}
	b.batch.CreatedAt = time.Now().UTC()

	if len(b.batch.Items) > b.planLimit {
		b.batch.Truncated = len(b.batch.Items) - b.planLimit
		b.batch.Items = b.batch.Items[:b.planLimit]
	}

	if err := b.batch.Validate(); err != nil {
		return nil, err
	}

	return &b.batch, nil
}
