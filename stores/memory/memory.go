// Package memory provides an in-memory BatchStore. It offers the same
// read-after-write and monotonicity guarantees as the durable stores, minus
// persistence across process restart, which makes it the store of choice for
// tests and ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/walletops/batcher"
	"github.com/walletops/batcher/types"
)

// Store is a mutex-guarded in-memory BatchStore.
type Store struct {
	mu      sync.Mutex
	batches map[string]batcher.Batch
	records map[string][]types.ItemExecutionRecord
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		batches: make(map[string]batcher.Batch),
		records: make(map[string][]types.ItemExecutionRecord),
	}
}

func (s *Store) Create(_ context.Context, batch *batcher.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batches[batch.BatchID]; ok {
		return fmt.Errorf("batch %s already exists", batch.BatchID)
	}

	stored := *batch
	stored.Items = append([]types.OperationItem(nil), batch.Items...)
	s.batches[batch.BatchID] = stored

	records := make([]types.ItemExecutionRecord, len(batch.Items))
	for i := range records {
		records[i] = types.ItemExecutionRecord{Index: i, Status: types.ItemStatusPending}
	}
	s.records[batch.BatchID] = records

	return nil
}

func (s *Store) Get(_ context.Context, batchID string) (*batcher.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.batches[batchID]
	if !ok {
		return nil, batcher.ErrBatchNotFound
	}

	out := stored
	out.Items = append([]types.OperationItem(nil), stored.Items...)

	return &out, nil
}

func (s *Store) PutItemRecord(_ context.Context, batchID string, index int, rec types.ItemExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.records[batchID]
	if !ok {
		return batcher.ErrBatchNotFound
	}
	if index < 0 || index >= len(records) {
		return batcher.ErrRecordNotFound
	}

	current := records[index].Status
	if current != rec.Status && !current.CanTransitionTo(rec.Status) {
		return batcher.NewRecordRegressionError(index, current, rec.Status)
	}

	rec.Index = index
	records[index] = rec

	return nil
}

func (s *Store) GetItemRecord(_ context.Context, batchID string, index int) (types.ItemExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.records[batchID]
	if !ok {
		return types.ItemExecutionRecord{}, batcher.ErrBatchNotFound
	}
	if index < 0 || index >= len(records) {
		return types.ItemExecutionRecord{}, batcher.ErrRecordNotFound
	}

	return records[index], nil
}

func (s *Store) ListRecords(_ context.Context, batchID string) ([]types.ItemExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.records[batchID]
	if !ok {
		return nil, batcher.ErrBatchNotFound
	}

	return append([]types.ItemExecutionRecord(nil), records...), nil
}

func (s *Store) ListPending(_ context.Context, batchID string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.records[batchID]
	if !ok {
		return nil, batcher.ErrBatchNotFound
	}

	var pending []int
	for _, rec := range records {
		if rec.Status == types.ItemStatusPending {
			pending = append(pending, rec.Index)
		}
	}

	return pending, nil
}

func (s *Store) PutBatchStatus(_ context.Context, batchID string, status types.BatchStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.batches[batchID]
	if !ok {
		return batcher.ErrBatchNotFound
	}

	stored.Status = status
	s.batches[batchID] = stored

	return nil
}
