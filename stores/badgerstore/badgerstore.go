// Package badgerstore provides a BatchStore backed by an embedded badger
// database, giving batches durability across process restart. Values are
// JSON-encoded; keys are namespaced per batch so records iterate in index
// order.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/walletops/batcher"
	"github.com/walletops/batcher/types"
)

// Store is a badger-backed BatchStore.
type Store struct {
	db *badger.DB
}

// Open opens (creating if needed) a badger database at path and wraps it in a
// Store. Badger's own logger is silenced; the engine logs through the context
// logger instead.
func Open(path string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening badger store: %w", err)
	}

	return &Store{db: db}, nil
}

// New wraps an already-open badger database.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func batchKey(batchID string) []byte {
	return []byte("batch/" + batchID)
}

func recordKey(batchID string, index int) []byte {
	// Zero-padded so lexicographic iteration is index order.
	return []byte(fmt.Sprintf("rec/%s/%08d", batchID, index))
}

func recordPrefix(batchID string) []byte {
	return []byte("rec/" + batchID + "/")
}

func (s *Store) Create(_ context.Context, batch *batcher.Batch) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(batchKey(batch.BatchID)); err == nil {
			return fmt.Errorf("batch %s already exists", batch.BatchID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		raw, err := json.Marshal(batch)
		if err != nil {
			return err
		}
		if err = txn.Set(batchKey(batch.BatchID), raw); err != nil {
			return err
		}

		for i := range batch.Items {
			rec := types.ItemExecutionRecord{Index: i, Status: types.ItemStatusPending}
			rawRec, merr := json.Marshal(rec)
			if merr != nil {
				return merr
			}
			if err = txn.Set(recordKey(batch.BatchID, i), rawRec); err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *Store) Get(_ context.Context, batchID string) (*batcher.Batch, error) {
	var out batcher.Batch
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(batchKey(batchID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return batcher.ErrBatchNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

func (s *Store) PutItemRecord(_ context.Context, batchID string, index int, rec types.ItemExecutionRecord) error {
	return s.db.Update(func(txn *badger.Txn) error {
		current, err := readRecord(txn, batchID, index)
		if err != nil {
			return err
		}

		if current.Status != rec.Status && !current.Status.CanTransitionTo(rec.Status) {
			return batcher.NewRecordRegressionError(index, current.Status, rec.Status)
		}

		rec.Index = index
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}

		return txn.Set(recordKey(batchID, index), raw)
	})
}

func (s *Store) GetItemRecord(_ context.Context, batchID string, index int) (types.ItemExecutionRecord, error) {
	var out types.ItemExecutionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		rec, err := readRecord(txn, batchID, index)
		if err != nil {
			return err
		}
		out = rec

		return nil
	})

	return out, err
}

func (s *Store) ListRecords(_ context.Context, batchID string) ([]types.ItemExecutionRecord, error) {
	var out []types.ItemExecutionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(batchKey(batchID)); errors.Is(err, badger.ErrKeyNotFound) {
			return batcher.ErrBatchNotFound
		} else if err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix(batchID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec types.ItemExecutionRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}

			out = append(out, rec)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Store) ListPending(ctx context.Context, batchID string) ([]int, error) {
	records, err := s.ListRecords(ctx, batchID)
	if err != nil {
		return nil, err
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
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(batchKey(batchID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return batcher.ErrBatchNotFound
		}
		if err != nil {
			return err
		}

		var batch batcher.Batch
		if err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &batch)
		}); err != nil {
			return err
		}

		batch.Status = status
		raw, err := json.Marshal(&batch)
		if err != nil {
			return err
		}

		return txn.Set(batchKey(batchID), raw)
	})
}

func readRecord(txn *badger.Txn, batchID string, index int) (types.ItemExecutionRecord, error) {
	var out types.ItemExecutionRecord
	item, err := txn.Get(recordKey(batchID, index))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return out, batcher.ErrRecordNotFound
	}
	if err != nil {
		return out, err
	}

	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &out)
	})

	return out, err
}
