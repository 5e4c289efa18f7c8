package batcher

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/walletops/batcher/types"
)

// Batch is an ordered, size-capped collection of operation items submitted as
// one logical unit. Items are immutable once the batch reaches Validated;
// Truncated records how many items were discarded to fit the plan limit at
// build time.
type Batch struct {
	BatchID   string                `json:"batchId" validate:"required"`
	Signer    string                `json:"signer" validate:"required,eth_addr"`
	Items     []types.OperationItem `json:"items"`
	Status    types.BatchStatus     `json:"status" validate:"required"`
	Truncated int                   `json:"truncated"`
	CreatedAt time.Time             `json:"createdAt"`
}

// NewBatch decodes and validates a batch from JSON.
func NewBatch(reader io.Reader) (*Batch, error) {
	var out Batch
	if err := json.NewDecoder(reader).Decode(&out); err != nil {
		return nil, err
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}

	return &out, nil
}

// MarshalJSON marshals the batch to JSON.
func (b *Batch) MarshalJSON() ([]byte, error) {
	// First, check the batch is valid
	if err := b.Validate(); err != nil {
		return nil, err
	}

	// Let the default JSON marshaller handle everything
	type Alias Batch

	return json.Marshal((*Alias)(b))
}

// UnmarshalJSON unmarshals the JSON to a batch.
func (b *Batch) UnmarshalJSON(data []byte) error {
	// Unmarshal all fields using the default unmarshaller
	type Alias Batch
	if err := json.Unmarshal(data, (*Alias)(b)); err != nil {
		return err
	}

	// Validate the batch after unmarshalling
	return b.Validate()
}

// Validate checks the batch's structural invariants: known status, and item
// indexes that are unique and contiguous from zero. Per-item structural and
// economic validity is the preflighter's job.
func (b *Batch) Validate() error {
	var validate = validator.New()
	if err := validate.Struct(b); err != nil {
		return err
	}

	if _, ok := types.StringToBatchStatus[string(b.Status)]; !ok {
		return fmt.Errorf("unknown batch status: %s", b.Status)
	}

	for i, item := range b.Items {
		if item.Index != i {
			return fmt.Errorf("item at position %d has index %d; indexes must be contiguous from 0", i, item.Index)
		}
	}

	return nil
}

// SetStatus transitions the batch's lifecycle status, enforcing the state
// machine. The caller is responsible for persisting the change.
func (b *Batch) SetStatus(next types.BatchStatus) error {
	if !b.Status.CanTransitionTo(next) {
		return NewInvalidBatchStatusError(b.BatchID, b.Status)
	}

	b.Status = next

	return nil
}

// MarkValidated moves a Draft batch to Validated. Call after a preflight run
// reported OverallValid.
func (b *Batch) MarkValidated() error {
	return b.SetStatus(types.BatchStatusValidated)
}
