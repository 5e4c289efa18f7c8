package batcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/walletops/batcher/sdk"
	"github.com/walletops/batcher/types"
)

var (
	// ErrNoItemsInBatch is returned when a batch is validated or executed
	// with an empty item list.
	ErrNoItemsInBatch = errors.New("no items in batch")

	// ErrBatchNotValidated is returned when execution is requested for a
	// batch that has not passed preflight.
	ErrBatchNotValidated = errors.New("batch has not been validated")

	// ErrBatchNotFound is returned by stores when no batch exists for the
	// given identifier.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrRecordNotFound is returned by stores when no execution record
	// exists for the given (batch, index) pair.
	ErrRecordNotFound = errors.New("item execution record not found")
)

// ItemValidationError is a structural or economic problem found during
// preflight. It is scoped to one item and never blocks validation of the
// remaining items.
type ItemValidationError struct {
	Index  int
	Reason string
}

// NewItemValidationError creates a new ItemValidationError.
func NewItemValidationError(index int, reason string) *ItemValidationError {
	return &ItemValidationError{Index: index, Reason: reason}
}

func (e *ItemValidationError) Error() string {
	return fmt.Sprintf("item %d is invalid: %s", e.Index, e.Reason)
}

// ExecutionError is a submission or confirmation failure scoped to one item.
// The batch continues past it.
type ExecutionError struct {
	Index int
	Err   error
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(index int, err error) *ExecutionError {
	return &ExecutionError{Index: index, Err: err}
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("item %d failed: %s", e.Index, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// FatalError aborts the remaining batch immediately: the signer or its
// connection is unusable, or persistence is unavailable. It lives in the sdk
// package so collaborator implementations can raise it without importing the
// engine; wrap errors with NewFatalError to signal that the executor must
// stop.
type FatalError = sdk.FatalError

// NewFatalError creates a new FatalError wrapping err.
func NewFatalError(err error) *FatalError {
	return sdk.NewFatalError(err)
}

// IsFatal reports whether err must abort the batch rather than fail a single
// item. Context cancellation and deadline expiry count as fatal since the
// caller has withdrawn permission to continue.
func IsFatal(err error) bool {
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return true
	}

	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// RecordRegressionError is returned by stores when a write would move an item
// record out of a terminal state or otherwise violate monotonicity.
type RecordRegressionError struct {
	Index int
	From  types.ItemStatus
	To    types.ItemStatus
}

// NewRecordRegressionError creates a new RecordRegressionError.
func NewRecordRegressionError(index int, from, to types.ItemStatus) *RecordRegressionError {
	return &RecordRegressionError{Index: index, From: from, To: to}
}

func (e *RecordRegressionError) Error() string {
	return fmt.Sprintf("record %d cannot transition from %s to %s", e.Index, e.From, e.To)
}

// InvalidBatchStatusError is returned when a batch is in the wrong lifecycle
// state for the requested action.
type InvalidBatchStatusError struct {
	BatchID string
	Status  types.BatchStatus
}

// NewInvalidBatchStatusError creates a new InvalidBatchStatusError.
func NewInvalidBatchStatusError(batchID string, status types.BatchStatus) *InvalidBatchStatusError {
	return &InvalidBatchStatusError{BatchID: batchID, Status: status}
}

func (e *InvalidBatchStatusError) Error() string {
	return fmt.Sprintf("batch %s is %s", e.BatchID, e.Status)
}
