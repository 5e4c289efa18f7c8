package batcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/walletops/batcher/sdk"
	"github.com/walletops/batcher/types"
)

const defaultConfirmInterval = time.Second

// Executor drives a validated batch to Completed or Failed, one item at a
// time, strictly in index order. The signer assigns nonces per account, so a
// second submission is never issued before the first has a known transaction
// hash.
//
// Two batches from different accounts may run concurrently; two batches from
// the same account must not, which is the caller's responsibility.
type Executor struct {
	signer sdk.Signer
	query  sdk.ChainQuery
	store  BatchStore

	confirmInterval time.Duration
	active          sync.Map // batchID -> *BatchHandle
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithConfirmInterval sets the polling interval for confirmation queries.
func WithConfirmInterval(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.confirmInterval = d
	}
}

// NewExecutor creates a new Executor from the chain collaborators and the
// batch store.
func NewExecutor(signer sdk.Signer, query sdk.ChainQuery, store BatchStore, opts ...ExecutorOption) *Executor {
	e := &Executor{
		signer:          signer,
		query:           query,
		store:           store,
		confirmInterval: defaultConfirmInterval,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ExecuteOption configures a single execution run.
type ExecuteOption func(*executeConfig)

type executeConfig struct {
	skipReport *types.PreflightReport
}

// WithSkipInvalid forces execution of a batch whose preflight report was not
// fully valid: items the report marked invalid are recorded as Skipped before
// the loop starts, and every other item proceeds.
func WithSkipInvalid(report *types.PreflightReport) ExecuteOption {
	return func(cfg *executeConfig) {
		cfg.skipReport = report
	}
}

// BatchHandle tracks one execution run. Pause is honored at the next item
// boundary; an item already submitted cannot be recalled.
type BatchHandle struct {
	batchID string
	cfg     executeConfig
	paused  atomic.Bool
	done    chan struct{}
	report  *BatchReport
	err     error
}

// BatchID returns the identifier of the batch this handle tracks.
func (h *BatchHandle) BatchID() string { return h.batchID }

// Pause requests a stop at the next item boundary.
func (h *BatchHandle) Pause() { h.paused.Store(true) }

// Wait blocks until the run halts (Completed, Paused, or Failed) or the
// context is done, returning the final report.
func (h *BatchHandle) Wait(ctx context.Context) (*BatchReport, error) {
	select {
	case <-h.done:
		return h.report, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Execute runs the batch synchronously and returns its report once execution
// halts. The batch must be Validated on first execution; a Paused or Failed
// batch is resumed, never re-attempting items whose records are terminal.
// Observer callbacks fire synchronously after each committed store write.
func (e *Executor) Execute(ctx context.Context, batch *Batch, observerList []Observer, opts ...ExecuteOption) (*BatchReport, error) {
	handle, err := e.prepare(ctx, batch, opts...)
	if err != nil {
		return nil, err
	}

	return e.run(ctx, batch, handle, observerList)
}

// ExecuteAsync runs the batch on a new goroutine and returns a handle for
// pausing and awaiting it.
func (e *Executor) ExecuteAsync(ctx context.Context, batch *Batch, observerList []Observer, opts ...ExecuteOption) (*BatchHandle, error) {
	handle, err := e.prepare(ctx, batch, opts...)
	if err != nil {
		return nil, err
	}

	go func() {
		_, _ = e.run(ctx, batch, handle, observerList) //nolint:errcheck // surfaced via handle.Wait
	}()

	return handle, nil
}

// Resume loads a Paused or Failed batch from the store and continues it.
// Items whose records are already terminal are never re-attempted; InFlight
// records are reconciled against the chain before any new submission.
func (e *Executor) Resume(ctx context.Context, batchID string, observerList []Observer) (*BatchReport, error) {
	batch, err := e.store.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}

	return e.Execute(ctx, batch, observerList)
}

// Pause requests that an actively running batch stop at its next item
// boundary.
func (e *Executor) Pause(batchID string) error {
	value, ok := e.active.Load(batchID)
	if !ok {
		return NewInvalidBatchStatusError(batchID, types.BatchStatusPaused)
	}

	value.(*BatchHandle).Pause()

	return nil
}

// prepare checks the batch's lifecycle state, creates it in the store on
// first execution, and registers a handle for the run.
func (e *Executor) prepare(ctx context.Context, batch *Batch, opts ...ExecuteOption) (*BatchHandle, error) {
	var cfg executeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	switch batch.Status {
	case types.BatchStatusValidated:
		if len(batch.Items) == 0 {
			return nil, ErrNoItemsInBatch
		}
		if err := e.store.Create(ctx, batch); err != nil {
			return nil, err
		}
	case types.BatchStatusPaused, types.BatchStatusFailed:
		// Resume path; the batch and its records are already persisted.
	case types.BatchStatusDraft:
		return nil, ErrBatchNotValidated
	default:
		return nil, NewInvalidBatchStatusError(batch.BatchID, batch.Status)
	}

	handle := &BatchHandle{batchID: batch.BatchID, done: make(chan struct{})}
	if _, loaded := e.active.LoadOrStore(batch.BatchID, handle); loaded {
		return nil, NewInvalidBatchStatusError(batch.BatchID, types.BatchStatusRunning)
	}
	handle.cfg = cfg

	return handle, nil
}

func (e *Executor) run(ctx context.Context, batch *Batch, handle *BatchHandle, observerList []Observer) (report *BatchReport, err error) {
	obs := newObservers(ctx, observerList)

	defer func() {
		e.active.Delete(batch.BatchID)
		handle.report, handle.err = report, err
		close(handle.done)
	}()

	if err = e.setStatus(ctx, batch, types.BatchStatusRunning); err != nil {
		return nil, err
	}

	if handle.cfg.skipReport != nil {
		if err = e.skipInvalid(ctx, batch, handle.cfg.skipReport); err != nil {
			return e.halt(ctx, batch, obs, NewFatalError(err))
		}
	}

	if err = e.reconcile(ctx, batch.BatchID, obs); err != nil {
		return e.halt(ctx, batch, obs, NewFatalError(err))
	}

	for index := range batch.Items {
		if handle.paused.Load() {
			if err = e.setStatus(ctx, batch, types.BatchStatusPaused); err != nil {
				return e.halt(ctx, batch, obs, NewFatalError(err))
			}

			return e.finish(ctx, batch)
		}

		if cerr := ctx.Err(); cerr != nil {
			return e.halt(ctx, batch, obs, NewFatalError(cerr))
		}

		if report, err = e.step(ctx, batch, index, obs); err != nil || report != nil {
			return report, err
		}
	}

	if err = e.setStatus(ctx, batch, types.BatchStatusCompleted); err != nil {
		return e.halt(ctx, batch, obs, NewFatalError(err))
	}

	report, err = e.finish(ctx, batch)
	if err != nil {
		return nil, err
	}

	obs.batchCompleted(batch.BatchID, report)

	return report, nil
}

// step executes one item. A nil, nil return means the loop continues; a
// non-nil report or error halts the run.
func (e *Executor) step(ctx context.Context, batch *Batch, index int, obs *observers) (*BatchReport, error) {
	log := sdk.LoggerFrom(ctx)

	// Re-read the record so a resumed run never re-attempts finished work.
	rec, err := e.store.GetItemRecord(ctx, batch.BatchID, index)
	if err != nil {
		return e.halt(ctx, batch, obs, NewFatalError(err))
	}

	if rec.Status.IsTerminal() {
		return nil, nil
	}

	if rec.Status == types.ItemStatusInFlight {
		// Submitted by a previous run but unconfirmed at reconcile time.
		// The batch cannot proceed past it, so wait for its outcome now.
		if fatal := e.resolve(ctx, batch, index, rec, obs); fatal != nil {
			return e.halt(ctx, batch, obs, fatal)
		}

		return nil, nil
	}

	rec.Status = types.ItemStatusInFlight
	rec.AttemptedAt = time.Now().UTC()
	if err = e.store.PutItemRecord(ctx, batch.BatchID, index, rec); err != nil {
		return e.halt(ctx, batch, obs, NewFatalError(err))
	}
	obs.itemStarted(batch.BatchID, index)

	result, err := e.signer.Submit(ctx, batch.Items[index])
	if err != nil {
		if IsFatal(err) {
			// The record stays InFlight without a hash; reconciliation
			// requeues it as Pending on resume.
			return e.halt(ctx, batch, obs, err)
		}

		log.Infof("batch %s item %d rejected by signer: %v", batch.BatchID, index, err)

		if ferr := e.failItem(ctx, batch, index, rec, NewExecutionError(index, err), obs); ferr != nil {
			return e.halt(ctx, batch, obs, ferr)
		}

		return nil, nil
	}

	rec.TxHash = result.Hash
	if err = e.store.PutItemRecord(ctx, batch.BatchID, index, rec); err != nil {
		return e.halt(ctx, batch, obs, NewFatalError(err))
	}

	if fatal := e.resolve(ctx, batch, index, rec, obs); fatal != nil {
		return e.halt(ctx, batch, obs, fatal)
	}

	return nil, nil
}

// resolve waits for the confirmation of an InFlight record with a known
// transaction hash and commits the terminal status. It returns only fatal
// errors; confirmation timeouts and reverts become per-item failures.
func (e *Executor) resolve(ctx context.Context, batch *Batch, index int, rec types.ItemExecutionRecord, obs *observers) error {
	outcome, err := e.awaitConfirmation(ctx, rec.TxHash)
	if err != nil {
		if IsFatal(err) {
			// Outcome unknown: leave the record InFlight for reconciliation.
			return err
		}

		return e.failItem(ctx, batch, index, rec, NewExecutionError(index, fmt.Errorf("confirmation: %w", err)), obs)
	}

	if outcome == types.ConfirmationReverted {
		return e.failItem(ctx, batch, index, rec, NewExecutionError(index, fmt.Errorf("transaction %s reverted", rec.TxHash)), obs)
	}

	rec.Status = types.ItemStatusSucceeded
	if err = e.store.PutItemRecord(ctx, batch.BatchID, index, rec); err != nil {
		return NewFatalError(err)
	}
	obs.itemSucceeded(batch.BatchID, index, rec.TxHash)

	return nil
}

// awaitConfirmation polls the chain query until the transaction's outcome is
// known or the context is done.
func (e *Executor) awaitConfirmation(ctx context.Context, txHash string) (types.ConfirmationOutcome, error) {
	queryTicker := time.NewTicker(e.confirmInterval)
	defer queryTicker.Stop()

	for {
		outcome, err := e.query.GetConfirmation(ctx, txHash)
		if err != nil {
			return "", err
		}
		if outcome != types.ConfirmationPending {
			return outcome, nil
		}

		select {
		case <-ctx.Done():
			return "", NewFatalError(ctx.Err())
		case <-queryTicker.C:
		}
	}
}

// failItem records a non-fatal per-item failure so the batch can continue. A
// failed store write escalates to fatal; the caller halts the run exactly
// once.
func (e *Executor) failItem(ctx context.Context, batch *Batch, index int, rec types.ItemExecutionRecord, execErr *ExecutionError, obs *observers) error {
	rec.Status = types.ItemStatusFailed
	rec.Error = execErr.Err.Error()
	if err := e.store.PutItemRecord(ctx, batch.BatchID, index, rec); err != nil {
		return NewFatalError(err)
	}
	obs.itemFailed(batch.BatchID, index, execErr)

	return nil
}

// skipInvalid records Skipped for every still-Pending item the preflight
// report marked invalid.
func (e *Executor) skipInvalid(ctx context.Context, batch *Batch, report *types.PreflightReport) error {
	for _, index := range report.InvalidIndexes() {
		rec, err := e.store.GetItemRecord(ctx, batch.BatchID, index)
		if err != nil {
			return err
		}
		if rec.Status != types.ItemStatusPending {
			continue
		}

		rec.Status = types.ItemStatusSkipped
		rec.Error = report.PerItem[index].Reason
		if err := e.store.PutItemRecord(ctx, batch.BatchID, index, rec); err != nil {
			return err
		}
	}

	return nil
}

// halt aborts the remaining batch on a fatal error, preserving every
// already-recorded outcome. The current item's record is left as-is since its
// chain outcome may be unknown.
func (e *Executor) halt(ctx context.Context, batch *Batch, obs *observers, cause error) (*BatchReport, error) {
	if err := e.setStatus(ctx, batch, types.BatchStatusFailed); err != nil {
		sdk.LoggerFrom(ctx).Warnf("batch %s: recording Failed status: %v", batch.BatchID, err)
	}

	obs.batchFailed(batch.BatchID, cause)

	report, err := BuildReport(ctx, e.store, batch.BatchID)
	if err != nil {
		return nil, cause
	}

	return report, cause
}

// finish builds the final report for a run that halted without a fatal error.
func (e *Executor) finish(ctx context.Context, batch *Batch) (*BatchReport, error) {
	return BuildReport(ctx, e.store, batch.BatchID)
}

func (e *Executor) setStatus(ctx context.Context, batch *Batch, next types.BatchStatus) error {
	if err := batch.SetStatus(next); err != nil {
		return err
	}

	return e.store.PutBatchStatus(ctx, batch.BatchID, next)
}
