package batcher_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletops/batcher"
	"github.com/walletops/batcher/stores/memory"
	"github.com/walletops/batcher/types"
)

// recordingObserver captures lifecycle callbacks in invocation order.
type recordingObserver struct {
	mu             sync.Mutex
	started        []int
	succeeded      []int
	failed         map[int]error
	completed      bool
	batchErr       error
	batchFailCalls int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{failed: map[int]error{}}
}

func (r *recordingObserver) ItemStarted(_ string, index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, index)
}

func (r *recordingObserver) ItemSucceeded(_ string, index int, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.succeeded = append(r.succeeded, index)
}

func (r *recordingObserver) ItemFailed(_ string, index int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[index] = err
}

func (r *recordingObserver) BatchCompleted(_ string, _ *batcher.BatchReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = true
}

func (r *recordingObserver) BatchFailed(_ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batchErr = err
	r.batchFailCalls++
}

func validatedBatch(t *testing.T, items []types.OperationItem) *batcher.Batch {
	t.Helper()

	batch := buildBatch(t, items, 10)
	require.NoError(t, batch.MarkValidated())

	return batch
}

func newTestExecutor(signer *fakeSigner, query *fakeQuery, store batcher.BatchStore) *batcher.Executor {
	return batcher.NewExecutor(signer, query, store, batcher.WithConfirmInterval(time.Millisecond))
}

func Test_Executor_Execute_AllSucceed(t *testing.T) {
	t.Parallel()

	var (
		store  = memory.NewStore()
		signer = newFakeSigner(testSigner)
		query  = newFakeQuery()
		obs    = newRecordingObserver()
	)

	batch := validatedBatch(t, nftItems(3))

	report, err := newTestExecutor(signer, query, store).
		Execute(context.Background(), batch, []batcher.Observer{obs})
	require.NoError(t, err)

	assert.Equal(t, types.BatchStatusCompleted, report.Status)
	assert.Equal(t, []int{0, 1, 2}, report.Succeeded)
	assert.Empty(t, report.Failed)
	assert.Empty(t, report.Pending)

	// Distinct tx hashes, one per item.
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		hash := report.TxHashes[i]
		assert.NotEmpty(t, hash)
		assert.False(t, seen[hash], "hash %s reused", hash)
		seen[hash] = true
	}

	assert.Equal(t, []int{0, 1, 2}, obs.started)
	assert.Equal(t, []int{0, 1, 2}, obs.succeeded)
	assert.True(t, obs.completed)
	assert.NoError(t, obs.batchErr)
}

func Test_Executor_Execute_RefusesUnvalidated(t *testing.T) {
	t.Parallel()

	batch := buildBatch(t, nftItems(1), 10) // still Draft

	_, err := newTestExecutor(newFakeSigner(testSigner), newFakeQuery(), memory.NewStore()).
		Execute(context.Background(), batch, nil)
	require.ErrorIs(t, err, batcher.ErrBatchNotValidated)
}

func Test_Executor_Execute_ItemFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	var (
		store  = memory.NewStore()
		signer = newFakeSigner(testSigner)
		query  = newFakeQuery()
		obs    = newRecordingObserver()
	)

	// The signer rejects item 2; every other item proceeds.
	signer.errs[2] = errors.New("user rejected")

	batch := validatedBatch(t, nftItems(5))

	report, err := newTestExecutor(signer, query, store).
		Execute(context.Background(), batch, []batcher.Observer{obs})
	require.NoError(t, err)

	assert.Equal(t, types.BatchStatusCompleted, report.Status)
	assert.Equal(t, []int{0, 1, 3, 4}, report.Succeeded)
	assert.Contains(t, report.Failed[2], "user rejected")
	assert.Empty(t, report.Pending)

	// Observer order is strictly increasing by index despite the failure.
	assert.Equal(t, []int{0, 1, 2, 3, 4}, obs.started)

	var execErr *batcher.ExecutionError
	require.ErrorAs(t, obs.failed[2], &execErr)
	assert.Equal(t, 2, execErr.Index)
}

func Test_Executor_Execute_FatalErrorHaltsBatch(t *testing.T) {
	t.Parallel()

	var (
		store  = memory.NewStore()
		signer = newFakeSigner(testSigner)
		query  = newFakeQuery()
		obs    = newRecordingObserver()
	)

	// The network drops before item 2 is submitted.
	signer.errs[2] = batcher.NewFatalError(errors.New("connection refused"))

	batch := validatedBatch(t, nftItems(5))

	report, err := newTestExecutor(signer, query, store).
		Execute(context.Background(), batch, []batcher.Observer{obs})
	require.Error(t, err)
	require.True(t, batcher.IsFatal(err))

	assert.Equal(t, types.BatchStatusFailed, report.Status)
	assert.Equal(t, []int{0, 1}, report.Succeeded)
	assert.Empty(t, report.Failed)
	assert.Equal(t, []int{3, 4}, report.Pending)
	// Item 2's outcome is unknown; its record is preserved as-is.
	assert.Equal(t, []int{2}, report.InFlight)

	// Accounting invariant: every item is in exactly one bucket.
	total := len(report.Succeeded) + len(report.Failed) + len(report.Skipped) +
		len(report.Pending) + len(report.InFlight)
	assert.Equal(t, report.Total, total)

	assert.False(t, obs.completed)
	require.Error(t, obs.batchErr)
	assert.True(t, batcher.IsFatal(obs.batchErr))
}

func Test_Executor_Resume_NeverReattemptsFinishedItems(t *testing.T) {
	t.Parallel()

	var (
		store  = memory.NewStore()
		signer = newFakeSigner(testSigner)
		query  = newFakeQuery()
	)

	signer.errs[2] = batcher.NewFatalError(errors.New("connection refused"))

	batch := validatedBatch(t, nftItems(5))

	_, err := newTestExecutor(signer, query, store).
		Execute(context.Background(), batch, nil)
	require.Error(t, err)

	firstRun := signer.callIndexes()
	assert.Equal(t, []int{0, 1, 2}, firstRun)

	// The connection recovers; resume the batch.
	delete(signer.errs, 2)

	report, err := newTestExecutor(signer, query, store).
		Resume(context.Background(), batch.BatchID, nil)
	require.NoError(t, err)

	assert.Equal(t, types.BatchStatusCompleted, report.Status)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, report.Succeeded)

	// Items 0 and 1 were already Succeeded and must not be re-submitted;
	// item 2 never reached the chain, so it is requeued and retried.
	assert.Equal(t, []int{0, 1, 2, 2, 3, 4}, signer.callIndexes())
}

func Test_Executor_Resume_ReconcilesInFlightRecords(t *testing.T) {
	t.Parallel()

	var (
		store  = memory.NewStore()
		signer = newFakeSigner(testSigner)
		query  = newFakeQuery()
		obs    = newRecordingObserver()
		ctx    = context.Background()
	)

	batch := validatedBatch(t, nftItems(3))
	require.NoError(t, store.Create(ctx, batch))
	require.NoError(t, store.PutBatchStatus(ctx, batch.BatchID, types.BatchStatusFailed))
	batch.Status = types.BatchStatusFailed

	// Simulate an interrupted run: item 0 done, item 1 submitted but
	// unconfirmed when the process died.
	require.NoError(t, store.PutItemRecord(ctx, batch.BatchID, 0, types.ItemExecutionRecord{
		Status: types.ItemStatusInFlight,
	}))
	require.NoError(t, store.PutItemRecord(ctx, batch.BatchID, 0, types.ItemExecutionRecord{
		Status: types.ItemStatusSucceeded, TxHash: "0xdone",
	}))
	require.NoError(t, store.PutItemRecord(ctx, batch.BatchID, 1, types.ItemExecutionRecord{
		Status: types.ItemStatusInFlight, TxHash: "0xlimbo",
	}))
	query.confirmations["0xlimbo"] = types.ConfirmationSuccess

	report, err := newTestExecutor(signer, query, store).
		Resume(ctx, batch.BatchID, []batcher.Observer{obs})
	require.NoError(t, err)

	assert.Equal(t, types.BatchStatusCompleted, report.Status)
	assert.Equal(t, []int{0, 1, 2}, report.Succeeded)
	assert.Equal(t, "0xlimbo", report.TxHashes[1])

	// Only item 2 ever reaches the signer: 0 was terminal and 1 was
	// resolved by reconciliation alone.
	assert.Equal(t, []int{2}, signer.callIndexes())
	assert.Contains(t, obs.succeeded, 1)
}

func Test_Executor_Execute_ConfirmationOutageLeavesItemInFlight(t *testing.T) {
	t.Parallel()

	var (
		store  = memory.NewStore()
		signer = newFakeSigner(testSigner)
		query  = newFakeQuery()
		obs    = newRecordingObserver()
	)

	// The connection drops while waiting for item 1's receipt. The outcome
	// is unknown, so the record must stay InFlight, never terminal Failed.
	query.confirmErrs["0xtx0001"] = batcher.NewFatalError(errors.New("connection refused"))

	batch := validatedBatch(t, nftItems(3))

	report, err := newTestExecutor(signer, query, store).
		Execute(context.Background(), batch, []batcher.Observer{obs})
	require.Error(t, err)
	require.True(t, batcher.IsFatal(err))

	assert.Equal(t, types.BatchStatusFailed, report.Status)
	assert.Equal(t, []int{0}, report.Succeeded)
	assert.Empty(t, report.Failed)
	assert.Equal(t, []int{1}, report.InFlight)
	assert.Equal(t, []int{2}, report.Pending)
	assert.Equal(t, []int{0, 1}, signer.callIndexes())
	assert.Equal(t, 1, obs.batchFailCalls)

	// The connection recovers and the receipt shows success: resume
	// reconciles item 1 from its hash without a second submission.
	delete(query.confirmErrs, "0xtx0001")

	final, err := newTestExecutor(signer, query, store).
		Resume(context.Background(), batch.BatchID, nil)
	require.NoError(t, err)

	assert.Equal(t, types.BatchStatusCompleted, final.Status)
	assert.Equal(t, []int{0, 1, 2}, final.Succeeded)
	assert.Equal(t, []int{0, 1, 2}, signer.callIndexes())
}

// failingRecordStore rejects item record writes that carry the configured
// status, simulating a store outage mid-transition.
type failingRecordStore struct {
	batcher.BatchStore
	failOn types.ItemStatus
}

func (s *failingRecordStore) PutItemRecord(ctx context.Context, batchID string, index int, rec types.ItemExecutionRecord) error {
	if rec.Status == s.failOn {
		return errors.New("disk full")
	}

	return s.BatchStore.PutItemRecord(ctx, batchID, index, rec)
}

func Test_Executor_Execute_StoreFailureOnItemFailureHaltsOnce(t *testing.T) {
	t.Parallel()

	var (
		store  = &failingRecordStore{BatchStore: memory.NewStore(), failOn: types.ItemStatusFailed}
		signer = newFakeSigner(testSigner)
		query  = newFakeQuery()
		obs    = newRecordingObserver()
	)

	// Item 0 reverts; persisting its Failed record then hits the outage.
	query.confirmations["0xtx0000"] = types.ConfirmationReverted

	batch := validatedBatch(t, nftItems(2))

	report, err := newTestExecutor(signer, query, store).
		Execute(context.Background(), batch, []batcher.Observer{obs})
	require.Error(t, err)
	require.True(t, batcher.IsFatal(err))

	assert.Equal(t, types.BatchStatusFailed, report.Status)
	assert.Equal(t, []int{0}, signer.callIndexes())
	assert.Equal(t, 1, obs.batchFailCalls)
	assert.False(t, obs.completed)
}

func Test_Executor_Execute_RevertedTransactionFailsItem(t *testing.T) {
	t.Parallel()

	var (
		store  = memory.NewStore()
		signer = newFakeSigner(testSigner)
		query  = newFakeQuery()
	)

	query.confirmations["0xtx0001"] = types.ConfirmationReverted

	batch := validatedBatch(t, nftItems(3))

	report, err := newTestExecutor(signer, query, store).
		Execute(context.Background(), batch, nil)
	require.NoError(t, err)

	assert.Equal(t, types.BatchStatusCompleted, report.Status)
	assert.Equal(t, []int{0, 2}, report.Succeeded)
	assert.Contains(t, report.Failed[1], "reverted")
}

func Test_Executor_Pause_HonoredAtItemBoundary(t *testing.T) {
	t.Parallel()

	var (
		store  = memory.NewStore()
		signer = newFakeSigner(testSigner)
		query  = newFakeQuery()
	)

	batch := validatedBatch(t, nftItems(3))
	executor := newTestExecutor(signer, query, store)

	// Request the pause from inside an observer so it lands between items.
	pauser := batcher.ObserverFuncs{
		OnItemSucceeded: func(batchID string, index int, _ string) {
			if index == 0 {
				require.NoError(t, executor.Pause(batchID))
			}
		},
	}

	report, err := executor.Execute(context.Background(), batch, []batcher.Observer{pauser})
	require.NoError(t, err)

	assert.Equal(t, types.BatchStatusPaused, report.Status)
	assert.Equal(t, []int{0}, report.Succeeded)
	assert.Equal(t, []int{1, 2}, report.Pending)
	assert.Equal(t, []int{0}, signer.callIndexes())

	// Resume drives the remaining items to completion.
	final, err := executor.Resume(context.Background(), batch.BatchID, nil)
	require.NoError(t, err)
	assert.Equal(t, types.BatchStatusCompleted, final.Status)
	assert.Equal(t, []int{0, 1, 2}, final.Succeeded)
	assert.Equal(t, []int{0, 1, 2}, signer.callIndexes())
}

func Test_Executor_Execute_SkipInvalid(t *testing.T) {
	t.Parallel()

	var (
		store  = memory.NewStore()
		signer = newFakeSigner(testSigner)
		query  = newFakeQuery()
	)

	items := nftItems(5)
	ownAll(query, items)
	items[1].Recipient = "0xZZZ"

	batch := buildBatch(t, items, 10)

	preflight, err := batcher.NewPreflighter(query).Preflight(context.Background(), batch)
	require.NoError(t, err)
	require.False(t, preflight.OverallValid)

	require.NoError(t, batch.MarkValidated())

	report, err := newTestExecutor(signer, query, store).
		Execute(context.Background(), batch, nil, batcher.WithSkipInvalid(preflight))
	require.NoError(t, err)

	assert.Equal(t, types.BatchStatusCompleted, report.Status)
	assert.Equal(t, []int{0, 2, 3, 4}, report.Succeeded)
	assert.Equal(t, []int{1}, report.Skipped)
	assert.NotContains(t, signer.callIndexes(), 1)
}

func Test_Executor_Execute_PanickingObserverIsIsolated(t *testing.T) {
	t.Parallel()

	var (
		store  = memory.NewStore()
		signer = newFakeSigner(testSigner)
		query  = newFakeQuery()
	)

	angry := batcher.ObserverFuncs{
		OnItemStarted: func(string, int) { panic("observer bug") },
	}

	batch := validatedBatch(t, nftItems(2))

	report, err := newTestExecutor(signer, query, store).
		Execute(context.Background(), batch, []batcher.Observer{angry})
	require.NoError(t, err)

	assert.Equal(t, types.BatchStatusCompleted, report.Status)
	assert.Equal(t, []int{0, 1}, report.Succeeded)
}

func Test_Executor_ExecuteAsync_Wait(t *testing.T) {
	t.Parallel()

	var (
		store  = memory.NewStore()
		signer = newFakeSigner(testSigner)
		query  = newFakeQuery()
	)

	batch := validatedBatch(t, nftItems(3))

	handle, err := newTestExecutor(signer, query, store).
		ExecuteAsync(context.Background(), batch, nil)
	require.NoError(t, err)
	assert.Equal(t, batch.BatchID, handle.BatchID())

	report, err := handle.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.BatchStatusCompleted, report.Status)
	assert.Len(t, report.Succeeded, 3)
}

func Test_Executor_Execute_ContextCancellationIsFatal(t *testing.T) {
	t.Parallel()

	var (
		store  = memory.NewStore()
		signer = newFakeSigner(testSigner)
		query  = newFakeQuery()
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := validatedBatch(t, nftItems(2))

	report, err := newTestExecutor(signer, query, store).
		Execute(ctx, batch, nil)
	require.Error(t, err)
	assert.True(t, batcher.IsFatal(err))
	assert.Equal(t, types.BatchStatusFailed, report.Status)
	assert.Empty(t, signer.callIndexes())
}
