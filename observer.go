package batcher

import (
	"context"

	"github.com/walletops/batcher/sdk"
)

// Observer receives batch and item lifecycle notifications from the executor.
// Callbacks are invoked synchronously, after the store write for the
// corresponding transition has been committed, so an observer that re-reads
// the store sees consistent data.
//
// Observers must not block the executor indefinitely. A panicking observer is
// recovered and logged; it cannot corrupt the batch state.
type Observer interface {
	ItemStarted(batchID string, index int)
	ItemSucceeded(batchID string, index int, txHash string)
	ItemFailed(batchID string, index int, err error)
	BatchCompleted(batchID string, report *BatchReport)
	BatchFailed(batchID string, err error)
}

// ObserverFuncs adapts free functions to the Observer interface. Nil fields
// are ignored, so consumers implement only the slots they care about.
type ObserverFuncs struct {
	OnItemStarted    func(batchID string, index int)
	OnItemSucceeded  func(batchID string, index int, txHash string)
	OnItemFailed     func(batchID string, index int, err error)
	OnBatchCompleted func(batchID string, report *BatchReport)
	OnBatchFailed    func(batchID string, err error)
}

func (o ObserverFuncs) ItemStarted(batchID string, index int) {
	if o.OnItemStarted != nil {
		o.OnItemStarted(batchID, index)
	}
}

func (o ObserverFuncs) ItemSucceeded(batchID string, index int, txHash string) {
	if o.OnItemSucceeded != nil {
		o.OnItemSucceeded(batchID, index, txHash)
	}
}

func (o ObserverFuncs) ItemFailed(batchID string, index int, err error) {
	if o.OnItemFailed != nil {
		o.OnItemFailed(batchID, index, err)
	}
}

func (o ObserverFuncs) BatchCompleted(batchID string, report *BatchReport) {
	if o.OnBatchCompleted != nil {
		o.OnBatchCompleted(batchID, report)
	}
}

func (o ObserverFuncs) BatchFailed(batchID string, err error) {
	if o.OnBatchFailed != nil {
		o.OnBatchFailed(batchID, err)
	}
}

// observers fans notifications out to every registered observer, isolating
// the executor from observer panics.
type observers struct {
	ctx  context.Context
	list []Observer
}

func newObservers(ctx context.Context, list []Observer) *observers {
	return &observers{ctx: ctx, list: list}
}

func (o *observers) notify(fn func(Observer)) {
	for _, obs := range o.list {
		func() {
			defer func() {
				if r := recover(); r != nil {
					sdk.LoggerFrom(o.ctx).Warnf("observer panicked: %v", r)
				}
			}()

			fn(obs)
		}()
	}
}

func (o *observers) itemStarted(batchID string, index int) {
	o.notify(func(obs Observer) { obs.ItemStarted(batchID, index) })
}

func (o *observers) itemSucceeded(batchID string, index int, txHash string) {
	o.notify(func(obs Observer) { obs.ItemSucceeded(batchID, index, txHash) })
}

func (o *observers) itemFailed(batchID string, index int, err error) {
	o.notify(func(obs Observer) { obs.ItemFailed(batchID, index, err) })
}

func (o *observers) batchCompleted(batchID string, report *BatchReport) {
	o.notify(func(obs Observer) { obs.BatchCompleted(batchID, report) })
}

func (o *observers) batchFailed(batchID string, err error) {
	o.notify(func(obs Observer) { obs.BatchFailed(batchID, err) })
}
