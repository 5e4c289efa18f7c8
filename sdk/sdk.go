// Package sdk defines the chain-facing capabilities the batch engine
// consumes. Implement these to connect the engine to a chain family.
package sdk

import (
	"context"
	"math/big"

	"github.com/walletops/batcher/types"
)

// Signer authorizes and submits a single operation to the chain. The signer
// owns nonce assignment for its account, which is why the engine never
// submits a second operation before the first has a known transaction hash.
//
// A rejection (user declines, insufficient funds at submission time) is a
// per-item failure; wrap errors that make the signer itself unusable with
// batcher.NewFatalError so the engine aborts the remaining batch.
type Signer interface {
	// Account returns the address the signer submits from.
	Account() string

	// Submit signs and broadcasts the operation, returning its transaction
	// hash. It must not return until the hash is known or the submission has
	// definitively failed.
	Submit(ctx context.Context, item types.OperationItem) (types.TransactionResult, error)
}

// ChainQuery is the read-only chain access the engine uses for preflight
// estimates, economic validation, and confirmation of submitted operations.
// Implementations own the timeout policy for each call.
type ChainQuery interface {
	// EstimateCost returns the estimated gas and native value cost of one
	// operation of the given kind.
	EstimateCost(ctx context.Context, kind types.OperationKind) (types.Cost, error)

	// GetConfirmation resolves the on-chain outcome of a submitted
	// transaction. ConfirmationPending means the transaction is not yet
	// included and the caller should retry.
	GetConfirmation(ctx context.Context, txHash string) (types.ConfirmationOutcome, error)

	// NativeBalance returns the account's native currency balance.
	NativeBalance(ctx context.Context, account string) (*big.Int, error)

	// TokenBalance returns the account's balance of a fungible token.
	TokenBalance(ctx context.Context, account, tokenContract string) (*big.Int, error)

	// OwnerOf returns the current owner of a non-fungible token.
	OwnerOf(ctx context.Context, asset types.AssetRef) (string, error)
}
