package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/walletops/batcher/sdk"
	"github.com/walletops/batcher/types"
)

// Per-kind gas ceilings used for preflight estimates. Actual gas is estimated
// again at submission time; these only size the up-front report.
var estimateGasByKind = map[types.OperationKind]uint64{
	types.KindNFTTransfer:    90_000,
	types.KindNFTBurn:        60_000,
	types.KindTokenTransfer:  65_000,
	types.KindTokenBurn:      50_000,
	types.KindNativeTransfer: 21_000,
}

// ChainQuery implements read-only chain access for EVM chains.
type ChainQuery struct {
	client CallBackend
}

// NewChainQuery creates a new ChainQuery over a call backend.
func NewChainQuery(client CallBackend) *ChainQuery {
	return &ChainQuery{client: client}
}

// EstimateCost prices one operation of the given kind at the current
// suggested gas price.
func (q *ChainQuery) EstimateCost(ctx context.Context, kind types.OperationKind) (types.Cost, error) {
	gas, ok := estimateGasByKind[kind]
	if !ok {
		return types.Cost{}, fmt.Errorf("unsupported operation kind: %s", kind)
	}

	gasPrice, err := q.client.SuggestGasPrice(ctx)
	if err != nil {
		return types.Cost{}, fmt.Errorf("fetching gas price: %w", err)
	}

	return types.Cost{
		Gas:   gas,
		Value: new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gas)),
	}, nil
}

// GetConfirmation resolves a transaction's outcome from its receipt. A
// missing receipt means the transaction is not yet mined. Any other receipt
// lookup failure is a connection problem, not a chain verdict: the outcome is
// unknown, so the error is fatal and the caller must not record one.
func (q *ChainQuery) GetConfirmation(ctx context.Context, txHash string) (types.ConfirmationOutcome, error) {
	receipt, err := q.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if errors.Is(err, ethereum.NotFound) {
		return types.ConfirmationPending, nil
	}
	if err != nil {
		return "", sdk.NewFatalError(fmt.Errorf("fetching receipt for %s: %w", txHash, err))
	}

	if receipt.Status == gethtypes.ReceiptStatusSuccessful {
		return types.ConfirmationSuccess, nil
	}

	return types.ConfirmationReverted, nil
}

// NativeBalance returns the account's balance at the latest block.
func (q *ChainQuery) NativeBalance(ctx context.Context, account string) (*big.Int, error) {
	return q.client.BalanceAt(ctx, common.HexToAddress(account), nil)
}

// TokenBalance calls balanceOf on the token contract.
func (q *ChainQuery) TokenBalance(ctx context.Context, account, tokenContract string) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", common.HexToAddress(account))
	if err != nil {
		return nil, err
	}

	contract := common.HexToAddress(tokenContract)
	raw, err := q.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling balanceOf: %w", err)
	}

	out, err := erc20ABI.Unpack("balanceOf", raw)
	if err != nil {
		return nil, err
	}

	return out[0].(*big.Int), nil
}

// OwnerOf calls ownerOf on the collection contract.
func (q *ChainQuery) OwnerOf(ctx context.Context, asset types.AssetRef) (string, error) {
	data, err := erc721ABI.Pack("ownerOf", asset.TokenID)
	if err != nil {
		return "", err
	}

	contract := common.HexToAddress(asset.Contract)
	raw, err := q.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return "", fmt.Errorf("calling ownerOf: %w", err)
	}

	out, err := erc721ABI.Unpack("ownerOf", raw)
	if err != nil {
		return "", err
	}

	return out[0].(common.Address).Hex(), nil
}
