package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/walletops/batcher/sdk"
	"github.com/walletops/batcher/types"
)

// Signer submits operations to an EVM chain using a keyed transactor. It
// assigns nonces from the pending state, so one Signer must not be shared
// between concurrently running batches.
type Signer struct {
	client TxBackend
	auth   *bind.TransactOpts
}

// NewSigner creates a new Signer from a transaction backend and transactor.
func NewSigner(client TxBackend, auth *bind.TransactOpts) *Signer {
	return &Signer{client: client, auth: auth}
}

// Account returns the address the signer submits from.
func (s *Signer) Account() string {
	return s.auth.From.Hex()
}

// Submit builds, signs and broadcasts the transaction for one operation item
// and returns its hash.
//
// Nonce and gas price lookups touch only the connection, so their failures
// are fatal; estimation and broadcast failures are operation-specific (e.g. a
// revert or underpriced rejection) and surface as per-item errors.
func (s *Signer) Submit(ctx context.Context, item types.OperationItem) (types.TransactionResult, error) {
	to, value, data, err := buildCall(s.auth.From, item)
	if err != nil {
		return types.TransactionResult{}, err
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.auth.From)
	if err != nil {
		return types.TransactionResult{}, sdk.NewFatalError(fmt.Errorf("fetching nonce: %w", err))
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return types.TransactionResult{}, sdk.NewFatalError(fmt.Errorf("fetching gas price: %w", err))
	}

	gas, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.auth.From,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return types.TransactionResult{}, fmt.Errorf("estimating gas: %w", err)
	}

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})

	signed, err := s.auth.Signer(s.auth.From, tx)
	if err != nil {
		return types.TransactionResult{}, sdk.NewFatalError(fmt.Errorf("signing: %w", err))
	}

	if err = s.client.SendTransaction(ctx, signed); err != nil {
		return types.TransactionResult{}, fmt.Errorf("broadcasting: %w", err)
	}

	return types.TransactionResult{
		Hash:           signed.Hash().Hex(),
		RawTransaction: signed,
	}, nil
}

// buildCall translates an operation item into its target, value and calldata.
func buildCall(from common.Address, item types.OperationItem) (common.Address, *big.Int, []byte, error) {
	switch item.Kind {
	case types.KindNFTTransfer:
		data, err := erc721ABI.Pack("transferFrom", from, common.HexToAddress(item.Recipient), item.Asset.TokenID)

		return common.HexToAddress(item.Asset.Contract), nil, data, err

	case types.KindNFTBurn:
		data, err := erc721ABI.Pack("burn", item.Asset.TokenID)

		return common.HexToAddress(item.Asset.Contract), nil, data, err

	case types.KindTokenTransfer:
		data, err := erc20ABI.Pack("transfer", common.HexToAddress(item.Recipient), item.Amount)

		return common.HexToAddress(item.Asset.Contract), nil, data, err

	case types.KindTokenBurn:
		data, err := erc20ABI.Pack("burn", item.Amount)

		return common.HexToAddress(item.Asset.Contract), nil, data, err

	case types.KindNativeTransfer:
		return common.HexToAddress(item.Recipient), item.Amount, nil, nil

	default:
		return common.Address{}, nil, nil, fmt.Errorf("unsupported operation kind: %s", item.Kind)
	}
}
