package types //nolint:revive

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type OperationKind string

const (
	// KindNFTTransfer moves a single non-fungible token to a recipient.
	KindNFTTransfer OperationKind = "NFTTransfer"
	// KindNFTBurn destroys a single non-fungible token.
	KindNFTBurn OperationKind = "NFTBurn"
	// KindTokenTransfer moves an amount of a fungible token to a recipient.
	KindTokenTransfer OperationKind = "TokenTransfer"
	// KindTokenBurn destroys an amount of a fungible token.
	KindTokenBurn OperationKind = "TokenBurn"
	// KindNativeTransfer moves an amount of the chain's native currency.
	KindNativeTransfer OperationKind = "NativeTransfer"
)

// StringToOperationKind converts a string to an OperationKind.
var StringToOperationKind = map[string]OperationKind{
	"NFTTransfer":    KindNFTTransfer,
	"NFTBurn":        KindNFTBurn,
	"TokenTransfer":  KindTokenTransfer,
	"TokenBurn":      KindTokenBurn,
	"NativeTransfer": KindNativeTransfer,
}

// IsFungible reports whether the kind carries an amount in the smallest unit.
func (k OperationKind) IsFungible() bool {
	return k == KindTokenTransfer || k == KindTokenBurn || k == KindNativeTransfer
}

// IsTransfer reports whether the kind delivers the asset to a recipient.
func (k OperationKind) IsTransfer() bool {
	return k == KindNFTTransfer || k == KindTokenTransfer || k == KindNativeTransfer
}

// IsBurn reports whether the kind destroys the asset.
func (k OperationKind) IsBurn() bool {
	return k == KindNFTBurn || k == KindTokenBurn
}

// AssetRef identifies the asset an operation acts on. For non-fungible kinds
// both fields are set; for fungible tokens only Contract is set; for native
// transfers both are empty.
type AssetRef struct {
	Contract string   `json:"contract,omitempty"`
	TokenID  *big.Int `json:"tokenId,omitempty"`
}

// OperationItem is a single intended on-chain write. Items are immutable once
// the enclosing batch has been validated; Index defines execution order and is
// unique and contiguous within a batch.
type OperationItem struct {
	Kind      OperationKind `json:"kind" validate:"required"`
	Recipient string        `json:"recipient,omitempty"`
	Asset     AssetRef      `json:"asset"`
	Amount    *big.Int      `json:"amount,omitempty"`
	Index     int           `json:"index"`
}

// Validate checks the structural validity of the item. Economic validity
// (balances, ownership) is checked by the preflighter against chain state.
func (o OperationItem) Validate() error {
	if _, ok := StringToOperationKind[string(o.Kind)]; !ok {
		return fmt.Errorf("unknown operation kind: %s", o.Kind)
	}

	if o.Kind.IsTransfer() {
		if !common.IsHexAddress(o.Recipient) {
			return fmt.Errorf("malformed recipient address: %q", o.Recipient)
		}
	} else if o.Recipient != "" {
		return fmt.Errorf("recipient must be empty for %s operations", o.Kind)
	}

	if o.Kind.IsFungible() {
		if o.Amount == nil || o.Amount.Sign() <= 0 {
			return fmt.Errorf("amount must be a positive integer for %s operations", o.Kind)
		}
	} else if o.Amount != nil {
		return fmt.Errorf("amount must not be set for %s operations", o.Kind)
	}

	if o.Kind == KindNativeTransfer {
		if o.Asset.Contract != "" || o.Asset.TokenID != nil {
			return fmt.Errorf("native transfers must not reference an asset contract")
		}

		return nil
	}

	if !common.IsHexAddress(o.Asset.Contract) {
		return fmt.Errorf("malformed asset contract address: %q", o.Asset.Contract)
	}

	if !o.Kind.IsFungible() && o.Asset.TokenID == nil {
		return fmt.Errorf("token id is required for %s operations", o.Kind)
	}

	return nil
}
