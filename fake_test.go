package batcher_test

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/walletops/batcher/types"
)

const (
	testSigner    = "0x1111111111111111111111111111111111111111"
	testRecipient = "0x2222222222222222222222222222222222222222"
	testContract  = "0x3333333333333333333333333333333333333333"
)

// nftItems returns n NFT transfer items with distinct token IDs.
func nftItems(n int) []types.OperationItem {
	items := make([]types.OperationItem, n)
	for i := range items {
		items[i] = types.OperationItem{
			Kind:      types.KindNFTTransfer,
			Recipient: testRecipient,
			Asset:     types.AssetRef{Contract: testContract, TokenID: big.NewInt(int64(i + 1))},
		}
	}

	return items
}

// ownAll marks every token of the items as owned by the test signer.
func ownAll(query *fakeQuery, items []types.OperationItem) {
	for _, item := range items {
		if item.Asset.TokenID != nil {
			query.setOwner(item.Asset.Contract, item.Asset.TokenID, testSigner)
		}
	}
}

// fakeSigner implements sdk.Signer for testing. Submissions succeed with a
// deterministic hash unless an error is scripted for the item's index.
type fakeSigner struct {
	mu      sync.Mutex
	account string
	errs    map[int]error
	calls   []int
}

func newFakeSigner(account string) *fakeSigner {
	return &fakeSigner{account: account, errs: map[int]error{}}
}

func (f *fakeSigner) Account() string { return f.account }

func (f *fakeSigner) Submit(_ context.Context, item types.OperationItem) (types.TransactionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, item.Index)

	if err := f.errs[item.Index]; err != nil {
		return types.TransactionResult{}, err
	}

	return types.TransactionResult{Hash: fmt.Sprintf("0xtx%04d", item.Index)}, nil
}

func (f *fakeSigner) callIndexes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]int(nil), f.calls...)
}

// fakeQuery implements sdk.ChainQuery for testing. Unscripted confirmations
// resolve as successful; unscripted costs fall back to a flat estimate.
type fakeQuery struct {
	costs         map[types.OperationKind]types.Cost
	owners        map[string]string
	tokenBalances map[string]*big.Int
	nativeBalance *big.Int
	confirmations map[string]types.ConfirmationOutcome
	confirmErrs   map[string]error
}

func newFakeQuery() *fakeQuery {
	return &fakeQuery{
		costs:         map[types.OperationKind]types.Cost{},
		owners:        map[string]string{},
		tokenBalances: map[string]*big.Int{},
		nativeBalance: big.NewInt(0),
		confirmations: map[string]types.ConfirmationOutcome{},
		confirmErrs:   map[string]error{},
	}
}

func (f *fakeQuery) setOwner(contract string, tokenID *big.Int, owner string) {
	f.owners[strings.ToLower(contract)+"/"+tokenID.String()] = owner
}

func (f *fakeQuery) EstimateCost(_ context.Context, kind types.OperationKind) (types.Cost, error) {
	if cost, ok := f.costs[kind]; ok {
		return cost, nil
	}

	return types.Cost{Gas: 50_000, Value: big.NewInt(1_000_000)}, nil
}

func (f *fakeQuery) GetConfirmation(_ context.Context, txHash string) (types.ConfirmationOutcome, error) {
	if err := f.confirmErrs[txHash]; err != nil {
		return "", err
	}
	if outcome, ok := f.confirmations[txHash]; ok {
		return outcome, nil
	}

	return types.ConfirmationSuccess, nil
}

func (f *fakeQuery) NativeBalance(_ context.Context, _ string) (*big.Int, error) {
	return f.nativeBalance, nil
}

func (f *fakeQuery) TokenBalance(_ context.Context, _, tokenContract string) (*big.Int, error) {
	if balance, ok := f.tokenBalances[strings.ToLower(tokenContract)]; ok {
		return balance, nil
	}

	return big.NewInt(0), nil
}

func (f *fakeQuery) OwnerOf(_ context.Context, asset types.AssetRef) (string, error) {
	return f.owners[strings.ToLower(asset.Contract)+"/"+asset.TokenID.String()], nil
}
