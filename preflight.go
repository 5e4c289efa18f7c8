package batcher

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/walletops/batcher/sdk"
	"github.com/walletops/batcher/types"
)

// Preflighter inspects a batch against account state, cost estimates, and
// structural rules, producing a PreflightReport without touching the chain's
// write path or the batch store. It is safe to call repeatedly and
// concurrently with execution of a different batch.
type Preflighter struct {
	query sdk.ChainQuery
}

// NewPreflighter creates a new Preflighter backed by the given chain query.
func NewPreflighter(query sdk.ChainQuery) *Preflighter {
	return &Preflighter{query: query}
}

// Preflight validates every item of the batch and estimates the total cost.
// An invalid item never aborts validation of the remaining items: the report
// covers the whole batch, with OverallValid true only when every item passed.
// An empty batch is invalid with a batch-level reason.
//
// The report is advisory. Balances and ownership can change between preflight
// and execution, so it is produced fresh on each call and must not be
// persisted as authoritative.
func (p *Preflighter) Preflight(ctx context.Context, batch *Batch) (*types.PreflightReport, error) {
	report := &types.PreflightReport{
		PerItem:            make([]types.ItemCheck, len(batch.Items)),
		EstimatedCostTotal: big.NewInt(0),
		Truncated:          batch.Truncated,
	}

	if len(batch.Items) == 0 {
		report.BatchReason = ErrNoItemsInBatch.Error()

		return report, nil
	}

	for i, item := range batch.Items {
		if err := p.checkStructure(batch.Signer, item); err != nil {
			report.PerItem[i] = types.ItemCheck{Reason: err.Error()}
			continue
		}

		report.PerItem[i] = types.ItemCheck{Valid: true}
	}

	if err := p.checkEconomics(ctx, batch, report); err != nil {
		return nil, fmt.Errorf("economic validation: %w", err)
	}

	if err := p.estimate(ctx, batch, report); err != nil {
		return nil, fmt.Errorf("cost estimation: %w", err)
	}

	report.OverallValid = true
	for _, check := range report.PerItem {
		if !check.Valid {
			report.OverallValid = false
			break
		}
	}

	return report, nil
}

// checkStructure validates one item in isolation.
func (p *Preflighter) checkStructure(signer string, item types.OperationItem) error {
	if err := item.Validate(); err != nil {
		return err
	}

	if item.Kind.IsTransfer() && strings.EqualFold(item.Recipient, signer) {
		return fmt.Errorf("recipient equals the signer account")
	}

	return nil
}

// checkEconomics validates balance and ownership, aggregating demand across
// all items that share an asset so double-spends within the batch are caught.
// Items that already failed structural checks are excluded from aggregation.
func (p *Preflighter) checkEconomics(ctx context.Context, batch *Batch, report *types.PreflightReport) error {
	var (
		spentTokens   = map[string]int{}       // contract/tokenID -> index of first spender
		tokenDemand   = map[string]*big.Int{}  // contract -> cumulative amount
		tokenBalances = map[string]*big.Int{}  // contract -> fetched balance
		nativeDemand  = big.NewInt(0)
		nativeBalance *big.Int
	)

	for i, item := range batch.Items {
		if !report.PerItem[i].Valid {
			continue
		}

		switch item.Kind {
		case types.KindNFTTransfer, types.KindNFTBurn:
			key := strings.ToLower(item.Asset.Contract) + "/" + item.Asset.TokenID.String()
			if first, dup := spentTokens[key]; dup {
				report.PerItem[i] = types.ItemCheck{
					Reason: fmt.Sprintf("token %s already consumed by item %d", item.Asset.TokenID, first),
				}

				continue
			}

			owner, err := p.query.OwnerOf(ctx, item.Asset)
			if err != nil {
				return err
			}
			if !strings.EqualFold(owner, batch.Signer) {
				report.PerItem[i] = types.ItemCheck{
					Reason: fmt.Sprintf("token %s is not owned by the signer", item.Asset.TokenID),
				}

				continue
			}

			spentTokens[key] = i

		case types.KindTokenTransfer, types.KindTokenBurn:
			contract := strings.ToLower(item.Asset.Contract)
			balance, ok := tokenBalances[contract]
			if !ok {
				var err error
				balance, err = p.query.TokenBalance(ctx, batch.Signer, item.Asset.Contract)
				if err != nil {
					return err
				}
				tokenBalances[contract] = balance
			}

			demand, ok := tokenDemand[contract]
			if !ok {
				demand = big.NewInt(0)
				tokenDemand[contract] = demand
			}

			if new(big.Int).Add(demand, item.Amount).Cmp(balance) > 0 {
				report.PerItem[i] = types.ItemCheck{
					Reason: "insufficient token balance for the batch's aggregate demand",
				}

				continue
			}

			demand.Add(demand, item.Amount)

		case types.KindNativeTransfer:
			if nativeBalance == nil {
				var err error
				nativeBalance, err = p.query.NativeBalance(ctx, batch.Signer)
				if err != nil {
					return err
				}
			}

			if new(big.Int).Add(nativeDemand, item.Amount).Cmp(nativeBalance) > 0 {
				report.PerItem[i] = types.ItemCheck{
					Reason: "insufficient native balance for the batch's aggregate demand",
				}

				continue
			}

			nativeDemand.Add(nativeDemand, item.Amount)
		}
	}

	return nil
}

// estimate sums per-kind cost estimates over the batch. Estimation is
// requested once per distinct operation kind.
func (p *Preflighter) estimate(ctx context.Context, batch *Batch, report *types.PreflightReport) error {
	costs := map[types.OperationKind]types.Cost{}
	for _, item := range batch.Items {
		if _, ok := costs[item.Kind]; ok {
			continue
		}

		cost, err := p.query.EstimateCost(ctx, item.Kind)
		if err != nil {
			return err
		}

		costs[item.Kind] = cost
	}

	for _, item := range batch.Items {
		cost := costs[item.Kind]
		report.EstimatedGasTotal += cost.Gas
		if cost.Value != nil {
			report.EstimatedCostTotal.Add(report.EstimatedCostTotal, cost.Value)
		}
	}

	return nil
}
