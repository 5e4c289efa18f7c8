package types

import "math/big"

// Cost is the estimated resource cost of a single operation kind.
type Cost struct {
	Gas   uint64   `json:"gas"`
	Value *big.Int `json:"value"`
}

// ItemCheck is the preflight verdict for a single item.
type ItemCheck struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// PreflightReport is the output of one validation pass over a batch. It is
// advisory: balances and ownership can change between preflight and
// execution, so the report is produced fresh on every run and never persisted
// as authoritative.
type PreflightReport struct {
	OverallValid       bool        `json:"overallValid"`
	BatchReason        string      `json:"batchReason,omitempty"`
	PerItem            []ItemCheck `json:"perItem"`
	EstimatedGasTotal  uint64      `json:"estimatedGasTotal"`
	EstimatedCostTotal *big.Int    `json:"estimatedCostTotal"`
	Truncated          int         `json:"truncated"`
}

// InvalidIndexes returns the indexes of items that failed validation.
func (r *PreflightReport) InvalidIndexes() []int {
	var out []int
	for i, check := range r.PerItem {
		if !check.Valid {
			out = append(out, i)
		}
	}

	return out
}
