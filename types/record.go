package types

import "time"

type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "Pending"
	ItemStatusInFlight  ItemStatus = "InFlight"
	ItemStatusSucceeded ItemStatus = "Succeeded"
	ItemStatusFailed    ItemStatus = "Failed"
	ItemStatusSkipped   ItemStatus = "Skipped"
)

// StringToItemStatus converts a string to an ItemStatus.
var StringToItemStatus = map[string]ItemStatus{
	"Pending":   ItemStatusPending,
	"InFlight":  ItemStatusInFlight,
	"Succeeded": ItemStatusSucceeded,
	"Failed":    ItemStatusFailed,
	"Skipped":   ItemStatusSkipped,
}

// IsTerminal reports whether the status permits no further transition.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusSucceeded || s == ItemStatusFailed || s == ItemStatusSkipped
}

// CanTransitionTo reports whether moving to next preserves monotonicity: a
// terminal record never changes, InFlight resolves to any non-Skipped state
// (including back to Pending when the submission provably never happened),
// and Pending moves to InFlight or Skipped.
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	if s.IsTerminal() {
		return false
	}

	switch s {
	case ItemStatusPending:
		return next == ItemStatusInFlight || next == ItemStatusSkipped
	case ItemStatusInFlight:
		return next == ItemStatusSucceeded || next == ItemStatusFailed || next == ItemStatusPending
	default:
		return false
	}
}

// ItemExecutionRecord is the persisted execution state of one operation item,
// keyed by (batchID, index). Exactly one record exists per item for the life
// of the batch.
type ItemExecutionRecord struct {
	Index       int        `json:"index"`
	Status      ItemStatus `json:"status"`
	TxHash      string     `json:"txHash,omitempty"`
	Error       string     `json:"error,omitempty"`
	AttemptedAt time.Time  `json:"attemptedAt,omitzero"`
}
