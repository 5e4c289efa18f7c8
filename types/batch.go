package types

type BatchStatus string

const (
	BatchStatusDraft     BatchStatus = "Draft"
	BatchStatusValidated BatchStatus = "Validated"
	BatchStatusRunning   BatchStatus = "Running"
	BatchStatusPaused    BatchStatus = "Paused"
	BatchStatusCompleted BatchStatus = "Completed"
	BatchStatusFailed    BatchStatus = "Failed"
)

// StringToBatchStatus converts a string to a BatchStatus.
var StringToBatchStatus = map[string]BatchStatus{
	"Draft":     BatchStatusDraft,
	"Validated": BatchStatusValidated,
	"Running":   BatchStatusRunning,
	"Paused":    BatchStatusPaused,
	"Completed": BatchStatusCompleted,
	"Failed":    BatchStatusFailed,
}

// batchTransitions is the batch lifecycle state machine. Completed is
// terminal; Failed permits Running so a batch halted by a fatal error can be
// resumed once the underlying condition clears.
var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchStatusDraft:     {BatchStatusValidated},
	BatchStatusValidated: {BatchStatusRunning},
	BatchStatusRunning:   {BatchStatusPaused, BatchStatusCompleted, BatchStatusFailed},
	BatchStatusPaused:    {BatchStatusRunning},
	BatchStatusFailed:    {BatchStatusRunning},
	BatchStatusCompleted: {},
}

// CanTransitionTo reports whether the lifecycle permits moving to next.
func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// IsTerminal reports whether no further automatic transition occurs. Note
// that Failed is terminal for the engine but may be resumed by the caller.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed
}
