package types

// TransactionResult represents a submitted blockchain transaction. It
// contains the hash of the transaction and the raw transaction itself.
// Users of this struct should cast the transaction to the appropriate type.
type TransactionResult struct {
	Hash           string      `json:"hash"`
	RawTransaction interface{} `json:"tx"`
}

// ConfirmationOutcome is the resolved on-chain outcome of a submitted
// transaction.
type ConfirmationOutcome string

const (
	// ConfirmationSuccess means the transaction was included and succeeded.
	ConfirmationSuccess ConfirmationOutcome = "Success"
	// ConfirmationReverted means the transaction was included but reverted.
	ConfirmationReverted ConfirmationOutcome = "Reverted"
	// ConfirmationPending means the transaction is not yet included.
	ConfirmationPending ConfirmationOutcome = "Pending"
)
