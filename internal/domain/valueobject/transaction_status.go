package valueobject

import "fmt"

// TransactionStatus represents the lifecycle state of a payment transaction.
type TransactionStatus struct {
	value string
}

var (
	TransactionStatusPending    = TransactionStatus{"pending"}
	TransactionStatusProcessing = TransactionStatus{"processing"}
	TransactionStatusCompleted  = TransactionStatus{"completed"}
	TransactionStatusFailed     = TransactionStatus{"failed"}
)

var validTransactionStatuses = map[string]TransactionStatus{
	"pending":    TransactionStatusPending,
	"processing": TransactionStatusProcessing,
	"completed":  TransactionStatusCompleted,
	"failed":     TransactionStatusFailed,
}

// allowedTransitions lists the forward moves of the ledger state machine.
// Self-transitions are handled by the aggregate.
var allowedTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending:    {TransactionStatusProcessing, TransactionStatusCompleted, TransactionStatusFailed},
	TransactionStatusProcessing: {TransactionStatusCompleted, TransactionStatusFailed},
}

// NewTransactionStatus validates and creates a TransactionStatus from a string.
func NewTransactionStatus(s string) (TransactionStatus, error) {
	if status, ok := validTransactionStatuses[s]; ok {
		return status, nil
	}
	return TransactionStatus{}, fmt.Errorf("invalid transaction status: %q", s)
}

// String returns the string representation of the transaction status.
func (s TransactionStatus) String() string {
	return s.value
}

// IsTerminal returns true for completed and failed.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

// CanTransitionTo reports whether next is a legal forward move from s.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsZero returns true if the transaction status is uninitialized.
func (s TransactionStatus) IsZero() bool {
	return s.value == ""
}
