package sender

import (
	"errors"
	"fmt"

	"memochat/internal/models"
)

var (
	ErrInvalidToAddress      = errors.New("invalid recipient address")
	ErrChatNotFound          = errors.New("chat not found")
	ErrOwnAddressUnavailable = errors.New("own address unavailable")
	ErrBroadcast             = errors.New("broadcast failed")
	ErrChatIDCollision       = errors.New("chat id already used by another chat")
	// ErrSentNotStored means the transaction is on the ledger but the local
	// record is missing. Callers must not report it as "nothing happened".
	ErrSentNotStored = errors.New("sent but not stored locally")
)

// NotStoredError carries the record that needs reconciliation.
type NotStoredError struct {
	Record models.PendingRecord
	Err    error
}

func (e *NotStoredError) Error() string {
	return fmt.Sprintf("transaction %s: %v: %v", e.Record.TxID, ErrSentNotStored, e.Err)
}

func (e *NotStoredError) Unwrap() []error {
	return []error{ErrSentNotStored, e.Err}
}
