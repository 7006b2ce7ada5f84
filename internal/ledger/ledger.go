// Package ledger describes the wallet/ledger client the chat core relies on.
package ledger

import (
	"context"
	"errors"
)

var (
	ErrInvalidRecipient = errors.New("ledger: invalid recipient address")
	ErrNoAddress        = errors.New("ledger: address unavailable")
	ErrNotStarted       = errors.New("ledger: wallet not started")
)

// WalletMode tells the synchronizer where to start scanning.
type WalletMode string

const (
	WalletModeNew      WalletMode = "new"
	WalletModeExisting WalletMode = "existing"
)

// Transaction is the ledger's read-only view of an observed transaction.
type Transaction struct {
	ID          string `json:"id"`
	RawID       []byte `json:"raw_id"`
	IsSentByMe  bool   `json:"is_sent_by_me"`
	MinedHeight *int64 `json:"mined_height,omitempty"`
	MemoCount   int    `json:"memo_count"`
}

// Spend identifies the funds a broadcast draws from.
type Spend struct {
	Account int `json:"account"`
}

// Client is the ledger synchronization client.
type Client interface {
	Start(ctx context.Context, seed []byte, mode WalletMode) error
	// Transactions delivers batches of newly observed transactions until
	// ctx is done, then closes the channel.
	Transactions(ctx context.Context) (<-chan []Transaction, error)
	Memos(ctx context.Context, rawID []byte) ([][]byte, error)
	OwnAddress(ctx context.Context, account int) (string, error)
	Broadcast(ctx context.Context, spend Spend, amount int64, recipient string, memo []byte) (string, error)
	IsValidRecipientAddress(ctx context.Context, candidate string) bool
}
