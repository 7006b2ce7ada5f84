package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

// Memory is an in-process ledger shared by any number of wallets.
// Every broadcast is reported twice to both parties: once pending, once mined.
type Memory struct {
	mu      sync.Mutex
	height  int64
	txs     map[string]memoryTx
	wallets map[string]*MemoryWallet
	buffer  int
}

type memoryTx struct {
	from string
	to   string
	memo []byte
}

// NewMemory creates an empty ledger. buffer bounds each wallet's notification queue.
func NewMemory(buffer int) *Memory {
	if buffer <= 0 {
		buffer = 64
	}
	return &Memory{txs: map[string]memoryTx{}, wallets: map[string]*MemoryWallet{}, buffer: buffer}
}

// Wallet registers (or returns) the wallet owning address.
func (m *Memory) Wallet(address string) *MemoryWallet {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.wallets[address]; ok {
		return w
	}
	w := &MemoryWallet{ledger: m, address: address}
	m.wallets[address] = w
	return w
}

func (m *Memory) broadcast(from, to string, memo []byte) (string, error) {
	m.mu.Lock()
	if _, ok := m.wallets[to]; !ok && !validAddress(to) {
		m.mu.Unlock()
		return "", ErrInvalidRecipient
	}
	m.height++
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%x", from, to, m.height, memo)))
	id := hex.EncodeToString(sum[:])
	m.txs[id] = memoryTx{from: from, to: to, memo: append([]byte(nil), memo...)}
	height := m.height
	parties := []*MemoryWallet{m.wallets[from], m.wallets[to]}
	m.mu.Unlock()

	seen := map[*MemoryWallet]bool{}
	for _, w := range parties {
		if w == nil || seen[w] {
			continue
		}
		seen[w] = true
		tx := Transaction{ID: id, RawID: sum[:], IsSentByMe: w.address == from, MemoCount: 1}
		w.notify([]Transaction{tx})
		mined := tx
		mined.MinedHeight = &height
		w.notify([]Transaction{mined})
	}
	return id, nil
}

func (m *Memory) memos(rawID []byte) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[hex.EncodeToString(rawID)]
	if !ok {
		return nil, fmt.Errorf("ledger: unknown transaction %x", rawID)
	}
	return [][]byte{append([]byte(nil), tx.memo...)}, nil
}

func validAddress(addr string) bool {
	return len(addr) >= 4 && !strings.ContainsAny(addr, " :")
}

// MemoryWallet is one wallet on a Memory ledger.
type MemoryWallet struct {
	ledger  *Memory
	address string

	mu      sync.Mutex
	started bool
	subs    []chan []Transaction
}

var _ Client = (*MemoryWallet)(nil)

// Start marks the wallet as synchronizing.
func (w *MemoryWallet) Start(ctx context.Context, seed []byte, mode WalletMode) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.started = true
	return nil
}

// Transactions subscribes to this wallet's notifications.
func (w *MemoryWallet) Transactions(ctx context.Context) (<-chan []Transaction, error) {
	ch := make(chan []Transaction, w.ledger.buffer)
	w.mu.Lock()
	w.subs = append(w.subs, ch)
	w.mu.Unlock()

	go func() {
		<-ctx.Done()
		w.mu.Lock()
		defer w.mu.Unlock()
		for i, sub := range w.subs {
			if sub == ch {
				w.subs = append(w.subs[:i], w.subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

func (w *MemoryWallet) notify(batch []Transaction) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sub := range w.subs {
		select {
		case sub <- batch:
		default:
			// subscriber is behind; it re-observes on the mined notification
		}
	}
}

// Memos returns the memo of a transaction.
func (w *MemoryWallet) Memos(ctx context.Context, rawID []byte) ([][]byte, error) {
	return w.ledger.memos(rawID)
}

// OwnAddress returns the wallet address.
func (w *MemoryWallet) OwnAddress(ctx context.Context, account int) (string, error) {
	if w.address == "" {
		return "", ErrNoAddress
	}
	return w.address, nil
}

// Broadcast records a transfer from this wallet.
func (w *MemoryWallet) Broadcast(ctx context.Context, spend Spend, amount int64, recipient string, memo []byte) (string, error) {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if !started {
		return "", ErrNotStarted
	}
	return w.ledger.broadcast(w.address, recipient, memo)
}

// IsValidRecipientAddress checks the address shape.
func (w *MemoryWallet) IsValidRecipientAddress(ctx context.Context, candidate string) bool {
	return validAddress(candidate)
}
