package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultNATSTimeout bounds each request to the ledger sidecar.
const DefaultNATSTimeout = 10 * time.Second

// NATSClient talks to an external ledger-sync sidecar over NATS.
// Transaction batches arrive on <prefix>.transactions; every other call is a
// request/reply on <prefix>.<operation>.
type NATSClient struct {
	nc      *nats.Conn
	prefix  string
	timeout time.Duration
	buffer  int
}

var _ Client = (*NATSClient)(nil)

// NewNATSClient connects to url.
func NewNATSClient(url, prefix string, buffer int) (*NATSClient, error) {
	nc, err := nats.Connect(url, nats.Name("memochat"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if buffer <= 0 {
		buffer = 64
	}
	log.Printf("[ledger] connected to NATS url=%s prefix=%s", url, prefix)
	return &NATSClient{nc: nc, prefix: prefix, timeout: DefaultNATSTimeout, buffer: buffer}, nil
}

// Close drains the NATS connection.
func (c *NATSClient) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

func (c *NATSClient) subject(op string) string {
	return c.prefix + "." + op
}

type startRequest struct {
	Seed []byte     `json:"seed"`
	Mode WalletMode `json:"mode"`
}

type memosRequest struct {
	RawID []byte `json:"raw_id"`
}

type memosReply struct {
	Memos [][]byte `json:"memos"`
}

type addressRequest struct {
	Account int `json:"account"`
}

type addressReply struct {
	Address string `json:"address"`
}

type broadcastRequest struct {
	Spend     Spend  `json:"spend"`
	Amount    int64  `json:"amount"`
	Recipient string `json:"recipient"`
	Memo      []byte `json:"memo"`
}

type broadcastReply struct {
	TxID string `json:"tx_id"`
}

type validateRequest struct {
	Address string `json:"address"`
}

type validateReply struct {
	Valid bool `json:"valid"`
}

// replyEnvelope wraps every reply; a non-empty Error fails the call.
type replyEnvelope struct {
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const codeInvalidRecipient = "invalid_recipient"

func (c *NATSClient) request(ctx context.Context, op string, req, reply any) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", op, err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.nc.RequestWithContext(ctx, c.subject(op), data)
	if err != nil {
		return fmt.Errorf("ledger %s request: %w", op, err)
	}
	return decodeReply(op, msg.Data, reply)
}

func decodeReply(op string, data []byte, reply any) error {
	var env replyEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to unmarshal %s reply: %w", op, err)
	}
	if env.Error != "" {
		if env.Code == codeInvalidRecipient {
			return fmt.Errorf("%w: %s", ErrInvalidRecipient, env.Error)
		}
		return fmt.Errorf("ledger %s: %s", op, env.Error)
	}
	if reply == nil || len(env.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Payload, reply); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", op, err)
	}
	return nil
}

// Start asks the sidecar to begin synchronizing the wallet.
func (c *NATSClient) Start(ctx context.Context, seed []byte, mode WalletMode) error {
	return c.request(ctx, "start", startRequest{Seed: seed, Mode: mode}, nil)
}

// Transactions subscribes to pushed transaction batches.
func (c *NATSClient) Transactions(ctx context.Context) (<-chan []Transaction, error) {
	out := make(chan []Transaction, c.buffer)
	sub, err := c.nc.Subscribe(c.subject("transactions"), func(msg *nats.Msg) {
		var batch []Transaction
		if err := json.Unmarshal(msg.Data, &batch); err != nil {
			log.Printf("[ledger] error unmarshaling batch from subject '%s': %v", msg.Subject, err)
			return
		}
		// block rather than drop: a dropped batch is only seen again on the next state change
		select {
		case out <- batch:
		case <-ctx.Done():
		}
	})
	if err != nil {
		close(out)
		return nil, fmt.Errorf("failed to subscribe to '%s': %w", c.subject("transactions"), err)
	}
	log.Printf("[ledger] subscribed to %s", c.subject("transactions"))

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			log.Printf("[ledger] drain subscription: %v", err)
		}
		for sub.IsValid() {
			time.Sleep(10 * time.Millisecond)
		}
		close(out)
	}()
	return out, nil
}

// Memos fetches the decrypted memos of a transaction.
func (c *NATSClient) Memos(ctx context.Context, rawID []byte) ([][]byte, error) {
	var reply memosReply
	if err := c.request(ctx, "memos", memosRequest{RawID: rawID}, &reply); err != nil {
		return nil, err
	}
	return reply.Memos, nil
}

// OwnAddress resolves the wallet's receiving address for account.
func (c *NATSClient) OwnAddress(ctx context.Context, account int) (string, error) {
	var reply addressReply
	if err := c.request(ctx, "address", addressRequest{Account: account}, &reply); err != nil {
		return "", err
	}
	if reply.Address == "" {
		return "", ErrNoAddress
	}
	return reply.Address, nil
}

// Broadcast submits a transaction carrying memo.
func (c *NATSClient) Broadcast(ctx context.Context, spend Spend, amount int64, recipient string, memo []byte) (string, error) {
	var reply broadcastReply
	req := broadcastRequest{Spend: spend, Amount: amount, Recipient: recipient, Memo: memo}
	if err := c.request(ctx, "broadcast", req, &reply); err != nil {
		return "", err
	}
	return reply.TxID, nil
}

// IsValidRecipientAddress asks the sidecar to validate candidate. Transport
// failures count as invalid.
func (c *NATSClient) IsValidRecipientAddress(ctx context.Context, candidate string) bool {
	var reply validateReply
	if err := c.request(ctx, "validate", validateRequest{Address: candidate}, &reply); err != nil {
		log.Printf("[ledger] validate address failed: %v", err)
		return false
	}
	return reply.Valid
}
