// Package processor turns ledger transaction notifications into stored chats
// and messages, once per identifier however often a transaction is observed.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"

	"memochat/internal/events"
	"memochat/internal/ledger"
	"memochat/internal/memo"
	"memochat/internal/models"
	"memochat/internal/observability"
	"memochat/internal/repositories"
	"memochat/internal/telemetry"
)

// Outcome is what happened to one observed transaction.
type Outcome string

const (
	OutcomeSkippedNoMemo          Outcome = "skipped_no_memo"
	OutcomeSkippedMemoUnavailable Outcome = "skipped_memo_unavailable"
	OutcomeSkippedNotChat         Outcome = "skipped_not_chat"
	OutcomeDuplicate              Outcome = "duplicate"
	OutcomeChatStored             Outcome = "chat_stored"
	OutcomeMessageStored          Outcome = "message_stored"
	OutcomeFailed                 Outcome = "failed"
)

// Options tune storage retries. Zero values use the defaults.
type Options struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

const (
	defaultMaxRetries      = 5
	defaultInitialInterval = 200 * time.Millisecond
	defaultMaxInterval     = 5 * time.Second
)

type Processor struct {
	store  repositories.Store
	ledger ledger.Client
	events events.Publisher
	audit  *telemetry.AuditEmitter
	opts   Options
}

// New builds a Processor. publisher and audit may be nil.
func New(store repositories.Store, client ledger.Client, publisher events.Publisher, audit *telemetry.AuditEmitter, opts Options) *Processor {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = defaultInitialInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = defaultMaxInterval
	}
	return &Processor{store: store, ledger: client, events: publisher, audit: audit, opts: opts}
}

// Run consumes transaction batches until ctx is done or the stream closes.
// A batch already taken is processed to the end even if ctx is cancelled
// meanwhile; no further batch is taken afterwards.
func (p *Processor) Run(ctx context.Context) error {
	batches, err := p.ledger.Transactions(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to transactions: %w", err)
	}
	p.Consume(ctx, batches)
	return nil
}

// Consume processes batches from an existing subscription until ctx is done
// or batches is closed.
func (p *Processor) Consume(ctx context.Context, batches <-chan []ledger.Transaction) {
	log.Println("[processor] listening for transactions")
	for {
		select {
		case <-ctx.Done():
			log.Println("[processor] stopped")
			return
		case batch, ok := <-batches:
			if !ok {
				log.Println("[processor] transaction stream closed")
				return
			}
			p.ProcessBatch(context.WithoutCancel(ctx), batch)
		}
	}
}

// ProcessBatch handles the transactions of one notification in order.
func (p *Processor) ProcessBatch(ctx context.Context, batch []ledger.Transaction) []Outcome {
	outcomes := make([]Outcome, 0, len(batch))
	for _, tx := range batch {
		outcomes = append(outcomes, p.ProcessTransaction(ctx, tx))
	}
	return outcomes
}

// ProcessTransaction handles one transaction. Unrelated transactions are
// skipped; only an exhausted storage retry yields OutcomeFailed.
func (p *Processor) ProcessTransaction(ctx context.Context, tx ledger.Transaction) Outcome {
	ctx, span := observability.Tracer("processor").Start(ctx, "processor.transaction")
	defer span.End()
	span.SetAttributes(attribute.String("tx.id", tx.ID))

	outcome := p.process(ctx, tx)
	span.SetAttributes(attribute.String("tx.outcome", string(outcome)))
	observability.IncTransaction(string(outcome))
	return outcome
}

func (p *Processor) process(ctx context.Context, tx ledger.Transaction) Outcome {
	if tx.MemoCount == 0 {
		return OutcomeSkippedNoMemo
	}

	memos, err := p.ledger.Memos(ctx, tx.RawID)
	if err != nil || len(memos) == 0 || len(memos[0]) == 0 {
		if err != nil {
			log.Printf("[processor] memo unavailable tx_id=%s: %v", tx.ID, err)
		}
		return OutcomeSkippedMemoUnavailable
	}

	msg, err := memo.Decode(memos[0])
	if err != nil {
		if !memo.IsNotChatMessage(err) {
			log.Printf("[processor] undecodable chat memo tx_id=%s: %v", tx.ID, err)
		}
		return OutcomeSkippedNotChat
	}

	switch content := msg.Content.(type) {
	case memo.Initialisation:
		return p.ingestChat(ctx, tx, models.Chat{
			ChatID:           msg.ChatID,
			CreatedAt:        msg.Timestamp,
			FromAddress:      content.FromAddress,
			ToAddress:        content.ToAddress,
			VerificationText: content.VerificationText,
		})
	case memo.Text:
		return p.ingestMessage(ctx, tx, models.Message{
			ID:        msg.MessageID,
			ChatID:    msg.ChatID,
			Timestamp: msg.Timestamp,
			Text:      content.Body,
			IsSent:    tx.IsSentByMe,
		})
	default:
		return OutcomeSkippedNotChat
	}
}

func (p *Processor) ingestChat(ctx context.Context, tx ledger.Transaction, chat models.Chat) Outcome {
	var inserted bool
	err := p.retry(ctx, func() error {
		exists, err := p.store.DoesChatExist(ctx, chat.ChatID)
		if err != nil || exists {
			return err
		}
		inserted, err = p.store.StoreChatIfAbsent(ctx, chat)
		return err
	})
	if err != nil {
		return p.failed(ctx, tx, "chat", chat.ChatID, err)
	}
	if !inserted {
		return OutcomeDuplicate
	}

	log.Printf("[processor] chat stored chat_id=%d tx_id=%s", chat.ChatID, tx.ID)
	p.publish(ctx, models.ChatEvent{Type: models.EventChatCreated, Chat: &chat})
	return OutcomeChatStored
}

func (p *Processor) ingestMessage(ctx context.Context, tx ledger.Transaction, msg models.Message) Outcome {
	var inserted bool
	err := p.retry(ctx, func() error {
		exists, err := p.store.DoesMessageExist(ctx, msg.ID)
		if err != nil || exists {
			return err
		}
		inserted, err = p.store.StoreMessageIfAbsent(ctx, msg)
		return err
	})
	if err != nil {
		return p.failed(ctx, tx, "message", msg.ID, err)
	}
	if !inserted {
		return OutcomeDuplicate
	}

	log.Printf("[processor] message stored id=%d chat_id=%d tx_id=%s", msg.ID, msg.ChatID, tx.ID)
	p.publish(ctx, models.ChatEvent{Type: models.EventMessageReceived, Message: &msg})
	return OutcomeMessageStored
}

func (p *Processor) retry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.opts.InitialInterval
	policy.MaxInterval = p.opts.MaxInterval
	policy.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(policy, p.opts.MaxRetries), ctx)
	return backoff.RetryNotify(func() error {
		err := op()
		if errors.Is(err, repositories.ErrEntityConstruction) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		observability.IncStoreRetry()
		log.Printf("[processor] store failed, retrying in %s: %v", wait, err)
	})
}

func (p *Processor) failed(ctx context.Context, tx ledger.Transaction, kind string, id int64, err error) Outcome {
	log.Printf("[processor] !! recovery needed: %s %d from tx %s not stored: %v", kind, id, tx.ID, err)
	p.audit.Emit(ctx, telemetry.EventRecoveryNeeded, "ERROR", "inbound "+kind+" decoded but not stored", map[string]any{
		"tx_id":  tx.ID,
		"kind":   kind,
		"id":     id,
		"reason": err.Error(),
	})
	return OutcomeFailed
}

func (p *Processor) publish(ctx context.Context, event models.ChatEvent) {
	if p.events != nil {
		p.events.Publish(ctx, event)
	}
}
