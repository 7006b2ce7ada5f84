package sender

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"memochat/internal/events"
	"memochat/internal/ids"
	"memochat/internal/ledger"
	"memochat/internal/memo"
	"memochat/internal/models"
	"memochat/internal/observability"
	"memochat/internal/repositories"
	"memochat/internal/telemetry"
)

// Sender originates chats and messages as zero-value ledger transactions.
type Sender struct {
	store   repositories.Store
	ledger  ledger.Client
	ids     *ids.Generator
	events  events.Publisher
	audit   *telemetry.AuditEmitter
	account int

	mu      sync.Mutex
	pending []models.PendingRecord
}

// NewSender builds a Sender. events and audit may be nil.
func NewSender(store repositories.Store, client ledger.Client, gen *ids.Generator, publisher events.Publisher, audit *telemetry.AuditEmitter, account int) *Sender {
	return &Sender{
		store:   store,
		ledger:  client,
		ids:     gen,
		events:  publisher,
		audit:   audit,
		account: account,
	}
}

// NewChat broadcasts a chat initialisation to toAddress and records the chat
// locally, verified by construction.
func (s *Sender) NewChat(ctx context.Context, toAddress, verificationText string, alias *string) (models.Chat, error) {
	ctx, span := observability.Tracer("sender").Start(ctx, "sender.new_chat")
	defer span.End()

	own, err := s.ownAddress(ctx)
	if err != nil {
		return models.Chat{}, err
	}

	ts := s.ids.Now()
	chatID, err := s.ids.Generate(ts)
	if err != nil {
		return models.Chat{}, err
	}
	messageID, err := s.ids.Generate(ts)
	if err != nil {
		return models.Chat{}, err
	}

	chat := models.Chat{
		ChatID:           chatID,
		Alias:            alias,
		CreatedAt:        ts,
		FromAddress:      own,
		ToAddress:        toAddress,
		VerificationText: verificationText,
		Verified:         true,
	}
	data, err := memo.Encode(memo.ChatMessage{
		ChatID:    chatID,
		Timestamp: ts,
		MessageID: messageID,
		Content: memo.Initialisation{
			FromAddress:      own,
			ToAddress:        toAddress,
			VerificationText: verificationText,
		},
	})
	if err != nil {
		return models.Chat{}, fmt.Errorf("encode initialisation: %w", err)
	}
	if !s.ledger.IsValidRecipientAddress(ctx, toAddress) {
		return models.Chat{}, ErrInvalidToAddress
	}

	span.SetAttributes(attribute.Int64("chat.id", chatID))
	txID, err := s.broadcast(ctx, "initialisation", toAddress, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "broadcast failed")
		return models.Chat{}, err
	}

	stored, changes, err := s.storeOwnChat(ctx, chat)
	if err != nil {
		span.RecordError(err)
		return chat, s.notStored(ctx, models.PendingRecord{TxID: txID, Chat: &chat}, err)
	}

	for _, change := range changes {
		s.publish(ctx, models.ChatEvent{Type: change, Chat: &stored})
	}
	log.Printf("[sender] chat created chat_id=%d tx_id=%s", chatID, txID)
	return stored, nil
}

// SendMessage broadcasts text to the other party of chatID.
func (s *Sender) SendMessage(ctx context.Context, chatID int64, text string) (models.Message, error) {
	ctx, span := observability.Tracer("sender").Start(ctx, "sender.send_message")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat.id", chatID))

	chat, err := s.store.Chat(ctx, chatID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Message{}, fmt.Errorf("%w: %d", ErrChatNotFound, chatID)
		}
		return models.Message{}, fmt.Errorf("load chat: %w", err)
	}

	own, err := s.ownAddress(ctx)
	if err != nil {
		return models.Message{}, err
	}

	ts := s.ids.Now()
	id, err := s.ids.Generate(ts)
	if err != nil {
		return models.Message{}, err
	}
	msg := models.Message{ID: id, ChatID: chatID, Timestamp: ts, Text: text, IsSent: true}

	data, err := memo.Encode(memo.ChatMessage{
		ChatID:    chatID,
		Timestamp: ts,
		MessageID: id,
		Content:   memo.Text{Body: text},
	})
	if err != nil {
		return models.Message{}, fmt.Errorf("encode text: %w", err)
	}

	recipient := chat.Counterparty(own)
	if !s.ledger.IsValidRecipientAddress(ctx, recipient) {
		return models.Message{}, ErrInvalidToAddress
	}

	txID, err := s.broadcast(ctx, "text", recipient, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "broadcast failed")
		return models.Message{}, err
	}

	// the processor may already have stored it from our own pending transaction
	if _, err := s.store.StoreMessageIfAbsent(ctx, msg); err != nil {
		span.RecordError(err)
		return msg, s.notStored(ctx, models.PendingRecord{TxID: txID, Message: &msg}, err)
	}

	s.publish(ctx, models.ChatEvent{Type: models.EventMessageSent, Message: &msg})
	return msg, nil
}

// Pending lists broadcasts awaiting a local record.
func (s *Sender) Pending() []models.PendingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PendingRecord(nil), s.pending...)
}

// Reconcile retries the local store of every pending record and returns how
// many were recorded.
func (s *Sender) Reconcile(ctx context.Context) (int, error) {
	s.mu.Lock()
	queue := s.pending
	s.pending = nil
	s.mu.Unlock()

	var (
		done   int
		remain []models.PendingRecord
		errs   []error
	)
	for _, record := range queue {
		if err := s.storeRecord(ctx, record); err != nil {
			errs = append(errs, fmt.Errorf("transaction %s: %w", record.TxID, err))
			if isPermanent(err) {
				log.Printf("[sender] !! dropping pending tx %s: %v", record.TxID, err)
				continue
			}
			record.Reason = err.Error()
			remain = append(remain, record)
			continue
		}
		done++
	}

	s.mu.Lock()
	s.pending = append(remain, s.pending...)
	observability.SetReconciliationPending(len(s.pending))
	s.mu.Unlock()

	if done > 0 {
		log.Printf("[sender] reconciled %d pending records", done)
	}
	return done, errors.Join(errs...)
}

func (s *Sender) storeRecord(ctx context.Context, record models.PendingRecord) error {
	switch {
	case record.Chat != nil:
		stored, changes, err := s.storeOwnChat(ctx, *record.Chat)
		if err != nil {
			return err
		}
		for _, change := range changes {
			s.publish(ctx, models.ChatEvent{Type: change, Chat: &stored})
		}
	case record.Message != nil:
		if _, err := s.store.StoreMessageIfAbsent(ctx, *record.Message); err != nil {
			return err
		}
		s.publish(ctx, models.ChatEvent{Type: models.EventMessageSent, Message: record.Message})
	}
	return nil
}

// ClearPending drops every pending record. Used when local data is wiped.
func (s *Sender) ClearPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	observability.SetReconciliationPending(0)
}

// storeOwnChat records a chat this wallet created and returns the events it
// caused. If the processor got there first from our own pending transaction,
// the row already exists and is promoted to verified instead of created.
func (s *Sender) storeOwnChat(ctx context.Context, chat models.Chat) (models.Chat, []models.EventType, error) {
	inserted, err := s.store.StoreChatIfAbsent(ctx, chat)
	if err != nil {
		return models.Chat{}, nil, err
	}
	if inserted {
		return chat, []models.EventType{models.EventChatCreated}, nil
	}

	existing, err := s.store.Chat(ctx, chat.ChatID)
	if err != nil {
		return models.Chat{}, nil, err
	}
	if existing.FromAddress != chat.FromAddress || existing.ToAddress != chat.ToAddress || existing.VerificationText != chat.VerificationText {
		return models.Chat{}, nil, fmt.Errorf("%w: %d", ErrChatIDCollision, chat.ChatID)
	}

	var changes []models.EventType
	if chat.Alias != nil && (existing.Alias == nil || *existing.Alias != *chat.Alias) {
		if existing, err = s.store.UpdateAlias(ctx, chat.ChatID, chat.Alias); err != nil {
			return models.Chat{}, nil, err
		}
		changes = append(changes, models.EventChatAliasUpdated)
	}
	if !existing.Verified {
		if existing, err = s.store.SetVerified(ctx, chat.ChatID, true); err != nil {
			return models.Chat{}, nil, err
		}
		changes = append(changes, models.EventChatVerified)
	}
	return existing, changes, nil
}

// isPermanent reports store outcomes that no retry can fix.
func isPermanent(err error) bool {
	return errors.Is(err, ErrChatIDCollision)
}

func (s *Sender) ownAddress(ctx context.Context) (string, error) {
	own, err := s.ledger.OwnAddress(ctx, s.account)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrOwnAddressUnavailable, err)
	}
	if own == "" {
		return "", ErrOwnAddressUnavailable
	}
	return own, nil
}

func (s *Sender) broadcast(ctx context.Context, kind, recipient string, data []byte) (string, error) {
	txID, err := s.ledger.Broadcast(ctx, ledger.Spend{Account: s.account}, 0, recipient, data)
	if err != nil {
		observability.IncBroadcast(kind, "error")
		if errors.Is(err, ledger.ErrInvalidRecipient) {
			return "", fmt.Errorf("%w: %w", ErrInvalidToAddress, err)
		}
		return "", fmt.Errorf("%w: %w", ErrBroadcast, err)
	}
	observability.IncBroadcast(kind, "ok")
	return txID, nil
}

func (s *Sender) notStored(ctx context.Context, record models.PendingRecord, err error) error {
	record.FailedAt = s.ids.Now()
	record.Reason = err.Error()

	permanent := isPermanent(err)
	s.mu.Lock()
	if !permanent {
		s.pending = append(s.pending, record)
	}
	observability.SetReconciliationPending(len(s.pending))
	s.mu.Unlock()

	log.Printf("[sender] !! tx %s broadcast but local store failed (permanent=%t): %v", record.TxID, permanent, err)
	s.audit.Emit(ctx, telemetry.EventReconciliationNeeded, "ERROR", "broadcast succeeded, local store failed", map[string]any{
		"tx_id":     record.TxID,
		"reason":    record.Reason,
		"permanent": permanent,
	})
	return &NotStoredError{Record: record, Err: err}
}

func (s *Sender) publish(ctx context.Context, event models.ChatEvent) {
	if s.events != nil {
		s.events.Publish(ctx, event)
	}
}
