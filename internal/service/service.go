// Package service is the chat core exposed to the caller: wallet lifecycle,
// chat and message queries, sending, and the domain-event stream.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"sync"

	"memochat/internal/events"
	"memochat/internal/ids"
	"memochat/internal/ledger"
	"memochat/internal/models"
	"memochat/internal/processor"
	"memochat/internal/repositories"
	"memochat/internal/sender"
	"memochat/internal/telemetry"
)

var (
	ErrChatNotFound         = sender.ErrChatNotFound
	ErrVerificationMismatch = errors.New("verification text does not match")
)

// Core is what the HTTP layer needs from the chat core.
type Core interface {
	Initialize(ctx context.Context) error
	Start(ctx context.Context, seed []byte, mode ledger.WalletMode) error
	Wipe(ctx context.Context) error

	AllChats(ctx context.Context) ([]models.Chat, error)
	AllMessages(ctx context.Context, chatID int64) ([]models.Message, error)
	NewChat(ctx context.Context, toAddress, verificationText string, alias *string) (models.Chat, error)
	SendMessage(ctx context.Context, chatID int64, text string) (models.Message, error)
	UpdateAlias(ctx context.Context, chatID int64, alias *string) (models.Chat, error)
	VerifyChat(ctx context.Context, chatID int64, candidate string) (models.Chat, error)

	Subscribe() *events.Subscription
	Pending() []models.PendingRecord
	Reconcile(ctx context.Context) (int, error)
}

type Options struct {
	Account   int
	Processor processor.Options
	Clock     ids.Clock
}

type Service struct {
	store     repositories.Store
	ledger    ledger.Client
	bus       *events.Bus
	sender    *sender.Sender
	processor *processor.Processor

	mu   sync.Mutex
	stop context.CancelFunc
	done chan struct{}
}

var _ Core = (*Service)(nil)

// New wires the sender and processor around store and client. audit may be nil.
func New(store repositories.Store, client ledger.Client, bus *events.Bus, audit *telemetry.AuditEmitter, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = ids.SystemClock{}
	}
	return &Service{
		store:     store,
		ledger:    client,
		bus:       bus,
		sender:    sender.NewSender(store, client, ids.NewGenerator(opts.Clock), bus, audit, opts.Account),
		processor: processor.New(store, client, bus, audit, opts.Processor),
	}
}

func (s *Service) Initialize(ctx context.Context) error {
	if err := s.store.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	return nil
}

// Start starts wallet synchronization and inbound processing. Calling it
// again while running only restarts the wallet.
func (s *Service) Start(ctx context.Context, seed []byte, mode ledger.WalletMode) error {
	if err := s.ledger.Start(ctx, seed, mode); err != nil {
		return fmt.Errorf("start wallet: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	batches, err := s.ledger.Transactions(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe to transactions: %w", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.processor.Consume(runCtx, batches)
	}()
	s.stop, s.done = cancel, done
	log.Printf("[service] wallet started mode=%s", mode)
	return nil
}

// Stop ends inbound processing and waits for the batch in flight.
func (s *Service) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-done
}

// Wipe stops processing and deletes all local chats and messages.
func (s *Service) Wipe(ctx context.Context) error {
	s.Stop()
	if err := s.store.Wipe(ctx); err != nil {
		return fmt.Errorf("wipe store: %w", err)
	}
	s.sender.ClearPending()
	log.Println("[service] local data wiped")
	return nil
}

func (s *Service) AllChats(ctx context.Context) ([]models.Chat, error) {
	return s.store.AllChats(ctx)
}

func (s *Service) AllMessages(ctx context.Context, chatID int64) ([]models.Message, error) {
	return s.store.AllMessages(ctx, chatID)
}

func (s *Service) NewChat(ctx context.Context, toAddress, verificationText string, alias *string) (models.Chat, error) {
	return s.sender.NewChat(ctx, toAddress, verificationText, alias)
}

func (s *Service) SendMessage(ctx context.Context, chatID int64, text string) (models.Message, error) {
	return s.sender.SendMessage(ctx, chatID, text)
}

func (s *Service) UpdateAlias(ctx context.Context, chatID int64, alias *string) (models.Chat, error) {
	chat, err := s.store.UpdateAlias(ctx, chatID, alias)
	if err != nil {
		return models.Chat{}, notFound(chatID, err)
	}
	s.bus.Publish(ctx, models.ChatEvent{Type: models.EventChatAliasUpdated, Chat: &chat})
	return chat, nil
}

// VerifyChat marks the chat verified when candidate equals its verification text.
func (s *Service) VerifyChat(ctx context.Context, chatID int64, candidate string) (models.Chat, error) {
	chat, err := s.store.Chat(ctx, chatID)
	if err != nil {
		return models.Chat{}, notFound(chatID, err)
	}
	if subtle.ConstantTimeCompare([]byte(chat.VerificationText), []byte(candidate)) != 1 {
		return models.Chat{}, ErrVerificationMismatch
	}
	if chat.Verified {
		return chat, nil
	}

	chat, err = s.store.SetVerified(ctx, chatID, true)
	if err != nil {
		return models.Chat{}, notFound(chatID, err)
	}
	s.bus.Publish(ctx, models.ChatEvent{Type: models.EventChatVerified, Chat: &chat})
	return chat, nil
}

func (s *Service) Subscribe() *events.Subscription {
	return s.bus.Subscribe()
}

func (s *Service) Pending() []models.PendingRecord {
	return s.sender.Pending()
}

func (s *Service) Reconcile(ctx context.Context) (int, error) {
	return s.sender.Reconcile(ctx)
}

func notFound(chatID int64, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrChatNotFound, chatID)
	}
	return err
}
