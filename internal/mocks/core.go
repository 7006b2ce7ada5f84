package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"memochat/internal/events"
	"memochat/internal/ledger"
	"memochat/internal/models"
)

// CoreMock stands in for the chat core behind the HTTP handlers.
type CoreMock struct {
	mock.Mock
}

func (m *CoreMock) Initialize(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *CoreMock) Start(ctx context.Context, seed []byte, mode ledger.WalletMode) error {
	return m.Called(ctx, seed, mode).Error(0)
}

func (m *CoreMock) Wipe(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *CoreMock) AllChats(ctx context.Context) ([]models.Chat, error) {
	args := m.Called(ctx)
	var chats []models.Chat
	if val := args.Get(0); val != nil {
		chats = val.([]models.Chat)
	}
	return chats, args.Error(1)
}

func (m *CoreMock) AllMessages(ctx context.Context, chatID int64) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *CoreMock) NewChat(ctx context.Context, toAddress, verificationText string, alias *string) (models.Chat, error) {
	args := m.Called(ctx, toAddress, verificationText, alias)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *CoreMock) SendMessage(ctx context.Context, chatID int64, text string) (models.Message, error) {
	args := m.Called(ctx, chatID, text)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *CoreMock) UpdateAlias(ctx context.Context, chatID int64, alias *string) (models.Chat, error) {
	args := m.Called(ctx, chatID, alias)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *CoreMock) VerifyChat(ctx context.Context, chatID int64, candidate string) (models.Chat, error) {
	args := m.Called(ctx, chatID, candidate)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *CoreMock) Subscribe() *events.Subscription {
	args := m.Called()
	if val := args.Get(0); val != nil {
		return val.(*events.Subscription)
	}
	return nil
}

func (m *CoreMock) Pending() []models.PendingRecord {
	args := m.Called()
	if val := args.Get(0); val != nil {
		return val.([]models.PendingRecord)
	}
	return nil
}

func (m *CoreMock) Reconcile(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
