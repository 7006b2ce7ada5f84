package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"memochat/internal/ledger"
	"memochat/internal/models"
	"memochat/internal/repositories"
)

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) Initialize(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *StoreMock) Wipe(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *StoreMock) AllChats(ctx context.Context) ([]models.Chat, error) {
	args := m.Called(ctx)
	var chats []models.Chat
	if val := args.Get(0); val != nil {
		chats = val.([]models.Chat)
	}
	return chats, args.Error(1)
}

func (m *StoreMock) Chat(ctx context.Context, chatID int64) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *StoreMock) DoesChatExist(ctx context.Context, chatID int64) (bool, error) {
	args := m.Called(ctx, chatID)
	return args.Bool(0), args.Error(1)
}

func (m *StoreMock) StoreChat(ctx context.Context, chat models.Chat) error {
	return m.Called(ctx, chat).Error(0)
}

func (m *StoreMock) StoreChatIfAbsent(ctx context.Context, chat models.Chat) (bool, error) {
	args := m.Called(ctx, chat)
	return args.Bool(0), args.Error(1)
}

func (m *StoreMock) UpdateAlias(ctx context.Context, chatID int64, alias *string) (models.Chat, error) {
	args := m.Called(ctx, chatID, alias)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *StoreMock) SetVerified(ctx context.Context, chatID int64, verified bool) (models.Chat, error) {
	args := m.Called(ctx, chatID, verified)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *StoreMock) AllMessages(ctx context.Context, chatID int64) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *StoreMock) DoesMessageExist(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *StoreMock) StoreMessage(ctx context.Context, msg models.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *StoreMock) StoreMessageIfAbsent(ctx context.Context, msg models.Message) (bool, error) {
	args := m.Called(ctx, msg)
	return args.Bool(0), args.Error(1)
}

type LedgerMock struct {
	mock.Mock
}

func (m *LedgerMock) Start(ctx context.Context, seed []byte, mode ledger.WalletMode) error {
	return m.Called(ctx, seed, mode).Error(0)
}

func (m *LedgerMock) Transactions(ctx context.Context) (<-chan []ledger.Transaction, error) {
	args := m.Called(ctx)
	var ch <-chan []ledger.Transaction
	if val := args.Get(0); val != nil {
		ch = val.(<-chan []ledger.Transaction)
	}
	return ch, args.Error(1)
}

func (m *LedgerMock) Memos(ctx context.Context, rawID []byte) ([][]byte, error) {
	args := m.Called(ctx, rawID)
	var memos [][]byte
	if val := args.Get(0); val != nil {
		memos = val.([][]byte)
	}
	return memos, args.Error(1)
}

func (m *LedgerMock) OwnAddress(ctx context.Context, account int) (string, error) {
	args := m.Called(ctx, account)
	return args.String(0), args.Error(1)
}

func (m *LedgerMock) Broadcast(ctx context.Context, spend ledger.Spend, amount int64, recipient string, memo []byte) (string, error) {
	args := m.Called(ctx, spend, amount, recipient, memo)
	return args.String(0), args.Error(1)
}

func (m *LedgerMock) IsValidRecipientAddress(ctx context.Context, candidate string) bool {
	return m.Called(ctx, candidate).Bool(0)
}

type EventPublisherMock struct {
	mock.Mock
}

func (m *EventPublisherMock) Publish(ctx context.Context, event models.ChatEvent) {
	m.Called(ctx, event)
}

var _ repositories.Store = (*StoreMock)(nil)
var _ ledger.Client = (*LedgerMock)(nil)
