package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memochat/internal/db"
	"memochat/internal/models"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	database, err := db.Connect(db.DriverSQLite, db.SQLitePath(t.TempDir()))
	require.NoError(t, err)
	store := NewSQLStore(database)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Initialize(context.Background()))
	return store
}

func sampleChat(id int64) models.Chat {
	return models.Chat{
		ChatID:           id,
		CreatedAt:        id >> 24,
		FromAddress:      "addrA",
		ToAddress:        "addrB",
		VerificationText: "123456",
	}
}

func TestStoreAndFetchChat(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	alias := "bob"
	chat := sampleChat(42 << 24)
	chat.Alias = &alias
	chat.Verified = true
	require.NoError(t, store.StoreChat(ctx, chat))

	got, err := store.Chat(ctx, chat.ChatID)
	require.NoError(t, err)
	assert.Equal(t, chat, got)

	exists, err := store.DoesChatExist(ctx, chat.ChatID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.DoesChatExist(ctx, 1)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAllChatsOrderedByCreation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.StoreChat(ctx, sampleChat(3<<24)))
	require.NoError(t, store.StoreChat(ctx, sampleChat(1<<24)))
	require.NoError(t, store.StoreChat(ctx, sampleChat(2<<24)))

	chats, err := store.AllChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 3)
	assert.Equal(t, []int64{1 << 24, 2 << 24, 3 << 24}, []int64{chats[0].ChatID, chats[1].ChatID, chats[2].ChatID})
	assert.Nil(t, chats[0].Alias)
}

func TestStoreChatRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.StoreChat(ctx, sampleChat(7)))
	other := sampleChat(7)
	other.FromAddress = "mallory"
	err := store.StoreChat(ctx, other)
	require.ErrorIs(t, err, ErrDuplicate)

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "store chat", storeErr.Op)

	got, err := store.Chat(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "addrA", got.FromAddress)
}

func TestChatNotFoundIsDistinct(t *testing.T) {
	_, err := newTestStore(t).Chat(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrChatNotFound)
	assert.False(t, errors.Is(err, ErrQueryExecution))
	assert.False(t, errors.Is(err, ErrEmptyResult))
}

func TestStoreChatIfAbsentUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.StoreChatIfAbsent(ctx, sampleChat(5<<24))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	chats, err := store.AllChats(ctx)
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestUpdateAliasAndVerified(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.StoreChat(ctx, sampleChat(11)))

	alias := "alice"
	chat, err := store.UpdateAlias(ctx, 11, &alias)
	require.NoError(t, err)
	require.NotNil(t, chat.Alias)
	assert.Equal(t, "alice", *chat.Alias)

	chat, err = store.SetVerified(ctx, 11, true)
	require.NoError(t, err)
	assert.True(t, chat.Verified)

	chat, err = store.UpdateAlias(ctx, 11, nil)
	require.NoError(t, err)
	assert.Nil(t, chat.Alias)

	_, err = store.SetVerified(ctx, 12, true)
	require.ErrorIs(t, err, ErrChatNotFound)
}

func TestMessagesShareChatWithoutConflict(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.StoreMessage(ctx, models.Message{ID: 3, ChatID: 1, Timestamp: 30, Text: "third"}))
	require.NoError(t, store.StoreMessage(ctx, models.Message{ID: 1, ChatID: 1, Timestamp: 10, Text: "first", IsSent: true}))
	require.NoError(t, store.StoreMessage(ctx, models.Message{ID: 2, ChatID: 2, Timestamp: 20, Text: "other chat"}))

	msgs, err := store.AllMessages(ctx, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
	assert.True(t, msgs[0].IsSent)
	assert.Equal(t, "third", msgs[1].Text)

	empty, err := store.AllMessages(ctx, 404)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStoreMessageDedup(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	msg := models.Message{ID: 7, ChatID: 1, Timestamp: 1, Text: "hello"}

	inserted, err := store.StoreMessageIfAbsent(ctx, msg)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.StoreMessageIfAbsent(ctx, msg)
	require.NoError(t, err)
	assert.False(t, inserted)

	require.ErrorIs(t, store.StoreMessage(ctx, msg), ErrDuplicate)

	exists, err := store.DoesMessageExist(ctx, 7)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWipe(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.StoreChat(ctx, sampleChat(1)))
	require.NoError(t, store.StoreMessage(ctx, models.Message{ID: 1, ChatID: 1, Text: "x"}))

	require.NoError(t, store.Wipe(ctx))

	chats, err := store.AllChats(ctx)
	require.NoError(t, err)
	assert.Empty(t, chats)
	exists, err := store.DoesMessageExist(ctx, 1)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClosedStoreReportsConnectionError(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.AllChats(context.Background())
	require.ErrorIs(t, err, ErrConnection)
	require.NoError(t, store.Close())
}
