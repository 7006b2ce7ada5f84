package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"

	"memochat/internal/db"
	"memochat/internal/models"
)

// Store is the chat/message persistence boundary.
type Store interface {
	Initialize(ctx context.Context) error
	Wipe(ctx context.Context) error

	AllChats(ctx context.Context) ([]models.Chat, error)
	Chat(ctx context.Context, chatID int64) (models.Chat, error)
	DoesChatExist(ctx context.Context, chatID int64) (bool, error)
	StoreChat(ctx context.Context, chat models.Chat) error
	StoreChatIfAbsent(ctx context.Context, chat models.Chat) (bool, error)
	UpdateAlias(ctx context.Context, chatID int64, alias *string) (models.Chat, error)
	SetVerified(ctx context.Context, chatID int64, verified bool) (models.Chat, error)

	AllMessages(ctx context.Context, chatID int64) ([]models.Message, error)
	DoesMessageExist(ctx context.Context, id int64) (bool, error)
	StoreMessage(ctx context.Context, msg models.Message) error
	StoreMessageIfAbsent(ctx context.Context, msg models.Message) (bool, error)
}

// SQLStore is a sqlx implementation of Store. Every call holds mu, so
// mutations are linearizable with respect to each other.
type SQLStore struct {
	mu     sync.Mutex
	db     *sqlx.DB
	closed bool
}

// NewSQLStore wraps an open database.
func NewSQLStore(database *sqlx.DB) *SQLStore {
	return &SQLStore{db: database}
}

// Initialize creates the schema if it does not exist.
func (s *SQLStore) Initialize(ctx context.Context) error {
	return s.locked("initialize", func() error {
		if err := db.Migrate(ctx, s.db); err != nil {
			return execErr("initialize", err)
		}
		return nil
	})
}

// Wipe deletes every chat and message.
func (s *SQLStore) Wipe(ctx context.Context) error {
	return s.locked("wipe", func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return storeErr("wipe", ErrConnection, err)
		}
		defer func() {
			_ = tx.Rollback()
		}()
		for _, stmt := range []string{`DELETE FROM messages`, `DELETE FROM chats`} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return execErr("wipe", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return execErr("wipe", err)
		}
		return nil
	})
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLStore) locked(op string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storeErr(op, ErrConnection, errClosed)
	}
	return fn()
}

func (s *SQLStore) exists(ctx context.Context, op, query string, id int64) (bool, error) {
	var exists bool
	err := s.locked(op, func() error {
		row := s.db.QueryRowxContext(ctx, s.db.Rebind(query), id)
		if err := row.Err(); err != nil {
			return execErr(op, err)
		}
		if err := row.Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storeErr(op, ErrEmptyResult, nil)
			}
			return storeErr(op, ErrEntityConstruction, err)
		}
		return nil
	})
	return exists, err
}
