package repositories

import (
	"context"
	"database/sql"
	"errors"

	"memochat/internal/models"
)

const chatColumns = `chat_id, alias, created_at, from_address, to_address, verification_text, verified`

const insertChat = `INSERT INTO chats (` + chatColumns + `)
        VALUES (:chat_id, :alias, :created_at, :from_address, :to_address, :verification_text, :verified)`

// AllChats returns every chat, oldest first.
func (s *SQLStore) AllChats(ctx context.Context) ([]models.Chat, error) {
	var chats []models.Chat
	err := s.locked("all chats", func() error {
		rows, err := s.db.QueryxContext(ctx, `SELECT `+chatColumns+` FROM chats ORDER BY created_at ASC, chat_id ASC`)
		if err != nil {
			return execErr("all chats", err)
		}
		defer rows.Close()

		chats = make([]models.Chat, 0)
		for rows.Next() {
			var chat models.Chat
			if err := rows.StructScan(&chat); err != nil {
				return storeErr("all chats", ErrEntityConstruction, err)
			}
			chats = append(chats, chat)
		}
		if err := rows.Err(); err != nil {
			return execErr("all chats", err)
		}
		return nil
	})
	return chats, err
}

// Chat fetches a chat by id.
func (s *SQLStore) Chat(ctx context.Context, chatID int64) (models.Chat, error) {
	var chat models.Chat
	err := s.locked("chat", func() error {
		var err error
		chat, err = s.chat(ctx, "chat", chatID)
		return err
	})
	return chat, err
}

func (s *SQLStore) chat(ctx context.Context, op string, chatID int64) (models.Chat, error) {
	var chat models.Chat
	row := s.db.QueryRowxContext(ctx, s.db.Rebind(`SELECT `+chatColumns+` FROM chats WHERE chat_id=?`), chatID)
	if err := row.Err(); err != nil {
		return models.Chat{}, execErr(op, err)
	}
	if err := row.StructScan(&chat); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Chat{}, storeErr(op, ErrChatNotFound, nil)
		}
		return models.Chat{}, storeErr(op, ErrEntityConstruction, err)
	}
	return chat, nil
}

// DoesChatExist checks for a chat id.
func (s *SQLStore) DoesChatExist(ctx context.Context, chatID int64) (bool, error) {
	return s.exists(ctx, "does chat exist", `SELECT EXISTS(SELECT 1 FROM chats WHERE chat_id=?)`, chatID)
}

// StoreChat inserts a chat. An existing id is rejected with ErrDuplicate.
func (s *SQLStore) StoreChat(ctx context.Context, chat models.Chat) error {
	return s.locked("store chat", func() error {
		if _, err := s.db.NamedExecContext(ctx, insertChat, chat); err != nil {
			return execErr("store chat", err)
		}
		return nil
	})
}

// StoreChatIfAbsent inserts a chat unless its id is taken, in one statement.
func (s *SQLStore) StoreChatIfAbsent(ctx context.Context, chat models.Chat) (bool, error) {
	var inserted bool
	err := s.locked("store chat if absent", func() error {
		res, err := s.db.NamedExecContext(ctx, insertChat+` ON CONFLICT (chat_id) DO NOTHING`, chat)
		if err != nil {
			return execErr("store chat if absent", err)
		}
		count, err := res.RowsAffected()
		if err != nil {
			return execErr("store chat if absent", err)
		}
		inserted = count == 1
		return nil
	})
	return inserted, err
}

// UpdateAlias sets or clears the local alias.
func (s *SQLStore) UpdateAlias(ctx context.Context, chatID int64, alias *string) (models.Chat, error) {
	return s.updateChat(ctx, "update alias", `UPDATE chats SET alias=? WHERE chat_id=?`, alias, chatID)
}

// SetVerified flips the verified flag.
func (s *SQLStore) SetVerified(ctx context.Context, chatID int64, verified bool) (models.Chat, error) {
	return s.updateChat(ctx, "set verified", `UPDATE chats SET verified=? WHERE chat_id=?`, verified, chatID)
}

func (s *SQLStore) updateChat(ctx context.Context, op, query string, value any, chatID int64) (models.Chat, error) {
	var chat models.Chat
	err := s.locked(op, func() error {
		res, err := s.db.ExecContext(ctx, s.db.Rebind(query), value, chatID)
		if err != nil {
			return execErr(op, err)
		}
		count, err := res.RowsAffected()
		if err != nil {
			return execErr(op, err)
		}
		if count == 0 {
			return storeErr(op, ErrChatNotFound, nil)
		}
		chat, err = s.chat(ctx, op, chatID)
		return err
	})
	return chat, err
}
