package repositories

import (
	"context"

	"memochat/internal/models"
)

const messageColumns = `id, chat_id, sent_at, text, is_sent`

const insertMessage = `INSERT INTO messages (` + messageColumns + `)
        VALUES (:id, :chat_id, :sent_at, :text, :is_sent)`

// AllMessages returns the messages of a chat ordered by timestamp.
func (s *SQLStore) AllMessages(ctx context.Context, chatID int64) ([]models.Message, error) {
	var msgs []models.Message
	err := s.locked("all messages", func() error {
		rows, err := s.db.QueryxContext(ctx, s.db.Rebind(`SELECT `+messageColumns+` FROM messages WHERE chat_id=? ORDER BY sent_at ASC, id ASC`), chatID)
		if err != nil {
			return execErr("all messages", err)
		}
		defer rows.Close()

		msgs = make([]models.Message, 0)
		for rows.Next() {
			var msg models.Message
			if err := rows.StructScan(&msg); err != nil {
				return storeErr("all messages", ErrEntityConstruction, err)
			}
			msgs = append(msgs, msg)
		}
		if err := rows.Err(); err != nil {
			return execErr("all messages", err)
		}
		return nil
	})
	return msgs, err
}

// DoesMessageExist checks for a message id.
func (s *SQLStore) DoesMessageExist(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, "does message exist", `SELECT EXISTS(SELECT 1 FROM messages WHERE id=?)`, id)
}

// StoreMessage inserts a message. An existing id is rejected with ErrDuplicate.
func (s *SQLStore) StoreMessage(ctx context.Context, msg models.Message) error {
	return s.locked("store message", func() error {
		if _, err := s.db.NamedExecContext(ctx, insertMessage, msg); err != nil {
			return execErr("store message", err)
		}
		return nil
	})
}

// StoreMessageIfAbsent inserts a message unless its id is taken.
func (s *SQLStore) StoreMessageIfAbsent(ctx context.Context, msg models.Message) (bool, error) {
	var inserted bool
	err := s.locked("store message if absent", func() error {
		res, err := s.db.NamedExecContext(ctx, insertMessage+` ON CONFLICT (id) DO NOTHING`, msg)
		if err != nil {
			return execErr("store message if absent", err)
		}
		count, err := res.RowsAffected()
		if err != nil {
			return execErr("store message if absent", err)
		}
		inserted = count == 1
		return nil
	})
	return inserted, err
}
