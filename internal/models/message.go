package models

// Message represents a chat message, sent or received.
type Message struct {
	ID        int64  `db:"id" json:"id"`
	ChatID    int64  `db:"chat_id" json:"chat_id"`
	Timestamp int64  `db:"sent_at" json:"timestamp"`
	Text      string `db:"text" json:"text"`
	IsSent    bool   `db:"is_sent" json:"is_sent"`
}
