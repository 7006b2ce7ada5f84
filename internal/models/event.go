package models

// EventType names a domain event.
type EventType string

const (
	EventChatCreated      EventType = "chat_created"
	EventMessageReceived  EventType = "message_received"
	EventMessageSent      EventType = "message_sent"
	EventChatAliasUpdated EventType = "chat_alias_updated"
	EventChatVerified     EventType = "chat_verified"
)

// ChatEvent is fanned out to UI clients and event sinks.
type ChatEvent struct {
	Type       EventType `json:"type"`
	Chat       *Chat     `json:"chat,omitempty"`
	Message    *Message  `json:"message,omitempty"`
	OccurredAt int64     `json:"occurred_at"`
}

// ChatID returns the chat the event belongs to.
func (e ChatEvent) ChatID() int64 {
	if e.Chat != nil {
		return e.Chat.ChatID
	}
	if e.Message != nil {
		return e.Message.ChatID
	}
	return 0
}
