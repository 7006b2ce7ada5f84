package memo

// MessageType selects the payload layout.
type MessageType byte

const (
	TypeInitialisation MessageType = 1
	TypeText           MessageType = 2
)

// ChatMessage is the wire-level payload carried in a memo.
type ChatMessage struct {
	ChatID    int64
	Timestamp int64
	MessageID int64
	Content   Content
}

// Content is either Initialisation or Text.
type Content interface {
	messageType() MessageType
}

// Initialisation opens a chat between two addresses.
type Initialisation struct {
	FromAddress      string
	ToAddress        string
	VerificationText string
}

func (Initialisation) messageType() MessageType { return TypeInitialisation }

// Text is an ordinary chat message body.
type Text struct {
	Body string
}

func (Text) messageType() MessageType { return TypeText }
