// Package memo implements the chat protocol carried in transaction memos.
//
// Version 1 layout:
//
//	marker(1) prefix(3) version(1) chatId(8) timestamp(5) messageIdLow(3) type(1) payload(...)
//
// Integers are unsigned, least significant byte first. Version 1 must never
// change; new layouts get new version numbers.
package memo

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"memochat/internal/ids"
)

const (
	// Marker is the leading byte of every chat-protocol memo.
	Marker byte = 0xF5
	// Prefix tags the memo as belonging to this protocol.
	Prefix = "zch"
	// Version1 is the only layout defined so far.
	Version1 byte = 1
	// MaxSize is the memo field capacity.
	MaxSize = 512

	chatIDSize    = 8
	timestampSize = 5
	messageIDSize = 3
	initSeparator = ":"

	// HeaderSize counts every byte before the payload.
	HeaderSize = 1 + len(Prefix) + 1 + chatIDSize + timestampSize + messageIDSize + 1
	// MaxPayloadSize is what remains for the payload.
	MaxPayloadSize = MaxSize - HeaderSize
)

// Encode serializes msg using the current version.
func Encode(msg ChatMessage) ([]byte, error) {
	if !ids.FitsTimestamp(msg.Timestamp) {
		return nil, fmt.Errorf("%w: timestamp %d exceeds %d bits", ErrFieldOutOfRange, msg.Timestamp, ids.TimestampBits)
	}
	if ts, _ := ids.Split(msg.MessageID); ts != msg.Timestamp {
		return nil, fmt.Errorf("%w: message id %d does not carry timestamp %d", ErrFieldOutOfRange, msg.MessageID, msg.Timestamp)
	}

	var (
		payload string
		kind    MessageType
	)
	switch c := msg.Content.(type) {
	case Initialisation:
		for _, part := range []string{c.FromAddress, c.ToAddress, c.VerificationText} {
			if strings.Contains(part, initSeparator) {
				return nil, fmt.Errorf("%w: field %q contains separator", ErrInvalidInitContent, part)
			}
		}
		payload = strings.Join([]string{c.FromAddress, c.ToAddress, c.VerificationText}, initSeparator)
		kind = TypeInitialisation
	case Text:
		payload = c.Body
		kind = TypeText
	default:
		return nil, fmt.Errorf("%w: unsupported content %T", ErrUnknownMessageType, msg.Content)
	}

	if !utf8.ValidString(payload) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, ErrInvalidUTF8)
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrMessageTooLong, HeaderSize+len(payload), MaxSize)
	}

	buf := make([]byte, 0, HeaderSize+len(payload))
	buf = append(buf, Marker)
	buf = append(buf, Prefix...)
	buf = append(buf, Version1)
	buf = putUint(buf, uint64(msg.ChatID), chatIDSize)
	buf = putUint(buf, uint64(msg.Timestamp), timestampSize)
	_, low := ids.Split(msg.MessageID)
	buf = putUint(buf, uint64(low), messageIDSize)
	buf = append(buf, byte(kind))
	buf = append(buf, payload...)
	return buf, nil
}

// Decode parses a memo. Any malformed input yields an error, never a panic.
func Decode(data []byte) (ChatMessage, error) {
	r := reader{buf: data}

	marker, err := r.byte()
	if err != nil {
		return ChatMessage{}, r.fail(ErrInvalidMarker, err)
	}
	if marker != Marker {
		return ChatMessage{}, r.fail(ErrInvalidMarker, fmt.Errorf("got 0x%02x", marker))
	}

	prefix, err := r.bytes(len(Prefix))
	if err != nil {
		return ChatMessage{}, r.fail(ErrInvalidPrefix, err)
	}
	if string(prefix) != Prefix {
		return ChatMessage{}, r.fail(ErrInvalidPrefix, fmt.Errorf("got %q", prefix))
	}

	version, err := r.byte()
	if err != nil {
		return ChatMessage{}, r.fail(ErrInvalidMessage, err)
	}
	switch version {
	case Version1:
		return decodeV1(&r)
	default:
		return ChatMessage{}, r.fail(ErrUnknownVersion, fmt.Errorf("version %d", version))
	}
}

func decodeV1(r *reader) (ChatMessage, error) {
	chatID, err := r.uint(chatIDSize)
	if err != nil {
		return ChatMessage{}, r.fail(ErrInvalidMessage, err)
	}
	ts, err := r.uint(timestampSize)
	if err != nil {
		return ChatMessage{}, r.fail(ErrInvalidMessage, err)
	}
	low, err := r.uint(messageIDSize)
	if err != nil {
		return ChatMessage{}, r.fail(ErrInvalidMessage, err)
	}
	kind, err := r.byte()
	if err != nil {
		return ChatMessage{}, r.fail(ErrInvalidMessage, err)
	}

	payload := r.rest()
	if !utf8.Valid(payload) {
		return ChatMessage{}, r.fail(ErrInvalidMessage, ErrInvalidUTF8)
	}

	msg := ChatMessage{
		ChatID:    int64(chatID),
		Timestamp: int64(ts),
		MessageID: ids.Compose(int64(ts), int64(low)),
	}

	switch MessageType(kind) {
	case TypeInitialisation:
		parts := strings.Split(string(payload), initSeparator)
		if len(parts) != 3 {
			return ChatMessage{}, r.fail(ErrInvalidInitContent, fmt.Errorf("%d parts", len(parts)))
		}
		msg.Content = Initialisation{FromAddress: parts[0], ToAddress: parts[1], VerificationText: parts[2]}
	case TypeText:
		msg.Content = Text{Body: string(payload)}
	default:
		return ChatMessage{}, r.fail(ErrUnknownMessageType, fmt.Errorf("type %d", kind))
	}
	return msg, nil
}

func putUint(buf []byte, v uint64, size int) []byte {
	for i := 0; i < size; i++ {
		buf = append(buf, byte(v&0xff))
		v >>= 8
	}
	return buf
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || len(r.buf)-r.pos < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrOutOfBounds, n, len(r.buf)-r.pos)
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint(size int) (uint64, error) {
	b, err := r.bytes(size)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := size - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

func (r *reader) rest() []byte {
	out := r.buf[r.pos:]
	r.pos = len(r.buf)
	return out
}

func (r *reader) fail(kind, cause error) error {
	return &DecodeError{Offset: r.pos, Err: fmt.Errorf("%w: %w", kind, cause)}
}
