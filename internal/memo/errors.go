package memo

import (
	"errors"
	"fmt"
)

var (
	ErrMessageTooLong     = errors.New("memo: message too long")
	ErrFieldOutOfRange    = errors.New("memo: field out of range")
	ErrInvalidMarker      = errors.New("memo: invalid marker byte")
	ErrInvalidPrefix      = errors.New("memo: invalid protocol prefix")
	ErrUnknownVersion     = errors.New("memo: unknown version")
	ErrInvalidMessage     = errors.New("memo: invalid message")
	ErrOutOfBounds        = errors.New("memo: read out of bounds")
	ErrUnknownMessageType = errors.New("memo: unknown message type")
	ErrInvalidInitContent = errors.New("memo: invalid initialisation content")
	ErrInvalidUTF8        = errors.New("memo: payload is not valid UTF-8")
)

// DecodeError records where in the buffer decoding stopped.
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsNotChatMessage reports whether err means the bytes simply aren't ours.
func IsNotChatMessage(err error) bool {
	return errors.Is(err, ErrInvalidMarker) || errors.Is(err, ErrInvalidPrefix)
}
