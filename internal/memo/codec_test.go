package memo

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memochat/internal/ids"
)

func textMessage(body string) ChatMessage {
	return ChatMessage{
		ChatID:    ids.Compose(900, 0xabcdef),
		Timestamp: 1000,
		MessageID: ids.Compose(1000, 7),
		Content:   Text{Body: body},
	}
}

func TestEncodeDecodeInitialisationScenario(t *testing.T) {
	msg := ChatMessage{
		ChatID:    42,
		Timestamp: 1000,
		MessageID: ids.Compose(1000, 1),
		Content:   Initialisation{FromAddress: "addrA", ToAddress: "addrB", VerificationText: "123456"},
	}

	data, err := Encode(msg)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, int64(42), decoded.ChatID)
	assert.Equal(t, Initialisation{FromAddress: "addrA", ToAddress: "addrB", VerificationText: "123456"}, decoded.Content)
	assert.Equal(t, msg, decoded)
}

func TestEncodeLayout(t *testing.T) {
	msg := ChatMessage{
		ChatID:    0x0102030405060708,
		Timestamp: 0x0a0b0c0d0e,
		MessageID: ids.Compose(0x0a0b0c0d0e, 0x112233),
		Content:   Text{Body: "hi"},
	}
	data, err := Encode(msg)
	require.NoError(t, err)

	expected := []byte{
		0xF5, 'z', 'c', 'h', 0x01,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		0x0e, 0x0d, 0x0c, 0x0b, 0x0a,
		0x33, 0x22, 0x11,
		0x02,
		'h', 'i',
	}
	assert.Equal(t, expected, data)
	assert.Len(t, data, HeaderSize+2)
}

func TestRoundTripValues(t *testing.T) {
	cases := []ChatMessage{
		textMessage(""),
		textMessage("hello"),
		textMessage("ünïcødé ✓"),
		textMessage(strings.Repeat("x", MaxPayloadSize)),
		{ChatID: -1, Timestamp: 1<<40 - 1, MessageID: ids.Compose(1<<40-1, 1<<24-1), Content: Text{Body: "max"}},
		{ChatID: 0, Timestamp: 0, MessageID: 0, Content: Initialisation{FromAddress: "", ToAddress: "", VerificationText: ""}},
	}
	for _, msg := range cases {
		data, err := Encode(msg)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(data), MaxSize)

		decoded, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, msg, decoded)
	}
}

func TestEncodeRejectsOversizedText(t *testing.T) {
	data, err := Encode(textMessage(strings.Repeat("x", MaxPayloadSize+1)))
	require.ErrorIs(t, err, ErrMessageTooLong)
	assert.Nil(t, data)
}

func TestEncodeRejectsOutOfRangeFields(t *testing.T) {
	msg := textMessage("hi")
	msg.Timestamp = 1 << 40
	msg.MessageID = ids.Compose(msg.Timestamp, 0)
	_, err := Encode(msg)
	require.ErrorIs(t, err, ErrFieldOutOfRange)

	msg = textMessage("hi")
	msg.MessageID = ids.Compose(msg.Timestamp+1, 0)
	_, err = Encode(msg)
	require.ErrorIs(t, err, ErrFieldOutOfRange)
}

func TestEncodeRejectsSeparatorInInitialisation(t *testing.T) {
	msg := textMessage("")
	msg.Content = Initialisation{FromAddress: "a", ToAddress: "b", VerificationText: "12:34"}
	_, err := Encode(msg)
	require.ErrorIs(t, err, ErrInvalidInitContent)
}

func TestEncodeRejectsNilContent(t *testing.T) {
	msg := textMessage("")
	msg.Content = nil
	_, err := Encode(msg)
	require.ErrorIs(t, err, ErrUnknownMessageType)
}

func TestEncodeRejectsInvalidUTF8(t *testing.T) {
	for _, msg := range []ChatMessage{
		textMessage("ok \xff\xfe"),
		{ChatID: 1, MessageID: 1 << 24, Timestamp: 1, Content: Initialisation{FromAddress: "a\xc3", ToAddress: "b", VerificationText: "1"}},
	} {
		data, err := Encode(msg)
		require.ErrorIs(t, err, ErrInvalidUTF8)
		assert.ErrorIs(t, err, ErrInvalidMessage)
		assert.Nil(t, data)
	}
}

func TestDecodeInvalidMarker(t *testing.T) {
	data, err := Encode(textMessage("hi"))
	require.NoError(t, err)
	data[0] = 0xF6

	_, err = Decode(data)
	require.ErrorIs(t, err, ErrInvalidMarker)
	assert.True(t, IsNotChatMessage(err))
}

func TestDecodeInvalidPrefix(t *testing.T) {
	data, err := Encode(textMessage("hi"))
	require.NoError(t, err)
	data[2] = 'X'

	_, err = Decode(data)
	require.ErrorIs(t, err, ErrInvalidPrefix)
}

func TestDecodeUnknownVersionStopsAtVersionByte(t *testing.T) {
	for _, version := range []byte{0, 2, 0xff} {
		data := []byte{Marker, 'z', 'c', 'h', version}
		_, err := Decode(data)
		require.ErrorIs(t, err, ErrUnknownVersion)
		assert.False(t, errors.Is(err, ErrInvalidMessage))

		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.Equal(t, 5, decodeErr.Offset)
	}
}

func TestDecodeEveryTruncationFailsWithBoundsError(t *testing.T) {
	data, err := Encode(textMessage("hello"))
	require.NoError(t, err)

	for n := 0; n < HeaderSize; n++ {
		_, err := Decode(data[:n])
		require.Error(t, err, "length %d", n)
		assert.ErrorIs(t, err, ErrOutOfBounds, "length %d", n)
	}
	for n := 5; n < HeaderSize; n++ {
		_, err := Decode(data[:n])
		assert.ErrorIs(t, err, ErrInvalidMessage, "length %d", n)
	}
}

func TestDecodeUnknownMessageType(t *testing.T) {
	data, err := Encode(textMessage("hi"))
	require.NoError(t, err)
	data[HeaderSize-1] = 9

	_, err = Decode(data)
	require.ErrorIs(t, err, ErrUnknownMessageType)
}

func TestDecodeInvalidInitContent(t *testing.T) {
	for _, payload := range []string{"a:b", "a:b:c:d", "abc"} {
		data, err := Encode(textMessage(payload))
		require.NoError(t, err)
		data[HeaderSize-1] = byte(TypeInitialisation)

		_, err = Decode(data)
		require.ErrorIs(t, err, ErrInvalidInitContent, payload)
	}
}

func TestDecodeRejectsInvalidUTF8(t *testing.T) {
	data, err := Encode(textMessage("hi"))
	require.NoError(t, err)
	data = append(data, 0xff, 0xfe)

	_, err = Decode(data)
	require.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestDecodeUnrelatedMemo(t *testing.T) {
	_, err := Decode([]byte("thanks for lunch"))
	require.Error(t, err)
	assert.True(t, IsNotChatMessage(err))
}
