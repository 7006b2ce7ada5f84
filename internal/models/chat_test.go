package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterparty(t *testing.T) {
	chat := Chat{FromAddress: "A", ToAddress: "B"}

	assert.Equal(t, "A", chat.Counterparty("B"))
	assert.Equal(t, "B", chat.Counterparty("A"))
}

func TestChatEventChatID(t *testing.T) {
	assert.Equal(t, int64(3), ChatEvent{Chat: &Chat{ChatID: 3}}.ChatID())
	assert.Equal(t, int64(4), ChatEvent{Message: &Message{ChatID: 4}}.ChatID())
	assert.Zero(t, ChatEvent{}.ChatID())
}
