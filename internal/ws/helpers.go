package ws

import (
	"strconv"

	"github.com/google/uuid"
)

func newConnID() string {
	return uuid.NewString()
}

// parseChatFilter reads the optional chat_id filter; empty means every chat.
func parseChatFilter(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
