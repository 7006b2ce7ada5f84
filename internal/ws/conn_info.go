package ws

import "time"

type ConnInfo struct {
	ConnID      string
	ChatID      int64
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
