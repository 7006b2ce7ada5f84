package models

// PendingRecord is a broadcast whose local record could not be stored.
type PendingRecord struct {
	TxID     string   `json:"tx_id"`
	Chat     *Chat    `json:"chat,omitempty"`
	Message  *Message `json:"message,omitempty"`
	FailedAt int64    `json:"failed_at"`
	Reason   string   `json:"reason"`
}
