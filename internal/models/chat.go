package models

// Chat represents one conversation thread between two addresses.
type Chat struct {
	ChatID           int64   `db:"chat_id" json:"chat_id"`
	Alias            *string `db:"alias" json:"alias,omitempty"`
	CreatedAt        int64   `db:"created_at" json:"created_at"`
	FromAddress      string  `db:"from_address" json:"from_address"`
	ToAddress        string  `db:"to_address" json:"to_address"`
	VerificationText string  `db:"verification_text" json:"verification_text"`
	Verified         bool    `db:"verified" json:"verified"`
}

// Counterparty returns the address that is not own.
// The creator is always stored as FromAddress, so a reply from the
// recipient goes back to FromAddress.
func (c Chat) Counterparty(own string) string {
	if own == c.ToAddress {
		return c.FromAddress
	}
	return c.ToAddress
}
