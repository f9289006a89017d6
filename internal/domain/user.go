package domain

import "time"

type User struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	TelegramUserID   *int64    `json:"telegram_user_id,omitempty"`
	TelegramUsername string    `json:"telegram_username,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Balance summarises a user's funds.
//
// Total is the offers balance plus the ledger sum; Hold is what accepted inner
// deals still owe; Available is what new inner deals may spend.
type Balance struct {
	UserID        int64 `json:"user_id"`
	OffersBalance int64 `json:"offers_balance"`
	Incoming      int64 `json:"incoming"`
	Outgoing      int64 `json:"outgoing"`
	Hold          int64 `json:"hold"`
	Total         int64 `json:"total"`
	Available     int64 `json:"available"`
}

func NewBalance(userID, offers, incoming, outgoing, hold int64) Balance {
	total := offers + incoming - outgoing
	return Balance{
		UserID:        userID,
		OffersBalance: offers,
		Incoming:      incoming,
		Outgoing:      outgoing,
		Hold:          hold,
		Total:         total,
		Available:     total - hold,
	}
}
