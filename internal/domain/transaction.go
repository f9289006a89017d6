package domain

import (
	"time"

	"github.com/google/uuid"
)

const DealSettlementComment = "Успешное завершение сделки"

// Transaction records an internal fund transfer between two users.
type Transaction struct {
	ID         int64     `json:"id"`
	DealID     uuid.UUID `json:"deal_id"`
	FromUserID int64     `json:"from_user_id"`
	ToUserID   int64     `json:"to_user_id"`
	Sum        int64     `json:"sum"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// LedgerEntry represents one leg of a double-entry transaction.
// The sum of Deltas for a given TransactionID must always equal 0.
type LedgerEntry struct {
	TransactionID int64 `json:"transaction_id"`
	UserID        int64 `json:"user_id"`
	Delta         int64 `json:"delta"`
}

// NewDealTransaction moves the deal amount from buyer to seller.
func NewDealTransaction(d *Deal, now time.Time) *Transaction {
	return &Transaction{
		DealID:     d.ID,
		FromUserID: d.BuyerID,
		ToUserID:   d.SellerID,
		Sum:        d.AmountCost,
		Comment:    DealSettlementComment,
		CreatedAt:  now,
	}
}

// Entries returns the debit and credit legs of the transaction.
func (t *Transaction) Entries() []LedgerEntry {
	return []LedgerEntry{
		{TransactionID: t.ID, UserID: t.FromUserID, Delta: -t.Sum},
		{TransactionID: t.ID, UserID: t.ToUserID, Delta: t.Sum},
	}
}
