package store

import (
	"context"
	"fmt"

	"github.com/punchamoorthee/marketdeals/internal/domain"
)

// Offers count towards a balance unless they are disabled or out of stock.
// A stock-keeping offer is worth price times its remaining quantity, any other
// offer its price; the CASE mirrors domain.Offer.Tracked.
const balanceQuery = `SELECT
	(SELECT COALESCE(SUM(CASE WHEN measure = 'none' OR quantity IS NULL THEN price ELSE price * quantity END), 0)
		FROM offers WHERE user_id = $1 AND is_enabled AND status <> 'not-available'),
	(SELECT COALESCE(SUM(sum), 0) FROM transactions WHERE to_user_id = $1),
	(SELECT COALESCE(SUM(sum), 0) FROM transactions WHERE from_user_id = $1),
	(SELECT COALESCE(SUM(amount_cost), 0) FROM deals WHERE buyer_id = $1 AND type = 'inner' AND status = 'accepted')`

func (s *Store) Balance(ctx context.Context, userID int64) (domain.Balance, error) {
	return LoadBalance(ctx, s.Db, userID)
}

func LoadBalance(ctx context.Context, q Querier, userID int64) (domain.Balance, error) {
	var offers, incoming, outgoing, hold int64
	if err := q.QueryRow(ctx, balanceQuery, userID).Scan(&offers, &incoming, &outgoing, &hold); err != nil {
		return domain.Balance{}, fmt.Errorf("load balance: %w", err)
	}
	return domain.NewBalance(userID, offers, incoming, outgoing, hold), nil
}

// InsertTransaction records the transfer and both of its ledger legs.
func InsertTransaction(ctx context.Context, q Querier, t *domain.Transaction) error {
	err := q.QueryRow(ctx,
		`INSERT INTO transactions (deal_id, from_user_id, to_user_id, sum, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		t.DealID, t.FromUserID, t.ToUserID, t.Sum, t.Comment, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("transaction insert failed: %w", err)
	}

	// Batch insert ledger entries (Debit and Credit)
	entries := t.Entries()
	_, err = q.Exec(ctx,
		"INSERT INTO ledger_entries (transaction_id, user_id, delta) VALUES ($1, $2, $3), ($1, $4, $5)",
		t.ID, entries[0].UserID, entries[0].Delta, entries[1].UserID, entries[1].Delta,
	)
	if err != nil {
		return fmt.Errorf("ledger entry failed: %w", err)
	}
	return nil
}

// GetEntries retrieves ledger entries for a specific user, newest first.
func (s *Store) GetEntries(ctx context.Context, userID int64) ([]domain.LedgerEntry, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.Db.Query(ctx,
		"SELECT transaction_id, user_id, delta FROM ledger_entries WHERE user_id = $1 ORDER BY created_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.LedgerEntry{}
	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(&entry.TransactionID, &entry.UserID, &entry.Delta); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
