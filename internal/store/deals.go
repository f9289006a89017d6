package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/punchamoorthee/marketdeals/internal/domain"
)

const dealColumns = `id, offer_id, buyer_id, seller_id, quantity, cost, actual_cost, amount_cost,
	status, type, COALESCE(comment, ''), created_at, updated_at, viewed_at`

func scanDeal(row pgx.Row) (*domain.Deal, error) {
	var d domain.Deal
	err := row.Scan(&d.ID, &d.OfferID, &d.BuyerID, &d.SellerID, &d.Quantity, &d.Cost,
		&d.ActualCost, &d.AmountCost, &d.Status, &d.Type, &d.Comment,
		&d.CreatedAt, &d.UpdatedAt, &d.ViewedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDealNotFound
		}
		return nil, err
	}
	return &d, nil
}

// GetDeal retrieves a single deal by ID.
func (s *Store) GetDeal(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	return GetDeal(ctx, s.Db, id, false)
}

func GetDeal(ctx context.Context, q Querier, id uuid.UUID, forUpdate bool) (*domain.Deal, error) {
	sql := "SELECT " + dealColumns + " FROM deals WHERE id = $1"
	if forUpdate {
		sql += " FOR UPDATE"
	}
	return scanDeal(q.QueryRow(ctx, sql, id))
}

// FindNewDeal returns the buyer's still-new deal on the offer, if any.
func FindNewDeal(ctx context.Context, q Querier, buyerID int64, offerID uuid.UUID) (*domain.Deal, error) {
	d, err := scanDeal(q.QueryRow(ctx,
		"SELECT "+dealColumns+" FROM deals WHERE buyer_id = $1 AND offer_id = $2 AND status = $3 FOR UPDATE",
		buyerID, offerID, domain.DealNew))
	if errors.Is(err, domain.ErrDealNotFound) {
		return nil, nil
	}
	return d, err
}

func InsertDeal(ctx context.Context, q Querier, d *domain.Deal) error {
	_, err := q.Exec(ctx,
		`INSERT INTO deals (id, offer_id, buyer_id, seller_id, quantity, cost, actual_cost, amount_cost,
			status, type, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, d.OfferID, d.BuyerID, d.SellerID, d.Quantity, d.Cost, d.ActualCost, d.AmountCost,
		d.Status, d.Type, d.Comment, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert deal: %w", err)
	}
	return nil
}

func UpdateDeal(ctx context.Context, q Querier, d *domain.Deal) error {
	_, err := q.Exec(ctx,
		`UPDATE deals SET quantity = $1, cost = $2, actual_cost = $3, amount_cost = $4, status = $5,
			type = $6, comment = $7, updated_at = $8, viewed_at = $9
		WHERE id = $10`,
		d.Quantity, d.Cost, d.ActualCost, d.AmountCost, d.Status, d.Type, d.Comment,
		d.UpdatedAt, d.ViewedAt, d.ID)
	if err != nil {
		return fmt.Errorf("update deal: %w", err)
	}
	return nil
}

// DealFilter narrows ListDeals to one tab of a user's deals.
type DealFilter struct {
	UserID int64
	Tab    domain.DealTab
	Limit  int
	Offset int
}

func statusList(statuses []domain.DealStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (f DealFilter) where() (string, []any) {
	participant := "(buyer_id = $1 OR seller_id = $1)"
	args := []any{f.UserID}
	switch f.Tab {
	case domain.TabNew:
		args = append(args, []string{string(domain.DealNew)})
		return "seller_id = $1 AND status = ANY($2)", args
	case domain.TabActive:
		args = append(args, statusList(domain.ActiveStatuses))
		return participant + " AND status = ANY($2)", args
	case domain.TabIncoming:
		args = append(args, statusList(domain.ActiveStatuses))
		return "seller_id = $1 AND status = ANY($2)", args
	case domain.TabOutgoing:
		args = append(args, statusList(domain.ActiveStatuses))
		return "buyer_id = $1 AND status = ANY($2)", args
	case domain.TabComplete:
		args = append(args, statusList(domain.CompleteStatuses))
		return participant + " AND status = ANY($2)", args
	case domain.TabCanceled:
		args = append(args, statusList(domain.CanceledStatuses))
		return participant + " AND status = ANY($2)", args
	}
	return participant, args
}

// ListDeals returns one page of the user's deals, newest first.
func (s *Store) ListDeals(ctx context.Context, f DealFilter) ([]domain.Deal, error) {
	where, args := f.where()
	var b strings.Builder
	b.WriteString("SELECT " + dealColumns + " FROM deals WHERE " + where + " ORDER BY created_at DESC")
	args = append(args, f.Limit, f.Offset)
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.Db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()

	deals := []domain.Deal{}
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		deals = append(deals, *d)
	}
	return deals, rows.Err()
}

// CountDeals counts the deals matching the filter, ignoring paging.
func (s *Store) CountDeals(ctx context.Context, f DealFilter) (int, error) {
	where, args := f.where()
	var n int
	err := s.Db.QueryRow(ctx, "SELECT COUNT(*) FROM deals WHERE "+where, args...).Scan(&n)
	return n, err
}

// CountDealsForOffer counts all deals on the offer, or only open ones when active is set.
func (s *Store) CountDealsForOffer(ctx context.Context, offerID uuid.UUID, active bool) (int, error) {
	sql := "SELECT COUNT(*) FROM deals WHERE offer_id = $1"
	args := []any{offerID}
	if active {
		sql += " AND status = ANY($2)"
		args = append(args, statusList(domain.ActiveStatuses))
	}
	var n int
	err := s.Db.QueryRow(ctx, sql, args...).Scan(&n)
	return n, err
}
