package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/punchamoorthee/marketdeals/internal/domain"
)

const offerColumns = `id, user_id, title, COALESCE(short_description, ''), COALESCE(description, ''),
	price, measure, quantity, quantity_reserved, status, is_enabled, created_at, updated_at`

func scanOffer(row pgx.Row) (*domain.Offer, error) {
	var o domain.Offer
	err := row.Scan(&o.ID, &o.UserID, &o.Title, &o.ShortDescription, &o.Description,
		&o.Price, &o.Measure, &o.Quantity, &o.QuantityReserved, &o.Status, &o.Enabled,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOfferNotFound
		}
		return nil, err
	}
	return &o, nil
}

// CreateOffer normalizes, validates and inserts the offer.
func (s *Store) CreateOffer(ctx context.Context, o *domain.Offer) error {
	o.Normalize()
	if err := o.Validate(); err != nil {
		return err
	}
	_, err := s.Db.Exec(ctx,
		`INSERT INTO offers (id, user_id, title, short_description, description, price, measure,
			quantity, quantity_reserved, status, is_enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.UserID, o.Title, o.ShortDescription, o.Description, o.Price, o.Measure,
		o.Quantity, o.QuantityReserved, o.Status, o.Enabled, o.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateTitle
		}
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

// GetOffer retrieves a single offer by ID.
func (s *Store) GetOffer(ctx context.Context, id uuid.UUID) (*domain.Offer, error) {
	return GetOffer(ctx, s.Db, id, false)
}

// GetOffer reads an offer through q. With forUpdate the row stays locked
// until q's transaction ends.
func GetOffer(ctx context.Context, q Querier, id uuid.UUID, forUpdate bool) (*domain.Offer, error) {
	sql := "SELECT " + offerColumns + " FROM offers WHERE id = $1"
	if forUpdate {
		sql += " FOR UPDATE"
	}
	return scanOffer(q.QueryRow(ctx, sql, id))
}

// SaveOfferStock writes back the fields a deal transition may change.
func SaveOfferStock(ctx context.Context, q Querier, o *domain.Offer) error {
	_, err := q.Exec(ctx,
		"UPDATE offers SET quantity = $1, quantity_reserved = $2, status = $3, updated_at = $4 WHERE id = $5",
		o.Quantity, o.QuantityReserved, o.Status, o.UpdatedAt, o.ID)
	if err != nil {
		return fmt.Errorf("update offer stock: %w", err)
	}
	return nil
}

func (s *Store) CountOffers(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.Db.QueryRow(ctx, "SELECT COUNT(*) FROM offers WHERE user_id = $1", userID).Scan(&n)
	return n, err
}

func (s *Store) CountAvailableOffers(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.Db.QueryRow(ctx,
		"SELECT COUNT(*) FROM offers WHERE user_id = $1 AND is_enabled AND status IN ('available', 'on-demand')",
		userID).Scan(&n)
	return n, err
}
