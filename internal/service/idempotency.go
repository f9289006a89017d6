package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/punchamoorthee/marketdeals/internal/models"
	"github.com/punchamoorthee/marketdeals/internal/store"
)

var (
	ErrIdempotencyConflict = errors.New("request in progress")
	ErrIdempotencyMismatch = errors.New("key reuse with mismatched payload")
	ErrInvalidRequest      = errors.New("invalid request")
)

// claimKey returns the stored record when the key was already used for the
// same request, or reserves the key for this transaction. An empty key
// disables the check.
func claimKey(ctx context.Context, tx pgx.Tx, key, reqHash string) (*models.IdempotencyRecord, error) {
	if key == "" {
		return nil, nil
	}

	var storedStatus *int
	var storedBody json.RawMessage
	var storedHash string
	err := tx.QueryRow(ctx,
		"SELECT response_status, response_body, request_hash FROM idempotency_keys WHERE key = $1",
		key,
	).Scan(&storedStatus, &storedBody, &storedHash)

	switch {
	case err == nil:
		if storedHash != reqHash {
			return nil, ErrIdempotencyMismatch
		}
		if storedStatus == nil {
			return nil, ErrIdempotencyConflict
		}
		return &models.IdempotencyRecord{
			Key:            key,
			RequestHash:    storedHash,
			Status:         "completed",
			ResponseBody:   storedBody,
			ResponseStatus: *storedStatus,
		}, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("idempotency query failed: %w", err)
	}

	_, err = tx.Exec(ctx,
		"INSERT INTO idempotency_keys (key, request_hash, status) VALUES ($1, $2, 'in_progress')",
		key, reqHash,
	)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, ErrIdempotencyConflict
		}
		return nil, fmt.Errorf("key reservation failed: %w", err)
	}
	return nil, nil
}

// completeKey stores the response so replays of the key return it verbatim.
func completeKey(ctx context.Context, tx pgx.Tx, key string, dealID uuid.UUID, status int, resp any) error {
	if key == "" {
		return nil
	}
	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		"UPDATE idempotency_keys SET status = 'completed', deal_id = $1, response_status = $2, response_body = $3 WHERE key = $4",
		dealID, status, body, key,
	)
	if err != nil {
		return fmt.Errorf("idempotency update failed: %w", err)
	}
	return nil
}
