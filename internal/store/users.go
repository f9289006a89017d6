package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/punchamoorthee/marketdeals/internal/domain"
)

const userColumns = "id, username, telegram_user_id, COALESCE(telegram_username, ''), created_at"

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.TelegramUserID, &u.TelegramUsername, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser creates a new user with no linked Telegram account.
func (s *Store) CreateUser(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(s.Db.QueryRow(ctx,
		"INSERT INTO users (username) VALUES ($1) RETURNING "+userColumns, username))
}

func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(s.Db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

func (s *Store) UserByTelegram(ctx context.Context, telegramID int64) (*domain.User, error) {
	return scanUser(s.Db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE telegram_user_id = $1", telegramID))
}

// LinkTelegram attaches a Telegram chat to the user. A chat linked to another
// user yields ErrTelegramTaken.
func (s *Store) LinkTelegram(ctx context.Context, userID, telegramID int64, username string) error {
	tag, err := s.Db.Exec(ctx,
		"UPDATE users SET telegram_user_id = $1, telegram_username = $2 WHERE id = $3",
		telegramID, username, userID)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrTelegramTaken
		}
		return fmt.Errorf("link telegram: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// LockUser claims the user's balance for q's transaction by bumping its
// version. Under REPEATABLE READ a transaction that waited on the row and
// started before the holder committed fails with a serialization error, so its
// balance check is retried against fresh data.
func LockUser(ctx context.Context, q Querier, id int64) error {
	tag, err := q.Exec(ctx, "UPDATE users SET balance_version = balance_version + 1 WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
