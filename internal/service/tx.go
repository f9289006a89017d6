package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var txRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "deals_tx_retries_total",
	Help: "Transactions retried after a serialization failure or deadlock",
}, []string{"operation"})

const retryBaseDelay = 10 * time.Millisecond

// retryable reports serialization failures and deadlocks, which are safe to
// run again from the start.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// inTx runs fn in a REPEATABLE READ transaction, retrying it from scratch on
// retryable errors. fn must not keep state between attempts.
func (s *DealService) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	for attempt := 1; ; attempt++ {
		err := s.tryTx(ctx, fn)
		if err == nil || !retryable(err) || attempt >= s.maxRetries {
			return err
		}

		txRetriesTotal.WithLabelValues(op).Inc()
		s.log.WithFields(logrus.Fields{
			"operation": op,
			"attempt":   attempt,
		}).WithError(err).Warn("retrying transaction")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBaseDelay):
		}
	}
}

func (s *DealService) tryTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}
