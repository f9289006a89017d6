// Package cache keeps short-lived Telegram account link codes in Redis.
package cache

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "connect_telegram_account_code"

var ErrCodeNotFound = errors.New("link code not found or expired")

// LinkCodes maps numeric codes shown on the site to the user that requested them.
type LinkCodes struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewLinkCodes(rdb *redis.Client, ttl time.Duration) *LinkCodes {
	return &LinkCodes{rdb: rdb, ttl: ttl}
}

func key(code string) string {
	return keyPrefix + code
}

// Issue stores a fresh six digit code for the user.
func (c *LinkCodes) Issue(ctx context.Context, userID int64) (string, error) {
	for i := 0; i < 5; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(900000))
		if err != nil {
			return "", err
		}
		code := strconv.FormatInt(n.Int64()+100000, 10)

		ok, err := c.rdb.SetNX(ctx, key(code), userID, c.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("store link code: %w", err)
		}
		if ok {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a unique link code")
}

// Lookup returns the user the code was issued to.
func (c *LinkCodes) Lookup(ctx context.Context, code string) (int64, error) {
	v, err := c.rdb.Get(ctx, key(code)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCodeNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read link code: %w", err)
	}
	return v, nil
}

func (c *LinkCodes) Delete(ctx context.Context, code string) error {
	return c.rdb.Del(ctx, key(code)).Err()
}
