package database

import (
	"context"
	"fmt"
	"time"
)

const lockKeyAccount = "hvhosting:lock:account:"

// AccountLock is a Redis-backed advisory lock keyed by hosting account id.
// It guarantees at most one in-flight scaling operation per account across
// all API instances; the TTL guards against a crashed holder wedging the
// account forever.
type AccountLock struct{}

// NewAccountLock returns a locker using the shared Redis connection.
func NewAccountLock() *AccountLock {
	return &AccountLock{}
}

// TryLock attempts to take the lock for an account. Returns false if another
// scaling operation currently holds it.
func (l *AccountLock) TryLock(ctx context.Context, accountID uint, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("%s%d", lockKeyAccount, accountID)
	ok, err := Redis.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire account lock: %w", err)
	}
	return ok, nil
}

// Unlock releases the lock for an account.
func (l *AccountLock) Unlock(ctx context.Context, accountID uint) error {
	key := fmt.Sprintf("%s%d", lockKeyAccount, accountID)
	return Redis.Del(ctx, key).Err()
}
