package service

import (
	"context"
	"fmt"
	"time"

	"github.com/relooptech/reloop/internal/auth/domain"
	"github.com/relooptech/reloop/internal/auth/store"
)

const (
	// DefaultLockoutThreshold is the number of consecutive failed
	// second-factor attempts before the account locks.
	DefaultLockoutThreshold = 5

	// DefaultLockoutDuration is how long the lock holds. Expiry is lazy;
	// nothing clears locked_until until the next successful check.
	DefaultLockoutDuration = 30 * time.Minute
)

// LockoutGuard tracks failed verification attempts and enforces the
// temporary lock. Counting uses the store's atomic increment so
// concurrent failures never undercount.
type LockoutGuard struct {
	Store     store.Store
	Notifier  Notifier
	Threshold int
	Duration  time.Duration
}

func NewLockoutGuard(st store.Store, notifier Notifier, threshold int, duration time.Duration) *LockoutGuard {
	if threshold <= 0 {
		threshold = DefaultLockoutThreshold
	}
	if duration <= 0 {
		duration = DefaultLockoutDuration
	}
	return &LockoutGuard{Store: st, Notifier: notifier, Threshold: threshold, Duration: duration}
}

// IsLocked reports whether the account's lockout window is still open.
func (g *LockoutGuard) IsLocked(account domain.Account, now time.Time) bool {
	return account.IsLocked(now)
}

// RecordFailure bumps the failed-attempt counter and, when it reaches
// the threshold, opens a lockout window and fires a best-effort
// notification. Returns the new count.
func (g *LockoutGuard) RecordFailure(ctx context.Context, accountID string) (int, error) {
	attempts, err := g.Store.Accounts().IncrementFailedAttempts(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to record failed attempt: %w", err)
	}

	if attempts >= g.Threshold {
		until := time.Now().UTC().Add(g.Duration)
		if err := g.Store.Accounts().SetLockedUntil(ctx, accountID, until); err != nil {
			return attempts, fmt.Errorf("failed to set lockout: %w", err)
		}

		if g.Notifier != nil {
			go g.Notifier.Notify(context.WithoutCancel(ctx), accountID, EventAccountLocked, map[string]any{
				"locked_until": until,
				"attempts":     attempts,
			})
		}
	}

	return attempts, nil
}

// RecordSuccess clears the counter and any lock, and stamps the last
// login time.
func (g *LockoutGuard) RecordSuccess(ctx context.Context, accountID string) error {
	if err := g.Store.Accounts().ClearLockout(ctx, accountID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to clear lockout state: %w", err)
	}
	return nil
}
