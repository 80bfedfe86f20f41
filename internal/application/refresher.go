// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// TokenRefresher keeps the session's access token fresh by checking its
// expiry on a fixed interval and refreshing ahead of time.
type TokenRefresher struct {
	session  *Session
	interval time.Duration
	leeway   time.Duration
}

// NewTokenRefresher creates a TokenRefresher that checks every interval and
// refreshes tokens expiring within leeway.
func NewTokenRefresher(session *Session, interval, leeway time.Duration) *TokenRefresher {
	return &TokenRefresher{
		session:  session,
		interval: interval,
		leeway:   leeway,
	}
}

// Start runs the refresh loop until ctx is canceled. It checks once
// immediately, then on every tick. Failures are logged and retried on the
// next tick.
func (r *TokenRefresher) Start(ctx context.Context) {
	r.check(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("token refresher stopped")
			return
		case <-ticker.C:
			r.check(ctx)
		}
	}
}

func (r *TokenRefresher) check(ctx context.Context) {
	err := r.session.EnsureFresh(ctx, r.leeway)
	if err == nil || errors.Is(err, ErrNotLoggedIn) {
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	slog.Warn("background token refresh failed", "error", err)
}
