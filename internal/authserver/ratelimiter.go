package authserver

import (
	"context"
	"log/slog"
	"time"

	"github.com/rvult/riftnet/internal/accounts"
)

// RateLimiter consults the login-attempt audit log for an IP's recent
// history (§3 RateLimitDecision). The retry-after it reports is the time
// until the oldest in-window attempt ages out — computed by the
// repository from the attempt timestamps themselves, not a backoff curve
// layered on top.
type RateLimiter struct {
	repo        accounts.Repository
	window      time.Duration
	maxAttempts int
}

// NewRateLimiter builds a limiter over window/maxAttempts.
func NewRateLimiter(repo accounts.Repository, window time.Duration, maxAttempts int) *RateLimiter {
	return &RateLimiter{repo: repo, window: window, maxAttempts: maxAttempts}
}

// Check returns the rate-limit decision for ip. On a repository error it
// fails open (not limited) and logs, per §7's explicit carve-out for the
// rate limiter alone.
func (l *RateLimiter) Check(ctx context.Context, ip string) accounts.RateLimitDecision {
	decision, err := l.repo.CheckRateLimit(ctx, ip, l.window, l.maxAttempts)
	if err != nil {
		slog.Warn("authserver: rate limit check failed, failing open", "ip", ip, "err", err)
		return accounts.RateLimitDecision{}
	}
	return decision
}
