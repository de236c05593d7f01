// Package accounts defines the persisted Account/LoginAttempt model and
// the repository contract the AuthServer endpoints depend on (§4.9,
// §4.13). Concrete storage lives in the pgaccounts subpackage.
package accounts

import (
	"time"

	"github.com/google/uuid"
)

// Account is a registered player identity.
type Account struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	LastLoginAt  time.Time
	LastIP       string
}

// LoginAttempt is one append-only audit row, written on every Login call
// and consulted by the rate limiter (§3 LoginAttempt).
type LoginAttempt struct {
	IP         string
	Identifier string
	Success    bool
	OccurredAt time.Time
}

// RateLimitDecision is the outcome of consulting the per-IP limiter for
// one login attempt (§3 RateLimitDecision).
type RateLimitDecision struct {
	Attempts          int
	Limited           bool
	RetryAfterSeconds int
}
