package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("accounts: not found")

// ErrAlreadyExists is returned by CreateAccount on a username/email
// collision (§4.9 Register's "free" precondition).
var ErrAlreadyExists = errors.New("accounts: username or email already exists")

// Repository is the narrow persistence contract every AuthServer endpoint
// depends on (§4.13): account CRUD, login-attempt audit, rate-limit
// query, and stale-attempt cleanup. pgaccounts.Repository is the one
// concrete adapter shipped with this module.
type Repository interface {
	CreateAccount(ctx context.Context, acc Account) (Account, error)
	GetByUsername(ctx context.Context, username string) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (Account, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, ip string, at time.Time) error

	RecordLoginAttempt(ctx context.Context, attempt LoginAttempt) error
	CheckRateLimit(ctx context.Context, ip string, window time.Duration, max int) (RateLimitDecision, error)
	CleanupLoginAttempts(ctx context.Context, olderThan time.Duration) (int64, error)
}
