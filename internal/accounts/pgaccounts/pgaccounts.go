// Package pgaccounts implements accounts.Repository over PostgreSQL with
// pgx, following the teacher's PostgresAccountRepository shape:
// parameterized queries and lower-cased identifiers. CreateAccount is a
// plain INSERT; a unique-constraint violation is returned as
// accounts.ErrAlreadyExists.
package pgaccounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rvult/riftnet/internal/accounts"
)

// Repository is the pgx-backed accounts.Repository adapter.
type Repository struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a Repository handle.
func New(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgaccounts: connecting: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgaccounts: pinging: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// NewWithPool wraps an already-constructed pool, for tests that share a
// pool across table fixtures.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Close closes the underlying connection pool.
func (r *Repository) Close() { r.pool.Close() }

func (r *Repository) CreateAccount(ctx context.Context, acc accounts.Account) (accounts.Account, error) {
	acc.Username = strings.ToLower(acc.Username)
	acc.Email = strings.ToLower(acc.Email)
	if acc.ID == uuid.Nil {
		acc.ID = uuid.New()
	}
	acc.CreatedAt = time.Now()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO accounts (id, username, email, password_hash, created_at, last_ip)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		acc.ID, acc.Username, acc.Email, acc.PasswordHash, acc.CreatedAt, acc.LastIP,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return accounts.Account{}, accounts.ErrAlreadyExists
		}
		return accounts.Account{}, fmt.Errorf("pgaccounts: creating account %q: %w", acc.Username, err)
	}
	return acc, nil
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (accounts.Account, error) {
	return r.getBy(ctx, "username", strings.ToLower(username))
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (accounts.Account, error) {
	return r.getBy(ctx, "email", strings.ToLower(email))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (accounts.Account, error) {
	return r.getBy(ctx, "id", id)
}

func (r *Repository) getBy(ctx context.Context, column string, value any) (accounts.Account, error) {
	var acc accounts.Account
	var lastLogin *time.Time
	query := fmt.Sprintf(
		`SELECT id, username, email, password_hash, created_at, last_login_at, last_ip
		 FROM accounts WHERE %s = $1`, column)
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&acc.ID, &acc.Username, &acc.Email, &acc.PasswordHash, &acc.CreatedAt, &lastLogin, &acc.LastIP,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounts.Account{}, accounts.ErrNotFound
		}
		return accounts.Account{}, fmt.Errorf("pgaccounts: querying account by %s: %w", column, err)
	}
	if lastLogin != nil {
		acc.LastLoginAt = *lastLogin
	}
	return acc, nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, ip string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET last_login_at = $1, last_ip = $2 WHERE id = $3`,
		at, ip, id,
	)
	if err != nil {
		return fmt.Errorf("pgaccounts: updating last login for %s: %w", id, err)
	}
	return nil
}

func (r *Repository) RecordLoginAttempt(ctx context.Context, attempt accounts.LoginAttempt) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO login_attempts (ip, identifier, success, occurred_at) VALUES ($1, $2, $3, $4)`,
		attempt.IP, attempt.Identifier, attempt.Success, attempt.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("pgaccounts: recording login attempt: %w", err)
	}
	return nil
}

// CheckRateLimit counts attempts from ip within the trailing window and
// reports whether the count has reached max (§3 RateLimitDecision,
// §4.9's rate-limiter consultation). When limited, RetryAfterSeconds is
// the time remaining until the oldest in-window attempt ages out of the
// window, not the full window itself.
func (r *Repository) CheckRateLimit(ctx context.Context, ip string, window time.Duration, max int) (accounts.RateLimitDecision, error) {
	now := time.Now()
	since := now.Add(-window)
	var count int
	var oldest *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT count(*), min(occurred_at) FROM login_attempts WHERE ip = $1 AND occurred_at >= $2`,
		ip, since,
	).Scan(&count, &oldest)
	if err != nil {
		return accounts.RateLimitDecision{}, fmt.Errorf("pgaccounts: checking rate limit for %s: %w", ip, err)
	}

	decision := accounts.RateLimitDecision{Attempts: count}
	if count >= max {
		decision.Limited = true
		decision.RetryAfterSeconds = 1
		if oldest != nil {
			remaining := window - now.Sub(*oldest)
			if remaining > time.Second {
				decision.RetryAfterSeconds = int(remaining.Seconds())
			}
		}
	}
	return decision, nil
}

func (r *Repository) CleanupLoginAttempts(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := r.pool.Exec(ctx, `DELETE FROM login_attempts WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pgaccounts: cleaning up login attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
