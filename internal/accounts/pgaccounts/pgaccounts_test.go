package pgaccounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rvult/riftnet/internal/accounts"
	"github.com/rvult/riftnet/internal/accounts/pgaccounts"
	"github.com/rvult/riftnet/internal/testutil"
)

func newRepo(t *testing.T) *pgaccounts.Repository {
	t.Helper()
	pool := testutil.SetupTestDB(t)
	return pgaccounts.NewWithPool(pool)
}

func TestCreateAndGetAccount(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	acc, err := repo.CreateAccount(ctx, accounts.Account{
		Username:     "Alice",
		Email:        "Alice@Example.com",
		PasswordHash: "hashed",
		LastIP:       "127.0.0.1",
	})
	require.NoError(t, err)
	require.Equal(t, "alice", acc.Username)
	require.Equal(t, "alice@example.com", acc.Email)

	byUsername, err := repo.GetByUsername(ctx, "ALICE")
	require.NoError(t, err)
	require.Equal(t, acc.ID, byUsername.ID)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, acc.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, acc.Username, byID.Username)
}

func TestCreateAccountDuplicateRejected(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := repo.CreateAccount(ctx, accounts.Account{Username: "bob", Email: "bob@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	_, err = repo.CreateAccount(ctx, accounts.Account{Username: "bob", Email: "other@example.com", PasswordHash: "x"})
	require.ErrorIs(t, err, accounts.ErrAlreadyExists)
}

func TestGetByUsernameNotFound(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.GetByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, accounts.ErrNotFound)
}

func TestUpdateLastLogin(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	acc, err := repo.CreateAccount(ctx, accounts.Account{Username: "carol", Email: "carol@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	now := time.Now().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(ctx, acc.ID, "10.0.0.5", now))

	got, err := repo.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5", got.LastIP)
	require.WithinDuration(t, now, got.LastLoginAt, time.Second)
}

func TestRateLimitCountsAttemptsWithinWindow(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.RecordLoginAttempt(ctx, accounts.LoginAttempt{
			IP: "1.2.3.4", Identifier: "carol", Success: false, OccurredAt: time.Now(),
		}))
	}

	decision, err := repo.CheckRateLimit(ctx, "1.2.3.4", time.Minute, 5)
	require.NoError(t, err)
	require.Equal(t, 3, decision.Attempts)
	require.False(t, decision.Limited)

	decision, err = repo.CheckRateLimit(ctx, "1.2.3.4", time.Minute, 3)
	require.NoError(t, err)
	require.True(t, decision.Limited)
	require.Greater(t, decision.RetryAfterSeconds, 0)
}

func TestCleanupLoginAttemptsRemovesStaleRows(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.RecordLoginAttempt(ctx, accounts.LoginAttempt{
		IP: "9.9.9.9", Identifier: "dave", Success: true, OccurredAt: time.Now().Add(-48 * time.Hour),
	}))
	require.NoError(t, repo.RecordLoginAttempt(ctx, accounts.LoginAttempt{
		IP: "9.9.9.9", Identifier: "dave", Success: true, OccurredAt: time.Now(),
	}))

	removed, err := repo.CleanupLoginAttempts(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	decision, err := repo.CheckRateLimit(ctx, "9.9.9.9", 72*time.Hour, 100)
	require.NoError(t, err)
	require.Equal(t, 1, decision.Attempts)
}
