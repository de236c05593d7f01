package authtoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Secret:            "01234567890123456789012345678901",
		Issuer:            "riftnet-auth",
		Audience:          "riftnet-game",
		ExpirationMinutes: 60,
		ClockSkew:         time.Minute,
	}
}

func TestIssueThenVerifySucceeds(t *testing.T) {
	cfg := testConfig()
	issuer, err := NewIssuer(cfg)
	require.NoError(t, err)
	verifier, err := NewVerifier(cfg)
	require.NoError(t, err)

	userID := uuid.New()
	tok, err := issuer.Issue(userID, "alice")
	require.NoError(t, err)

	result := verifier.Verify(tok)
	require.True(t, result.Valid)
	require.Equal(t, userID, result.UserID)
	require.Equal(t, "alice", result.Username)
	require.WithinDuration(t, time.Now().Add(60*time.Minute), result.Expiry, 5*time.Second)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.ExpirationMinutes = 1
	issuer, err := NewIssuer(cfg)
	require.NoError(t, err)

	cfg.ClockSkew = time.Millisecond
	verifier, err := NewVerifier(cfg)
	require.NoError(t, err)

	tok, err := issuer.Issue(uuid.New(), "bob")
	require.NoError(t, err)

	// Build an already-expired token from a config with a negative
	// expiration window instead of sleeping the full minute in a unit test.
	// NewIssuer refuses a non-positive window, so the Issuer is built
	// directly from that config.
	pastCfg := cfg
	pastCfg.ExpirationMinutes = -1
	_, err = NewIssuer(pastCfg)
	require.Error(t, err)
	pastIssuer := &Issuer{cfg: pastCfg}
	expiredTok, err := pastIssuer.Issue(uuid.New(), "bob")
	require.NoError(t, err)

	result := verifier.Verify(expiredTok)
	require.False(t, result.Valid)
	require.Equal(t, ReasonTokenExpired, result.Reason)

	_ = tok
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	cfg := testConfig()
	issuer, err := NewIssuer(cfg)
	require.NoError(t, err)
	tok, err := issuer.Issue(uuid.New(), "carol")
	require.NoError(t, err)

	otherCfg := cfg
	otherCfg.Secret = "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"
	verifier, err := NewVerifier(otherCfg)
	require.NoError(t, err)

	result := verifier.Verify(tok)
	require.False(t, result.Valid)
	require.Equal(t, ReasonInvalidSignature, result.Reason)
}

func TestNewIssuerRejectsShortSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Secret = "too-short"
	_, err := NewIssuer(cfg)
	require.Error(t, err)
}
