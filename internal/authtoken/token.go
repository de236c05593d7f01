package authtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the AuthToken payload of §3: subject=user-id, name=username,
// plus the standard registered claims (issuer, audience, issued-at,
// expiry, unique id).
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Config controls signing and verification. Both the AuthServer (issuer)
// and the GameServer (verifier) load the same values from §6.4's
// jwt-secret/jwt-issuer/jwt-audience/jwt-expiration-minutes.
type Config struct {
	Secret            string        `yaml:"secret"`
	Issuer            string        `yaml:"issuer"`
	Audience          string        `yaml:"audience"`
	ExpirationMinutes int           `yaml:"expiration_minutes"`
	ClockSkew         time.Duration `yaml:"clock_skew"` // bounded skew tolerance, §4.5 step 3 (~1 min)
}

// Issuer signs new tokens on successful login.
type Issuer struct {
	cfg Config
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return &Issuer{cfg: cfg}, nil
}

func validate(cfg Config) error {
	if len(cfg.Secret) < 32 {
		return fmt.Errorf("authtoken: jwt-secret must be at least 32 bytes, got %d", len(cfg.Secret))
	}
	if cfg.Issuer == "" {
		return errors.New("authtoken: jwt-issuer must not be empty")
	}
	if cfg.ExpirationMinutes <= 0 {
		return fmt.Errorf("authtoken: jwt-expiration-minutes must be > 0, got %d", cfg.ExpirationMinutes)
	}
	return nil
}

// Issue signs a new token for userID/username, good for
// cfg.ExpirationMinutes.
func (i *Issuer) Issue(userID uuid.UUID, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(i.cfg.ExpirationMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(i.cfg.Secret))
}

// VerifyResult is the outcome of Verify: either a concrete failure Reason
// or the extracted identity on success.
type VerifyResult struct {
	Valid    bool
	Reason   FailureReason
	UserID   uuid.UUID
	Username string
	Expiry   time.Time
}

// FailureReason distinguishes the authentication error kinds of §4.5/§7.
type FailureReason uint8

const (
	ReasonNone FailureReason = iota
	ReasonInvalidToken
	ReasonTokenExpired
	ReasonInvalidSignature
)

// Verifier checks tokens presented at game-join or ValidateToken.
type Verifier struct {
	cfg Config
}

// NewVerifier validates cfg and returns a Verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = time.Minute
	}
	return &Verifier{cfg: cfg}, nil
}

// Verify checks signature, issuer, and expiry (within the configured clock
// skew) and extracts subject/name (§4.5 step 3).
func (v *Verifier) Verify(tokenString string) VerifyResult {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("authtoken: unexpected signing method %v", t.Header["alg"])
		}
		return []byte(v.cfg.Secret), nil
	},
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithLeeway(v.cfg.ClockSkew),
	)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return VerifyResult{Reason: ReasonTokenExpired}
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return VerifyResult{Reason: ReasonInvalidSignature}
		default:
			return VerifyResult{Reason: ReasonInvalidToken}
		}
	}
	if !token.Valid {
		return VerifyResult{Reason: ReasonInvalidToken}
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return VerifyResult{Reason: ReasonInvalidToken}
	}

	expiry := time.Time{}
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	return VerifyResult{
		Valid:    true,
		UserID:   userID,
		Username: claims.Name,
		Expiry:   expiry,
	}
}
