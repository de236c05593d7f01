package authserver

import (
	"fmt"
	"time"

	"github.com/rvult/riftnet/internal/authtoken"
)

// Config is the AuthServer's slice of §6.4's configuration surface.
type Config struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
	MaxClients  int    `yaml:"max_clients"`
	TickRateHz  int    `yaml:"tick_rate_hz"`

	ConnectionKey string `yaml:"connection_key"`

	Token authtoken.Config `yaml:"token"`

	MinPasswordLength int `yaml:"min_password_length"`
	BcryptCost        int `yaml:"bcrypt_cost"`

	RateLimitWindowSeconds int `yaml:"rate_limit_window_seconds"`
	RateLimitMaxAttempts   int `yaml:"rate_limit_max_attempts"`

	LoginAttemptRetentionHours int `yaml:"login_attempt_retention_hours"`
	CleanupIntervalSeconds     int `yaml:"cleanup_interval_seconds"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the AuthServer defaults named in §6.4 (port 2106,
// matching the teacher's login server default), running the shared
// transport/dispatch/tickloop backbone at 10 Hz rather than the
// GameServer's 30 Hz, since the AuthServer has no physics to simulate.
func Default() Config {
	return Config{
		BindAddress:                "0.0.0.0",
		Port:                       2106,
		MaxClients:                 1000,
		TickRateHz:                 10,
		MinPasswordLength:          8,
		BcryptCost:                 0, // bcrypt.DefaultCost
		RateLimitWindowSeconds:     60,
		RateLimitMaxAttempts:       5,
		LoginAttemptRetentionHours: 24 * 7,
		CleanupIntervalSeconds:     300,
		LogLevel:                   "info",
		Token: authtoken.Config{
			ExpirationMinutes: 60,
			ClockSkew:         time.Minute,
		},
	}
}

// Validate fails closed on any missing mandatory value or out-of-range
// numeric, before the listener binds (§6.4, §6.5 exit 1).
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("authserver: invalid port %d", c.Port)
	}
	if c.TickRateHz < 10 || c.TickRateHz > 128 {
		return fmt.Errorf("authserver: tick-rate must be in [10,128], got %d", c.TickRateHz)
	}
	if c.MaxClients <= 0 {
		return fmt.Errorf("authserver: max-clients must be > 0, got %d", c.MaxClients)
	}
	if len(c.Token.Secret) < 32 {
		return fmt.Errorf("authserver: jwt-secret must be at least 32 bytes")
	}
	if c.Token.Issuer == "" {
		return fmt.Errorf("authserver: jwt-issuer must not be empty")
	}
	if c.MinPasswordLength <= 0 {
		return fmt.Errorf("authserver: min-password-length must be > 0")
	}
	if c.RateLimitWindowSeconds <= 0 || c.RateLimitMaxAttempts <= 0 {
		return fmt.Errorf("authserver: rate-limit window/max-attempts must be > 0")
	}
	return nil
}

func (c Config) rateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c Config) loginAttemptRetention() time.Duration {
	return time.Duration(c.LoginAttemptRetentionHours) * time.Hour
}

func (c Config) cleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSeconds) * time.Second
}
