package gameserver

import (
	"fmt"
	"time"

	"github.com/rvult/riftnet/internal/authtoken"
	"github.com/rvult/riftnet/internal/physics"
)

// Config is the GameServer's slice of §6.4's configuration surface.
type Config struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
	MaxPlayers  int    `yaml:"max_players"`
	TickRateHz  int    `yaml:"tick_rate_hz"`

	ConnectionKey string `yaml:"connection_key"`

	Token authtoken.Config `yaml:"token"`

	DisconnectTimeoutSeconds int `yaml:"disconnect_timeout_seconds"`
	AuthGracePeriodSeconds   int `yaml:"auth_grace_period_seconds"`
	PingIntervalSeconds      int `yaml:"ping_interval_seconds"`

	MinClientVersion uint32 `yaml:"min_client_version"`

	ReconciliationEpsilon float32 `yaml:"reconciliation_epsilon"`

	Movement physics.MovementSettings `yaml:"movement"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the GameServer defaults named in §6.4.
func Default() Config {
	return Config{
		BindAddress:              "0.0.0.0",
		Port:                     7777,
		MaxPlayers:               100,
		TickRateHz:               30,
		DisconnectTimeoutSeconds: 10,
		AuthGracePeriodSeconds:   10,
		PingIntervalSeconds:      1,
		MinClientVersion:         1,
		ReconciliationEpsilon:    0.01,
		Movement:                 physics.DefaultMovementSettings(),
		LogLevel:                 "info",
		Token: authtoken.Config{
			ExpirationMinutes: 60,
			ClockSkew:         time.Minute,
		},
	}
}

// Validate fails closed: any missing mandatory value or out-of-range
// numeric aborts startup before the listener binds (§6.4, §6.5 exit 1).
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("gameserver: invalid port %d", c.Port)
	}
	if c.MaxPlayers <= 0 {
		return fmt.Errorf("gameserver: max-players must be > 0, got %d", c.MaxPlayers)
	}
	if c.TickRateHz < 10 || c.TickRateHz > 128 {
		return fmt.Errorf("gameserver: tick-rate must be in [10,128], got %d", c.TickRateHz)
	}
	if len(c.Token.Secret) < 32 {
		return fmt.Errorf("gameserver: jwt-secret must be at least 32 bytes")
	}
	if c.Token.Issuer == "" {
		return fmt.Errorf("gameserver: jwt-issuer must not be empty")
	}
	if c.DisconnectTimeoutSeconds <= 0 {
		return fmt.Errorf("gameserver: disconnect-timeout-seconds must be > 0")
	}
	if c.AuthGracePeriodSeconds <= 0 {
		return fmt.Errorf("gameserver: auth-grace-period-seconds must be > 0")
	}
	if c.PingIntervalSeconds <= 0 {
		return fmt.Errorf("gameserver: ping-interval-seconds must be > 0")
	}
	return nil
}

func (c Config) disconnectTimeout() time.Duration {
	return time.Duration(c.DisconnectTimeoutSeconds) * time.Second
}

func (c Config) authGrace() time.Duration {
	return time.Duration(c.AuthGracePeriodSeconds) * time.Second
}
