// Package config loads the YAML configuration surface of §6.4 for both
// tiers — AuthServer and GameServer — each as a partial overlay merged
// onto its built-in defaults with dario.cat/mergo, the way the teacher's
// own config package unmarshals a file directly onto a pre-populated
// defaults struct, just made explicit so a zero-value field in the file
// can't accidentally stomp a non-zero default.
package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/rvult/riftnet/internal/authserver"
	"github.com/rvult/riftnet/internal/gameserver"
)

// LoadAuthServer loads the AuthServer's configuration from a YAML file at
// path, overlaying it onto authserver.Default(). A missing file is not an
// error — it returns the defaults unchanged, matching the teacher's
// "LoadLoginServer returns defaults if the file doesn't exist" behavior.
func LoadAuthServer(path string) (authserver.Config, error) {
	cfg := authserver.Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var overlay authserver.Config
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := mergo.Merge(&cfg, overlay, mergo.WithOverride); err != nil {
		return cfg, fmt.Errorf("config: merging %s: %w", path, err)
	}

	return cfg, nil
}

// DatabaseConfig holds the PostgreSQL connection parameters for the
// accounts store, grounded on the teacher's own DatabaseConfig/DSN pattern
// but trimmed to plain connection parameters, with no pool-tuning knobs.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DefaultDatabaseConfig returns the conventional local-dev Postgres
// connection parameters.
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     5432,
		User:     "riftnet",
		Password: "riftnet",
		DBName:   "riftnet",
		SSLMode:  "disable",
	}
}

// DSN returns the PostgreSQL connection string pgaccounts/goose expect.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// AuthServerFile is the top-level YAML document for the AuthServer
// process: its own Config plus the database it persists accounts to.
type AuthServerFile struct {
	Server   authserver.Config `yaml:"server"`
	Database DatabaseConfig    `yaml:"database"`
}

// LoadAuthServerFile loads the AuthServer process config (server +
// database) from path, overlaying onto defaults of each.
func LoadAuthServerFile(path string) (AuthServerFile, error) {
	file := AuthServerFile{Server: authserver.Default(), Database: DefaultDatabaseConfig()}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return file, nil
		}
		return file, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var overlay AuthServerFile
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return file, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := mergo.Merge(&file, overlay, mergo.WithOverride); err != nil {
		return file, fmt.Errorf("config: merging %s: %w", path, err)
	}

	return file, nil
}

// LoadGameServer loads the GameServer's configuration from a YAML file at
// path, overlaying it onto gameserver.Default().
func LoadGameServer(path string) (gameserver.Config, error) {
	cfg := gameserver.Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var overlay gameserver.Config
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := mergo.Merge(&cfg, overlay, mergo.WithOverride); err != nil {
		return cfg, fmt.Errorf("config: merging %s: %w", path, err)
	}

	return cfg, nil
}
