package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables read by feedrover.
const (
	// EnvProxies holds the comma-separated proxy list (host:port[:user[:pass]]).
	EnvProxies = "FEEDROVER_PROXIES"

	// EnvLegacyProxies is accepted when EnvProxies is unset.
	EnvLegacyProxies = "PROXIES"

	// EnvDBDir overrides the database directory.
	EnvDBDir = "FEEDROVER_DB_DIR"
)

// LoadEnv loads .env files into the process environment. Variables already
// set are not overwritten. With no paths it reads ./.env if present; an
// explicitly named file must exist.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("failed to load environment file: %w", err)
	}
	return nil
}

// ApplyEnv copies environment values into c where c has none yet.
func (c *Config) ApplyEnv() {
	if c.Proxies == "" {
		c.Proxies = ProxyListFromEnv()
	}
	if dir := os.Getenv(EnvDBDir); dir != "" {
		c.DBDir = dir
	}
}

// ProxyListFromEnv returns the configured proxy list, if any.
func ProxyListFromEnv() string {
	if v := os.Getenv(EnvProxies); v != "" {
		return v
	}
	return os.Getenv(EnvLegacyProxies)
}
