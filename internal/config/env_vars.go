package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

func (c *mainConfig) GetEnv() string {
	if c.Env == "" {
		return "DEV"
	}
	return c.Env
}

func (c *mainConfig) GetAppName() string     { return c.AppName }
func (c *mainConfig) GetMetricsAddr() string { return c.Metrics.Addr }

func (c *mainConfig) GetBaseURL() string               { return c.API.BaseURL }
func (c *mainConfig) GetRequestTimeout() time.Duration { return c.API.Timeout }
func (c *mainConfig) GetUserAgent() string             { return c.API.UserAgent }

func (c *mainConfig) GetRefreshTimeout() time.Duration { return c.Session.RefreshTimeout }

func (c *mainConfig) GetStoreType() string     { return c.Session.Store }
func (c *mainConfig) GetSQLitePath() string    { return c.Session.SQLitePath }
func (c *mainConfig) GetRedisAddr() string     { return c.Session.RedisAddr }
func (c *mainConfig) GetRedisPassword() string { return c.Session.RedisPassword }
func (c *mainConfig) GetRedisDB() int          { return c.Session.RedisDB }
func (c *mainConfig) GetRedisKey() string      { return c.Session.RedisKey }

// GetPassphrase returns the passphrase used to seal stored credentials. Empty disables sealing.
func (c *mainConfig) GetPassphrase() string { return c.Session.Passphrase }

func (c *mainConfig) GetCacheSize() int          { return c.Cache.Size }
func (c *mainConfig) GetCacheTTL() time.Duration { return c.Cache.TTL }

func (c *mainConfig) GetLogLevel() string  { return c.Logging.Level }
func (c *mainConfig) GetLogFormat() string { return c.Logging.Format }

func (c *mainConfig) GetDevAPIPort() string {
	return fmt.Sprintf(":%d", c.DevAPI.Port)
}

func (c *mainConfig) GetJWTSecret() string             { return c.DevAPI.JWTSecret }
func (c *mainConfig) GetAccessTokenTTL() time.Duration { return c.DevAPI.AccessTokenTTL }
func (c *mainConfig) GetRefreshTokenLength() int       { return c.DevAPI.RefreshTokenLength }

// ConfigPathEnv names the config file when --config is not given
const ConfigPathEnv = "QEEM_CONFIG"

// DefaultSQLitePath returns the credential database path under the XDG data home.
func DefaultSQLitePath() string {
	return filepath.Join(XDGDataHome(), "qeem", "session.db")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// GetEnv reads envVar, falling back to defaultValue when it is unset or empty.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
