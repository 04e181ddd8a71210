package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
	StoreConfig
	CacheConfig
	LoggingConfig
	DevAPIConfig
}

type EnvConfig interface {
	GetEnv() string
	GetAppName() string
	GetMetricsAddr() string
}

type APIConfig interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetUserAgent() string
}

type SessionConfig interface {
	GetRefreshTimeout() time.Duration
}

type StoreConfig interface {
	GetStoreType() string
	GetSQLitePath() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKey() string
	GetPassphrase() string
}

type CacheConfig interface {
	GetCacheSize() int
	GetCacheTTL() time.Duration
}

type LoggingConfig interface {
	GetLogLevel() string
	GetLogFormat() string
}

type DevAPIConfig interface {
	GetDevAPIPort() string
	GetJWTSecret() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenLength() int
}

// Store backends
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type mainConfig struct {
	Env     string        `mapstructure:"env"`
	AppName string        `mapstructure:"app_name"`
	API     apiSection    `mapstructure:"api"`
	Session sessionConfig `mapstructure:"session"`
	Cache   cacheSection  `mapstructure:"cache"`
	Logging logSection    `mapstructure:"logging"`
	DevAPI  devAPISection `mapstructure:"devapi"`
	Metrics struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"metrics"`
}

type apiSection struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type sessionConfig struct {
	RefreshTimeout time.Duration `mapstructure:"refresh_timeout"`
	Store          string        `mapstructure:"store"`
	SQLitePath     string        `mapstructure:"sqlite_path"`
	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisPassword  string        `mapstructure:"redis_password"`
	RedisDB        int           `mapstructure:"redis_db"`
	RedisKey       string        `mapstructure:"redis_key"`
	Passphrase     string        `mapstructure:"passphrase"`
}

type cacheSection struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type logSection struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type devAPISection struct {
	Port               int           `mapstructure:"port"`
	JWTSecret          string        `mapstructure:"jwt_secret"`
	AccessTokenTTL     time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenLength int           `mapstructure:"refresh_token_length"`
}

var _ Config = (*mainConfig)(nil)

// Load reads configuration from defaults, an optional config file, a .env file and
// QEEM_* environment variables, in increasing order of precedence.
func Load(configPath string) (Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("QEEM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var c mainConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validate(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &c, nil
}

// New returns the default configuration without consulting files or the environment.
func New() Config {
	v := viper.New()
	setDefaults(v)
	var c mainConfig
	_ = v.Unmarshal(&c)
	return &c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "DEV")
	v.SetDefault("app_name", "Qeem")

	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.user_agent", "qeem-client")

	v.SetDefault("session.refresh_timeout", "15s")
	v.SetDefault("session.store", StoreSQLite)
	v.SetDefault("session.sqlite_path", DefaultSQLitePath())
	v.SetDefault("session.redis_addr", "localhost:6379")
	v.SetDefault("session.redis_db", 0)
	v.SetDefault("session.redis_key", "qeem:session:credential")

	v.SetDefault("cache.size", 256)
	v.SetDefault("cache.ttl", "5m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("devapi.port", 8000)
	v.SetDefault("devapi.jwt_secret", "qeem-dev-secret")
	v.SetDefault("devapi.access_token_ttl", "15m")
	v.SetDefault("devapi.refresh_token_length", 32) // 32 bytes = 256 bits

	v.SetDefault("metrics.addr", "")
}

func validate(c *mainConfig) error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	switch c.Session.Store {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unknown session.store %q", c.Session.Store)
	}
	if c.Session.RefreshTimeout <= 0 {
		return errors.New("session.refresh_timeout must be positive")
	}
	if c.Cache.Size <= 0 {
		return errors.New("cache.size must be positive")
	}
	return nil
}
