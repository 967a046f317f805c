package config

import (
	"time"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	SessionConfig
	StorageConfig
	HTTPConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetAPIBaseURL() string
}

type SessionConfig interface {
	GetExpiryWindow() time.Duration
	GetWatchInterval() time.Duration
	GetRefreshTimeout() time.Duration
}

type StorageConfig interface {
	GetSessionStore() StoreKind
	GetSessionFile() string
	GetSessionPassphrase() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKey() string
	GetRedisTTL() time.Duration
}

type HTTPConfig interface {
	GetHTTPTimeout() time.Duration
	GetBreakerTimeout() time.Duration
	GetBreakerFailureRatio() float64
	GetBreakerMinRequests() uint32
}

type mainConfig struct {
	EnvVars
	Session
	Storage
	HTTP
}

func New() Config {
	return mainConfig{}
}

// Load reads an optional .env file into the process environment before
// returning the env-backed configuration. Variables already set win.
func Load(files ...string) Config {
	_ = godotenv.Load(files...)
	return New()
}
