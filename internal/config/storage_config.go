package config

import (
	"strings"
	"time"
)

type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreFile   StoreKind = "file"
	StoreRedis  StoreKind = "redis"
)

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetSessionStore() StoreKind {
	switch kind := StoreKind(strings.ToLower(GetEnv("SESSION_STORE", string(StoreFile)))); kind {
	case StoreMemory, StoreFile, StoreRedis:
		return kind
	default:
		return StoreFile
	}
}

func (Storage) GetSessionFile() string {
	return GetEnv("SESSION_FILE", "./data/session.json")
}

// GetSessionPassphrase enables at-rest encryption of the session file when set.
func (Storage) GetSessionPassphrase() string {
	return GetEnv("SESSION_PASSPHRASE", "")
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "127.0.0.1:6379")
}

func (Storage) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Storage) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}

func (Storage) GetRedisKey() string {
	return GetEnv("REDIS_KEY", "specialist-admin:session")
}

func (Storage) GetRedisTTL() time.Duration {
	return GetEnvDuration("REDIS_TTL", 7*24*time.Hour) // 7 days
}
