package config

import (
	"time"
)

type AuthConfig interface {
	GetTokenSecret() string
	GetTokenIssuer() string
	GetTokenExpiry() time.Duration
	GetRedisURL() string
}

type Auth struct{}

var _ AuthConfig = Auth{}

func (Auth) GetTokenSecret() string {
	return GetEnv("TOKEN_SECRET", "dev-only-secret-change-me")
}

func (Auth) GetTokenIssuer() string {
	return GetEnv("TOKEN_ISSUER", "http://localhost:8080")
}

func (Auth) GetTokenExpiry() time.Duration {
	if v, err := time.ParseDuration(GetEnv("TOKEN_EXPIRY", "")); err == nil && v > 0 {
		return v
	}
	return 8 * time.Hour
}

// GetRedisURL returns the Redis address for the token denylist.
// Empty means the in-memory denylist is used.
func (Auth) GetRedisURL() string {
	return GetEnv("REDIS_URL", "")
}
