// Package config carries bootstrap configuration and the hot-reloadable
// tunables that govern scoring, rank weights, and aggregation.
package config

import (
	"os"
	"time"
)

// Server captures process-level configuration resolved once at startup.
// Missing required values are fatal; optional values default with a warning
// from the caller.
type Server struct {
	Addr          string
	RedisURL      string
	PostgresDSN   string
	KafkaSeeds    string
	KafkaTopic    string
	JWTSigningKey string
	JWTIssuer     string
	// NationalIDSalt salts the stored national-ID hashes. Rotating it
	// orphans existing hashes, so treat it as immutable per deployment.
	NationalIDSalt string
	// TunablesPath points at the optional YAML tunables document watched
	// for hot reload. Empty means built-in defaults only.
	TunablesPath string
}

// RedisConfig bounds every shared-cache interaction. The posture read path
// relies on these timeouts to degrade instead of blocking a request.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("VERITAS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "veritas"
	}

	idSalt := os.Getenv("NATIONAL_ID_SALT")
	if idSalt == "" {
		// Development default - must be overridden in production.
		idSalt = "dev-id-salt-change-in-production"
	}

	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "veritas.audit"
	}

	return Server{
		Addr:           addr,
		RedisURL:       os.Getenv("REDIS_URL"),
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		KafkaSeeds:     os.Getenv("KAFKA_SEEDS"),
		KafkaTopic:     topic,
		JWTSigningKey:  jwtSigningKey,
		JWTIssuer:      issuer,
		NationalIDSalt: idSalt,
		TunablesPath:   os.Getenv("VERITAS_TUNABLES"),
	}
}

// Redis derives the shared-cache client configuration.
func (s Server) Redis() RedisConfig {
	return RedisConfig{
		URL:          s.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	}
}
