// Package config reads all engine configuration from the environment so
// main stays lean. Every knob has a development default; production
// deployments override through the SHAMBA_* variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server is the full runtime configuration.
type Server struct {
	Addr          string
	JWTSigningKey string

	// DatabaseURL selects the Postgres stores; empty runs on memory.
	DatabaseURL string
	// RedisURL selects the Redis trust ledger; empty runs on memory.
	RedisURL string
	Redis    RedisConfig

	// KafkaBrokers enables the Kafka notifier when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// MinWitnesses is the distinct-voucher quorum for community validation.
	MinWitnesses int
	// WeightScheme names the distance-decay curve: standard, strict, lenient.
	WeightScheme string

	// RateRPS and RateBurst bound per-client request rates at the HTTP edge.
	RateRPS   float64
	RateBurst int

	ShutdownTimeout time.Duration
}

// RedisConfig tunes the Redis connection pool.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	redisURL := os.Getenv("SHAMBA_REDIS_URL")
	return Server{
		Addr:          envOr("SHAMBA_ADDR", ":8080"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		DatabaseURL:   os.Getenv("SHAMBA_DATABASE_URL"),
		RedisURL:      redisURL,
		Redis: RedisConfig{
			URL:          redisURL,
			PoolSize:     envInt("SHAMBA_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("SHAMBA_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("SHAMBA_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("SHAMBA_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("SHAMBA_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KafkaBrokers:    splitList(os.Getenv("SHAMBA_KAFKA_BROKERS")),
		KafkaTopic:      envOr("SHAMBA_KAFKA_TOPIC", "shamba.claim-events"),
		MinWitnesses:    envInt("SHAMBA_MIN_WITNESSES", 2),
		WeightScheme:    envOr("SHAMBA_WEIGHT_SCHEME", "standard"),
		RateRPS:         envFloat("SHAMBA_RATE_RPS", 20),
		RateBurst:       envInt("SHAMBA_RATE_BURST", 40),
		ShutdownTimeout: envDuration("SHAMBA_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
