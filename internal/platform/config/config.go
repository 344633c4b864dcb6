package config

import (
	"os"
	"strings"
	"time"
)

// Config captures everything main needs to wire the process. Values come from
// the environment so deployments stay twelve-factor.
type Config struct {
	Addr          string
	PostgresDSN   string
	Redis         RedisConfig
	Kafka         KafkaConfig
	Ledger        LedgerConfig
	JWTSigningKey string
}

// RedisConfig holds connection tuning for the optional Redis cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the sync-failure drain worker.
type KafkaConfig struct {
	Brokers       []string
	FailuresTopic string
	DrainInterval time.Duration
}

// LedgerConfig points at the external anchor ledger gateway.
type LedgerConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:        envOr("ATTESTO_ADDR", ":8080"),
		PostgresDSN: os.Getenv("ATTESTO_POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("ATTESTO_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			FailuresTopic: envOr("ATTESTO_SYNC_FAILURES_TOPIC", "attesto.sync.failures"),
			DrainInterval: 30 * time.Second,
		},
		Ledger: LedgerConfig{
			Endpoint: os.Getenv("ATTESTO_LEDGER_ENDPOINT"),
			Timeout:  10 * time.Second,
		},
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
	}
	if brokers := os.Getenv("ATTESTO_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if cfg.JWTSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
