package config

import (
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for the rates gateway.
// It supports environment-based initialization, with sensible defaults.
type Config struct {
	ServiceName string // e.g. "rates-gateway"
	Env         string // e.g. "dev", "uat", "prod"
	LogLevel    string // "debug", "info", etc.

	WSHost  string // bind host for the WebSocket listener
	WSPort  int    // bind port for the WebSocket listener
	OpsPort int    // fiber ops/API port (health, metrics, REST snapshot)

	RedisURL string        // e.g. redis://localhost:6379
	CacheTTL time.Duration // TTL applied to every cache entry

	// UpdateInterval is the cadence of the recurring rate broadcast.
	// It mirrors the refresh cadence of the primary venue feed.
	UpdateInterval time.Duration

	NATSURL         string // empty disables the NATS side-publisher
	OutboundSubject string // NATS subject for rate update events

	NewtonAPIURL  string
	BinanceAPIURL string
	KrakenAPIURL  string
}

// Load loads configuration from environment variables and .env file if present.
func Load() *Config {
	// load .env silently (no error if missing)
	_ = godotenv.Load()

	return &Config{
		ServiceName: GetEnv("SERVICE_NAME", "rates-gateway"),
		Env:         GetEnv("ENV", "dev"),
		LogLevel:    GetEnv("LOG_LEVEL", "info"),

		WSHost:  GetEnv("WS_HOST", "0.0.0.0"),
		WSPort:  GetEnvInt("WS_PORT", 8765),
		OpsPort: GetEnvInt("OPS_PORT", 9020),

		RedisURL: GetEnv("REDIS_URL", "redis://localhost:6379"),
		CacheTTL: GetEnvDuration("CACHE_TTL", 10*time.Second),

		UpdateInterval: GetEnvDuration("UPDATE_INTERVAL", 10*time.Second),

		NATSURL:         GetEnv("NATS_URL", ""),
		OutboundSubject: GetEnv("OUTBOUND_SUBJECT", "evt.rates.updated.v1"),

		NewtonAPIURL:  GetEnv("NEWTON_API_URL", "https://api.newton.co/markets/v1.1/rates"),
		BinanceAPIURL: GetEnv("BINANCE_API_URL", "https://api.binance.com/api/v3/ticker/24hr"),
		KrakenAPIURL:  GetEnv("KRAKEN_API_URL", "https://api.kraken.com/0/public/Ticker"),
	}
}
