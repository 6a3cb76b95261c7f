package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Identity provider
	IdentityBaseURL   string
	IdentityAPIKey    string
	IdentityJWTSecret string

	// Custody provider
	CustodyBaseURL    string
	CustodyAPIKey     string
	CustodySigningKey string // PEM-encoded RSA private key for request JWTs

	// Chain
	RPCEndpoint string
	ChainID     int64

	// Storage
	PostgresDSN string
	RedisURL    string

	// Wallet activation polling
	WalletPollMaxAttempts int
	WalletPollInterval    time.Duration

	// Server
	APIPort     string
	Environment string // development / staging / production
}

// Load reads the process environment (after an optional .env file) and
// returns an error naming every missing required variable. The config is
// built once at startup and treated as immutable afterwards.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		IdentityBaseURL:   strings.TrimRight(required("IDENTITY_BASE_URL"), "/"),
		IdentityAPIKey:    required("IDENTITY_API_KEY"),
		IdentityJWTSecret: required("IDENTITY_JWT_SECRET"),

		CustodyBaseURL:    strings.TrimRight(required("CUSTODY_BASE_URL"), "/"),
		CustodyAPIKey:     required("CUSTODY_API_KEY"),
		CustodySigningKey: required("CUSTODY_SIGNING_KEY"),

		RPCEndpoint: required("RPC_ENDPOINT"),

		PostgresDSN: required("POSTGRES_DSN"),
		RedisURL:    required("REDIS_URL"),

		WalletPollMaxAttempts: getEnvInt("WALLET_POLL_MAX_ATTEMPTS", 30),
		WalletPollInterval:    time.Duration(getEnvInt("WALLET_POLL_INTERVAL_MS", 2000)) * time.Millisecond,

		APIPort:     required("API_PORT"),
		Environment: required("ENVIRONMENT"),
	}

	chainIDStr := required("CHAIN_ID")
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	chainID, err := strconv.ParseInt(chainIDStr, 10, 64)
	if err != nil || chainID <= 0 {
		return nil, fmt.Errorf("CHAIN_ID must be a positive integer, got %q", chainIDStr)
	}
	cfg.ChainID = chainID

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
