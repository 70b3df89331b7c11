// Package config loads engine configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all configuration for the engine.
type Config struct {
	// Feed settings
	FeedEndpoint string

	// RPC settings
	RPCEndpoint string

	// Relay settings
	TradeRelayURL string
	BundleURL     string
	TipFloorURL   string

	// Platform metadata API
	FrontendAPIURL string

	// Wallet key encryption
	Passphrase string

	// Storage. Empty PostgresDSN selects in-memory stores.
	PostgresDSN   string
	ClickHouseDSN string

	// HTTP server
	ListenAddr string

	// Behavior
	EnforceWalletCap    bool
	BalancePollInterval time.Duration
	LogLevel            string
}

// Load reads configuration from the environment, with a .env file as
// fallback source.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	cfg := &Config{
		FeedEndpoint:        getEnv("FEED_ENDPOINT", "wss://pumpportal.fun/api/data"),
		RPCEndpoint:         getEnv("RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"),
		TradeRelayURL:       getEnv("TRADE_RELAY_URL", "https://pumpportal.fun/api/trade-local"),
		BundleURL:           getEnv("BUNDLE_URL", "https://mainnet.block-engine.jito.wtf/api/v1/bundles"),
		TipFloorURL:         getEnv("TIP_FLOOR_URL", "https://bundles.jito.wtf/api/v1/bundles/tip_floor"),
		FrontendAPIURL:      getEnv("FRONTEND_API_URL", "https://frontend-api.pump.fun"),
		Passphrase:          getEnvRequired("WALLET_PASSPHRASE"),
		PostgresDSN:         getEnv("POSTGRES_DSN", ""),
		ClickHouseDSN:       getEnv("CLICKHOUSE_DSN", ""),
		ListenAddr:          getEnv("LISTEN_ADDR", ":8080"),
		EnforceWalletCap:    getEnvBool("ENFORCE_WALLET_CAP", false),
		BalancePollInterval: getEnvDuration("BALANCE_POLL_INTERVAL", 10*time.Second),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}
	return cfg, nil
}

func getEnvRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		logrus.Fatalf("Required environment variable %s is not set", key)
	}
	return value
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		logrus.Warnf("Invalid boolean value for %s: %s, using default: %t", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		logrus.Warnf("Invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}
