// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Default contract addresses: the pair the original subscription page
// transacted against.
const (
	DefaultSubscriptionAddress = "0xd3fa55cb81FDFEBf8c239F83598e1958B0995b7D"
	DefaultTokenAddress        = "0xc171A1D6280852Bd3Df5351AEE75A60FDb96fC85"
	DefaultFallbackRPCURL      = "https://rpc.sepolia.org"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	RPCURL         string
	FallbackRPCURL string
	ChainID        *big.Int // nil: ask the node

	PrivateKey       string
	KeystorePath     string
	KeystorePassword string

	SubscriptionAddress common.Address
	TokenAddress        common.Address

	ListenAddr     string
	DBPath         string
	ReceiptTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RateLimit     int // action requests per minute per client; 0 disables

	// TrustProxyHeaders keys rate limits on X-Real-IP / X-Forwarded-For
	// instead of the connection address.
	TrustProxyHeaders bool

	PlanNotesPath string
}

// HasSigner returns true when a private key or keystore is configured. The
// composition roots load a key only when it is set; otherwise they run read-only.
func (c *Config) HasSigner() bool {
	return c.PrivateKey != "" || c.KeystorePath != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory, if present, is loaded first; real
// environment variables take precedence over it.
//
// Signer (SUBPANEL_PRIVATE_KEY or SUBPANEL_KEYSTORE_PATH + SUBPANEL_KEYSTORE_PASSWORD)
// is optional; without it the app serves read-only status.
// Optional variables with defaults: SUBPANEL_FALLBACK_RPC_URL (https://rpc.sepolia.org),
// SUBPANEL_SUBSCRIPTION_ADDRESS, SUBPANEL_TOKEN_ADDRESS, SUBPANEL_LISTEN_ADDR
// (127.0.0.1:8080), SUBPANEL_DB_PATH (subpanel.db), SUBPANEL_RECEIPT_TIMEOUT (2m),
// SUBPANEL_RATE_LIMIT (30), SUBPANEL_TRUST_PROXY_HEADERS (false).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		RPCURL:           os.Getenv("SUBPANEL_RPC_URL"),
		FallbackRPCURL:   DefaultFallbackRPCURL,
		PrivateKey:       os.Getenv("SUBPANEL_PRIVATE_KEY"),
		KeystorePath:     os.Getenv("SUBPANEL_KEYSTORE_PATH"),
		KeystorePassword: os.Getenv("SUBPANEL_KEYSTORE_PASSWORD"),
		ListenAddr:       "127.0.0.1:8080",
		DBPath:           "subpanel.db",
		ReceiptTimeout:   2 * time.Minute,
		RedisAddr:        os.Getenv("SUBPANEL_REDIS_ADDR"),
		RedisPassword:    os.Getenv("SUBPANEL_REDIS_PASSWORD"),
		RateLimit:        30,
		PlanNotesPath:    os.Getenv("SUBPANEL_PLAN_NOTES_PATH"),
	}

	if v, ok := os.LookupEnv("SUBPANEL_FALLBACK_RPC_URL"); ok {
		cfg.FallbackRPCURL = v
	}

	if v, ok := os.LookupEnv("SUBPANEL_CHAIN_ID"); ok && v != "" {
		id, ok := new(big.Int).SetString(v, 10)
		if !ok || id.Sign() <= 0 {
			return nil, fmt.Errorf("SUBPANEL_CHAIN_ID has invalid value %q", v)
		}
		cfg.ChainID = id
	}

	var err error
	if cfg.SubscriptionAddress, err = addressEnv("SUBPANEL_SUBSCRIPTION_ADDRESS", DefaultSubscriptionAddress); err != nil {
		return nil, err
	}
	if cfg.TokenAddress, err = addressEnv("SUBPANEL_TOKEN_ADDRESS", DefaultTokenAddress); err != nil {
		return nil, err
	}

	if v, ok := os.LookupEnv("SUBPANEL_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}

	if v, ok := os.LookupEnv("SUBPANEL_DB_PATH"); ok {
		cfg.DBPath = v
	}

	if v, ok := os.LookupEnv("SUBPANEL_RECEIPT_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SUBPANEL_RECEIPT_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("SUBPANEL_RECEIPT_TIMEOUT must be positive, got %s", parsed)
		}
		cfg.ReceiptTimeout = parsed
	}

	if v, ok := os.LookupEnv("SUBPANEL_RATE_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("SUBPANEL_RATE_LIMIT has invalid value %q", v)
		}
		cfg.RateLimit = n
	}

	if v, ok := os.LookupEnv("SUBPANEL_TRUST_PROXY_HEADERS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SUBPANEL_TRUST_PROXY_HEADERS has invalid value %q", v)
		}
		cfg.TrustProxyHeaders = b
	}

	if cfg.PrivateKey != "" && cfg.KeystorePath != "" {
		return nil, errors.New("set only one of SUBPANEL_PRIVATE_KEY and SUBPANEL_KEYSTORE_PATH")
	}

	return cfg, nil
}

func addressEnv(key, def string) (common.Address, error) {
	v := def
	if s, ok := os.LookupEnv(key); ok && s != "" {
		v = s
	}
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%s has invalid address %q", key, v)
	}
	return common.HexToAddress(v), nil
}
