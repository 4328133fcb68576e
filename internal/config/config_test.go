package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every SUBPANEL_ env var that Load() reads.
var allConfigKeys = []string{
	"SUBPANEL_RPC_URL",
	"SUBPANEL_FALLBACK_RPC_URL",
	"SUBPANEL_CHAIN_ID",
	"SUBPANEL_PRIVATE_KEY",
	"SUBPANEL_KEYSTORE_PATH",
	"SUBPANEL_KEYSTORE_PASSWORD",
	"SUBPANEL_SUBSCRIPTION_ADDRESS",
	"SUBPANEL_TOKEN_ADDRESS",
	"SUBPANEL_LISTEN_ADDR",
	"SUBPANEL_DB_PATH",
	"SUBPANEL_RECEIPT_TIMEOUT",
	"SUBPANEL_REDIS_ADDR",
	"SUBPANEL_REDIS_PASSWORD",
	"SUBPANEL_RATE_LIMIT",
	"SUBPANEL_TRUST_PROXY_HEADERS",
	"SUBPANEL_PLAN_NOTES_PATH",
}

// isolateConfigEnv saves and unsets all SUBPANEL_ env vars so tests don't
// inherit values from the host environment, and runs the test from an empty
// directory so no stray .env file is picked up.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
	t.Chdir(t.TempDir())
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SUBPANEL_RPC_URL", "https://sepolia.example.org")
	t.Setenv("SUBPANEL_CHAIN_ID", "11155111")
	t.Setenv("SUBPANEL_PRIVATE_KEY", "0xabc")
	t.Setenv("SUBPANEL_SUBSCRIPTION_ADDRESS", "0xd8b934580fcE35a11B58C6D73aDeE468a2833fa8")
	t.Setenv("SUBPANEL_TOKEN_ADDRESS", "0xd9145CCE52D386f254917e481eB44e9943F39138")
	t.Setenv("SUBPANEL_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("SUBPANEL_DB_PATH", "/tmp/test.db")
	t.Setenv("SUBPANEL_RECEIPT_TIMEOUT", "45s")
	t.Setenv("SUBPANEL_RATE_LIMIT", "5")
	t.Setenv("SUBPANEL_TRUST_PROXY_HEADERS", "true")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://sepolia.example.org", cfg.RPCURL)
	assert.Equal(t, int64(11155111), cfg.ChainID.Int64())
	assert.True(t, cfg.HasSigner())
	assert.Equal(t, common.HexToAddress("0xd8b934580fcE35a11B58C6D73aDeE468a2833fa8"), cfg.SubscriptionAddress)
	assert.Equal(t, common.HexToAddress("0xd9145CCE52D386f254917e481eB44e9943F39138"), cfg.TokenAddress)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, 45*time.Second, cfg.ReceiptTimeout)
	assert.Equal(t, 5, cfg.RateLimit)
	assert.True(t, cfg.TrustProxyHeaders)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "", cfg.RPCURL)
	assert.Equal(t, DefaultFallbackRPCURL, cfg.FallbackRPCURL)
	assert.Nil(t, cfg.ChainID)
	assert.False(t, cfg.HasSigner())
	assert.Equal(t, common.HexToAddress(DefaultSubscriptionAddress), cfg.SubscriptionAddress)
	assert.Equal(t, common.HexToAddress(DefaultTokenAddress), cfg.TokenAddress)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "subpanel.db", cfg.DBPath)
	assert.Equal(t, 2*time.Minute, cfg.ReceiptTimeout)
	assert.Equal(t, 30, cfg.RateLimit)
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestLoad_InvalidTrustProxyHeaders(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SUBPANEL_TRUST_PROXY_HEADERS", "sometimes")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUBPANEL_TRUST_PROXY_HEADERS")
}

func TestLoad_InvalidAddress(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SUBPANEL_TOKEN_ADDRESS", "0x1234")

	cfg, err := Load()

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SUBPANEL_TOKEN_ADDRESS")
}

func TestLoad_InvalidChainID(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SUBPANEL_CHAIN_ID", "sepolia")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoad_InvalidReceiptTimeout(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SUBPANEL_RECEIPT_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SUBPANEL_RECEIPT_TIMEOUT", "-1s")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_InvalidRateLimit(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SUBPANEL_RATE_LIMIT", "-3")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoad_BothSignerSources(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("SUBPANEL_PRIVATE_KEY", "0xabc")
	t.Setenv("SUBPANEL_KEYSTORE_PATH", "/keys/a.json")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoad_DotEnvFile(t *testing.T) {
	isolateConfigEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(".", ".env"), []byte("SUBPANEL_DB_PATH=from-dotenv.db\nSUBPANEL_LISTEN_ADDR=127.0.0.1:7000\n"), 0o600))
	t.Setenv("SUBPANEL_LISTEN_ADDR", "127.0.0.1:9000")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr, "real env wins over .env")
}
