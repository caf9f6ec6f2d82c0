package config_test

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/kujira-labs/oracle-backend/config"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SOLANA_RPC_URL", "https://api.devnet.solana.com")
	t.Setenv("SOLANA_WS_URL", "wss://api.devnet.solana.com")
	t.Setenv("DATABASE_URL", "postgres://localhost/oracle")
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)
	setRequiredEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "redis://127.0.0.1", cfg.RedisURL)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "0.0.0.0:8080", cfg.Server.ListenAddr())
	require.Equal(t, int64(30), cfg.Oracle.MaxPriceAgeSeconds)
	require.Equal(t, int64(100), cfg.Oracle.MaxConfidenceBps)
	require.Equal(t, int64(100), cfg.Oracle.MaxDeviationBps)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	resetViper(t)
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MAX_PRICE_AGE_SECONDS", "60")
	t.Setenv("MAX_CONFIDENCE_BPS", "50")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, int64(60), cfg.Oracle.MaxPriceAgeSeconds)
	require.Equal(t, int64(50), cfg.Oracle.MaxConfidenceBps)
}

func TestLoad_MissingRequiredFails(t *testing.T) {
	resetViper(t)
	os.Unsetenv("SOLANA_RPC_URL")
	os.Unsetenv("SOLANA_WS_URL")
	os.Unsetenv("DATABASE_URL")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoad_InvalidURLFails(t *testing.T) {
	resetViper(t)
	t.Setenv("SOLANA_RPC_URL", "not-a-url")
	t.Setenv("SOLANA_WS_URL", "wss://api.devnet.solana.com")
	t.Setenv("DATABASE_URL", "postgres://localhost/oracle")

	_, err := config.Load()
	require.Error(t, err)
}

func TestConfig_CORSWildcardRequiresVerbose(t *testing.T) {
	cfg := config.Config{
		SolanaRPCURL: "https://api.devnet.solana.com",
		SolanaWSURL:  "wss://api.devnet.solana.com",
		DatabaseURL:  "postgres://localhost/oracle",
		RedisURL:     "redis://127.0.0.1",
		Server:       config.Server{Host: "0.0.0.0", Port: 8080},
		Oracle:       config.Oracle{MaxPriceAgeSeconds: 30, MaxConfidenceBps: 100, MaxDeviationBps: 100},
		CORS:         config.CORS{AllowedOrigins: []string{"*"}, Verbose: false},
	}
	require.Error(t, cfg.Validate())

	cfg.CORS.Verbose = true
	require.NoError(t, cfg.Validate())
}

func TestLoadFeedRegistry(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "feeds-*.toml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	content := []byte(`
[[pyth]]
symbol = "BTC/USD"
address = "GVXRSBjFk6e6J3NbVPXohDJetcTjaeeuykUpbQF8UoMU"

[[switchboard]]
symbol = "BTC/USD"
address = "8SXvChNYFhRq4EZuZvnhjrB3jJRQCv4k3P4W6hesH3Ee"
`)
	_, err = tmpFile.Write(content)
	require.NoError(t, err)

	reg, err := config.LoadFeedRegistry(tmpFile.Name())
	require.NoError(t, err)
	require.Len(t, reg.Pyth, 1)
	require.Equal(t, "BTC/USD", reg.Pyth[0].Symbol)
	require.Len(t, reg.Switchboard, 1)
}

func TestLoadFeedRegistry_MissingFile(t *testing.T) {
	_, err := config.LoadFeedRegistry("/nonexistent/feeds.toml")
	require.Error(t, err)
}
