package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noEnvFile points Load at a file that does not exist.
func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(Options{EnvFile: noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "https://api.devnet.solana.com", cfg.Solana.RPCEndpoint)
	assert.Equal(t, "devnet", cfg.Solana.Cluster)
	assert.Equal(t, 60*time.Second, cfg.Solana.ConfirmTimeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, 30*time.Second, cfg.Refresh.Interval)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("TOKENAPP_SOLANA_RPCENDPOINT", "http://localhost:8899")
	t.Setenv("SOLANA_CLUSTER", "localnet")
	t.Setenv("TOKENAPP_REFRESH_INTERVAL", "5s")
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost/db")

	cfg, err := Load(Options{EnvFile: noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8899", cfg.Solana.RPCEndpoint)
	assert.Equal(t, "localnet", cfg.Solana.Cluster)
	assert.Equal(t, 5*time.Second, cfg.Refresh.Interval)
	assert.Equal(t, StoragePostgres, cfg.Storage.Backend)
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.Storage.PostgresDSN)
}

func TestLoad_EnvFileAndYAML(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TOKENAPP_SERVER_ADDR=:9999\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TOKENAPP_SERVER_ADDR") })

	yamlFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte(`
solana:
  cluster: testnet
  confirmTimeout: 90s
wallet:
  keypairPath: /tmp/id.json
`), 0o600))

	cfg, err := Load(Options{EnvFile: envFile, ConfigFile: yamlFile})
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "testnet", cfg.Solana.Cluster)
	assert.Equal(t, 90*time.Second, cfg.Solana.ConfirmTimeout)
	assert.Equal(t, "/tmp/id.json", cfg.Wallet.KeypairPath)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("TOKENAPP_SOLANA_CLUSTER", "testnet")

	v := viper.New()
	v.Set("solana.cluster", "mainnet-beta")

	cfg, err := Load(Options{EnvFile: noEnvFile(t), Viper: v})
	require.NoError(t, err)
	assert.Equal(t, "mainnet-beta", cfg.Solana.Cluster)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(Options{EnvFile: noEnvFile(t), ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no rpc", func(c *Config) { c.Solana.RPCEndpoint = "" }},
		{"zero timeout", func(c *Config) { c.Solana.ConfirmTimeout = 0 }},
		{"zero interval", func(c *Config) { c.Refresh.Interval = 0 }},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = StoragePostgres }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }},
		{"autoconnect without keypair", func(c *Config) { c.Wallet.AutoConnect = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}
