// Package config loads application configuration from an optional .env
// file, an optional YAML file and TOKENAPP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "TOKENAPP"

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// ErrInvalidConfig is returned when a loaded value fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the application configuration.
type Config struct {
	Solana  Solana  `mapstructure:"solana"`
	Wallet  Wallet  `mapstructure:"wallet"`
	Server  Server  `mapstructure:"server"`
	Storage Storage `mapstructure:"storage"`
	Refresh Refresh `mapstructure:"refresh"`
}

// Solana configures the ledger endpoints.
type Solana struct {
	RPCEndpoint    string        `mapstructure:"rpcEndpoint"`
	WSEndpoint     string        `mapstructure:"wsEndpoint"` // empty disables WS confirmation
	Cluster        string        `mapstructure:"cluster"`
	ExplorerURL    string        `mapstructure:"explorerURL"`
	ConfirmTimeout time.Duration `mapstructure:"confirmTimeout"`
	SkipMetadata   bool          `mapstructure:"skipMetadata"`
}

// Wallet configures the keypair loaded into the wallet session.
type Wallet struct {
	KeypairPath string `mapstructure:"keypairPath"`
	AutoConnect bool   `mapstructure:"autoConnect"`
}

// Server configures the HTTP listener.
type Server struct {
	Addr string `mapstructure:"addr"`
}

// Storage selects the registry and operation log backends.
type Storage struct {
	Backend       string `mapstructure:"backend"` // memory | postgres
	PostgresDSN   string `mapstructure:"postgresDSN"`
	ClickhouseDSN string `mapstructure:"clickhouseDSN"` // optional analytics copy of the operation log
	Migrate       bool   `mapstructure:"migrate"`
}

// Refresh configures the dashboard refresher.
type Refresh struct {
	Interval time.Duration `mapstructure:"interval"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Solana: Solana{
			RPCEndpoint:    "https://api.devnet.solana.com",
			Cluster:        "devnet",
			ConfirmTimeout: 60 * time.Second,
		},
		Server:  Server{Addr: ":8080"},
		Storage: Storage{Backend: StorageMemory},
		Refresh: Refresh{Interval: 30 * time.Second},
	}
}

// Options controls where Load reads from.
type Options struct {
	// EnvFile is loaded into the process environment when it exists.
	// Default: ".env".
	EnvFile string
	// ConfigFile is an optional YAML file.
	ConfigFile string
	// Viper, when set, is used instead of a fresh instance so callers can
	// bind command-line flags before loading.
	Viper *viper.Viper
}

var bindings = map[string][]string{
	"solana.rpcEndpoint":    {"SOLANA_RPC_ENDPOINT"},
	"solana.wsEndpoint":     {"SOLANA_WS_ENDPOINT"},
	"solana.cluster":        {"SOLANA_CLUSTER"},
	"solana.explorerURL":    {"EXPLORER_URL"},
	"solana.confirmTimeout": {"CONFIRM_TIMEOUT"},
	"solana.skipMetadata":   {"SKIP_METADATA"},
	"wallet.keypairPath":    {"KEYPAIR_PATH"},
	"wallet.autoConnect":    {"AUTO_CONNECT"},
	"server.addr":           {"LISTEN_ADDR"},
	"storage.backend":       {"STORAGE_BACKEND"},
	"storage.postgresDSN":   {"POSTGRES_DSN"},
	"storage.clickhouseDSN": {"CLICKHOUSE_DSN"},
	"storage.migrate":       {"MIGRATE"},
	"refresh.interval":      {"REFRESH_INTERVAL"},
}

// Load reads configuration. Precedence, highest first: values set on
// opts.Viper (flags), TOKENAPP_* and unprefixed environment variables, the
// YAML file, defaults.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		// Existing environment variables win over the file.
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := opts.Viper
	if v == nil {
		v = viper.New()
	}
	setDefaults(v, Defaults())

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	for key, legacy := range bindings {
		names := append([]string{envName(key)}, legacy...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("solana.rpcEndpoint", d.Solana.RPCEndpoint)
	v.SetDefault("solana.wsEndpoint", d.Solana.WSEndpoint)
	v.SetDefault("solana.cluster", d.Solana.Cluster)
	v.SetDefault("solana.explorerURL", d.Solana.ExplorerURL)
	v.SetDefault("solana.confirmTimeout", d.Solana.ConfirmTimeout)
	v.SetDefault("solana.skipMetadata", d.Solana.SkipMetadata)
	v.SetDefault("wallet.keypairPath", d.Wallet.KeypairPath)
	v.SetDefault("wallet.autoConnect", d.Wallet.AutoConnect)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.postgresDSN", d.Storage.PostgresDSN)
	v.SetDefault("storage.clickhouseDSN", d.Storage.ClickhouseDSN)
	v.SetDefault("storage.migrate", d.Storage.Migrate)
	v.SetDefault("refresh.interval", d.Refresh.Interval)
}

// envName maps "solana.rpcEndpoint" to "TOKENAPP_SOLANA_RPCENDPOINT".
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if c.Solana.RPCEndpoint == "" {
		return fmt.Errorf("%w: solana.rpcEndpoint is required", ErrInvalidConfig)
	}
	if c.Solana.ConfirmTimeout <= 0 {
		return fmt.Errorf("%w: solana.confirmTimeout must be positive", ErrInvalidConfig)
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("%w: refresh.interval must be positive", ErrInvalidConfig)
	}
	switch c.Storage.Backend {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("%w: storage.postgresDSN is required for the postgres backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Wallet.AutoConnect && c.Wallet.KeypairPath == "" {
		return fmt.Errorf("%w: wallet.autoConnect needs wallet.keypairPath", ErrInvalidConfig)
	}
	return nil
}
