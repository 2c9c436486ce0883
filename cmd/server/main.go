// Package main runs the token app HTTP server:
// - Wallet session bound to a local keypair
// - Token forms (dashboard, create, mint, send, history) under /api
// - Dashboard refresher while a wallet is connected
// - /health, /metrics and /status
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/sreeramp-official/solana-token-app/internal/api"
	"github.com/sreeramp-official/solana-token-app/internal/config"
	"github.com/sreeramp-official/solana-token-app/internal/confirm"
	"github.com/sreeramp-official/solana-token-app/internal/observability"
	"github.com/sreeramp-official/solana-token-app/internal/refresh"
	"github.com/sreeramp-official/solana-token-app/internal/solana"
	"github.com/sreeramp-official/solana-token-app/internal/storage/backends"
	"github.com/sreeramp-official/solana-token-app/internal/tokenops"
	"github.com/sreeramp-official/solana-token-app/internal/wallet"
)

// flagKeys maps command-line flags to config keys. Only flags set on the
// command line override the loaded configuration.
var flagKeys = map[string]string{
	"rpc-endpoint":     "solana.rpcEndpoint",
	"ws-endpoint":      "solana.wsEndpoint",
	"cluster":          "solana.cluster",
	"keypair":          "wallet.keypairPath",
	"auto-connect":     "wallet.autoConnect",
	"addr":             "server.addr",
	"storage":          "storage.backend",
	"postgres-dsn":     "storage.postgresDSN",
	"clickhouse-dsn":   "storage.clickhouseDSN",
	"migrate":          "storage.migrate",
	"refresh-interval": "refresh.interval",
	"confirm-timeout":  "solana.confirmTimeout",
}

func main() {
	configFile := flag.String("config", "", "Optional YAML config file")
	envFile := flag.String("env-file", ".env", "Optional .env file")
	flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint")
	flag.String("ws-endpoint", "", "Solana WebSocket endpoint (enables WS confirmation)")
	flag.String("cluster", "", "Cluster name used in explorer links (devnet, testnet, mainnet-beta)")
	flag.String("keypair", "", "Path to a solana-keygen keypair file")
	flag.Bool("auto-connect", false, "Connect the keypair on startup")
	flag.String("addr", "", "HTTP listen address")
	flag.String("storage", "", "Storage backend (memory, postgres)")
	flag.String("postgres-dsn", "", "PostgreSQL connection string")
	flag.String("clickhouse-dsn", "", "ClickHouse connection string (optional operation log mirror)")
	flag.Bool("migrate", false, "Run database migrations on startup")
	flag.Duration("refresh-interval", 0, "Dashboard refresh interval")
	flag.Duration("confirm-timeout", 0, "Transaction confirmation timeout")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	v := viper.New()
	flag.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
	})

	cfg, err := config.Load(config.Options{EnvFile: *envFile, ConfigFile: *configFile, Viper: v})
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	st, cleanup, err := backends.Open(ctx, cfg.Storage, log.New(os.Stdout, "[storage] ", log.LstdFlags|log.Lshortfile))
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint, solana.WithCommitment(solana.CommitmentConfirmed))
	confirmer, closeWS := createConfirmer(ctx, cfg.Solana, rpc, logger)
	defer closeWS()

	session := wallet.NewSession(cfg.Solana.Cluster)
	svc := tokenops.NewService(tokenops.Options{
		RPC:          rpc,
		Confirmer:    confirmer,
		Session:      session,
		Registry:     st.Registry,
		Operations:   st.Operations,
		Cluster:      cfg.Solana.Cluster,
		ExplorerURL:  cfg.Solana.ExplorerURL,
		SkipMetadata: cfg.Solana.SkipMetadata,
		Logger:       log.New(os.Stdout, "[tokenops] ", log.LstdFlags|log.Lshortfile),
	})

	refresher := refresh.New(refresh.Options{
		Fetcher:  svc,
		Interval: cfg.Refresh.Interval,
		Logger:   log.New(os.Stdout, "[refresh] ", log.LstdFlags|log.Lshortfile),
	})
	refresher.Attach(session)
	defer refresher.Stop()

	session.OnConnect(func(s wallet.Signer) {
		observability.SetWalletConnected(true)
		logger.Printf("Wallet connected: %s (%s)", s.PublicKey(), cfg.Solana.Cluster)
	})
	session.OnDisconnect(func(pub string) {
		svc.ResetForms()
		observability.SetWalletConnected(false)
		logger.Printf("Wallet disconnected: %s", pub)
	})

	if cfg.Wallet.AutoConnect {
		kp, err := wallet.LoadKeypairFile(cfg.Wallet.KeypairPath)
		if err != nil {
			logger.Fatalf("Failed to load keypair: %v", err)
		}
		if err := session.Connect(ctx, kp); err != nil {
			logger.Fatalf("Failed to connect wallet: %v", err)
		}
	}

	handler := api.NewHandler(api.Options{
		Service:        svc,
		Refresher:      refresher,
		Operations:     st.Operations,
		KeypairPath:    cfg.Wallet.KeypairPath,
		RequestTimeout: cfg.Solana.ConfirmTimeout + 30*time.Second,
		Logger:         log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile),
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = serve(ctx, srv, logger)
	done <- err
	cancel()
	session.Disconnect()

	if err != nil {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, logger *log.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Printf("Starting HTTP server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// createConfirmer prefers WebSocket confirmation with polling as fallback.
func createConfirmer(ctx context.Context, cfg config.Solana, rpc solana.RPCClient, logger *log.Logger) (confirm.Confirmer, func()) {
	poller := confirm.NewPoller(rpc, confirm.PollerOptions{
		Commitment: solana.CommitmentConfirmed,
		Timeout:    cfg.ConfirmTimeout,
	})
	if cfg.WSEndpoint == "" {
		return poller, func() {}
	}

	ws, err := solana.NewWSClient(ctx, cfg.WSEndpoint, nil)
	if err != nil {
		logger.Printf("WebSocket unavailable, confirming by polling: %v", err)
		return poller, func() {}
	}
	return confirm.NewWSConfirmer(ws, poller, log.New(os.Stdout, "[confirm] ", log.LstdFlags|log.Lshortfile)), func() { ws.Close() }
}
