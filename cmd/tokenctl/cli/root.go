// Package cli implements the tokenctl commands.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sreeramp-official/solana-token-app/internal/config"
	"github.com/sreeramp-official/solana-token-app/internal/confirm"
	"github.com/sreeramp-official/solana-token-app/internal/solana"
	"github.com/sreeramp-official/solana-token-app/internal/storage"
	"github.com/sreeramp-official/solana-token-app/internal/storage/backends"
	"github.com/sreeramp-official/solana-token-app/internal/tokenops"
	"github.com/sreeramp-official/solana-token-app/internal/wallet"
)

const (
	Major  = "1"
	Minor  = "0"
	Fix    = "0"
	Verbal = "Initial"
)

// newRPC builds the ledger client. Tests replace it.
var newRPC = func(cfg config.Solana) solana.RPCClient { //nolint:gochecknoglobals
	return solana.NewHTTPClient(cfg.RPCEndpoint, solana.WithCommitment(solana.CommitmentConfirmed))
}

// persistentFlags maps root flags to config keys.
var persistentFlags = map[string]string{ //nolint:gochecknoglobals
	"rpc-endpoint":    "solana.rpcEndpoint",
	"cluster":         "solana.cluster",
	"explorer-url":    "solana.explorerURL",
	"confirm-timeout": "solana.confirmTimeout",
	"skip-metadata":   "solana.skipMetadata",
	"keypair":         "wallet.keypairPath",
	"storage":         "storage.backend",
	"postgres-dsn":    "storage.postgresDSN",
	"clickhouse-dsn":  "storage.clickhouseDSN",
	"migrate":         "storage.migrate",
}

// errWalletRequired is returned when a command needs a keypair and none is configured.
var errWalletRequired = errors.New("no keypair configured: pass --keypair or set KEYPAIR_PATH")

// Run enters into the cobra command tree.
func Run() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), err)
		return fmt.Errorf("error executing root command: %w", err)
	}
	return nil
}

// root carries the state shared by all commands.
type root struct {
	v          *viper.Viper
	configFile string
	envFile    string
	jsonOut    bool
	verbose    bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	r := &root{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "tokenctl",
		Short:         "Create, mint and send SPL tokens",
		Long:          "tokenctl - SPL token dashboard, creation, minting and transfers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	d := config.Defaults()
	pf := cmd.PersistentFlags()
	pf.StringVar(&r.configFile, "config", "", "Path to YAML config file")
	pf.StringVar(&r.envFile, "env-file", ".env", "Path to .env file")
	pf.BoolVar(&r.jsonOut, "json", false, "Print JSON instead of text")
	pf.BoolVarP(&r.verbose, "verbose", "v", false, "Log ledger and storage activity to stderr")
	pf.String("rpc-endpoint", d.Solana.RPCEndpoint, "Solana RPC endpoint")
	pf.String("cluster", d.Solana.Cluster, "Cluster name for explorer links")
	pf.String("explorer-url", "", "Explorer base URL")
	pf.Duration("confirm-timeout", d.Solana.ConfirmTimeout, "Transaction confirmation timeout")
	pf.Bool("skip-metadata", false, "Do not look up Metaplex metadata for dashboard labels")
	pf.String("keypair", "", "Path to keypair file (default ~/.config/solana/id.json)")
	pf.String("storage", d.Storage.Backend, "Storage backend: memory or postgres")
	pf.String("postgres-dsn", "", "PostgreSQL DSN")
	pf.String("clickhouse-dsn", "", "ClickHouse DSN for the operation log copy")
	pf.Bool("migrate", false, "Run storage migrations before use")
	for name, key := range persistentFlags {
		if err := r.v.BindPFlag(key, pf.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}

	cmd.AddCommand(
		newVersionCmd(),
		newBalancesCmd(r),
		newCreateCmd(r),
		newMintCmd(r),
		newSendCmd(r),
		newHistoryCmd(r),
		newReportCmd(r),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Describes version.",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Version: %s.%s.%s %s\n", Major, Minor, Fix, Verbal)
		},
	}
}

// env is an opened service for the duration of one command.
type env struct {
	svc        *tokenops.Service
	operations storage.OperationLog
	signer     wallet.Signer
	cleanup    func()
}

// open loads configuration and builds the token service. With connect set,
// the configured keypair is loaded into the wallet session.
func (r *root) open(cmd *cobra.Command, connect bool) (*env, error) {
	ctx := cmd.Context()
	cfg, err := config.Load(config.Options{
		EnvFile:    r.envFile,
		ConfigFile: r.configFile,
		Viper:      r.v,
	})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logOut := io.Discard
	if r.verbose {
		logOut = cmd.ErrOrStderr()
	}
	logger := func(prefix string) *log.Logger {
		return log.New(logOut, prefix, log.LstdFlags|log.Lshortfile)
	}

	st, cleanup, err := backends.Open(ctx, cfg.Storage, logger("[storage] "))
	if err != nil {
		return nil, err
	}

	rpc := newRPC(cfg.Solana)
	session := wallet.NewSession(cfg.Solana.Cluster)
	svc := tokenops.NewService(tokenops.Options{
		RPC: rpc,
		Confirmer: confirm.NewPoller(rpc, confirm.PollerOptions{
			Commitment: solana.CommitmentConfirmed,
			Timeout:    cfg.Solana.ConfirmTimeout,
		}),
		Session:      session,
		Registry:     st.Registry,
		Operations:   st.Operations,
		Cluster:      cfg.Solana.Cluster,
		ExplorerURL:  cfg.Solana.ExplorerURL,
		SkipMetadata: cfg.Solana.SkipMetadata,
		Logger:       logger("[tokenops] "),
	})

	e := &env{svc: svc, operations: st.Operations, cleanup: cleanup}
	if !connect {
		return e, nil
	}

	kp, err := loadKeypair(cfg.Wallet.KeypairPath)
	if err != nil {
		cleanup()
		return nil, err
	}
	if err := session.Connect(ctx, kp); err != nil {
		cleanup()
		return nil, fmt.Errorf("connect wallet: %w", err)
	}
	e.signer = kp
	return e, nil
}

// loadKeypair reads path, falling back to the solana CLI default location.
func loadKeypair(path string) (*wallet.Keypair, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errWalletRequired
		}
		path = filepath.Join(home, ".config", "solana", "id.json")
		if _, err := os.Stat(path); err != nil {
			return nil, errWalletRequired
		}
	}
	kp, err := wallet.LoadKeypairFile(path)
	if err != nil {
		return nil, fmt.Errorf("load keypair: %w", err)
	}
	return kp, nil
}

// owner returns args[0] when given, otherwise the configured keypair's
// public key.
func (r *root) owner(cmd *cobra.Command, args []string) (*env, string, error) {
	if len(args) > 0 {
		e, err := r.open(cmd, false)
		return e, args[0], err
	}
	e, err := r.open(cmd, true)
	if err != nil {
		return nil, "", err
	}
	return e, e.signer.PublicKey(), nil
}

// noticeError presents a failed operation the way the forms do.
type noticeError struct {
	notice tokenops.Notice
	err    error
}

func (e *noticeError) Error() string {
	if e.notice.Description == "" {
		return e.notice.Title
	}
	return e.notice.Title + ": " + e.notice.Description
}

func (e *noticeError) Unwrap() error {
	return e.err
}

func failed(action tokenops.Action, err error) error {
	return &noticeError{notice: tokenops.ErrorNotice(action, err), err: err}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printReceipt writes the success notice and transaction links.
func (r *root) printReceipt(cmd *cobra.Command, action tokenops.Action, receipt *tokenops.Receipt) error {
	w := cmd.OutOrStdout()
	if r.jsonOut {
		return printJSON(w, receipt)
	}
	n := tokenops.SuccessNotice(action, receipt)
	_, _ = fmt.Fprintln(w, n.Title)
	_, _ = fmt.Fprintln(w, n.Description)
	_, _ = fmt.Fprintf(w, "Mint:      %s\n", receipt.Mint)
	_, _ = fmt.Fprintf(w, "Signature: %s\n", receipt.Signature)
	_, _ = fmt.Fprintf(w, "Explorer:  %s\n", receipt.ExplorerURL)
	_, _ = fmt.Fprintf(w, "Mint link: %s\n", receipt.MintURL)
	return nil
}
