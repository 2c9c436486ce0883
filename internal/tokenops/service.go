// Package tokenops implements the token forms: dashboard, create, mint,
// send and history. Each form validates its input, builds instructions,
// has the connected wallet sign, submits, and waits for confirmation.
// Failures are classified into a small error taxonomy and rendered as
// user-facing notices.
package tokenops

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/google/uuid"

	"github.com/sreeramp-official/solana-token-app/internal/confirm"
	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/idhash"
	"github.com/sreeramp-official/solana-token-app/internal/observability"
	"github.com/sreeramp-official/solana-token-app/internal/solana"
	"github.com/sreeramp-official/solana-token-app/internal/storage"
	"github.com/sreeramp-official/solana-token-app/internal/txbuild"
	"github.com/sreeramp-official/solana-token-app/internal/wallet"
)

// HistoryPageSize is the number of signatures fetched per history page.
const HistoryPageSize = 10

// Options configures a Service.
type Options struct {
	RPC       solana.RPCClient
	Confirmer confirm.Confirmer // defaults to a Poller over RPC
	Session   *wallet.Session

	// Registry labels tokens created here. Optional.
	Registry storage.TokenRegistry
	// Operations receives one record per submitted transaction. Optional.
	Operations storage.OperationLog

	Cluster     string // explorer cluster query, e.g. "devnet"
	ExplorerURL string // explorer base URL; empty uses the public explorer

	// SkipMetadata disables the Metaplex lookup for unregistered tokens.
	SkipMetadata bool

	Logger *log.Logger
	// Now and NewMintAccount are replaced in tests.
	Now            func() time.Time
	NewMintAccount func() types.Account
}

// Service runs the token forms for one wallet session.
type Service struct {
	rpc        solana.RPCClient
	confirmer  confirm.Confirmer
	session    *wallet.Session
	registry   storage.TokenRegistry
	operations storage.OperationLog

	cluster      string
	explorerURL  string
	skipMetadata bool

	logger  *log.Logger
	now     func() time.Time
	newMint func() types.Account

	create *form[struct{}]
	mint   *form[domain.MintInfo]
	send   *form[domain.TokenInfo]
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	if opts.Confirmer == nil {
		opts.Confirmer = confirm.NewPoller(opts.RPC, confirm.PollerOptions{})
	}
	if opts.Session == nil {
		opts.Session = wallet.NewSession(opts.Cluster)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[tokenops] ", log.LstdFlags|log.Lshortfile)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewMintAccount == nil {
		opts.NewMintAccount = types.NewAccount
	}

	return &Service{
		rpc:          opts.RPC,
		confirmer:    opts.Confirmer,
		session:      opts.Session,
		registry:     opts.Registry,
		operations:   opts.Operations,
		cluster:      opts.Cluster,
		explorerURL:  opts.ExplorerURL,
		skipMetadata: opts.SkipMetadata,
		logger:       opts.Logger,
		now:          opts.Now,
		newMint:      opts.NewMintAccount,
		create:       newForm[struct{}]("create", false),
		mint:         newForm[domain.MintInfo]("mint", true),
		send:         newForm[domain.TokenInfo]("send", true),
	}
}

// Session returns the wallet session the forms sign with.
func (s *Service) Session() *wallet.Session {
	return s.session
}

// Receipt describes a confirmed transaction submitted by a form.
type Receipt struct {
	Kind        domain.OperationKind `json:"kind"`
	Signature   string               `json:"signature"`
	ExplorerURL string               `json:"explorer_url"`
	Mint        string               `json:"mint"`
	MintURL     string               `json:"mint_url"`   // explorer link for the mint
	Amount      string               `json:"amount"`     // display amount
	RawAmount   string               `json:"raw_amount"` // base 10
	Recipient   string               `json:"recipient,omitempty"`
	OperationID string               `json:"operation_id"`
}

// FormsStatus is the state of all three submitting forms.
type FormsStatus struct {
	Create FormStatus[struct{}]         `json:"create"`
	Mint   FormStatus[domain.MintInfo]  `json:"mint"`
	Send   FormStatus[domain.TokenInfo] `json:"send"`
}

// Forms returns the current state of every form.
func (s *Service) Forms() FormsStatus {
	return FormsStatus{
		Create: s.create.status(),
		Mint:   s.mint.status(),
		Send:   s.send.status(),
	}
}

// ResetForms drops held verification results. Called when the wallet
// disconnects.
func (s *Service) ResetForms() {
	s.create.reset()
	s.mint.reset()
	s.send.reset()
}

func (s *Service) explorerTx(signature string) string {
	return solana.ExplorerTxURL(s.explorerURL, s.cluster, signature)
}

func (s *Service) explorerAddress(address string) string {
	return solana.ExplorerAddressURL(s.explorerURL, s.cluster, address)
}

func (s *Service) nowMs() int64 {
	return s.now().UnixMilli()
}

// submission carries one transaction through sign, send and confirm.
type submission struct {
	kind      domain.OperationKind
	signer    wallet.Signer
	mint      string
	recipient string
	rawAmount string
	extra     []types.Account
}

// submit signs ixs with the wallet (and extra signers), sends, waits for
// confirmation and appends an operation record for the attempt.
func (s *Service) submit(ctx context.Context, sub submission, build func(ctx context.Context) ([]types.Instruction, error)) (*Receipt, error) {
	start := s.now()

	sig, err := s.signAndSend(ctx, sub, build)
	if err == nil {
		err = ledgerError(s.confirmer.Confirm(ctx, sig))
	}

	status := domain.OperationConfirmed
	if err != nil {
		status = domain.OperationFailed
	}
	elapsed := s.now().Sub(start)
	observability.RecordOperation(string(sub.kind), string(status), elapsed.Seconds())

	rec := &domain.OperationRecord{
		Kind:         sub.kind,
		Wallet:       sub.signer.PublicKey(),
		Mint:         sub.mint,
		Counterparty: sub.recipient,
		RawAmount:    sub.rawAmount,
		Signature:    sig,
		Status:       status,
		ErrorKind:    string(Classify(err)),
		LatencyMs:    elapsed.Milliseconds(),
		Timestamp:    start.UnixMilli(),
	}
	rec.OperationID = idhash.ComputeOperationID(rec.Kind, rec.Wallet, rec.Mint, rec.Signature, uuid.NewString(), rec.Timestamp)
	s.record(ctx, rec)

	if err != nil {
		s.logger.Printf("%s %s failed after %s: %v", sub.kind, short(sub.mint), elapsed.Round(time.Millisecond), err)
		return nil, err
	}
	s.logger.Printf("%s %s confirmed: %s (%s)", sub.kind, short(sub.mint), sig, elapsed.Round(time.Millisecond))

	return &Receipt{
		Kind:        sub.kind,
		Signature:   sig,
		ExplorerURL: s.explorerTx(sig),
		Mint:        sub.mint,
		MintURL:     s.explorerAddress(sub.mint),
		RawAmount:   sub.rawAmount,
		Recipient:   sub.recipient,
		OperationID: rec.OperationID,
	}, nil
}

func (s *Service) signAndSend(ctx context.Context, sub submission, build func(ctx context.Context) ([]types.Instruction, error)) (string, error) {
	ixs, err := build(ctx)
	if err != nil {
		return "", err
	}

	blockhash, err := s.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", ledgerError(err)
	}

	signed, err := txbuild.Sign(ctx, sub.signer, blockhash, ixs, sub.extra...)
	if err != nil {
		return "", err
	}

	sig, err := s.rpc.SendTransaction(ctx, signed.Raw)
	if err != nil {
		return "", ledgerError(err)
	}
	return sig, nil
}

// record appends to the operation log. Log failures never fail the form.
func (s *Service) record(ctx context.Context, rec *domain.OperationRecord) {
	if s.operations == nil {
		return
	}
	// The request context may already be done when the form failed on it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.operations.Insert(ctx, rec); err != nil {
		s.logger.Printf("record operation %s: %v", rec.OperationID, err)
	}
}

// accountExists reports whether address holds an account.
func (s *Service) accountExists(ctx context.Context, address string) (bool, error) {
	info, err := s.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		return false, ledgerError(err)
	}
	return info != nil, nil
}
