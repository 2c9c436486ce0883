package tokenops

import (
	"context"
	"encoding/binary"
	"io"
	"log"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sreeramp-official/solana-token-app/internal/confirm"
	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/solana"
	"github.com/sreeramp-official/solana-token-app/internal/solana/stub"
	"github.com/sreeramp-official/solana-token-app/internal/storage/memory"
	"github.com/sreeramp-official/solana-token-app/internal/wallet"
)

const fundedLamports = uint64(10_000_000_000)

type fixture struct {
	ledger   *stub.Ledger
	session  *wallet.Session
	owner    *wallet.Keypair
	registry *memory.TokenRegistry
	ops      *memory.OperationLog
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ledger := stub.NewLedger()
	owner := wallet.NewKeypair()
	ledger.Fund(owner.PublicKey(), fundedLamports)

	session := wallet.NewSession("devnet")
	require.NoError(t, session.Connect(context.Background(), owner))

	f := &fixture{
		ledger:   ledger,
		session:  session,
		owner:    owner,
		registry: memory.NewTokenRegistry(),
		ops:      memory.NewOperationLog(),
	}
	f.svc = NewService(Options{
		RPC: ledger,
		Confirmer: confirm.NewPoller(ledger, confirm.PollerOptions{
			Timeout:      2 * time.Second,
			PollInterval: time.Millisecond,
		}),
		Session:    session,
		Registry:   f.registry,
		Operations: f.ops,
		Cluster:    "devnet",
		Logger:     log.New(io.Discard, "", 0),
	})
	return f
}

// addMint installs an initialized mint and returns its address.
func (f *fixture) addMint(t *testing.T, decimals uint8, authority string) string {
	t.Helper()
	addr := wallet.NewKeypair().PublicKey()
	m := &domain.Mint{
		Address:       addr,
		Decimals:      decimals,
		Supply:        new(big.Int),
		IsInitialized: true,
	}
	if authority != "" {
		m.MintAuthority = &authority
	}
	f.ledger.AddMint(m)
	return addr
}

// addBalance installs owner's associated token account for mint.
func (f *fixture) addBalance(t *testing.T, owner, mint string, raw int64) string {
	t.Helper()
	ata, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	f.ledger.AddTokenAccount(&domain.TokenAccount{
		Address: ata,
		Owner:   owner,
		Mint:    mint,
		Amount:  big.NewInt(raw),
	})
	return ata
}

func (f *fixture) balance(t *testing.T, owner, mint string) *big.Int {
	t.Helper()
	ata, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	acc, ok := f.ledger.TokenAccount(ata)
	if !ok {
		return nil
	}
	return acc.Amount
}

func (f *fixture) operations(t *testing.T) []*domain.OperationRecord {
	t.Helper()
	ops, err := f.ops.ListByWallet(context.Background(), f.owner.PublicKey(), 0)
	require.NoError(t, err)
	return ops
}

// metaplexData builds Metaplex metadata account bytes with padded strings.
func metaplexData(name, symbol string) []byte {
	data := make([]byte, 65)
	data[0] = 4
	put := func(s string, size int) {
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(size))
		data = append(data, n[:]...)
		padded := make([]byte, size)
		copy(padded, s)
		data = append(data, padded...)
	}
	put(name, 32)
	put(symbol, 10)
	put("", 200)
	return data
}

// blockingConfirmer holds Confirm until release is closed.
type blockingConfirmer struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingConfirmer() *blockingConfirmer {
	return &blockingConfirmer{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (c *blockingConfirmer) Confirm(ctx context.Context, _ string) error {
	c.entered <- struct{}{}
	select {
	case <-c.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
