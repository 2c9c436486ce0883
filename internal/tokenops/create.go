package tokenops

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/blocto/solana-go-sdk/types"

	"github.com/sreeramp-official/solana-token-app/internal/amount"
	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/solana"
	"github.com/sreeramp-official/solana-token-app/internal/storage"
	"github.com/sreeramp-official/solana-token-app/internal/txbuild"
	"github.com/sreeramp-official/solana-token-app/internal/wallet"
)

// MaxSymbolLength bounds the token symbol.
const MaxSymbolLength = 10

// CreateRequest is the create form input.
type CreateRequest struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	Decimals      int    `json:"decimals"`
	InitialSupply string `json:"initial_supply"` // display units; empty means 0
}

// normalize trims fields and validates them. It returns the raw initial supply.
func (r *CreateRequest) normalize() (uint64, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Symbol = strings.TrimSpace(r.Symbol)
	r.InitialSupply = strings.TrimSpace(r.InitialSupply)

	if r.Name == "" {
		return 0, fmt.Errorf("%w: token name is required", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(r.Symbol); n == 0 || n > MaxSymbolLength {
		return 0, fmt.Errorf("%w: symbol must be 1 to %d characters", ErrInvalidInput, MaxSymbolLength)
	}
	if err := amount.ValidateDecimals(r.Decimals); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if r.InitialSupply == "" {
		r.InitialSupply = "0"
	}
	raw, err := amount.ToRaw(r.InitialSupply, uint8(r.Decimals))
	if err != nil {
		return 0, err
	}
	return amount.ToUint64(raw)
}

// CreateToken creates a new mint controlled by the connected wallet, its
// associated token account, and mints the initial supply into it.
func (s *Service) CreateToken(ctx context.Context, req CreateRequest) (*Receipt, error) {
	signer, err := s.session.Current()
	if err != nil {
		return nil, err
	}
	if _, err := s.create.beginSubmit(signer.PublicKey()); err != nil {
		return nil, err
	}

	receipt, err := s.createToken(ctx, signer, req)
	s.create.endSubmit(err, true)
	return receipt, err
}

func (s *Service) createToken(ctx context.Context, signer wallet.Signer, req CreateRequest) (*Receipt, error) {
	supply, err := req.normalize()
	if err != nil {
		return nil, err
	}
	payer := signer.PublicKey()

	mintAccount := s.newMint()
	mint := mintAccount.PublicKey.ToBase58()
	decimals := uint8(req.Decimals)

	receipt, err := s.submit(ctx, submission{
		kind:      domain.OperationCreate,
		signer:    signer,
		mint:      mint,
		rawAmount: fmt.Sprint(supply),
		extra:     []types.Account{mintAccount},
	}, func(ctx context.Context) ([]types.Instruction, error) {
		rent, err := s.rpc.GetMinimumBalanceForRentExemption(ctx, solana.MintAccountSize)
		if err != nil {
			return nil, ledgerError(err)
		}
		return txbuild.CreateMint(txbuild.CreateMintParams{
			Payer:         payer,
			Mint:          mint,
			Decimals:      decimals,
			RentLamports:  rent,
			InitialSupply: supply,
		})
	})
	if err != nil {
		return nil, err
	}
	receipt.Amount = amount.ToDisplayUint64(supply, decimals)

	s.register(ctx, &domain.RegisteredToken{
		Mint:      mint,
		Name:      req.Name,
		Symbol:    req.Symbol,
		Decimals:  decimals,
		Creator:   payer,
		Signature: receipt.Signature,
		CreatedAt: s.nowMs(),
	})
	return receipt, nil
}

// register stores the name and symbol of a created token. The token exists
// on the ledger regardless, so failures are only logged.
func (s *Service) register(ctx context.Context, t *domain.RegisteredToken) {
	if s.registry == nil {
		return
	}
	err := s.registry.Insert(context.WithoutCancel(ctx), t)
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		s.logger.Printf("registry: %s already registered", t.Mint)
	case err != nil:
		s.logger.Printf("registry: insert %s: %v", t.Mint, err)
	}
}
