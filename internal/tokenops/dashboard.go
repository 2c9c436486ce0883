package tokenops

import (
	"context"
	"fmt"
	"strings"

	"github.com/sreeramp-official/solana-token-app/internal/amount"
	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/solana"
)

// Dashboard returns the SOL balance and token balances of owner.
//
// Token labels come from the local registry, then Metaplex metadata, then
// a short-address placeholder. Label lookups never fail the dashboard.
func (s *Service) Dashboard(ctx context.Context, owner string) (*domain.Dashboard, error) {
	owner = strings.TrimSpace(owner)
	if err := solana.ValidateAddress(owner); err != nil {
		return nil, err
	}

	lamports, err := s.rpc.GetBalance(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", ledgerError(err))
	}

	accounts, err := s.rpc.GetTokenAccountsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("get token accounts: %w", ledgerError(err))
	}

	registered := s.registeredLabels(ctx, accounts)

	tokens := make([]domain.TokenBalance, 0, len(accounts))
	for _, acc := range accounts {
		raw, err := amount.ParseRaw(acc.Amount)
		if err != nil {
			s.logger.Printf("dashboard: skip account %s: %v", acc.Pubkey, err)
			continue
		}

		tb := domain.TokenBalance{
			Account:  acc.Pubkey,
			Mint:     acc.Mint,
			Amount:   amount.ToDisplay(raw, acc.Decimals),
			Raw:      raw.String(),
			Decimals: acc.Decimals,
		}
		if reg, ok := registered[acc.Mint]; ok {
			tb.Name, tb.Symbol, tb.Registered = reg.Name, reg.Symbol, true
		} else {
			label := s.label(ctx, acc.Mint)
			tb.Name, tb.Symbol = label.Name, label.Symbol
		}
		tokens = append(tokens, tb)
	}

	return &domain.Dashboard{
		Owner:       owner,
		Lamports:    lamports,
		SOL:         amount.ToDisplayUint64(lamports, amount.LamportDecimals),
		Tokens:      tokens,
		RefreshedAt: s.nowMs(),
	}, nil
}

func (s *Service) registeredLabels(ctx context.Context, accounts []solana.ParsedTokenAccount) map[string]*domain.RegisteredToken {
	if s.registry == nil || len(accounts) == 0 {
		return nil
	}
	mints := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		mints = append(mints, acc.Mint)
	}
	registered, err := s.registry.GetByMints(ctx, mints)
	if err != nil {
		s.logger.Printf("dashboard: registry lookup: %v", err)
		return nil
	}
	return registered
}

func (s *Service) label(ctx context.Context, mint string) solana.TokenLabel {
	if !s.skipMetadata {
		label, ok, err := solana.FetchTokenLabel(ctx, s.rpc, mint)
		switch {
		case err != nil:
			s.logger.Printf("dashboard: metadata for %s: %v", short(mint), err)
		case ok:
			return label
		}
	}
	return solana.PlaceholderLabel(mint)
}
