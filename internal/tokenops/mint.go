package tokenops

import (
	"context"
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/types"

	"github.com/sreeramp-official/solana-token-app/internal/amount"
	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/observability"
	"github.com/sreeramp-official/solana-token-app/internal/solana"
	"github.com/sreeramp-official/solana-token-app/internal/txbuild"
	"github.com/sreeramp-official/solana-token-app/internal/wallet"
)

// MintRequest is the mint form input. Mint is optional; when set it must
// match the verified mint.
type MintRequest struct {
	Mint   string `json:"mint,omitempty"`
	Amount string `json:"amount"`
}

// VerifyMint checks that mint exists and that the connected wallet is its
// mint authority. It only reads the mint account; nothing is built or
// signed.
func (s *Service) VerifyMint(ctx context.Context, mint string) (*domain.MintInfo, error) {
	if err := s.mint.beginVerify(); err != nil {
		return nil, err
	}

	walletKey, info, err := s.verifyMint(ctx, mint)
	s.mint.endVerify(walletKey, info, err)
	observability.RecordVerification("mint", verificationResult(err))
	if err != nil {
		return nil, err
	}
	s.logger.Printf("mint %s verified for %s", short(info.Mint), short(walletKey))
	return info, nil
}

func (s *Service) verifyMint(ctx context.Context, mint string) (string, *domain.MintInfo, error) {
	signer, err := s.session.Current()
	if err != nil {
		return "", nil, err
	}
	walletKey := signer.PublicKey()

	mint = strings.TrimSpace(mint)
	if mint == "" {
		return walletKey, nil, fmt.Errorf("%w: mint address is required", ErrInvalidInput)
	}
	if err := solana.ValidateAddress(mint); err != nil {
		return walletKey, nil, err
	}

	m, err := s.fetchMint(ctx, mint)
	if err != nil {
		return walletKey, nil, err
	}
	if !m.HasAuthority(walletKey) {
		return walletKey, nil, fmt.Errorf("%w: %s cannot mint %s", ErrUnauthorized, short(walletKey), short(mint))
	}

	return walletKey, &domain.MintInfo{
		Mint:          mint,
		Decimals:      m.Decimals,
		MintAuthority: *m.MintAuthority,
	}, nil
}

// MintTokens mints amount of the verified mint into the wallet's associated
// token account, creating it if missing. The verification is kept after
// success so the user can mint again.
func (s *Service) MintTokens(ctx context.Context, req MintRequest) (*Receipt, error) {
	signer, err := s.session.Current()
	if err != nil {
		return nil, err
	}
	info, err := s.mint.beginSubmit(signer.PublicKey())
	if err != nil {
		return nil, err
	}

	receipt, err := s.mintTokens(ctx, signer, info, req)
	s.mint.endSubmit(err, false)
	return receipt, err
}

func (s *Service) mintTokens(ctx context.Context, signer wallet.Signer, info *domain.MintInfo, req MintRequest) (*Receipt, error) {
	if m := strings.TrimSpace(req.Mint); m != "" && m != info.Mint {
		return nil, fmt.Errorf("%w: verified mint is %s", ErrNotVerified, short(info.Mint))
	}

	raw, err := amount.ToRaw(req.Amount, info.Decimals)
	if err != nil {
		return nil, err
	}
	if raw.Sign() == 0 {
		return nil, fmt.Errorf("%w: amount must be greater than 0", ErrInvalidAmount)
	}
	units, err := amount.ToUint64(raw)
	if err != nil {
		return nil, err
	}

	owner := signer.PublicKey()
	receipt, err := s.submit(ctx, submission{
		kind:      domain.OperationMint,
		signer:    signer,
		mint:      info.Mint,
		rawAmount: raw.String(),
	}, func(ctx context.Context) ([]types.Instruction, error) {
		dest, err := solana.FindAssociatedTokenAddress(owner, info.Mint)
		if err != nil {
			return nil, err
		}
		exists, err := s.accountExists(ctx, dest)
		if err != nil {
			return nil, err
		}
		return txbuild.MintTo(txbuild.MintToParams{
			Authority:         owner,
			Mint:              info.Mint,
			Recipient:         owner,
			CreateDestination: !exists,
			Amount:            units,
		})
	})
	if err != nil {
		return nil, err
	}
	receipt.Amount = amount.ToDisplay(raw, info.Decimals)
	return receipt, nil
}

// fetchMint reads and decodes a mint account.
func (s *Service) fetchMint(ctx context.Context, mint string) (*domain.Mint, error) {
	acc, err := s.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get mint account: %w", ledgerError(err))
	}
	if acc == nil {
		return nil, fmt.Errorf("%w: %s", ErrMintNotFound, mint)
	}
	if acc.Owner != solana.TokenProgramID {
		return nil, fmt.Errorf("%w: %w: %s is owned by %s", ErrMintNotFound, solana.ErrNotTokenProgram, mint, acc.Owner)
	}
	m, err := solana.ParseMint(mint, acc.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMintNotFound, err)
	}
	if !m.IsInitialized {
		return nil, fmt.Errorf("%w: %s is not initialized", ErrMintNotFound, mint)
	}
	return m, nil
}

func verificationResult(err error) string {
	if err == nil {
		return "ok"
	}
	return string(Classify(err))
}
