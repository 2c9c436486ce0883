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

// SendRequest is the send form input.
type SendRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// VerifySend looks up the wallet's associated token account for mint and
// records its balance. Decimals are read from the mint account.
func (s *Service) VerifySend(ctx context.Context, mint string) (*domain.TokenInfo, error) {
	if err := s.send.beginVerify(); err != nil {
		return nil, err
	}

	walletKey, info, err := s.verifySend(ctx, mint)
	s.send.endVerify(walletKey, info, err)
	observability.RecordVerification("send", verificationResult(err))
	if err != nil {
		return nil, err
	}
	s.logger.Printf("send %s verified for %s: balance %s", short(info.Mint), short(walletKey), info.DisplayBalance)
	return info, nil
}

func (s *Service) verifySend(ctx context.Context, mint string) (string, *domain.TokenInfo, error) {
	signer, err := s.session.Current()
	if err != nil {
		return "", nil, err
	}
	walletKey := signer.PublicKey()

	mint = strings.TrimSpace(mint)
	if mint == "" {
		return walletKey, nil, fmt.Errorf("%w: token mint is required", ErrInvalidInput)
	}
	if err := solana.ValidateAddress(mint); err != nil {
		return walletKey, nil, err
	}

	source, err := solana.FindAssociatedTokenAddress(walletKey, mint)
	if err != nil {
		return walletKey, nil, err
	}
	acc, err := s.rpc.GetAccountInfo(ctx, source)
	if err != nil {
		return walletKey, nil, fmt.Errorf("get token account: %w", ledgerError(err))
	}
	if acc == nil || acc.Owner != solana.TokenProgramID {
		return walletKey, nil, fmt.Errorf("%w: no %s account for %s", ErrTokenAccountNotFound, short(mint), short(walletKey))
	}
	ta, err := solana.ParseTokenAccount(source, acc.Data)
	if err != nil {
		return walletKey, nil, fmt.Errorf("%w: %w", ErrTokenAccountNotFound, err)
	}
	if ta.Mint != mint || ta.Owner != walletKey {
		return walletKey, nil, fmt.Errorf("%w: %s does not hold %s for this wallet", ErrTokenAccountNotFound, source, short(mint))
	}

	m, err := s.fetchMint(ctx, mint)
	if err != nil {
		return walletKey, nil, err
	}

	return walletKey, &domain.TokenInfo{
		Mint:           mint,
		SourceAccount:  source,
		Decimals:       m.Decimals,
		RawBalance:     ta.Amount,
		DisplayBalance: amount.ToDisplay(ta.Amount, m.Decimals),
	}, nil
}

// SendTokens transfers amount of the verified token to recipient's
// associated token account, creating it if missing. The amount is checked
// against the verified balance before any network call. A successful send
// clears the verification.
func (s *Service) SendTokens(ctx context.Context, req SendRequest) (*Receipt, error) {
	signer, err := s.session.Current()
	if err != nil {
		return nil, err
	}
	info, err := s.send.beginSubmit(signer.PublicKey())
	if err != nil {
		return nil, err
	}

	receipt, err := s.sendTokens(ctx, signer, info, req)
	s.send.endSubmit(err, true)
	return receipt, err
}

func (s *Service) sendTokens(ctx context.Context, signer wallet.Signer, info *domain.TokenInfo, req SendRequest) (*Receipt, error) {
	recipient := strings.TrimSpace(req.Recipient)
	if err := solana.ValidateAddress(recipient); err != nil {
		return nil, err
	}

	raw, err := amount.ToRaw(req.Amount, info.Decimals)
	if err != nil {
		return nil, err
	}
	if raw.Sign() == 0 {
		return nil, fmt.Errorf("%w: amount must be greater than 0", ErrInvalidAmount)
	}
	if info.RawBalance == nil || raw.Cmp(info.RawBalance) > 0 {
		return nil, fmt.Errorf("%w: you only have %s tokens available", ErrInsufficientBalance, info.DisplayBalance)
	}
	units, err := amount.ToUint64(raw)
	if err != nil {
		return nil, err
	}

	owner := signer.PublicKey()
	receipt, err := s.submit(ctx, submission{
		kind:      domain.OperationSend,
		signer:    signer,
		mint:      info.Mint,
		recipient: recipient,
		rawAmount: raw.String(),
	}, func(ctx context.Context) ([]types.Instruction, error) {
		dest, err := solana.FindAssociatedTokenAddress(recipient, info.Mint)
		if err != nil {
			return nil, err
		}
		exists, err := s.accountExists(ctx, dest)
		if err != nil {
			return nil, err
		}
		return txbuild.Transfer(txbuild.TransferParams{
			Owner:             owner,
			Mint:              info.Mint,
			Source:            info.SourceAccount,
			Recipient:         recipient,
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
