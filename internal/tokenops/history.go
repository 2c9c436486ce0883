package tokenops

import (
	"context"
	"fmt"
	"strings"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/solana"
)

// History returns one page of owner's transaction signatures, newest
// first. before is the last signature of the previous page ("" for the
// first page). A full page sets HasMore.
func (s *Service) History(ctx context.Context, owner, before string, limit int) (*domain.HistoryPage, error) {
	owner = strings.TrimSpace(owner)
	if err := solana.ValidateAddress(owner); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 1000 {
		limit = HistoryPageSize
	}

	sigs, err := s.rpc.GetSignaturesForAddress(ctx, owner, &solana.SignaturesOpts{
		Before: strings.TrimSpace(before),
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("get signatures: %w", ledgerError(err))
	}

	page := &domain.HistoryPage{
		Transactions: make([]domain.TransactionRecord, 0, len(sigs)),
		HasMore:      len(sigs) == limit,
	}
	for _, sig := range sigs {
		status := domain.TxStatusSuccess
		if sig.Err != nil {
			status = domain.TxStatusError
		}
		page.Transactions = append(page.Transactions, domain.TransactionRecord{
			Signature:   sig.Signature,
			Slot:        sig.Slot,
			BlockTime:   sig.BlockTime,
			Status:      status,
			ExplorerURL: s.explorerTx(sig.Signature),
		})
	}
	if page.HasMore {
		page.Next = sigs[len(sigs)-1].Signature
	}
	return page, nil
}
