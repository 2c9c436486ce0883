package storage

import (
	"context"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
)

// TokenRegistry provides access to token_registry storage: the name and
// symbol of every token created through this application.
type TokenRegistry interface {
	// Insert adds a new token. Returns ErrDuplicateKey if mint exists.
	Insert(ctx context.Context, t *domain.RegisteredToken) error

	// GetByMint retrieves a token by mint address. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.RegisteredToken, error)

	// GetByMints retrieves the registered subset of mints, keyed by mint.
	// Unknown mints are simply absent from the result.
	GetByMints(ctx context.Context, mints []string) (map[string]*domain.RegisteredToken, error)

	// ListByCreator retrieves tokens created by a wallet, newest first.
	ListByCreator(ctx context.Context, creator string) ([]*domain.RegisteredToken, error)
}

// OperationLog provides access to the operations log.
type OperationLog interface {
	// Insert appends a record. Returns ErrDuplicateKey if operation_id exists.
	Insert(ctx context.Context, r *domain.OperationRecord) error

	// GetByID retrieves a record by operation ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, operationID string) (*domain.OperationRecord, error)

	// ListByWallet retrieves up to limit records for a wallet, newest first.
	// A limit <= 0 returns all records.
	ListByWallet(ctx context.Context, wallet string, limit int) ([]*domain.OperationRecord, error)

	// GetByTimeRange retrieves records with timestamp within [start, end]
	// (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.OperationRecord, error)
}
