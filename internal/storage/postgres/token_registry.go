package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/storage"
)

// TokenRegistry implements storage.TokenRegistry using PostgreSQL.
type TokenRegistry struct {
	pool *Pool
}

// NewTokenRegistry creates a new TokenRegistry.
func NewTokenRegistry(pool *Pool) *TokenRegistry {
	return &TokenRegistry{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenRegistry = (*TokenRegistry)(nil)

const registryColumns = `mint, name, symbol, decimals, creator, signature, created_at`

// Insert adds a new token. Returns ErrDuplicateKey if mint exists.
func (s *TokenRegistry) Insert(ctx context.Context, t *domain.RegisteredToken) (err error) {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("registry_insert", start, err) }(time.Now())

	query := `
		INSERT INTO token_registry (` + registryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		t.Mint,
		t.Name,
		t.Symbol,
		int16(t.Decimals),
		t.Creator,
		t.Signature,
		t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert registered token: %w", err)
	}
	return nil
}

// GetByMint retrieves a token by mint address. Returns ErrNotFound if not exists.
func (s *TokenRegistry) GetByMint(ctx context.Context, mint string) (_ *domain.RegisteredToken, err error) {
	defer func(start time.Time) { observe("registry_get", start, err) }(time.Now())

	query := `SELECT ` + registryColumns + ` FROM token_registry WHERE mint = $1`

	t, err := scanRegisteredToken(s.pool.QueryRow(ctx, query, mint))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get registered token: %w", err)
	}
	return t, nil
}

// GetByMints retrieves the registered subset of mints.
func (s *TokenRegistry) GetByMints(ctx context.Context, mints []string) (_ map[string]*domain.RegisteredToken, err error) {
	result := make(map[string]*domain.RegisteredToken, len(mints))
	if len(mints) == 0 {
		return result, nil
	}
	defer func(start time.Time) { observe("registry_get_many", start, err) }(time.Now())

	query := `SELECT ` + registryColumns + ` FROM token_registry WHERE mint = ANY($1)`

	rows, err := s.pool.Query(ctx, query, mints)
	if err != nil {
		return nil, fmt.Errorf("query registered tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanRegisteredToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registered token: %w", err)
		}
		result[t.Mint] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registered tokens: %w", err)
	}
	return result, nil
}

// ListByCreator retrieves tokens created by a wallet, newest first.
func (s *TokenRegistry) ListByCreator(ctx context.Context, creator string) (_ []*domain.RegisteredToken, err error) {
	defer func(start time.Time) { observe("registry_list", start, err) }(time.Now())

	query := `
		SELECT ` + registryColumns + `
		FROM token_registry
		WHERE creator = $1
		ORDER BY created_at DESC, mint ASC
	`

	rows, err := s.pool.Query(ctx, query, creator)
	if err != nil {
		return nil, fmt.Errorf("query tokens by creator: %w", err)
	}
	defer rows.Close()

	var result []*domain.RegisteredToken
	for rows.Next() {
		t, err := scanRegisteredToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registered token: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registered tokens: %w", err)
	}
	return result, nil
}

func scanRegisteredToken(row pgx.Row) (*domain.RegisteredToken, error) {
	var (
		t        domain.RegisteredToken
		decimals int16
	)

	err := row.Scan(
		&t.Mint,
		&t.Name,
		&t.Symbol,
		&decimals,
		&t.Creator,
		&t.Signature,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Decimals = uint8(decimals)

	return &t, nil
}
