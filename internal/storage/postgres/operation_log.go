package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/storage"
)

// OperationLog implements storage.OperationLog using PostgreSQL.
type OperationLog struct {
	pool *Pool
}

// NewOperationLog creates a new OperationLog.
func NewOperationLog(pool *Pool) *OperationLog {
	return &OperationLog{pool: pool}
}

// Compile-time interface check.
var _ storage.OperationLog = (*OperationLog)(nil)

const operationColumns = `operation_id, kind, wallet, mint, counterparty, raw_amount,
	signature, status, error_kind, latency_ms, timestamp_ms`

// Insert appends a record. Returns ErrDuplicateKey if operation_id exists.
func (s *OperationLog) Insert(ctx context.Context, r *domain.OperationRecord) (err error) {
	if r == nil || r.OperationID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("operation_insert", start, err) }(time.Now())

	query := `
		INSERT INTO operations (` + operationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = s.pool.Exec(ctx, query,
		r.OperationID,
		string(r.Kind),
		r.Wallet,
		r.Mint,
		r.Counterparty,
		r.RawAmount,
		r.Signature,
		string(r.Status),
		r.ErrorKind,
		r.LatencyMs,
		r.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// GetByID retrieves a record by operation ID. Returns ErrNotFound if not exists.
func (s *OperationLog) GetByID(ctx context.Context, operationID string) (_ *domain.OperationRecord, err error) {
	defer func(start time.Time) { observe("operation_get", start, err) }(time.Now())

	query := `SELECT ` + operationColumns + ` FROM operations WHERE operation_id = $1`

	r, err := scanOperation(s.pool.QueryRow(ctx, query, operationID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get operation: %w", err)
	}
	return r, nil
}

// ListByWallet retrieves up to limit records for a wallet, newest first.
func (s *OperationLog) ListByWallet(ctx context.Context, wallet string, limit int) (_ []*domain.OperationRecord, err error) {
	defer func(start time.Time) { observe("operation_list", start, err) }(time.Now())

	// LIMIT NULL means no limit.
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	query := `
		SELECT ` + operationColumns + `
		FROM operations
		WHERE wallet = $1
		ORDER BY timestamp_ms DESC, operation_id ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, wallet, lim)
	if err != nil {
		return nil, fmt.Errorf("query operations by wallet: %w", err)
	}
	defer rows.Close()

	return collectOperations(rows)
}

// GetByTimeRange retrieves records within [start, end], ordered by timestamp ASC.
func (s *OperationLog) GetByTimeRange(ctx context.Context, start, end int64) (_ []*domain.OperationRecord, err error) {
	defer func(begin time.Time) { observe("operation_range", begin, err) }(time.Now())

	query := `
		SELECT ` + operationColumns + `
		FROM operations
		WHERE timestamp_ms >= $1 AND timestamp_ms <= $2
		ORDER BY timestamp_ms ASC, operation_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query operations by time range: %w", err)
	}
	defer rows.Close()

	return collectOperations(rows)
}

func collectOperations(rows pgx.Rows) ([]*domain.OperationRecord, error) {
	var result []*domain.OperationRecord
	for rows.Next() {
		r, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return result, nil
}

func scanOperation(row pgx.Row) (*domain.OperationRecord, error) {
	var (
		r            domain.OperationRecord
		kind, status string
	)

	err := row.Scan(
		&r.OperationID,
		&kind,
		&r.Wallet,
		&r.Mint,
		&r.Counterparty,
		&r.RawAmount,
		&r.Signature,
		&status,
		&r.ErrorKind,
		&r.LatencyMs,
		&r.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	r.Kind = domain.OperationKind(kind)
	r.Status = domain.OperationStatus(status)

	return &r, nil
}
