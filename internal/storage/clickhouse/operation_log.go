package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/storage"
)

// OperationLog implements storage.OperationLog using ClickHouse.
type OperationLog struct {
	conn *Conn
}

// NewOperationLog creates a new OperationLog.
func NewOperationLog(conn *Conn) *OperationLog {
	return &OperationLog{conn: conn}
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

	// MergeTree accepts duplicates; check first to keep append-only semantics.
	exists, err := s.exists(ctx, r.OperationID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `INSERT INTO operations (` + operationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	err = s.conn.Exec(ctx, query,
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
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// GetByID retrieves a record by operation ID. Returns ErrNotFound if not exists.
func (s *OperationLog) GetByID(ctx context.Context, operationID string) (_ *domain.OperationRecord, err error) {
	defer func(start time.Time) { observe("operation_get", start, err) }(time.Now())

	query := `SELECT ` + operationColumns + ` FROM operations WHERE operation_id = ? LIMIT 1`

	r, err := scanOperation(s.conn.QueryRow(ctx, query, operationID))
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

	query := `
		SELECT ` + operationColumns + `
		FROM operations
		WHERE wallet = ?
		ORDER BY timestamp_ms DESC, operation_id ASC
	`
	args := []any{wallet}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
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
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, operation_id ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query operations by time range: %w", err)
	}
	defer rows.Close()

	return collectOperations(rows)
}

// exists checks if an operation_id is already stored.
func (s *OperationLog) exists(ctx context.Context, operationID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM operations WHERE operation_id = ?`, operationID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func collectOperations(rows driver.Rows) ([]*domain.OperationRecord, error) {
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

// scanner is satisfied by driver.Row and driver.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanOperation(row scanner) (*domain.OperationRecord, error) {
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
