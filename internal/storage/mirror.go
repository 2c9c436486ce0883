package storage

import (
	"context"
	"errors"
	"log"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
)

// MirroredOperationLog writes every record to a primary log and copies it
// to a secondary analytics log. Reads are served by the primary. A failed
// copy is logged and does not fail the insert.
type MirroredOperationLog struct {
	primary OperationLog
	mirror  OperationLog
	logger  *log.Logger
}

// NewMirroredOperationLog creates a log that mirrors primary into mirror.
func NewMirroredOperationLog(primary, mirror OperationLog, logger *log.Logger) *MirroredOperationLog {
	if logger == nil {
		logger = log.Default()
	}
	return &MirroredOperationLog{primary: primary, mirror: mirror, logger: logger}
}

// Insert appends r to the primary log, then to the mirror.
func (m *MirroredOperationLog) Insert(ctx context.Context, r *domain.OperationRecord) error {
	if err := m.primary.Insert(ctx, r); err != nil {
		return err
	}
	if err := m.mirror.Insert(ctx, r); err != nil && !errors.Is(err, ErrDuplicateKey) {
		m.logger.Printf("mirror operation %s: %v", r.OperationID, err)
	}
	return nil
}

// GetByID reads from the primary log.
func (m *MirroredOperationLog) GetByID(ctx context.Context, operationID string) (*domain.OperationRecord, error) {
	return m.primary.GetByID(ctx, operationID)
}

// ListByWallet reads from the primary log.
func (m *MirroredOperationLog) ListByWallet(ctx context.Context, wallet string, limit int) ([]*domain.OperationRecord, error) {
	return m.primary.ListByWallet(ctx, wallet, limit)
}

// GetByTimeRange reads from the primary log.
func (m *MirroredOperationLog) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.OperationRecord, error) {
	return m.primary.GetByTimeRange(ctx, start, end)
}

var _ OperationLog = (*MirroredOperationLog)(nil)
