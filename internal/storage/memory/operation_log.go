package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/storage"
)

// OperationLog is an in-memory implementation of storage.OperationLog.
type OperationLog struct {
	mu      sync.RWMutex
	records []*domain.OperationRecord // insertion order
	byID    map[string]*domain.OperationRecord
}

// NewOperationLog creates a new in-memory operation log.
func NewOperationLog() *OperationLog {
	return &OperationLog{
		byID: make(map[string]*domain.OperationRecord),
	}
}

// Insert appends a record. Returns ErrDuplicateKey if operation_id exists.
func (s *OperationLog) Insert(_ context.Context, r *domain.OperationRecord) error {
	if r == nil || r.OperationID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[r.OperationID]; exists {
		return storage.ErrDuplicateKey
	}

	recCopy := *r
	s.records = append(s.records, &recCopy)
	s.byID[r.OperationID] = &recCopy
	return nil
}

// GetByID retrieves a record by operation ID. Returns ErrNotFound if not exists.
func (s *OperationLog) GetByID(_ context.Context, operationID string) (*domain.OperationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.byID[operationID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recCopy := *r
	return &recCopy, nil
}

// ListByWallet retrieves up to limit records for a wallet, newest first.
func (s *OperationLog) ListByWallet(_ context.Context, wallet string, limit int) ([]*domain.OperationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OperationRecord
	for _, r := range s.records {
		if r.Wallet == wallet {
			recCopy := *r
			result = append(result, &recCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp > result[j].Timestamp
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetByTimeRange retrieves records within [start, end], ordered by timestamp ASC.
func (s *OperationLog) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.OperationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OperationRecord
	for _, r := range s.records {
		if r.Timestamp >= start && r.Timestamp <= end {
			recCopy := *r
			result = append(result, &recCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})

	return result, nil
}

var _ storage.OperationLog = (*OperationLog)(nil)
