package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/storage"
)

// TokenRegistry is an in-memory implementation of storage.TokenRegistry.
type TokenRegistry struct {
	mu     sync.RWMutex
	byMint map[string]*domain.RegisteredToken
}

// NewTokenRegistry creates a new in-memory token registry.
func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{
		byMint: make(map[string]*domain.RegisteredToken),
	}
}

// Insert adds a new token. Returns ErrDuplicateKey if mint already exists.
func (s *TokenRegistry) Insert(_ context.Context, t *domain.RegisteredToken) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byMint[t.Mint]; exists {
		return storage.ErrDuplicateKey
	}

	tokenCopy := *t
	s.byMint[t.Mint] = &tokenCopy
	return nil
}

// GetByMint retrieves a token by mint address. Returns ErrNotFound if not exists.
func (s *TokenRegistry) GetByMint(_ context.Context, mint string) (*domain.RegisteredToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.byMint[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tokenCopy := *t
	return &tokenCopy, nil
}

// GetByMints retrieves the registered subset of mints.
func (s *TokenRegistry) GetByMints(_ context.Context, mints []string) (map[string]*domain.RegisteredToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.RegisteredToken, len(mints))
	for _, mint := range mints {
		if t, exists := s.byMint[mint]; exists {
			tokenCopy := *t
			result[mint] = &tokenCopy
		}
	}
	return result, nil
}

// ListByCreator retrieves tokens created by a wallet, newest first.
func (s *TokenRegistry) ListByCreator(_ context.Context, creator string) ([]*domain.RegisteredToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RegisteredToken
	for _, t := range s.byMint {
		if t.Creator == creator {
			tokenCopy := *t
			result = append(result, &tokenCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].Mint < result[j].Mint
	})

	return result, nil
}

var _ storage.TokenRegistry = (*TokenRegistry)(nil)
