package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lpichet/contracts-service/internal/app/domain/contract"
	"github.com/lpichet/contracts-service/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu        sync.RWMutex
	nextID    int64
	contracts map[string]contract.Contract
}

var _ storage.ContractStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:    1,
		contracts: make(map[string]contract.Contract),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func (s *Store) CreateContract(_ context.Context, c contract.Contract) (contract.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = s.nextIDLocked()
	} else if _, exists := s.contracts[c.ID]; exists {
		return contract.Contract{}, fmt.Errorf("contract %s already exists", c.ID)
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	s.contracts[c.ID] = c
	return cloneContract(c), nil
}

func (s *Store) UpdateContract(_ context.Context, c contract.Contract) (contract.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.contracts[c.ID]
	if !ok {
		return contract.Contract{}, storage.ErrNotFound
	}

	c.CreatedAt = original.CreatedAt
	c.UpdatedAt = time.Now().UTC()

	s.contracts[c.ID] = c
	return cloneContract(c), nil
}

func (s *Store) GetContract(_ context.Context, id string) (contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contracts[id]
	if !ok {
		return contract.Contract{}, storage.ErrNotFound
	}
	return cloneContract(c), nil
}

func (s *Store) ListContracts(_ context.Context) ([]contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]contract.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		result = append(result, cloneContract(c))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) DeleteContract(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contracts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.contracts, id)
	return nil
}

// cloneContract copies pointer fields so callers cannot mutate stored state.
func cloneContract(c contract.Contract) contract.Contract {
	out := c
	if c.IsValidated != nil {
		v := *c.IsValidated
		out.IsValidated = &v
	}
	if c.ValidationMessage != nil {
		m := *c.ValidationMessage
		out.ValidationMessage = &m
	}
	if c.SignedAt != nil {
		t := *c.SignedAt
		out.SignedAt = &t
	}
	if c.SignedBy != nil {
		b := *c.SignedBy
		out.SignedBy = &b
	}
	return out
}
