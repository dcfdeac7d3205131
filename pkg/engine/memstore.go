package engine

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// memStore is a map-backed ExecutionStore used when no durable store is
// wired, e.g. in tests and throwaway devnets.
type memStore struct {
	mu  sync.RWMutex
	byK map[common.Hash]Execution
}

func newMemStore() *memStore {
	return &memStore{byK: make(map[common.Hash]Execution)}
}

func (s *memStore) Save(ex Execution, keys ...common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.byK[k] = ex
	}
	return nil
}

func (s *memStore) Get(key common.Hash) (Execution, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ex, ok := s.byK[key]
	return ex, ok, nil
}
