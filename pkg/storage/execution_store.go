// Package storage persists settled executions and the settlement journal.
// Everything written here is already anonymized: commitments, hashes and
// prints, never payloads or raw nullifiers.
package storage

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/darkpool/pkg/engine"
)

type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}
func (s *PebbleStore) Close() error { return s.db.Close() }

// Save writes one execution under every given nullifier-hash key, plus a
// per-token history entry. Settlement records are the ground truth for
// status lookups, so the primary writes are synced.
func (s *PebbleStore) Save(ex engine.Execution, keys ...common.Hash) error {
	val, err := encodeGob(ex)
	if err != nil {
		return fmt.Errorf("encode execution: %w", err)
	}
	for _, k := range keys {
		if err := s.db.Set(executionKey(k), val, pebble.Sync); err != nil {
			return fmt.Errorf("save execution: %w", err)
		}
	}
	histKey := tokenKey(ex.Token, ex.SettledAt.UnixMilli(), ex.MatchID)
	if err := s.db.Set(histKey, val, pebble.NoSync); err != nil {
		return fmt.Errorf("save execution history: %w", err)
	}
	return nil
}

func (s *PebbleStore) Get(key common.Hash) (engine.Execution, bool, error) {
	val, closer, err := s.db.Get(executionKey(key))
	if err != nil {
		if err == pebble.ErrNotFound {
			return engine.Execution{}, false, nil
		}
		return engine.Execution{}, false, fmt.Errorf("get execution: %w", err)
	}
	defer closer.Close()
	var out engine.Execution
	if err := decodeGob(val, &out); err != nil {
		return engine.Execution{}, false, fmt.Errorf("decode execution: %w", err)
	}
	return out, true, nil
}

// RecentByToken returns the most recent executions for a token, newest
// first.
func (s *PebbleStore) RecentByToken(token common.Address, limit int) ([]engine.Execution, error) {
	prefix := tokenPrefix(token)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("history iter: %w", err)
	}
	defer iter.Close()

	var out []engine.Execution
	for iter.Last(); iter.Valid() && len(out) < limit; iter.Prev() {
		var ex engine.Execution
		if err := decodeGob(iter.Value(), &ex); err != nil {
			continue // skip invalid entries
		}
		out = append(out, ex)
	}
	return out, nil
}

var _ engine.ExecutionStore = (*PebbleStore)(nil)
