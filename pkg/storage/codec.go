package storage

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
func decodeGob(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}

// Key schema:
//   ex:<32-byte nullifier hash>             → Execution
//   tok:<token-hex>:<timestamp>:<matchID>   → Execution (per-token history)
//
// The ex: index is keyed by the keccak of the nullifier, never the
// nullifier itself, so the store leaks nothing to whoever reads the disk.
const (
	prefixExecution = "ex:"
	prefixToken     = "tok:"
)

func executionKey(h common.Hash) []byte {
	return append([]byte(prefixExecution), h[:]...)
}

// tokenKey orders per-token history lexicographically by settle time.
// Timestamp is zero-padded (20 digits) for lexicographic sorting.
func tokenKey(token common.Address, unixMilli int64, matchID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", prefixToken, token.Hex(), unixMilli, matchID))
}

func tokenPrefix(token common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixToken, token.Hex()))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
