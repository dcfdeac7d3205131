package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// book is one token's pool. pending holds orders eligible for the next
// matching pass; inflight holds matched orders whose settlement has not
// resolved yet. An order is never in both.
type book struct {
	pending  []*Order
	byNull   map[common.Hash]*Order // pending index
	inflight map[string]*Order      // order ID -> order
}

func newBook() *book {
	return &book{
		byNull:   make(map[common.Hash]*Order),
		inflight: make(map[string]*Order),
	}
}

func (b *book) removePending(o *Order) {
	for i, p := range b.pending {
		if p.ID == o.ID {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			break
		}
	}
	delete(b.byNull, o.Nullifier)
}

// Books is the order book registry: one pool per token, a single lock over
// all of them. Liquidity checks take the read path; every mutation is
// serialized so a matched order can never be seen by a concurrent cancel.
type Books struct {
	mu    sync.RWMutex
	pools map[common.Address]*book
}

func NewBooks() *Books {
	return &Books{pools: make(map[common.Address]*book)}
}

func (bs *Books) pool(token common.Address) *book {
	b, ok := bs.pools[token]
	if !ok {
		b = newBook()
		bs.pools[token] = b
	}
	return b
}

// Submit appends an order to its token's pending pool. The nullifier must be
// unused among the token's active orders.
func (bs *Books) Submit(o *Order) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	b := bs.pool(o.Token)
	if _, dup := b.byNull[o.Nullifier]; dup {
		return fmt.Errorf("%w: nullifier already active", ErrInvalidOrder)
	}
	for _, inflight := range b.inflight {
		if inflight.Nullifier == o.Nullifier {
			return fmt.Errorf("%w: nullifier already active", ErrInvalidOrder)
		}
	}
	o.Status = StatusPending
	b.pending = append(b.pending, o)
	b.byNull[o.Nullifier] = o
	return nil
}

// Cancel removes a pending order identified by nullifier AND commitment.
// Matched or later orders are not visible here, which is what prevents a
// cancel from racing an in-flight settlement.
func (bs *Books) Cancel(nullifier, commitment common.Hash) bool {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	for _, b := range bs.pools {
		o, ok := b.byNull[nullifier]
		if !ok {
			continue
		}
		if o.Commitment != commitment || o.Status != StatusPending {
			return false
		}
		b.removePending(o)
		return true
	}
	return false
}

// PoolsWithLiquidity returns tokens whose pending count meets the minimum
// batch size, in a stable (sorted) order.
func (bs *Books) PoolsWithLiquidity(minBatchSize int) []common.Address {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	var out []common.Address
	for token, b := range bs.pools {
		if len(b.pending) >= minBatchSize {
			out = append(out, token)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Hex() < out[j].Hex()
	})
	return out
}

// Pending returns a snapshot of a token's pending orders.
func (bs *Books) Pending(token common.Address) []*Order {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	b, ok := bs.pools[token]
	if !ok {
		return nil
	}
	out := make([]*Order, len(b.pending))
	copy(out, b.pending)
	return out
}

func (bs *Books) PendingCount(token common.Address) int {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	b, ok := bs.pools[token]
	if !ok {
		return 0
	}
	return len(b.pending)
}

// MarkMatched atomically moves both orders of a match from pending to
// inflight. Returns false (and moves nothing) if either order already left
// the pending pool, e.g. through a cancel that won the race.
func (bs *Books) MarkMatched(m *Match) bool {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	b, ok := bs.pools[m.Token]
	if !ok {
		return false
	}
	buy, okB := b.byNull[m.Buy.Nullifier]
	sell, okS := b.byNull[m.Sell.Nullifier]
	if !okB || !okS || buy.ID != m.Buy.ID || sell.ID != m.Sell.ID {
		return false
	}

	for _, o := range []*Order{buy, sell} {
		b.removePending(o)
		o.Status = StatusMatched
		b.inflight[o.ID] = o
	}
	return true
}

// MarkExecuting flags both orders of a match as handed to the executor.
func (bs *Books) MarkExecuting(m *Match) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	b, ok := bs.pools[m.Token]
	if !ok {
		return
	}
	for _, o := range []*Order{m.Buy, m.Sell} {
		if held, ok := b.inflight[o.ID]; ok {
			held.Status = StatusExecuting
		}
	}
}

// RemoveMatched drops both orders of a settled match from the book.
// Idempotent: orders already removed are ignored.
func (bs *Books) RemoveMatched(m *Match) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	b, ok := bs.pools[m.Token]
	if !ok {
		return
	}
	for _, o := range []*Order{m.Buy, m.Sell} {
		if held, ok := b.inflight[o.ID]; ok {
			held.Status = StatusCompleted
			delete(b.inflight, o.ID)
		}
	}
}

// RevertToPending returns a failed order to its token's pending pool where a
// future pass can re-shuffle it. No-op unless the order is in flight.
func (bs *Books) RevertToPending(o *Order) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	b, ok := bs.pools[o.Token]
	if !ok {
		return
	}
	held, ok := b.inflight[o.ID]
	if !ok {
		return
	}
	delete(b.inflight, o.ID)
	held.Status = StatusPending
	b.pending = append(b.pending, held)
	b.byNull[held.Nullifier] = held
}

// Liquidity reports the pending count per token, for aggregate stats.
func (bs *Books) Liquidity() map[string]int {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	out := make(map[string]int, len(bs.pools))
	for token, b := range bs.pools {
		if len(b.pending) > 0 {
			out[token.Hex()] = len(b.pending)
		}
	}
	return out
}
