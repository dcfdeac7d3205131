package engine

import "sync"

// Stats keeps anonymized aggregate counters. Counts only, never per-user
// data.
type Stats struct {
	mu            sync.Mutex
	totalOrders   int64
	totalMatches  int64
	totalExecuted int64
	totalVolume   int64
}

type StatsSnapshot struct {
	TotalOrders       int64          `json:"totalOrders"`
	TotalMatches      int64          `json:"totalMatches"`
	TotalExecuted     int64          `json:"totalExecuted"`
	TotalVolume       int64          `json:"totalVolume"`
	PerTokenLiquidity map[string]int `json:"perTokenLiquidity"`
}

func (s *Stats) RecordOrder() {
	s.mu.Lock()
	s.totalOrders++
	s.mu.Unlock()
}

func (s *Stats) RecordMatch() {
	s.mu.Lock()
	s.totalMatches++
	s.mu.Unlock()
}

func (s *Stats) RecordExecution(amount int64) {
	s.mu.Lock()
	s.totalExecuted++
	s.totalVolume += amount
	s.mu.Unlock()
}

func (s *Stats) snapshot(liquidity map[string]int) StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		TotalOrders:       s.totalOrders,
		TotalMatches:      s.totalMatches,
		TotalExecuted:     s.totalExecuted,
		TotalVolume:       s.totalVolume,
		PerTokenLiquidity: liquidity,
	}
}
