package engine

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/darkpool/pkg/util"
)

// Scheduler drives the matching loop: stopped -> running on Start, back on
// Stop, idempotent in both directions. Within a pass, token pools are
// visited sequentially; a fault in one market never halts the others.
type Scheduler struct {
	interval   time.Duration
	minBatch   int
	books      *Books
	matcher    *Matcher
	dispatcher *Dispatcher
	stats      *Stats
	clock      util.Clock
	log        *zap.SugaredLogger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func NewScheduler(interval time.Duration, minBatch int, books *Books, matcher *Matcher, dispatcher *Dispatcher, stats *Stats, clock util.Clock, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		interval:   interval,
		minBatch:   minBatch,
		books:      books,
		matcher:    matcher,
		dispatcher: dispatcher,
		stats:      stats,
		clock:      clock,
		log:        log,
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)
	s.log.Infow("scheduler_started", "interval", s.interval.String(), "min_batch", s.minBatch)
}

// Stop halts the loop and waits for the in-progress pass, if any, to finish.
// Settlements already dispatched keep running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	s.log.Infow("scheduler_stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case <-s.clock.After(s.interval):
			s.RunPass()
		}
	}
}

// RunPass executes one matching pass over every pool with enough liquidity.
// Exported so callers (and tests) can trigger a pass without waiting for the
// timer.
func (s *Scheduler) RunPass() {
	for _, token := range s.books.PoolsWithLiquidity(s.minBatch) {
		s.matchPool(token)
	}
}

func (s *Scheduler) matchPool(token common.Address) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("matching_pass_panic", "token", token.Hex(), "panic", r)
		}
	}()

	for _, m := range s.matcher.MatchToken(token) {
		s.stats.RecordMatch()
		s.dispatcher.Dispatch(m)
	}
}
