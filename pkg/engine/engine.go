package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uhyunpark/darkpool/params"
	"github.com/uhyunpark/darkpool/pkg/crypto"
	"github.com/uhyunpark/darkpool/pkg/events"
	"github.com/uhyunpark/darkpool/pkg/resolver"
	"github.com/uhyunpark/darkpool/pkg/settle"
	"github.com/uhyunpark/darkpool/pkg/util"
)

// ErrNotFound is returned by status lookups for unknown nullifiers.
var ErrNotFound = errors.New("engine: not found")

// Engine owns all mutable matching state: the books, the stats counters, the
// scheduler and the dispatcher. Construct one per process; everything else
// talks to it through methods.
type Engine struct {
	cfg        params.Config
	books      *Books
	stats      *Stats
	matcher    *Matcher
	scheduler  *Scheduler
	dispatcher *Dispatcher
	store      ExecutionStore
	clock      util.Clock
	log        *zap.SugaredLogger
}

func New(cfg params.Config, auth resolver.Authority, exec settle.Executor, store ExecutionStore, pub events.Publisher, journal Journal, clock util.Clock, log *zap.SugaredLogger) *Engine {
	if clock == nil {
		clock = util.RealClock{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if pub == nil {
		pub = events.Nop{}
	}
	if journal == nil {
		journal = nopJournal{}
	}
	if store == nil {
		store = newMemStore()
	}

	books := NewBooks()
	stats := &Stats{}
	matcher := NewMatcher(books, auth, clock, log)
	dispatcher := NewDispatcher(
		cfg.Settlement.MinDelay, cfg.Settlement.MaxDelay, cfg.Settlement.PriceNoiseBps,
		books, auth, exec, store, stats, pub, journal, clock, log)
	scheduler := NewScheduler(cfg.Matching.CycleInterval, cfg.Matching.MinBatchSize,
		books, matcher, dispatcher, stats, clock, log)

	return &Engine{
		cfg:        cfg,
		books:      books,
		stats:      stats,
		matcher:    matcher,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		store:      store,
		clock:      clock,
		log:        log,
	}
}

type nopJournal struct{}

func (nopJournal) Append(string) {}

// Submit validates and admits one encrypted intent. On success the order
// sits in its token's pending pool until a matching pass picks it up.
func (e *Engine) Submit(req SubmitRequest) (Receipt, error) {
	if err := validateSubmit(req); err != nil {
		return Receipt{}, err
	}

	o := &Order{
		ID:               uuid.NewString(),
		Token:            req.Token,
		EncryptedPayload: req.EncryptedPayload,
		Commitment:       req.Commitment,
		Nullifier:        req.Nullifier,
		EncryptedSide:    req.EncryptedSide,
		Status:           StatusPending,
		CreatedAt:        e.clock.Now(),
	}
	if err := e.books.Submit(o); err != nil {
		return Receipt{}, err
	}
	e.stats.RecordOrder()

	e.log.Infow("order_admitted",
		"order", o.ID,
		"token", o.Token.Hex(),
		"pending", e.books.PendingCount(o.Token))

	return Receipt{
		OrderID:     o.ID,
		Commitment:  o.Commitment,
		NextCycleAt: e.clock.Now().Add(e.cfg.Matching.CycleInterval + e.dispatcher.ExpectedDelay()),
	}, nil
}

// Cancel withdraws a pending order. Both the nullifier and the commitment
// must match; an order that has already been matched cannot be withdrawn.
func (e *Engine) Cancel(nullifier, commitment common.Hash) error {
	if !e.books.Cancel(nullifier, commitment) {
		return fmt.Errorf("%w: no cancellable order for nullifier", ErrNotFound)
	}
	e.log.Infow("order_cancelled", "commitment", commitment.Hex())
	return nil
}

// StatusByNullifier reports what the engine knows about an intent without
// revealing anything beyond the caller's own proof of ownership. Settled
// intents return their Execution record; live ones return their status.
func (e *Engine) StatusByNullifier(nullifier common.Hash) (Status, *Execution, error) {
	ex, ok, err := e.store.Get(crypto.NullifierHash(nullifier))
	if err != nil {
		return 0, nil, fmt.Errorf("execution lookup: %w", err)
	}
	if ok {
		return StatusCompleted, &ex, nil
	}

	if o := e.findActive(nullifier); o != nil {
		return o.Status, nil, nil
	}
	return 0, nil, ErrNotFound
}

func (e *Engine) findActive(nullifier common.Hash) *Order {
	e.books.mu.RLock()
	defer e.books.mu.RUnlock()
	for _, b := range e.books.pools {
		if o, ok := b.byNull[nullifier]; ok {
			return o
		}
		for _, o := range b.inflight {
			if o.Nullifier == nullifier {
				return o
			}
		}
	}
	return nil
}

// AggregateStats returns the anonymized counters plus per-token pending
// depth.
func (e *Engine) AggregateStats() StatsSnapshot {
	return e.stats.snapshot(e.books.Liquidity())
}

// Start launches the cycle scheduler.
func (e *Engine) Start() { e.scheduler.Start() }

// Stop halts the scheduler and drains in-flight settlements.
func (e *Engine) Stop() {
	e.scheduler.Stop()
	e.dispatcher.Wait()
}

// RunPass triggers one immediate matching pass, bypassing the timer.
func (e *Engine) RunPass() { e.scheduler.RunPass() }

// WaitSettlements blocks until every dispatched settlement has resolved.
func (e *Engine) WaitSettlements() { e.dispatcher.Wait() }

// NextCycleIn reports the configured cycle interval.
func (e *Engine) NextCycleIn() time.Duration { return e.cfg.Matching.CycleInterval }
