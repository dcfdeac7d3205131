package engine

import (
	"context"
	"crypto/rand"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/darkpool/pkg/crypto"
	"github.com/uhyunpark/darkpool/pkg/events"
	"github.com/uhyunpark/darkpool/pkg/resolver"
	"github.com/uhyunpark/darkpool/pkg/settle"
	"github.com/uhyunpark/darkpool/pkg/util"
)

// ExecutionStore persists settled executions keyed by nullifier hash. The
// raw nullifier never reaches the store.
type ExecutionStore interface {
	Save(ex Execution, keys ...common.Hash) error
	Get(key common.Hash) (Execution, bool, error)
}

// Journal receives one line per settlement outcome, success or revert.
type Journal interface {
	Append(line string)
}

// Dispatcher takes formed matches and settles them after an independent
// uniform random delay. The delay, not the pairing, is what breaks timing
// correlation between matches of the same cycle, so every match draws its
// own.
type Dispatcher struct {
	minDelay time.Duration
	maxDelay time.Duration
	noiseBps int64

	books   *Books
	opener  resolver.TermsOpener
	exec    settle.Executor
	store   ExecutionStore
	stats   *Stats
	pub     events.Publisher
	journal Journal
	clock   util.Clock
	log     *zap.SugaredLogger

	wg sync.WaitGroup
}

func NewDispatcher(minDelay, maxDelay time.Duration, noiseBps int64, books *Books, opener resolver.TermsOpener, exec settle.Executor, store ExecutionStore, stats *Stats, pub events.Publisher, journal Journal, clock util.Clock, log *zap.SugaredLogger) *Dispatcher {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Dispatcher{
		minDelay: minDelay,
		maxDelay: maxDelay,
		noiseBps: noiseBps,
		books:    books,
		opener:   opener,
		exec:     exec,
		store:    store,
		stats:    stats,
		pub:      pub,
		journal:  journal,
		clock:    clock,
		log:      log,
	}
}

// Dispatch schedules settlement of one match as an independent deferred
// task. It never blocks the matching loop.
func (d *Dispatcher) Dispatch(m *Match) {
	delay := d.randomDelay()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if delay > 0 {
			time.Sleep(delay)
		}
		d.settleMatch(m)
	}()
}

// Wait blocks until every dispatched settlement has resolved. Used at
// shutdown and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// ExpectedDelay is the mid-window delay, used for admission receipts.
func (d *Dispatcher) ExpectedDelay() time.Duration {
	return (d.minDelay + d.maxDelay) / 2
}

func (d *Dispatcher) randomDelay() time.Duration {
	window := int64(d.maxDelay - d.minDelay)
	if window <= 0 {
		return d.minDelay
	}
	n, err := rand.Int(rand.Reader, big.NewInt(window+1))
	if err != nil {
		return d.minDelay
	}
	return d.minDelay + time.Duration(n.Int64())
}

func (d *Dispatcher) settleMatch(m *Match) {
	buyTerms, err := d.opener.OpenTerms(m.Buy.Nullifier, m.Buy.EncryptedPayload)
	if err != nil {
		d.revert(m, err)
		return
	}
	sellTerms, err := d.opener.OpenTerms(m.Sell.Nullifier, m.Sell.EncryptedPayload)
	if err != nil {
		d.revert(m, err)
		return
	}

	d.books.MarkExecuting(m)

	amount := min(buyTerms.Amount, sellTerms.Amount)
	price := d.executionPrice(buyTerms.LimitPrice, sellTerms.LimitPrice)

	receipt, err := d.exec.Execute(context.Background(), settle.Request{
		Token:           m.Token,
		Amount:          amount,
		Price:           price,
		BuyDestination:  buyTerms.Destination,
		SellDestination: sellTerms.Destination,
		BuyCommitment:   m.Buy.Commitment,
		SellCommitment:  m.Sell.Commitment,
	})
	if err != nil {
		d.revert(m, err)
		return
	}

	now := d.clock.Now()
	ex := Execution{
		MatchID:        m.ID,
		Token:          m.Token,
		Price:          price,
		Amount:         amount,
		BuyCommitment:  m.Buy.Commitment,
		SellCommitment: m.Sell.Commitment,
		TxID:           receipt.TxID,
		MatchedAt:      m.CreatedAt,
		SettledAt:      now,
	}
	if err := d.store.Save(ex, crypto.NullifierHash(m.Buy.Nullifier), crypto.NullifierHash(m.Sell.Nullifier)); err != nil {
		// Settlement already happened; losing the record only degrades
		// status lookups, so log and carry on.
		d.log.Errorw("execution_store_failed", "match", m.ID, "err", err)
	}

	d.books.RemoveMatched(m)
	d.stats.RecordExecution(amount)
	d.journal.Append("settled match=" + m.ID + " token=" + m.Token.Hex() + " tx=" + receipt.TxID)

	d.pub.Publish("executions:"+m.Token.Hex(), events.Execution{
		Token:     m.Token.Hex(),
		Price:     price,
		Amount:    amount,
		Timestamp: now.UnixMilli(),
	})

	d.log.Infow("settlement_executed",
		"match", m.ID,
		"token", m.Token.Hex(),
		"amount", amount,
		"price", price,
		"tx", receipt.TxID)
}

// executionPrice is the midpoint of the two limit prices plus a small
// symmetric perturbation bounded by noiseBps basis points of the midpoint,
// so observers cannot recover the exact limits from the print.
func (d *Dispatcher) executionPrice(buyLimit, sellLimit int64) int64 {
	mid := (buyLimit + sellLimit) / 2
	bound := mid * d.noiseBps / 10_000
	if bound <= 0 {
		return mid
	}
	n, err := rand.Int(rand.Reader, big.NewInt(2*bound+1))
	if err != nil {
		return mid
	}
	return mid + n.Int64() - bound
}

// revert returns both orders to the pending pool; no Execution record is
// written, and the pair is free to re-shuffle with anyone next cycle.
func (d *Dispatcher) revert(m *Match, cause error) {
	d.log.Warnw("settlement_failed",
		"match", m.ID,
		"token", m.Token.Hex(),
		"err", cause)
	d.books.RevertToPending(m.Buy)
	d.books.RevertToPending(m.Sell)
	d.journal.Append("reverted match=" + m.ID + " token=" + m.Token.Hex() + " err=" + cause.Error())
}
