package engine

import (
	"errors"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/uhyunpark/darkpool/params"
	"github.com/uhyunpark/darkpool/pkg/resolver"
	"github.com/uhyunpark/darkpool/pkg/util"
)

func newTestEngine(t *testing.T, key []byte) (*Engine, *funcExecutor, *util.ManualClock) {
	t.Helper()
	cfg := params.Default()
	cfg.Matching.CycleInterval = time.Second
	cfg.Settlement.MinDelay = 0
	cfg.Settlement.MaxDelay = 0
	cfg.Settlement.PriceNoiseBps = 0

	clock := util.NewManualClock(time.Unix(1_700_000_000, 0))
	exec := &funcExecutor{}
	eng := New(cfg, resolver.NewLocalAuthority(key), exec, nil, nil, nil, clock, nil)
	return eng, exec, clock
}

func submitSealed(t *testing.T, eng *Engine, key []byte, side resolver.Side, seed string) (Receipt, *Order) {
	t.Helper()
	o := sealedOrder(t, key, tokenA, side, defaultTerms(), seed)
	rcpt, err := eng.Submit(SubmitRequest{
		Token:            o.Token,
		EncryptedPayload: o.EncryptedPayload,
		Commitment:       o.Commitment,
		Nullifier:        o.Nullifier,
		EncryptedSide:    o.EncryptedSide,
	})
	if err != nil {
		t.Fatalf("submit %s: %v", seed, err)
	}
	return rcpt, o
}

func TestEngineSubmitAndStatus(t *testing.T) {
	key := testPoolKey(t)
	eng, _, _ := newTestEngine(t, key)

	rcpt, o := submitSealed(t, eng, key, resolver.Buy, "a")
	if rcpt.OrderID == "" || rcpt.Commitment != o.Commitment {
		t.Fatalf("receipt = %+v", rcpt)
	}

	status, ex, err := eng.StatusByNullifier(o.Nullifier)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != StatusPending || ex != nil {
		t.Fatalf("status = %v ex = %v, want pending/nil", status, ex)
	}

	unknown := ethcrypto.Keccak256Hash([]byte("never-submitted"))
	if _, _, err := eng.StatusByNullifier(unknown); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEngineSubmitValidation(t *testing.T) {
	key := testPoolKey(t)
	eng, _, _ := newTestEngine(t, key)

	if _, err := eng.Submit(SubmitRequest{}); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}

	_, o := submitSealed(t, eng, key, resolver.Buy, "a")
	_, err := eng.Submit(SubmitRequest{
		Token:            o.Token,
		EncryptedPayload: o.EncryptedPayload,
		Commitment:       o.Commitment,
		Nullifier:        o.Nullifier,
		EncryptedSide:    o.EncryptedSide,
	})
	if !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("duplicate nullifier accepted: %v", err)
	}
}

func TestEngineCancel(t *testing.T) {
	key := testPoolKey(t)
	eng, _, _ := newTestEngine(t, key)

	_, o := submitSealed(t, eng, key, resolver.Buy, "a")
	if err := eng.Cancel(o.Nullifier, o.Commitment); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := eng.Cancel(o.Nullifier, o.Commitment); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second cancel: %v, want ErrNotFound", err)
	}
	if _, _, err := eng.StatusByNullifier(o.Nullifier); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cancelled order still visible: %v", err)
	}
}

func TestEngineFullCycle(t *testing.T) {
	key := testPoolKey(t)
	eng, exec, _ := newTestEngine(t, key)

	_, buy := submitSealed(t, eng, key, resolver.Buy, "b")
	_, sell := submitSealed(t, eng, key, resolver.Sell, "s")

	eng.RunPass()
	eng.WaitSettlements()

	if len(exec.requests()) != 1 {
		t.Fatalf("executor calls = %d, want 1", len(exec.requests()))
	}

	for _, o := range []*Order{buy, sell} {
		status, ex, err := eng.StatusByNullifier(o.Nullifier)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if status != StatusCompleted || ex == nil {
			t.Fatalf("status = %v ex = %v, want completed with record", status, ex)
		}
		if ex.TxID != "0xtest" {
			t.Fatalf("execution tx = %q", ex.TxID)
		}
	}

	snap := eng.AggregateStats()
	if snap.TotalOrders != 2 || snap.TotalMatches != 1 || snap.TotalExecuted != 1 {
		t.Fatalf("stats = %+v", snap)
	}
	if len(snap.PerTokenLiquidity) != 0 {
		t.Fatalf("liquidity = %v, want empty after settle", snap.PerTokenLiquidity)
	}
}

func TestEngineStartStop(t *testing.T) {
	key := testPoolKey(t)
	eng, _, _ := newTestEngine(t, key)

	eng.Start()
	eng.Start()
	eng.Stop()
	eng.Stop()
}
