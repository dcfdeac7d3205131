package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/uhyunpark/darkpool/pkg/engine"
)

func openTestStore(t *testing.T) *PebbleStore {
	t.Helper()
	s, err := NewPebbleStore(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testExecution(matchID string, token common.Address, settledAt time.Time) engine.Execution {
	return engine.Execution{
		MatchID:        matchID,
		Token:          token,
		Price:          1000,
		Amount:         10,
		BuyCommitment:  ethcrypto.Keccak256Hash([]byte("bc-" + matchID)),
		SellCommitment: ethcrypto.Keccak256Hash([]byte("sc-" + matchID)),
		TxID:           "0x" + matchID,
		MatchedAt:      settledAt.Add(-time.Second),
		SettledAt:      settledAt,
	}
}

func TestPebbleStoreSaveAndGet(t *testing.T) {
	s := openTestStore(t)
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	ex := testExecution("m1", token, time.Unix(1_700_000_000, 0))

	k1 := ethcrypto.Keccak256Hash([]byte("null-buy"))
	k2 := ethcrypto.Keccak256Hash([]byte("null-sell"))
	if err := s.Save(ex, k1, k2); err != nil {
		t.Fatalf("save: %v", err)
	}

	for _, k := range []common.Hash{k1, k2} {
		got, ok, err := s.Get(k)
		if err != nil || !ok {
			t.Fatalf("get %s: ok=%v err=%v", k.Hex(), ok, err)
		}
		if got.MatchID != ex.MatchID || got.TxID != ex.TxID || got.Amount != ex.Amount {
			t.Fatalf("got %+v, want %+v", got, ex)
		}
	}

	_, ok, err := s.Get(ethcrypto.Keccak256Hash([]byte("missing")))
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if ok {
		t.Fatal("found execution for unknown key")
	}
}

func TestPebbleStoreRecentByToken(t *testing.T) {
	s := openTestStore(t)
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	base := time.Unix(1_700_000_000, 0)

	for i, id := range []string{"m1", "m2", "m3"} {
		ex := testExecution(id, token, base.Add(time.Duration(i)*time.Minute))
		if err := s.Save(ex, ethcrypto.Keccak256Hash([]byte(id))); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := s.Save(testExecution("other", other, base), ethcrypto.Keccak256Hash([]byte("other"))); err != nil {
		t.Fatalf("save: %v", err)
	}

	recent, err := s.RecentByToken(token, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent = %d entries, want 2", len(recent))
	}
	if recent[0].MatchID != "m3" || recent[1].MatchID != "m2" {
		t.Fatalf("recent order = %s,%s, want m3,m2", recent[0].MatchID, recent[1].MatchID)
	}
}

func TestPebbleStorePersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	s, err := NewPebbleStore(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	key := ethcrypto.Keccak256Hash([]byte("null"))
	if err := s.Save(testExecution("m1", token, time.Unix(1_700_000_000, 0)), key); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := NewPebbleStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, ok, err := s2.Get(key)
	if err != nil || !ok {
		t.Fatalf("get after reopen: ok=%v err=%v", ok, err)
	}
	if got.MatchID != "m1" {
		t.Fatalf("got %+v", got)
	}
}
