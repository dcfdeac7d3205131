package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/uhyunpark/darkpool/params"
	"github.com/uhyunpark/darkpool/pkg/crypto"
	"github.com/uhyunpark/darkpool/pkg/engine"
	"github.com/uhyunpark/darkpool/pkg/resolver"
	"github.com/uhyunpark/darkpool/pkg/settle"
)

type okExecutor struct{}

func (okExecutor) Execute(context.Context, settle.Request) (settle.Receipt, error) {
	return settle.Receipt{TxID: "0xabc"}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *engine.Engine, []byte) {
	t.Helper()
	pk, err := crypto.NewPoolKey()
	if err != nil {
		t.Fatalf("pool key: %v", err)
	}
	key, err := pk.SymmetricKey()
	if err != nil {
		t.Fatalf("symmetric key: %v", err)
	}

	cfg := params.Default()
	cfg.Settlement.MinDelay = 0
	cfg.Settlement.MaxDelay = 0
	cfg.Settlement.PriceNoiseBps = 0

	eng := engine.New(cfg, resolver.NewLocalAuthority(key), okExecutor{}, nil, nil, nil, nil, nil)
	srv := httptest.NewServer(NewServer(eng, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, eng, key
}

func sealedSubmit(t *testing.T, key []byte, token common.Address, side resolver.Side, seed string) SubmitOrderRequest {
	t.Helper()
	nullifier := ethcrypto.Keccak256Hash([]byte("null-" + seed))
	encSide, encPayload, err := resolver.SealIntent(key, nullifier, side, resolver.Terms{
		Amount:      10,
		LimitPrice:  1000,
		Destination: common.HexToAddress("0x00000000000000000000000000000000deadbeef"),
	})
	if err != nil {
		t.Fatalf("seal intent: %v", err)
	}
	return SubmitOrderRequest{
		Token:            token,
		EncryptedPayload: encPayload,
		Commitment:       crypto.Commitment(encPayload, []byte("salt-"+seed)),
		Nullifier:        nullifier,
		EncryptedSide:    encSide,
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestSubmitAndStatusEndpoints(t *testing.T) {
	srv, _, key := newTestServer(t)
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	req := sealedSubmit(t, key, token, resolver.Buy, "a")

	resp := postJSON(t, srv.URL+"/api/v1/orders", req)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	var sub SubmitOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sub.Status != "pending" || sub.OrderID == "" {
		t.Fatalf("response = %+v", sub)
	}

	statusResp, err := http.Get(srv.URL + "/api/v1/orders/" + req.Nullifier.Hex())
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer statusResp.Body.Close()
	var st OrderStatusResponse
	if err := json.NewDecoder(statusResp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Status != "pending" || st.Execution != nil {
		t.Fatalf("status = %+v", st)
	}
}

func TestSubmitRejectsMalformedOrders(t *testing.T) {
	srv, _, key := newTestServer(t)
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")

	req := sealedSubmit(t, key, token, resolver.Buy, "a")
	req.Commitment = common.Hash{}

	resp := postJSON(t, srv.URL+"/api/v1/orders", req)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCancelEndpoint(t *testing.T) {
	srv, _, key := newTestServer(t)
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	req := sealedSubmit(t, key, token, resolver.Buy, "a")

	resp := postJSON(t, srv.URL+"/api/v1/orders", req)
	resp.Body.Close()

	cancel := postJSON(t, srv.URL+"/api/v1/orders/cancel", CancelOrderRequest{
		Nullifier:  req.Nullifier,
		Commitment: req.Commitment,
	})
	defer cancel.Body.Close()
	if cancel.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d", cancel.StatusCode)
	}

	again := postJSON(t, srv.URL+"/api/v1/orders/cancel", CancelOrderRequest{
		Nullifier:  req.Nullifier,
		Commitment: req.Commitment,
	})
	defer again.Body.Close()
	if again.StatusCode != http.StatusNotFound {
		t.Fatalf("second cancel status = %d, want 404", again.StatusCode)
	}
}

func TestStatusAfterFullCycle(t *testing.T) {
	srv, eng, key := newTestServer(t)
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")

	buy := sealedSubmit(t, key, token, resolver.Buy, "b")
	sell := sealedSubmit(t, key, token, resolver.Sell, "s")
	for _, r := range []SubmitOrderRequest{buy, sell} {
		resp := postJSON(t, srv.URL+"/api/v1/orders", r)
		resp.Body.Close()
	}

	eng.RunPass()
	eng.WaitSettlements()

	resp, err := http.Get(srv.URL + "/api/v1/orders/" + buy.Nullifier.Hex())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var st OrderStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Status != "completed" || st.Execution == nil {
		t.Fatalf("status = %+v, want completed with execution", st)
	}
	if st.Execution.TxID != "0xabc" || st.Execution.Amount != 10 {
		t.Fatalf("execution = %+v", st.Execution)
	}

	statsResp, err := http.Get(srv.URL + "/api/v1/stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	defer statsResp.Body.Close()
	var snap engine.StatsSnapshot
	if err := json.NewDecoder(statsResp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.TotalOrders != 2 || snap.TotalExecuted != 1 {
		t.Fatalf("stats = %+v", snap)
	}
}
