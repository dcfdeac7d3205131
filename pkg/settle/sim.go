package settle

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// SimExecutor fakes on-chain settlement for devnets and tests: it sleeps a
// little, fails a configurable fraction of requests, and fabricates a tx
// hash for the rest.
type SimExecutor struct {
	Latency     time.Duration
	FailureRate float64 // 0..1
	Logger      *zap.SugaredLogger
}

func (e *SimExecutor) Execute(ctx context.Context, req Request) (Receipt, error) {
	if e.Latency > 0 {
		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-time.After(e.Latency):
		}
	}

	if e.FailureRate > 0 {
		n, err := rand.Int(rand.Reader, big.NewInt(10_000))
		if err == nil && float64(n.Int64()) < e.FailureRate*10_000 {
			return Receipt{}, fmt.Errorf("settle: simulated swap revert for token %s", req.Token.Hex())
		}
	}

	var nonce [8]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return Receipt{}, fmt.Errorf("settle: nonce: %w", err)
	}
	var amt [8]byte
	binary.BigEndian.PutUint64(amt[:], uint64(req.Amount))
	txid := ethcrypto.Keccak256Hash(req.Token.Bytes(), req.BuyCommitment.Bytes(), req.SellCommitment.Bytes(), amt[:], nonce[:])

	if e.Logger != nil {
		e.Logger.Infow("sim_settlement",
			"token", req.Token.Hex(),
			"amount", req.Amount,
			"price", req.Price,
			"tx", txid.Hex())
	}
	return Receipt{TxID: txid.Hex()}, nil
}

var _ Executor = (*SimExecutor)(nil)
