// Package engine implements the batched privacy-preserving matching core:
// order admission, per-token books, the shuffled pairing pass, and the
// randomized settlement dispatch.
package engine

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Status int

const (
	StatusPending Status = iota
	StatusMatched
	StatusExecuting
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusMatched:
		return "matched"
	case StatusExecuting:
		return "executing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Order is one admitted trade intent. The engine holds only ciphertext and
// binding hashes; amounts, limit prices and side live inside the sealed
// fields until the resolution authority opens them.
type Order struct {
	ID               string
	Token            common.Address
	EncryptedPayload []byte
	Commitment       common.Hash
	Nullifier        common.Hash
	EncryptedSide    []byte
	Status           Status
	CreatedAt        time.Time
}

// Match pairs one resolved buy with one resolved sell for the same token.
// Matches are transient: they exist only between a matching pass and the
// settlement attempt it feeds.
type Match struct {
	ID        string
	Token     common.Address
	Buy       *Order
	Sell      *Order
	CreatedAt time.Time
}

// Execution is the durable, anonymized record of a settled match. It carries
// commitments and a settlement tx id but no payload and no wallet identity.
type Execution struct {
	MatchID        string         `json:"matchId"`
	Token          common.Address `json:"token"`
	Price          int64          `json:"price"`
	Amount         int64          `json:"amount"`
	BuyCommitment  common.Hash    `json:"buyCommitment"`
	SellCommitment common.Hash    `json:"sellCommitment"`
	TxID           string         `json:"txId"`
	MatchedAt      time.Time      `json:"matchedAt"`
	SettledAt      time.Time      `json:"settledAt"`
}

// Receipt is what a submitter gets back at admission.
type Receipt struct {
	OrderID     string
	Commitment  common.Hash
	NextCycleAt time.Time
}
