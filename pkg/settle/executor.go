// Package settle defines the boundary where real value transfer happens.
// The engine treats the executor as fully opaque: a synchronous error and a
// downstream revert look the same from here.
package settle

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Request carries everything the executor needs to realize one matched pair.
// No wallet identity crosses this boundary; destinations are stealth
// addresses derived by the submitters.
type Request struct {
	Token           common.Address
	Amount          int64 // lots
	Price           int64 // ticks
	BuyDestination  common.Address
	SellDestination common.Address
	BuyCommitment   common.Hash
	SellCommitment  common.Hash
}

type Receipt struct {
	TxID string
}

type Executor interface {
	Execute(ctx context.Context, req Request) (Receipt, error)
}
