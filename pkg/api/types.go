package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SubmitOrderRequest carries one sealed intent. The server never sees
// plaintext terms; payload and side arrive as hex ciphertext.
type SubmitOrderRequest struct {
	Token            common.Address `json:"token"`
	EncryptedPayload hexutil.Bytes  `json:"encryptedPayload"`
	Commitment       common.Hash    `json:"commitment"`
	Nullifier        common.Hash    `json:"nullifier"`
	EncryptedSide    hexutil.Bytes  `json:"encryptedSide"`
}

type SubmitOrderResponse struct {
	Status      string      `json:"status"`
	OrderID     string      `json:"orderId"`
	Commitment  common.Hash `json:"commitment"`
	NextCycleAt int64       `json:"nextCycleAt"` // unix milliseconds, indicative
}

type CancelOrderRequest struct {
	Nullifier  common.Hash `json:"nullifier"`
	Commitment common.Hash `json:"commitment"`
}

// OrderStatusResponse is the answer to a nullifier lookup. Execution is set
// only for settled intents.
type OrderStatusResponse struct {
	Status    string         `json:"status"`
	Execution *ExecutionInfo `json:"execution,omitempty"`
}

type ExecutionInfo struct {
	MatchID        string         `json:"matchId"`
	Token          common.Address `json:"token"`
	Price          int64          `json:"price"`
	Amount         int64          `json:"amount"`
	BuyCommitment  common.Hash    `json:"buyCommitment"`
	SellCommitment common.Hash    `json:"sellCommitment"`
	TxID           string         `json:"txId"`
	SettledAt      int64          `json:"settledAt"` // unix milliseconds
}

// ExecutionUpdate is pushed to websocket subscribers of an
// "executions:<token>" channel.
type ExecutionUpdate struct {
	Type      string `json:"type"` // "execution"
	Token     string `json:"token"`
	Price     int64  `json:"price"`
	Amount    int64  `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

// WSSubscribeRequest is the client -> server subscription message
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
