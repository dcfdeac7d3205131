package engine

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidOrder wraps every structural rejection at submit time.
var ErrInvalidOrder = errors.New("engine: invalid order")

// SubmitRequest is the raw material for admission. All fields are required;
// none are inspected beyond presence.
type SubmitRequest struct {
	Token            common.Address
	EncryptedPayload []byte
	Commitment       common.Hash
	Nullifier        common.Hash
	EncryptedSide    []byte
}

func validateSubmit(req SubmitRequest) error {
	if req.Token == (common.Address{}) {
		return fmt.Errorf("%w: missing token address", ErrInvalidOrder)
	}
	if len(req.EncryptedPayload) == 0 {
		return fmt.Errorf("%w: missing encrypted payload", ErrInvalidOrder)
	}
	if req.Commitment == (common.Hash{}) {
		return fmt.Errorf("%w: missing commitment", ErrInvalidOrder)
	}
	if req.Nullifier == (common.Hash{}) {
		return fmt.Errorf("%w: missing nullifier", ErrInvalidOrder)
	}
	if len(req.EncryptedSide) == 0 {
		return fmt.Errorf("%w: missing encrypted side", ErrInvalidOrder)
	}
	return nil
}
