// Package resolver models the side-resolution / decryption authority the
// matching engine consumes. The engine never learns whether an order is a
// buy or a sell on its own; it hands the opaque ciphertexts to an Authority
// and acts on the answer.
package resolver

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/darkpool/pkg/crypto"
)

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Wire bytes for the sealed side indicator. Zero is deliberately invalid so
// a wrong key almost never decrypts to a legal side.
const (
	sideByteBuy  byte = 0x01
	sideByteSell byte = 0x02
)

// ErrUnresolvedSide means the ciphertext did not decrypt to a legal side.
// The engine treats this as "skip the order this cycle", not a fault.
var ErrUnresolvedSide = errors.New("resolver: side did not resolve")

// Terms are the hidden contents of an order: how much, the worst acceptable
// price, and where settlement output goes. Only the authority and the
// settlement executor ever see them in the clear.
type Terms struct {
	Amount      int64          `json:"amount"`      // lots
	LimitPrice  int64          `json:"limitPrice"`  // ticks; max for buys, min for sells
	Destination common.Address `json:"destination"` // stealth settlement output
}

func (t Terms) validate() error {
	if t.Amount <= 0 {
		return fmt.Errorf("resolver: non-positive amount %d", t.Amount)
	}
	if t.LimitPrice <= 0 {
		return fmt.Errorf("resolver: non-positive limit price %d", t.LimitPrice)
	}
	return nil
}

// SideResolver reveals an order's side. Must be deterministic for a given
// input within one matching pass.
type SideResolver interface {
	ResolveSide(nullifier common.Hash, encryptedSide []byte) (Side, error)
}

// TermsOpener reveals an order's terms at settlement time.
type TermsOpener interface {
	OpenTerms(nullifier common.Hash, encryptedPayload []byte) (Terms, error)
}

// Authority is both halves of the decryption capability.
type Authority interface {
	SideResolver
	TermsOpener
}

// SealIntent is the client-side counterpart: given the pool's symmetric key,
// it produces the two ciphertexts an order submission carries.
func SealIntent(key []byte, nullifier common.Hash, side Side, terms Terms) (encSide, encPayload []byte, err error) {
	if err := terms.validate(); err != nil {
		return nil, nil, err
	}
	var sb byte
	switch side {
	case Buy:
		sb = sideByteBuy
	case Sell:
		sb = sideByteSell
	default:
		return nil, nil, fmt.Errorf("resolver: invalid side %d", side)
	}
	payload, err := json.Marshal(terms)
	if err != nil {
		return nil, nil, fmt.Errorf("resolver: marshal terms: %w", err)
	}
	return crypto.SealSide(key, nullifier, sb), crypto.Seal(key, nullifier[:], payload), nil
}

func decodeSide(b byte) (Side, error) {
	switch b {
	case sideByteBuy:
		return Buy, nil
	case sideByteSell:
		return Sell, nil
	default:
		return 0, ErrUnresolvedSide
	}
}
