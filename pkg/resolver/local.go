package resolver

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/darkpool/pkg/crypto"
)

// LocalAuthority holds the pool key directly in-process. It exists for tests
// and single-operator devnets; running it next to the engine collapses the
// two trust domains, so its answers carry no privacy guarantee against the
// operator.
type LocalAuthority struct {
	key []byte
}

func NewLocalAuthority(key []byte) *LocalAuthority {
	return &LocalAuthority{key: key}
}

func (a *LocalAuthority) ResolveSide(nullifier common.Hash, encryptedSide []byte) (Side, error) {
	b, err := crypto.OpenSide(a.key, nullifier, encryptedSide)
	if err != nil {
		return 0, ErrUnresolvedSide
	}
	return decodeSide(b)
}

func (a *LocalAuthority) OpenTerms(nullifier common.Hash, encryptedPayload []byte) (Terms, error) {
	pt, err := crypto.Open(a.key, nullifier[:], encryptedPayload)
	if err != nil {
		return Terms{}, fmt.Errorf("resolver: open payload: %w", err)
	}
	var t Terms
	if err := json.Unmarshal(pt, &t); err != nil {
		return Terms{}, fmt.Errorf("resolver: decode terms: %w", err)
	}
	if err := t.validate(); err != nil {
		return Terms{}, err
	}
	return t, nil
}

var _ Authority = (*LocalAuthority)(nil)
