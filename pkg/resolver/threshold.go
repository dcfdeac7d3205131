package resolver

import (
	"fmt"
	"sync"

	"github.com/cloudflare/circl/secretsharing"
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/darkpool/pkg/crypto"
)

// ShareHolder hands out one Shamir share of the pool secret. In a real
// deployment each holder is a separate service in its own trust domain;
// here the interface is the seam where that service plugs in.
type ShareHolder interface {
	Share() (secretsharing.Share, error)
}

// StaticShareHolder serves a share it was handed at construction.
type StaticShareHolder struct {
	share secretsharing.Share
}

func NewStaticShareHolder(s secretsharing.Share) *StaticShareHolder {
	return &StaticShareHolder{share: s}
}

func (h *StaticShareHolder) Share() (secretsharing.Share, error) { return h.share, nil }

// ThresholdAuthority recovers the pool key from threshold+1 share holders
// before answering. This is the placeholder for genuine threshold/MPC
// decryption: the Shamir arithmetic is real, but once the key is combined
// inside a single process the threshold property is gone. A production
// deployment must keep the combination out of the engine's trust domain.
type ThresholdAuthority struct {
	threshold uint
	holders   []ShareHolder

	once sync.Once
	key  []byte
	err  error
}

func NewThresholdAuthority(threshold uint, holders []ShareHolder) *ThresholdAuthority {
	return &ThresholdAuthority{threshold: threshold, holders: holders}
}

// materialize collects shares until the threshold is met and derives the
// symmetric key. Holders that fail are skipped; the recovery fails only if
// fewer than threshold+1 shares could be collected.
func (a *ThresholdAuthority) materialize() ([]byte, error) {
	a.once.Do(func() {
		need := int(a.threshold) + 1
		shares := make([]secretsharing.Share, 0, need)
		for _, h := range a.holders {
			s, err := h.Share()
			if err != nil {
				continue
			}
			shares = append(shares, s)
			if len(shares) == need {
				break
			}
		}
		if len(shares) < need {
			a.err = fmt.Errorf("resolver: collected %d shares, need %d", len(shares), need)
			return
		}
		pk, err := crypto.RecoverPoolKey(a.threshold, shares)
		if err != nil {
			a.err = err
			return
		}
		a.key, a.err = pk.SymmetricKey()
	})
	return a.key, a.err
}

func (a *ThresholdAuthority) ResolveSide(nullifier common.Hash, encryptedSide []byte) (Side, error) {
	key, err := a.materialize()
	if err != nil {
		return 0, ErrUnresolvedSide
	}
	b, err := crypto.OpenSide(key, nullifier, encryptedSide)
	if err != nil {
		return 0, ErrUnresolvedSide
	}
	return decodeSide(b)
}

func (a *ThresholdAuthority) OpenTerms(nullifier common.Hash, encryptedPayload []byte) (Terms, error) {
	key, err := a.materialize()
	if err != nil {
		return Terms{}, err
	}
	return NewLocalAuthority(key).OpenTerms(nullifier, encryptedPayload)
}

var _ Authority = (*ThresholdAuthority)(nil)
