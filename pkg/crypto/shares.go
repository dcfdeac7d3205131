package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/group"
	"github.com/cloudflare/circl/secretsharing"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// PoolKey is the secret that decrypts order sides and payloads for one pool
// deployment. It is meant to live with the resolution authority, split across
// share holders; the engine process only ever sees ciphertext.
type PoolKey struct {
	secret group.Scalar
}

var poolGroup = group.P256

func NewPoolKey() (*PoolKey, error) {
	s := poolGroup.RandomScalar(rand.Reader)
	if s == nil {
		return nil, fmt.Errorf("crypto: scalar generation failed")
	}
	return &PoolKey{secret: s}, nil
}

// SymmetricKey derives the 32-byte envelope key from the shared scalar.
func (k *PoolKey) SymmetricKey() ([]byte, error) {
	raw, err := k.secret.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal pool secret: %w", err)
	}
	return ethcrypto.Keccak256(raw), nil
}

// Split produces n Shamir shares of the pool secret; any threshold+1 of them
// recover it. Shares go to independent holders, one per trust domain.
func (k *PoolKey) Split(threshold, n uint) ([]secretsharing.Share, error) {
	if n == 0 || threshold >= n {
		return nil, fmt.Errorf("crypto: invalid share parameters t=%d n=%d", threshold, n)
	}
	ss := secretsharing.New(rand.Reader, threshold, k.secret)
	return ss.Share(n), nil
}

// RecoverPoolKey reconstructs the pool secret from at least threshold+1
// shares.
func RecoverPoolKey(threshold uint, shares []secretsharing.Share) (*PoolKey, error) {
	secret, err := secretsharing.Recover(threshold, shares)
	if err != nil {
		return nil, fmt.Errorf("crypto: recover pool secret: %w", err)
	}
	return &PoolKey{secret: secret}, nil
}
