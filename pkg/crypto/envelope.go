package crypto

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// The engine never reads order payloads; only the resolution authority holds
// the pool key. Payloads are sealed with a SHAKE-256 keystream bound to the
// order's nullifier, so two orders never share a keystream.

var ErrBadCiphertext = errors.New("crypto: malformed ciphertext")

func keystream(key []byte, nonce []byte, n int) []byte {
	h := sha3.NewShake256()
	h.Write(key)
	h.Write(nonce)
	out := make([]byte, n)
	h.Read(out)
	return out
}

// Seal XORs plaintext with the keystream derived from (key, nonce).
// Symmetric: Open is the same operation.
func Seal(key []byte, nonce []byte, plaintext []byte) []byte {
	ks := keystream(key, nonce, len(plaintext))
	out := make([]byte, len(plaintext))
	for i := range plaintext {
		out[i] = plaintext[i] ^ ks[i]
	}
	return out
}

func Open(key []byte, nonce []byte, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, ErrBadCiphertext
	}
	return Seal(key, nonce, ciphertext), nil
}

// Commitment binds an order's hidden content to a salt. keccak256, Ethereum
// convention, so the hash can double as an on-chain commitment.
func Commitment(payload []byte, salt []byte) common.Hash {
	return ethcrypto.Keccak256Hash(payload, salt)
}

// NullifierHash is the only order identity that survives settlement. Records
// are indexed by this hash, never by the raw nullifier a caller presents.
func NullifierHash(nullifier common.Hash) common.Hash {
	return ethcrypto.Keccak256Hash([]byte("darkpool/nullifier/v1"), nullifier[:])
}

// SealSide hides a one-byte side indicator under the pool key, bound to the
// order's nullifier.
func SealSide(key []byte, nullifier common.Hash, side byte) []byte {
	return Seal(key, nullifier[:], []byte{side})
}

func OpenSide(key []byte, nullifier common.Hash, enc []byte) (byte, error) {
	if len(enc) != 1 {
		return 0, ErrBadCiphertext
	}
	pt, err := Open(key, nullifier[:], enc)
	if err != nil {
		return 0, err
	}
	return pt[0], nil
}
