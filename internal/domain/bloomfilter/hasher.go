package bloomfilter

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"hash"
	"math/big"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/ehr/pprl/internal/platform/bitvector"
)

// KeyedHasher maps a token to k bit indices by double hashing:
//
//	h1 = HMAC-SHA256(key1, token)
//	h2 = HMAC-SHA3-256(key2, token)
//	index_i = (h1 + i*h2) mod m, i in [0, k)
//
// Both digests are read as signed big-endian integers and the modulus is
// always non-negative. A KeyedHasher is safe for concurrent use.
type KeyedHasher struct {
	sha2 sync.Pool
	sha3 sync.Pool
}

// NewKeyedHasher copies both keys; neither may be empty.
func NewKeyedHasher(hmacSha2Key, hmacSha3Key []byte) (*KeyedHasher, error) {
	if len(hmacSha2Key) == 0 {
		return nil, fmt.Errorf("%w: empty HMAC-SHA256 key", ErrInvalidParameter)
	}
	if len(hmacSha3Key) == 0 {
		return nil, fmt.Errorf("%w: empty HMAC-SHA3-256 key", ErrInvalidParameter)
	}

	k1 := append([]byte(nil), hmacSha2Key...)
	k2 := append([]byte(nil), hmacSha3Key...)

	h := &KeyedHasher{}
	h.sha2.New = func() any { return hmac.New(sha256.New, k1) }
	h.sha3.New = func() any { return hmac.New(sha3.New256, k2) }
	return h, nil
}

// Indices returns the k bit indices of token in a vector of length m. The
// same (token, keys, m, k) always yields the same slice.
func (h *KeyedHasher) Indices(token []byte, m, k uint) ([]uint, error) {
	if m == 0 || m > bitvector.MaxLength {
		return nil, fmt.Errorf("%w: bit vector length %d out of range", ErrInvalidParameter, m)
	}
	if k == 0 {
		return nil, fmt.Errorf("%w: hash function count must be positive", ErrInvalidParameter)
	}

	mod := new(big.Int).SetUint64(uint64(m))
	h1 := signedMod(h.sum(&h.sha2, token), mod)
	h2 := signedMod(h.sum(&h.sha3, token), mod)

	m64 := uint64(m)
	out := make([]uint, k)
	for i := uint(0); i < k; i++ {
		step := (uint64(i) % m64) * h2 % m64
		out[i] = uint((h1 + step) % m64)
	}
	return out, nil
}

func (h *KeyedHasher) sum(pool *sync.Pool, token []byte) []byte {
	mac := pool.Get().(hash.Hash)
	defer pool.Put(mac)

	mac.Reset()
	mac.Write(token)
	return mac.Sum(nil)
}

var one = big.NewInt(1)

// signedMod interprets digest as a two's-complement big-endian integer and
// reduces it into [0, mod).
func signedMod(digest []byte, mod *big.Int) uint64 {
	x := new(big.Int).SetBytes(digest)
	if len(digest) > 0 && digest[0]&0x80 != 0 {
		x.Sub(x, new(big.Int).Lsh(one, uint(len(digest)*8)))
	}
	return x.Mod(x, mod).Uint64()
}
