package bloomfilter

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKeys() ([]byte, []byte) {
	return bytes.Repeat([]byte{0x11}, 32), bytes.Repeat([]byte{0x22}, 32)
}

func newTestHasher(t *testing.T) *KeyedHasher {
	t.Helper()
	k1, k2 := testKeys()
	h, err := NewKeyedHasher(k1, k2)
	require.NoError(t, err)
	return h
}

func TestNewKeyedHasher_RejectsEmptyKeys(t *testing.T) {
	k1, k2 := testKeys()

	_, err := NewKeyedHasher(nil, k2)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewKeyedHasher(k1, []byte{})
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestIndices_Deterministic(t *testing.T) {
	a := newTestHasher(t)
	b := newTestHasher(t)

	for _, token := range [][]byte{[]byte(" b"), []byte("bo"), []byte("ä "), {}} {
		x, err := a.Indices(token, 500, 15)
		require.NoError(t, err)
		y, err := b.Indices(token, 500, 15)
		require.NoError(t, err)
		require.Equal(t, x, y)
		require.Len(t, x, 15)
		for _, i := range x {
			require.Less(t, i, uint(500))
		}
	}
}

func TestIndices_KeyChangesOutput(t *testing.T) {
	k1, k2 := testKeys()
	a, err := NewKeyedHasher(k1, k2)
	require.NoError(t, err)
	other := bytes.Clone(k1)
	other[0] ^= 0xff
	b, err := NewKeyedHasher(other, k2)
	require.NoError(t, err)

	x, err := a.Indices([]byte("ma"), 1<<20, 8)
	require.NoError(t, err)
	y, err := b.Indices([]byte("ma"), 1<<20, 8)
	require.NoError(t, err)
	require.NotEqual(t, x, y)
}

func TestIndices_RejectsBadGeometry(t *testing.T) {
	h := newTestHasher(t)

	_, err := h.Indices([]byte("ab"), 0, 3)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = h.Indices([]byte("ab"), 10, 0)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestIndices_MatchesBigIntegerDoubleHashing(t *testing.T) {
	h := newTestHasher(t)
	token := []byte("xy")
	const m, k = 997, 5

	got, err := h.Indices(token, m, k)
	require.NoError(t, err)

	d1 := h.sum(&h.sha2, token)
	d2 := h.sum(&h.sha3, token)
	mod := big.NewInt(m)
	for i := 0; i < k; i++ {
		x := new(big.Int).Mul(toSigned(d2), big.NewInt(int64(i)))
		x.Add(x, toSigned(d1))
		x.Mod(x, mod)
		require.Equal(t, uint(x.Uint64()), got[i], "index %d", i)
	}
}

func TestSignedMod(t *testing.T) {
	mod := big.NewInt(10)
	require.Equal(t, uint64(5), signedMod([]byte{0x05}, mod))
	// 0xff is -1 as a signed byte; -1 mod 10 == 9.
	require.Equal(t, uint64(9), signedMod([]byte{0xff}, mod))
	// 0xff00 is -256; -256 mod 10 == 4.
	require.Equal(t, uint64(4), signedMod([]byte{0xff, 0x00}, mod))
}

func toSigned(b []byte) *big.Int {
	x := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		x.Sub(x, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return x
}
