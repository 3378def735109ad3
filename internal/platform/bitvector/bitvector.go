// Package bitvector provides a fixed-length bit vector with a canonical byte
// and JSON encoding. The logical length always travels with the bytes, so a
// vector whose trailing bits are zero decodes back to the same length.
package bitvector

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

var (
	ErrInvalidLength = errors.New("bit vector length must be positive")
	ErrOutOfRange    = errors.New("bit index out of range")
	ErrMalformed     = errors.New("malformed bit vector encoding")
)

// lengthPrefixBytes is the size of the big-endian length header in the binary form.
const lengthPrefixBytes = 4

// MaxLength bounds the logical length so it fits the 4-byte binary header.
const MaxLength = uint(^uint32(0))

// BitVector is a bit sequence of fixed logical length. Bit i lives in byte i/8
// under mask 1<<(i%8) of the byte form.
type BitVector struct {
	length uint
	bits   *bitset.BitSet
}

// New returns an all-zero vector of the given length.
func New(length uint) (*BitVector, error) {
	if err := checkLength(length); err != nil {
		return nil, err
	}
	return &BitVector{length: length, bits: bitset.New(length)}, nil
}

func checkLength(length uint) error {
	if length == 0 {
		return ErrInvalidLength
	}
	if length > MaxLength {
		return fmt.Errorf("%w: %d exceeds %d", ErrInvalidLength, length, MaxLength)
	}
	return nil
}

// Len returns the logical length fixed at construction.
func (v *BitVector) Len() uint { return v.length }

// Set turns bit i on.
func (v *BitVector) Set(i uint) error {
	if i >= v.length {
		return fmt.Errorf("%w: %d >= %d", ErrOutOfRange, i, v.length)
	}
	v.bits.Set(i)
	return nil
}

// SetRange turns on every bit in [from, to).
func (v *BitVector) SetRange(from, to uint) error {
	if from > to || to > v.length {
		return fmt.Errorf("%w: [%d, %d) in length %d", ErrOutOfRange, from, to, v.length)
	}
	for i := from; i < to; i++ {
		v.bits.Set(i)
	}
	return nil
}

// Test reports whether bit i is set. Indices past the end read as unset.
func (v *BitVector) Test(i uint) bool {
	if i >= v.length {
		return false
	}
	return v.bits.Test(i)
}

// Cardinality returns the number of set bits.
func (v *BitVector) Cardinality() uint { return v.bits.Count() }

// Clone returns a deep copy.
func (v *BitVector) Clone() *BitVector {
	return &BitVector{length: v.length, bits: v.bits.Clone()}
}

// Equal compares length and content.
func (v *BitVector) Equal(o *BitVector) bool {
	if v == nil || o == nil {
		return v == o
	}
	return v.length == o.length && v.bits.Equal(o.bits)
}

// ForEachSet calls fn with the index of every set bit in ascending order.
func (v *BitVector) ForEachSet(fn func(i uint)) {
	for i, ok := v.bits.NextSet(0); ok && i < v.length; i, ok = v.bits.NextSet(i + 1) {
		fn(i)
	}
}

// ByteLen returns ceil(length/8).
func ByteLen(length uint) int {
	return int((length + 7) / 8)
}

// Bytes returns exactly ByteLen(Len()) bytes.
func (v *BitVector) Bytes() []byte {
	out := make([]byte, ByteLen(v.length))
	v.ForEachSet(func(i uint) {
		out[i/8] |= 1 << (i % 8)
	})
	return out
}

// FromBytes is the inverse of Bytes. The slice must be exactly ByteLen(length)
// long and must not carry set bits beyond length.
// Nothing is allocated before the declared length has been checked against b.
func FromBytes(b []byte, length uint) (*BitVector, error) {
	if err := checkLength(length); err != nil {
		return nil, err
	}
	if len(b) != ByteLen(length) {
		return nil, fmt.Errorf("%w: %d bytes for length %d, expected %d", ErrMalformed, len(b), length, ByteLen(length))
	}
	v, err := New(length)
	if err != nil {
		return nil, err
	}
	for byteIdx, x := range b {
		for bit := uint(0); bit < 8 && x != 0; bit++ {
			if x&(1<<bit) == 0 {
				continue
			}
			i := uint(byteIdx)*8 + bit
			if i >= length {
				return nil, fmt.Errorf("%w: bit %d set beyond length %d", ErrMalformed, i, length)
			}
			v.bits.Set(i)
		}
	}
	return v, nil
}

// MarshalBinary encodes as a 4-byte big-endian length followed by Bytes().
func (v *BitVector) MarshalBinary() ([]byte, error) {
	out := make([]byte, lengthPrefixBytes, lengthPrefixBytes+ByteLen(v.length))
	binary.BigEndian.PutUint32(out, uint32(v.length))
	return append(out, v.Bytes()...), nil
}

// UnmarshalBinary decodes the MarshalBinary form.
func (v *BitVector) UnmarshalBinary(data []byte) error {
	if len(data) < lengthPrefixBytes {
		return fmt.Errorf("%w: missing length header", ErrMalformed)
	}
	length := uint(binary.BigEndian.Uint32(data))
	decoded, err := FromBytes(data[lengthPrefixBytes:], length)
	if err != nil {
		return err
	}
	*v = *decoded
	return nil
}

type jsonBitVector struct {
	Length uint   `json:"length"`
	Bits   string `json:"bits"`
}

// MarshalJSON writes {"length": m, "bits": base64(Bytes())}.
func (v *BitVector) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonBitVector{
		Length: v.length,
		Bits:   base64.StdEncoding.EncodeToString(v.Bytes()),
	})
}

// UnmarshalJSON reads the MarshalJSON form.
func (v *BitVector) UnmarshalJSON(data []byte) error {
	var j jsonBitVector
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	raw, err := base64.StdEncoding.DecodeString(j.Bits)
	if err != nil {
		return fmt.Errorf("%w: bits: %v", ErrMalformed, err)
	}
	decoded, err := FromBytes(raw, j.Length)
	if err != nil {
		return err
	}
	*v = *decoded
	return nil
}

// Concat joins vectors in order into one vector of the summed length.
func Concat(parts ...*BitVector) (*BitVector, error) {
	var total uint
	for _, p := range parts {
		total += p.length
	}
	out, err := New(total)
	if err != nil {
		return nil, err
	}
	var offset uint
	for _, p := range parts {
		p.ForEachSet(func(i uint) {
			out.bits.Set(offset + i)
		})
		offset += p.length
	}
	return out, nil
}

// Permute returns a vector where bit perm[i] of the result equals bit i of v.
// perm must be a permutation of [0, Len()).
func (v *BitVector) Permute(perm []uint32) (*BitVector, error) {
	if uint(len(perm)) != v.length {
		return nil, fmt.Errorf("%w: permutation size %d for length %d", ErrMalformed, len(perm), v.length)
	}
	out := &BitVector{length: v.length, bits: bitset.New(v.length)}
	v.ForEachSet(func(i uint) {
		out.bits.Set(uint(perm[i]))
	})
	return out, nil
}
