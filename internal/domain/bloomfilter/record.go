package bloomfilter

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/ehr/pprl/internal/platform/bitvector"
)

// pcgStream is the fixed second PCG seed word. Changing it changes every
// permutation and breaks comparability with previously encoded records.
const pcgStream = 0x5265636f72644246 // "RecordBF"

// RecordBloomFilter is the permuted concatenation of a record's field filters.
type RecordBloomFilter struct {
	bits *bitvector.BitVector
	seed int64
}

// AssembleRecordBloomFilter concatenates the field filters in the given order
// and shuffles all bit positions with a permutation derived from seed. The
// field filters are read, not retained.
func AssembleRecordBloomFilter(fields []*FieldBloomFilter, seed int64) (*RecordBloomFilter, error) {
	concat, err := concatFields(fields)
	if err != nil {
		return nil, err
	}
	return permuteRecord(concat, Permutation(seed, concat.Len()), seed)
}

func concatFields(fields []*FieldBloomFilter) (*bitvector.BitVector, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no field filters", ErrInvalidParameter)
	}
	parts := make([]*bitvector.BitVector, len(fields))
	var total uint64
	for i, f := range fields {
		if f == nil {
			return nil, fmt.Errorf("%w: field filter %d is nil", ErrInvalidParameter, i)
		}
		parts[i] = f.bits
		total += uint64(f.Length())
	}
	if total > uint64(bitvector.MaxLength) {
		return nil, fmt.Errorf("%w: record length %d too large", ErrInvalidParameter, total)
	}
	concat, err := bitvector.Concat(parts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	return concat, nil
}

func permuteRecord(concat *bitvector.BitVector, perm []uint32, seed int64) (*RecordBloomFilter, error) {
	bits, err := concat.Permute(perm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	return &RecordBloomFilter{bits: bits, seed: seed}, nil
}

// Permutation returns the Fisher-Yates shuffle of [0, n) driven by a PCG
// generator seeded with seed. Bit i of a concatenated vector moves to
// position perm[i].
func Permutation(seed int64, n uint) []uint32 {
	perm := make([]uint32, n)
	for i := range perm {
		perm[i] = uint32(i)
	}
	rng := rand.NewPCG(uint64(seed), pcgStream)
	for i := n; i > 1; i-- {
		j := uniform(rng, uint64(i))
		perm[i-1], perm[j] = perm[j], perm[i-1]
	}
	return perm
}

// uniform draws from [0, bound) without modulo bias. Only Uint64 of the PCG
// source is used so the result depends on nothing but the seed.
func uniform(rng *rand.PCG, bound uint64) uint64 {
	threshold := -bound % bound
	for {
		x := rng.Uint64()
		if x >= threshold {
			return x % bound
		}
	}
}

func (r *RecordBloomFilter) Length() uint { return r.bits.Len() }

func (r *RecordBloomFilter) Cardinality() uint { return r.bits.Cardinality() }

func (r *RecordBloomFilter) PermutationSeed() int64 { return r.seed }

// BitSet returns a copy of the permuted bits.
func (r *RecordBloomFilter) BitSet() *bitvector.BitVector { return r.bits.Clone() }

// Bytes returns the canonical byte form of the permuted bits.
func (r *RecordBloomFilter) Bytes() []byte { return r.bits.Bytes() }

// Base64 is the transport form of the permuted bits.
func (r *RecordBloomFilter) Base64() string {
	return base64.StdEncoding.EncodeToString(r.bits.Bytes())
}

// Unpermute reverses the shuffle and returns the field concatenation.
func (r *RecordBloomFilter) Unpermute() (*bitvector.BitVector, error) {
	perm := Permutation(r.seed, r.bits.Len())
	inv := make([]uint32, len(perm))
	for i, p := range perm {
		inv[p] = uint32(i)
	}
	return r.bits.Permute(inv)
}

type jsonRecordBloomFilter struct {
	PermutationSeed int64                `json:"permutationSeed"`
	BitSet          *bitvector.BitVector `json:"bitSet"`
}

func (r *RecordBloomFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonRecordBloomFilter{PermutationSeed: r.seed, BitSet: r.bits})
}

func (r *RecordBloomFilter) UnmarshalJSON(data []byte) error {
	var j jsonRecordBloomFilter
	if err := json.Unmarshal(data, &j); err != nil {
		if errors.Is(err, bitvector.ErrMalformed) || errors.Is(err, bitvector.ErrInvalidLength) {
			return err
		}
		return fmt.Errorf("%w: %v", bitvector.ErrMalformed, err)
	}
	if j.BitSet == nil {
		return fmt.Errorf("%w: missing bitSet", bitvector.ErrMalformed)
	}
	r.bits, r.seed = j.BitSet, j.PermutationSeed
	return nil
}
