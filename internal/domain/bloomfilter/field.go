package bloomfilter

import (
	"fmt"
	"math"

	"github.com/ehr/pprl/internal/platform/bitvector"
)

// MinFieldLength is the length of a field filter built from no tokens.
const MinFieldLength = 1

// FieldBloomFilter is the bit vector of one attribute of one record. It is
// immutable once built.
type FieldBloomFilter struct {
	bits *bitvector.BitVector
	p    float64
	k    uint
}

// OptimalParameters returns m = ceil(-n ln p / ln(2)^2) and
// k = round(m/n ln 2), with m >= MinFieldLength and k >= 1.
func OptimalParameters(n uint, p float64) (m, k uint, err error) {
	if !(p > 0 && p < 1) {
		return 0, 0, fmt.Errorf("%w: false positive rate %v outside (0,1)", ErrInvalidParameter, p)
	}
	if n == 0 {
		return MinFieldLength, 1, nil
	}

	fm := math.Ceil(-float64(n) * math.Log(p) / (math.Ln2 * math.Ln2))
	if fm > float64(bitvector.MaxLength) {
		return 0, 0, fmt.Errorf("%w: %d elements at p=%v need %v bits", ErrInvalidParameter, n, p, fm)
	}
	m = uint(math.Max(fm, MinFieldLength))
	k = uint(math.Max(math.Round(float64(m)/float64(n)*math.Ln2), 1))
	return m, k, nil
}

// BuildFieldBloomFilter sizes a filter for the distinct tokens at false
// positive rate p and inserts every token.
func BuildFieldBloomFilter(tokens [][]byte, p float64, h *KeyedHasher) (*FieldBloomFilter, error) {
	distinct := dedup(tokens)
	m, k, err := OptimalParameters(uint(len(distinct)), p)
	if err != nil {
		return nil, err
	}
	return build(distinct, m, k, p, h)
}

// BuildFixedFieldBloomFilter inserts tokens into a filter of fixed length m
// using k hash functions. The false positive rate is the expected rate for
// the number of distinct tokens.
func BuildFixedFieldBloomFilter(tokens [][]byte, m, k uint, h *KeyedHasher) (*FieldBloomFilter, error) {
	if m == 0 || k == 0 {
		return nil, fmt.Errorf("%w: m=%d k=%d", ErrInvalidParameter, m, k)
	}
	distinct := dedup(tokens)
	return build(distinct, m, k, expectedFalsePositiveRate(uint(len(distinct)), m, k), h)
}

// NewFieldBloomFilter wraps a precomputed bit vector that was filled with k
// hash functions. The vector is copied.
func NewFieldBloomFilter(bits *bitvector.BitVector, k uint, p float64) (*FieldBloomFilter, error) {
	if bits == nil {
		return nil, fmt.Errorf("%w: nil bit vector", ErrInvalidParameter)
	}
	if k == 0 {
		return nil, fmt.Errorf("%w: hash function count must be positive", ErrInvalidParameter)
	}
	if !(p > 0 && p < 1) {
		return nil, fmt.Errorf("%w: false positive rate %v outside (0,1)", ErrInvalidParameter, p)
	}
	return &FieldBloomFilter{bits: bits.Clone(), p: p, k: k}, nil
}

func build(tokens [][]byte, m, k uint, p float64, h *KeyedHasher) (*FieldBloomFilter, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil hasher", ErrInvalidParameter)
	}
	bits, err := bitvector.New(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	for _, token := range tokens {
		idx, err := h.Indices(token, m, k)
		if err != nil {
			return nil, err
		}
		for _, i := range idx {
			if err := bits.Set(i); err != nil {
				return nil, err
			}
		}
	}
	return &FieldBloomFilter{bits: bits, p: p, k: k}, nil
}

// BitSet returns a copy of the filter bits.
func (f *FieldBloomFilter) BitSet() *bitvector.BitVector { return f.bits.Clone() }

func (f *FieldBloomFilter) Length() uint { return f.bits.Len() }

func (f *FieldBloomFilter) Cardinality() uint { return f.bits.Cardinality() }

func (f *FieldBloomFilter) FalsePositiveRate() float64 { return f.p }

func (f *FieldBloomFilter) HashFunctions() uint { return f.k }

func dedup(tokens [][]byte) [][]byte {
	seen := make(map[string]struct{}, len(tokens))
	out := make([][]byte, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[string(t)]; ok {
			continue
		}
		seen[string(t)] = struct{}{}
		out = append(out, t)
	}
	return out
}

// expectedFalsePositiveRate is (1 - e^(-kn/m))^k, clamped into (0,1).
func expectedFalsePositiveRate(n, m, k uint) float64 {
	p := math.Pow(1-math.Exp(-float64(k)*float64(n)/float64(m)), float64(k))
	switch {
	case p <= 0:
		return math.SmallestNonzeroFloat64
	case p >= 1:
		return math.Nextafter(1, 0)
	}
	return p
}
