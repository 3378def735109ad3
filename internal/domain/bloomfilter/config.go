package bloomfilter

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Algorithm names carried in the JSON form for documentation.
const (
	AlgorithmHmacSHA256   = "HmacSHA256"
	AlgorithmHmacSHA3_256 = "HmacSHA3-256"
)

const (
	seedBytes      = 8
	keyLengthBytes = 4

	// GeneratedKeySize is the key size used by GenerateBloomFilterConfig and
	// DeriveBloomFilterConfig.
	GeneratedKeySize = 32
)

// BloomFilterConfig is the keying material of one linkage campaign: the
// permutation seed of the record filter and the two HMAC keys of the
// KeyedHasher.
type BloomFilterConfig struct {
	permutationSeed int64
	hmacSha2Key     []byte
	hmacSha3Key     []byte
}

// NewBloomFilterConfig copies both keys; neither may be empty.
func NewBloomFilterConfig(permutationSeed int64, hmacSha2Key, hmacSha3Key []byte) (*BloomFilterConfig, error) {
	if len(hmacSha2Key) == 0 || len(hmacSha3Key) == 0 {
		return nil, fmt.Errorf("%w: empty HMAC key", ErrInvalidParameter)
	}
	return &BloomFilterConfig{
		permutationSeed: permutationSeed,
		hmacSha2Key:     bytes.Clone(hmacSha2Key),
		hmacSha3Key:     bytes.Clone(hmacSha3Key),
	}, nil
}

// GenerateBloomFilterConfig draws a random seed and two 32-byte keys.
func GenerateBloomFilterConfig() (*BloomFilterConfig, error) {
	return readConfig(rand.Reader)
}

// DeriveBloomFilterConfig expands a shared campaign secret with HKDF-SHA256.
// Sites holding the same secret and campaign name obtain equal configs.
func DeriveBloomFilterConfig(secret []byte, campaign string) (*BloomFilterConfig, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty campaign secret", ErrInvalidParameter)
	}
	info := []byte("pprl bloom filter config/" + campaign)
	return readConfig(hkdf.New(sha256.New, secret, nil, info))
}

func readConfig(r io.Reader) (*BloomFilterConfig, error) {
	buf := make([]byte, seedBytes+2*GeneratedKeySize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read key material: %w", err)
	}
	return NewBloomFilterConfig(
		int64(binary.BigEndian.Uint64(buf[:seedBytes])),
		buf[seedBytes:seedBytes+GeneratedKeySize],
		buf[seedBytes+GeneratedKeySize:],
	)
}

func (c *BloomFilterConfig) PermutationSeed() int64 { return c.permutationSeed }

// HmacSha2Key returns a copy of the HMAC-SHA256 key.
func (c *BloomFilterConfig) HmacSha2Key() []byte { return bytes.Clone(c.hmacSha2Key) }

// HmacSha3Key returns a copy of the HMAC-SHA3-256 key.
func (c *BloomFilterConfig) HmacSha3Key() []byte { return bytes.Clone(c.hmacSha3Key) }

// NewKeyedHasher returns a hasher keyed with this config's HMAC keys.
func (c *BloomFilterConfig) NewKeyedHasher() (*KeyedHasher, error) {
	return NewKeyedHasher(c.hmacSha2Key, c.hmacSha3Key)
}

// Equal compares the seed and the raw key bytes.
func (c *BloomFilterConfig) Equal(o *BloomFilterConfig) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.permutationSeed == o.permutationSeed &&
		bytes.Equal(c.hmacSha2Key, o.hmacSha2Key) &&
		bytes.Equal(c.hmacSha3Key, o.hmacSha3Key)
}

// ToBytes encodes the config as
//
//	seed (8 bytes BE) || len(key1) (4 bytes BE) || key1 || len(key2) (4 bytes BE) || key2
//
// The layout carries no version byte.
func (c *BloomFilterConfig) ToBytes() []byte {
	out := make([]byte, 0, seedBytes+2*keyLengthBytes+len(c.hmacSha2Key)+len(c.hmacSha3Key))
	out = binary.BigEndian.AppendUint64(out, uint64(c.permutationSeed))
	out = binary.BigEndian.AppendUint32(out, uint32(len(c.hmacSha2Key)))
	out = append(out, c.hmacSha2Key...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(c.hmacSha3Key)))
	out = append(out, c.hmacSha3Key...)
	return out
}

// BloomFilterConfigFromBytes decodes the ToBytes layout. Missing or trailing
// bytes are errors.
func BloomFilterConfigFromBytes(b []byte) (*BloomFilterConfig, error) {
	if len(b) < seedBytes {
		return nil, fmt.Errorf("%w: %d bytes, missing seed", ErrConfigDecode, len(b))
	}
	seed := int64(binary.BigEndian.Uint64(b))
	rest := b[seedBytes:]

	key1, rest, err := readLengthPrefixed(rest)
	if err != nil {
		return nil, fmt.Errorf("%w: hmacSha2Key: %v", ErrConfigDecode, err)
	}
	key2, rest, err := readLengthPrefixed(rest)
	if err != nil {
		return nil, fmt.Errorf("%w: hmacSha3Key: %v", ErrConfigDecode, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrConfigDecode, len(rest))
	}

	cfg, err := NewBloomFilterConfig(seed, key1, key2)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigDecode, err)
	}
	return cfg, nil
}

func readLengthPrefixed(b []byte) (value, rest []byte, err error) {
	if len(b) < keyLengthBytes {
		return nil, nil, fmt.Errorf("missing length prefix")
	}
	n := binary.BigEndian.Uint32(b)
	b = b[keyLengthBytes:]
	if uint64(n) > uint64(len(b)) {
		return nil, nil, fmt.Errorf("length %d exceeds remaining %d bytes", n, len(b))
	}
	return b[:n], b[n:], nil
}

type jsonKey struct {
	Algorithm string `json:"algorithm,omitempty"`
	Value     string `json:"value"`
}

type jsonConfig struct {
	PermutationSeed *int64   `json:"permutationSeed"`
	HmacSha2Key     *jsonKey `json:"hmacSha2Key"`
	HmacSha3Key     *jsonKey `json:"hmacSha3Key"`
}

func (c *BloomFilterConfig) MarshalJSON() ([]byte, error) {
	seed := c.permutationSeed
	return json.Marshal(jsonConfig{
		PermutationSeed: &seed,
		HmacSha2Key: &jsonKey{
			Algorithm: AlgorithmHmacSHA256,
			Value:     base64.StdEncoding.EncodeToString(c.hmacSha2Key),
		},
		HmacSha3Key: &jsonKey{
			Algorithm: AlgorithmHmacSHA3_256,
			Value:     base64.StdEncoding.EncodeToString(c.hmacSha3Key),
		},
	})
}

func (c *BloomFilterConfig) UnmarshalJSON(data []byte) error {
	var j jsonConfig
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigDecode, err)
	}
	if j.PermutationSeed == nil {
		return fmt.Errorf("%w: missing permutationSeed", ErrConfigDecode)
	}
	key1, err := decodeKey("hmacSha2Key", j.HmacSha2Key, AlgorithmHmacSHA256)
	if err != nil {
		return err
	}
	key2, err := decodeKey("hmacSha3Key", j.HmacSha3Key, AlgorithmHmacSHA3_256)
	if err != nil {
		return err
	}
	*c = BloomFilterConfig{permutationSeed: *j.PermutationSeed, hmacSha2Key: key1, hmacSha3Key: key2}
	return nil
}

func decodeKey(name string, k *jsonKey, algorithm string) ([]byte, error) {
	if k == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrConfigDecode, name)
	}
	if k.Algorithm != "" && k.Algorithm != algorithm {
		return nil, fmt.Errorf("%w: %s.algorithm %s expected, but got %s", ErrConfigDecode, name, algorithm, k.Algorithm)
	}
	raw, err := base64.StdEncoding.DecodeString(k.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigDecode, name, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrConfigDecode, name)
	}
	return raw, nil
}
