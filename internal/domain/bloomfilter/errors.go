package bloomfilter

import "errors"

var (
	// ErrInvalidParameter reports a non-positive length or hash count, a false
	// positive rate outside (0,1), or empty key material.
	ErrInvalidParameter = errors.New("invalid bloom filter parameter")

	// ErrConfigDecode reports a malformed binary or JSON BloomFilterConfig.
	ErrConfigDecode = errors.New("malformed bloom filter config")
)
