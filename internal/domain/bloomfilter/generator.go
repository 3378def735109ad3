package bloomfilter

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ehr/pprl/internal/domain/idat"
)

// RecordBloomFilterGenerator encodes IDAT into record filters under one
// BloomFilterConfig and FieldProfile. It holds only read-only state and is
// safe for concurrent use.
type RecordBloomFilterGenerator struct {
	hasher  *KeyedHasher
	seed    int64
	profile FieldProfile
	perm    []uint32
	logger  zerolog.Logger
}

// NewRecordBloomFilterGenerator validates profile and precomputes the
// permutation of its total length.
func NewRecordBloomFilterGenerator(cfg *BloomFilterConfig, profile FieldProfile, logger zerolog.Logger) (*RecordBloomFilterGenerator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil bloom filter config", ErrInvalidParameter)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	hasher, err := cfg.NewKeyedHasher()
	if err != nil {
		return nil, err
	}
	return &RecordBloomFilterGenerator{
		hasher:  hasher,
		seed:    cfg.PermutationSeed(),
		profile: profile,
		perm:    Permutation(cfg.PermutationSeed(), profile.TotalLength()),
		logger:  logger,
	}, nil
}

// Length is the length of every filter this generator produces.
func (g *RecordBloomFilterGenerator) Length() uint { return uint(len(g.perm)) }

// Generate normalizes the IDAT and builds one fixed field filter per profile
// field from the value's bigrams, then assembles the record filter.
func (g *RecordBloomFilterGenerator) Generate(subject *idat.Idat) (*RecordBloomFilter, error) {
	if subject == nil {
		return nil, fmt.Errorf("%w: nil idat", ErrInvalidParameter)
	}
	normalized := subject.Normalize()

	fields := make([]*FieldBloomFilter, len(g.profile.Fields))
	for i, spec := range g.profile.Fields {
		value, _ := normalized.Field(spec.Name)
		f, err := BuildFixedFieldBloomFilter(Bigrams(value), spec.Length, spec.HashFunctions, g.hasher)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", spec.Name, err)
		}
		fields[i] = f
	}

	concat, err := concatFields(fields)
	if err != nil {
		return nil, err
	}
	return permuteRecord(concat, g.perm, g.seed)
}

// GenerateBatch encodes subjects on up to workers goroutines. The result is
// in input order. The first error cancels the remaining work.
func (g *RecordBloomFilterGenerator) GenerateBatch(ctx context.Context, subjects []*idat.Idat, workers int) ([]*RecordBloomFilter, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([]*RecordBloomFilter, len(subjects))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := range subjects {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rbf, err := g.Generate(subjects[i])
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			out[i] = rbf
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g.logger.Debug().Int("records", len(subjects)).Uint("length", g.Length()).Msg("generated record bloom filters")
	return out, nil
}
