package pseudonym

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Generator issues pseudonyms for batches of linked identities.
type Generator struct {
	codec   *Codec
	workers int
	logger  zerolog.Logger
}

func NewGenerator(codec *Codec, workers int, logger zerolog.Logger) *Generator {
	if workers < 1 {
		workers = 1
	}
	return &Generator{codec: codec, workers: workers, logger: logger}
}

// CreatePseudonymsAndShuffle encodes one pseudonym per group. Every
// plaintext is padded to the largest unpadded size of the batch so all
// pseudonyms have the same length, and the result is shuffled so its order
// does not reveal the input order.
func (g *Generator) CreatePseudonymsAndShuffle(ctx context.Context, groups [][]TtpID) ([]Issued, error) {
	if len(groups) == 0 {
		return []Issued{}, nil
	}

	target := 0
	for i, ids := range groups {
		n, err := UnpaddedLength(ids)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		target = max(target, n)
	}

	out := make([]Issued, len(groups))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i := range groups {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := g.codec.Encode(groups[i], target)
			if err != nil {
				return fmt.Errorf("group %d: %w", i, err)
			}
			out[i] = Issued{TtpIDs: NewPseudonym(groups[i]...).TtpIDs, Pseudonym: s}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if err := shuffle(out); err != nil {
		return nil, err
	}
	g.logger.Info().
		Str("study", g.codec.StudyIdentifier()).
		Int("pseudonyms", len(out)).
		Int("plaintext_length", target).
		Msg("created pseudonyms")
	return out, nil
}

// DecodeAll decodes encoded in parallel and keeps the input order.
func (g *Generator) DecodeAll(ctx context.Context, encoded []string) ([][]TtpID, error) {
	out := make([][]TtpID, len(encoded))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i := range encoded {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ids, err := g.codec.Decode(encoded[i])
			if err != nil {
				return fmt.Errorf("pseudonym %d: %w", i, err)
			}
			out[i] = ids
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		g.logger.Error().Err(err).Str("study", g.codec.StudyIdentifier()).Msg("decoding pseudonyms failed")
		return nil, err
	}
	return out, nil
}

// shuffle is a Fisher-Yates shuffle driven by crypto/rand.
func shuffle(items []Issued) error {
	for i := len(items) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("shuffle: %w", err)
		}
		items[i], items[j.Int64()] = items[j.Int64()], items[i]
	}
	return nil
}
