package pseudonym

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ehr/pprl/internal/platform/aesgcm"
)

func TestCreatePseudonymsAndShuffle(t *testing.T) {
	g := NewGenerator(newTestCodec(t), 4, zerolog.Nop())

	groups := [][]TtpID{
		randomIDs(),
		{{SiteIdentifier: "UMG", OpaqueID: "short"}},
		append(randomIDs(), TtpID{SiteIdentifier: "UKHD", OpaqueID: "a-much-longer-opaque-identifier"}),
		{},
	}

	issued, err := g.CreatePseudonymsAndShuffle(context.Background(), groups)
	require.NoError(t, err)
	require.Len(t, issued, len(groups))

	length := -1
	var encoded []string
	for _, is := range issued {
		raw, err := base64.StdEncoding.DecodeString(is.Pseudonym)
		require.NoError(t, err)
		if length < 0 {
			length = len(raw)
		}
		require.Equal(t, length, len(raw))

		ids, err := g.codec.Decode(is.Pseudonym)
		require.NoError(t, err)
		require.Equal(t, is.TtpIDs, ids)
		encoded = append(encoded, is.Pseudonym)
	}

	decoded, err := g.DecodeAll(context.Background(), encoded)
	require.NoError(t, err)
	require.ElementsMatch(t, groups, decoded)
}

func TestCreatePseudonymsAndShuffle_Empty(t *testing.T) {
	g := NewGenerator(newTestCodec(t), 1, zerolog.Nop())
	issued, err := g.CreatePseudonymsAndShuffle(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, issued)
	require.Empty(t, issued)

	_, err = g.CreatePseudonymsAndShuffle(context.Background(), [][]TtpID{{{SiteIdentifier: "UMG", OpaqueID: "\xff"}}})
	require.ErrorIs(t, err, ErrInvalidTtpID)
}

func TestDecodeAll_PropagatesAuthenticationFailure(t *testing.T) {
	g := NewGenerator(newTestCodec(t), 2, zerolog.Nop())
	good, err := g.codec.Encode(randomIDs(), 0)
	require.NoError(t, err)

	other, err := NewCodec("another study", testKey())
	require.NoError(t, err)
	foreign, err := other.Encode(randomIDs(), 0)
	require.NoError(t, err)

	_, err = g.DecodeAll(context.Background(), []string{good, foreign})
	require.ErrorIs(t, err, aesgcm.ErrAuthenticationFailed)
}

func TestDecodeAll_Canceled(t *testing.T) {
	g := NewGenerator(newTestCodec(t), 2, zerolog.Nop())
	good, err := g.codec.Encode(randomIDs(), 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.DecodeAll(ctx, []string{good})
	require.ErrorIs(t, err, context.Canceled)
}
