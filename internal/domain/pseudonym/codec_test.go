package pseudonym

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ehr/pprl/internal/platform/aesgcm"
)

const testStudy = "Test_Project_1"

func testKey() []byte { return bytes.Repeat([]byte{0x42}, aesgcm.KeySize) }

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(testStudy, testKey())
	require.NoError(t, err)
	return c
}

func randomIDs() []TtpID {
	return []TtpID{
		{SiteIdentifier: "UMG", OpaqueID: uuid.NewString()},
		{SiteIdentifier: "MHH", OpaqueID: uuid.NewString()},
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	c := newTestCodec(t)

	for _, ids := range [][]TtpID{randomIDs(), randomIDs()} {
		for i := 0; i < 10; i++ {
			encoded, err := c.Encode(ids, 100+rand.IntN(50))
			require.NoError(t, err)

			decoded, err := c.Decode(encoded)
			require.NoError(t, err)
			require.Equal(t, ids, decoded)
		}
	}
}

func TestCodec_PadsToTargetLength(t *testing.T) {
	c := newTestCodec(t)
	ids := randomIDs()
	unpadded, err := UnpaddedLength(ids)
	require.NoError(t, err)

	target := unpadded + 37
	encoded, err := c.Encode(ids, target)
	require.NoError(t, err)

	p, err := c.DecodePseudonym(encoded)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat(" ", 37), p.Padding)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	require.Len(t, raw, aesgcm.IVSize+target+aesgcm.TagSize)
}

func TestCodec_TargetBelowMinimumOmitsPadding(t *testing.T) {
	c := newTestCodec(t)
	ids := randomIDs()

	encoded, err := c.Encode(ids, 1)
	require.NoError(t, err)

	p, err := c.DecodePseudonym(encoded)
	require.NoError(t, err)
	require.Empty(t, p.Padding)
	require.Equal(t, ids, p.TtpIDs)
}

func TestCodec_EmptyListIsNotAnError(t *testing.T) {
	c := newTestCodec(t)

	encoded, err := c.Encode(nil, 0)
	require.NoError(t, err)

	ids, err := c.Decode(encoded)
	require.NoError(t, err)
	require.NotNil(t, ids)
	require.Empty(t, ids)
}

func TestCodec_TamperedPseudonymFailsAuthentication(t *testing.T) {
	c := newTestCodec(t)
	encoded, err := c.Encode(randomIDs(), 100)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	raw[len(raw)/2] ^= 0x01

	_, err = c.Decode(base64.StdEncoding.EncodeToString(raw))
	require.ErrorIs(t, err, aesgcm.ErrAuthenticationFailed)
	require.False(t, errors.Is(err, ErrCodecDecode))
}

func TestCodec_OtherStudyFailsAuthentication(t *testing.T) {
	encoded, err := newTestCodec(t).Encode(randomIDs(), 100)
	require.NoError(t, err)

	other, err := NewCodec("Test_Project_2", testKey())
	require.NoError(t, err)
	_, err = other.Decode(encoded)
	require.ErrorIs(t, err, aesgcm.ErrAuthenticationFailed)
}

func TestCodec_MalformedInput(t *testing.T) {
	c := newTestCodec(t)

	_, err := c.Decode("not base64!")
	require.ErrorIs(t, err, ErrCodecDecode)

	// Authentic ciphertexts whose payload is not a pseudonym.
	for _, plain := range []string{`[1,2]`, `{"padding":""}`, `{"ttpIds":[],"extra":1}`, `garbage`} {
		sealed, err := aesgcm.Encrypt([]byte(plain), []byte(testStudy), testKey())
		require.NoError(t, err)
		_, err = c.Decode(base64.StdEncoding.EncodeToString(sealed))
		require.ErrorIs(t, err, ErrCodecDecode, plain)
	}
}

func TestCodec_PlaintextFormat(t *testing.T) {
	p := NewPseudonym(TtpID{SiteIdentifier: "UMG", OpaqueID: "a"}).WithPadding(2)
	b, err := json.Marshal(p)
	require.NoError(t, err)
	require.Equal(t, `{"ttpIds":[{"site":"UMG","id":"a"}],"padding":"  "}`, string(b))

	n, err := UnpaddedLength([]TtpID{{SiteIdentifier: "UMG", OpaqueID: "a"}})
	require.NoError(t, err)
	require.Equal(t, len(b)-2, n)
}

func TestNewCodec_Rejects(t *testing.T) {
	_, err := NewCodec("", testKey())
	require.ErrorIs(t, err, ErrEmptyStudyIdentifier)

	_, err = NewCodec(testStudy, make([]byte, 16))
	require.ErrorIs(t, err, aesgcm.ErrInvalidKey)
}

func TestCodec_RejectsInvalidUTF8(t *testing.T) {
	c := newTestCodec(t)

	for _, ids := range [][]TtpID{
		{{SiteIdentifier: "UMG", OpaqueID: "id-\xff\xfe"}},
		{{SiteIdentifier: "MHH", OpaqueID: "ok"}, {SiteIdentifier: "U\xc3", OpaqueID: "ok"}},
	} {
		_, err := c.Encode(ids, 100)
		require.ErrorIs(t, err, ErrInvalidTtpID)

		_, err = c.EncodePseudonym(NewPseudonym(ids...))
		require.ErrorIs(t, err, ErrInvalidTtpID)
	}

	_, err := c.EncodePseudonym(&Pseudonym{TtpIDs: randomIDs(), Padding: " x "})
	require.ErrorIs(t, err, ErrInvalidTtpID)
}

func TestCodec_NonASCIIRoundTrip(t *testing.T) {
	c := newTestCodec(t)
	ids := []TtpID{{SiteIdentifier: "Universitätsmedizin", OpaqueID: "ß-<&>-\u2028"}}

	encoded, err := c.Encode(ids, 200)
	require.NoError(t, err)
	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, ids, decoded)
}
