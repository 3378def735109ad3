package pseudonym

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ehr/pprl/internal/platform/aesgcm"
)

var (
	// ErrCodecDecode reports a pseudonym that is not valid base64 or whose
	// decrypted payload is not a pseudonym. Authentication failures wrap
	// aesgcm.ErrAuthenticationFailed instead.
	ErrCodecDecode = errors.New("malformed pseudonym")

	ErrEmptyStudyIdentifier = errors.New("empty study identifier")

	// ErrInvalidTtpID reports a TtpID that is not valid UTF-8 and would not
	// survive the JSON plaintext unchanged.
	ErrInvalidTtpID = errors.New("invalid ttp id")
)

// Codec encrypts pseudonyms for one research study. The study identifier is
// bound as AES-GCM additional data, so a pseudonym only decodes under the
// study it was issued for.
type Codec struct {
	studyIdentifier string
	aad             []byte
	cipher          *aesgcm.Cipher
}

func NewCodec(studyIdentifier string, key []byte) (*Codec, error) {
	if studyIdentifier == "" {
		return nil, ErrEmptyStudyIdentifier
	}
	c, err := aesgcm.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &Codec{
		studyIdentifier: studyIdentifier,
		aad:             []byte(studyIdentifier),
		cipher:          c,
	}, nil
}

func (c *Codec) StudyIdentifier() string { return c.studyIdentifier }

// ValidateTtpIDs rejects site identifiers and opaque ids that are not valid
// UTF-8.
func ValidateTtpIDs(ids []TtpID) error {
	for i, id := range ids {
		if !utf8.ValidString(id.SiteIdentifier) {
			return fmt.Errorf("%w: entry %d: site is not valid UTF-8", ErrInvalidTtpID, i)
		}
		if !utf8.ValidString(id.OpaqueID) {
			return fmt.Errorf("%w: entry %d: id is not valid UTF-8", ErrInvalidTtpID, i)
		}
	}
	return nil
}

// UnpaddedLength is the plaintext size of ids with empty padding.
func UnpaddedLength(ids []TtpID) (int, error) {
	if err := ValidateTtpIDs(ids); err != nil {
		return 0, err
	}
	b, err := json.Marshal(NewPseudonym(ids...))
	if err != nil {
		return 0, fmt.Errorf("marshal pseudonym: %w", err)
	}
	return len(b), nil
}

// Encode pads the plaintext of ids to targetLength bytes and returns the
// base64 of iv || ciphertext || tag. A targetLength below the unpadded size
// means no padding.
func (c *Codec) Encode(ids []TtpID, targetLength int) (string, error) {
	n, err := UnpaddedLength(ids)
	if err != nil {
		return "", err
	}
	return c.EncodePseudonym(NewPseudonym(ids...).WithPadding(targetLength - n))
}

// EncodePseudonym encrypts p as is, padding included.
func (c *Codec) EncodePseudonym(p *Pseudonym) (string, error) {
	if err := ValidateTtpIDs(p.TtpIDs); err != nil {
		return "", err
	}
	if strings.Trim(p.Padding, " ") != "" {
		return "", fmt.Errorf("%w: padding must be spaces", ErrInvalidTtpID)
	}
	plain, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal pseudonym: %w", err)
	}
	sealed, err := c.cipher.Encrypt(plain, c.aad)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decode returns the TtpIDs of an encoded pseudonym in their original order.
func (c *Codec) Decode(encoded string) ([]TtpID, error) {
	p, err := c.DecodePseudonym(encoded)
	if err != nil {
		return nil, err
	}
	return p.TtpIDs, nil
}

// DecodePseudonym is Decode keeping the padding.
func (c *Codec) DecodePseudonym(encoded string) (*Pseudonym, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrCodecDecode, err)
	}
	plain, err := c.cipher.Decrypt(sealed, c.aad)
	if err != nil {
		return nil, fmt.Errorf("pseudonym for study %s: %w", c.studyIdentifier, err)
	}

	dec := json.NewDecoder(bytes.NewReader(plain))
	dec.DisallowUnknownFields()
	var p Pseudonym
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodecDecode, err)
	}
	if p.TtpIDs == nil {
		return nil, fmt.Errorf("%w: missing ttpIds", ErrCodecDecode)
	}
	return &p, nil
}
