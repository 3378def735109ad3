package pseudonym

import "strings"

// TtpID is the identifier a trusted third party assigned to one subject at
// one site.
type TtpID struct {
	SiteIdentifier string `json:"site"`
	OpaqueID       string `json:"id"`
}

// Pseudonym is the plaintext of an encoded pseudonym: the ordered TtpIDs of
// one linked identity plus space padding.
type Pseudonym struct {
	TtpIDs  []TtpID `json:"ttpIds"`
	Padding string  `json:"padding"`
}

// NewPseudonym copies ids into a Pseudonym without padding.
func NewPseudonym(ids ...TtpID) *Pseudonym {
	return &Pseudonym{TtpIDs: append(make([]TtpID, 0, len(ids)), ids...)}
}

// WithPadding returns a new Pseudonym with the same ids and n spaces of
// padding. The receiver is not modified.
func (p *Pseudonym) WithPadding(n int) *Pseudonym {
	if n < 0 {
		n = 0
	}
	out := NewPseudonym(p.TtpIDs...)
	out.Padding = strings.Repeat(" ", n)
	return out
}

// Issued pairs the TtpIDs of one identity with its encoded pseudonym.
type Issued struct {
	TtpIDs    []TtpID `json:"ttpIds"`
	Pseudonym string  `json:"pseudonym"`
}
