package pagination

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// Params is a clamped limit/offset pair for list queries.
type Params struct {
	Limit  int
	Offset int
}

// New clamps limit to [1, MaxLimit], using DefaultLimit when it is not
// positive, and offset to be non-negative.
func New(limit, offset int) Params {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}
