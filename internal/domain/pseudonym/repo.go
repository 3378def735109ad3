package pseudonym

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one issued pseudonym as stored by a Repository.
type Record struct {
	ID              uuid.UUID
	StudyIdentifier string
	Pseudonym       string
	CreatedAt       time.Time
}

type Repository interface {
	// SaveBatch stores the pseudonyms of one study and returns the new rows.
	SaveBatch(ctx context.Context, studyIdentifier string, pseudonyms []string) ([]*Record, error)
	// ListByStudy returns a page of a study's pseudonyms, newest first, and
	// the total count.
	ListByStudy(ctx context.Context, studyIdentifier string, limit, offset int) ([]*Record, int, error)
}
