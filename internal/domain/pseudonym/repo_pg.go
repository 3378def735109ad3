package pseudonym

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/pprl/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const psnCols = `id, study_identifier, pseudonym, created_at`

func (r *repoPG) scanRow(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.StudyIdentifier, &rec.Pseudonym, &rec.CreatedAt)
	return &rec, err
}

func (r *repoPG) SaveBatch(ctx context.Context, studyIdentifier string, pseudonyms []string) ([]*Record, error) {
	if len(pseudonyms) == 0 {
		return nil, nil
	}
	out := make([]*Record, 0, len(pseudonyms))
	err := db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, p := range pseudonyms {
			batch.Queue(`
				INSERT INTO pseudonyms (id, study_identifier, pseudonym)
				VALUES ($1, $2, $3)
				RETURNING `+psnCols,
				uuid.New(), studyIdentifier, p)
		}
		results := db.TxFromContext(ctx).SendBatch(ctx, batch)
		for range pseudonyms {
			rec, err := r.scanRow(results.QueryRow())
			if err != nil {
				results.Close()
				return err
			}
			out = append(out, rec)
		}
		return results.Close()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repoPG) ListByStudy(ctx context.Context, studyIdentifier string, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM pseudonyms WHERE study_identifier = $1`, studyIdentifier).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+psnCols+` FROM pseudonyms WHERE study_identifier = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, studyIdentifier, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}
