package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ibnmalik/lms-admin/internal/draft"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DraftRepository stores form drafts in the form_drafts table. It satisfies
// draft.Storage.
type DraftRepository struct {
	pool *pgxpool.Pool
}

// NewDraftRepository creates a new DraftRepository.
func NewDraftRepository(pool *pgxpool.Pool) *DraftRepository {
	return &DraftRepository{pool: pool}
}

// Get returns the stored payload, or draft.ErrNotFound.
func (r *DraftRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM form_drafts WHERE key = $1`, key,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, draft.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Set creates or overwrites the draft at key.
func (r *DraftRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO form_drafts (key, payload, saved_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE
		 SET payload = EXCLUDED.payload, saved_at = EXCLUDED.saved_at`,
		key, value,
	)
	return err
}

// Delete removes the draft at key. Deleting a missing key is not an error.
func (r *DraftRepository) Delete(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM form_drafts WHERE key = $1`, key)
	return err
}

// DeleteSavedBefore removes drafts last written before cutoff and returns how
// many rows went.
func (r *DraftRepository) DeleteSavedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM form_drafts WHERE saved_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
