package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DraftPurger deletes drafts written before a cutoff.
type DraftPurger interface {
	DeleteSavedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DraftPurgeWorker expires old drafts for backends without native key TTLs.
type DraftPurgeWorker struct {
	drafts   DraftPurger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewDraftPurgeWorker creates a new DraftPurgeWorker. Drafts older than ttl
// are deleted once per interval.
func NewDraftPurgeWorker(drafts DraftPurger, ttl, interval time.Duration, log zerolog.Logger) *DraftPurgeWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &DraftPurgeWorker{
		drafts:   drafts,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
		log:      log.With().Str("component", "draft_purge_worker").Logger(),
	}
}

// Start runs one purge right away and then one per interval until ctx is
// cancelled. Call in a goroutine.
func (w *DraftPurgeWorker) Start(ctx context.Context) {
	w.log.Info().Dur("ttl", w.ttl).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.purge(ctx)
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
		}
	}
}

func (w *DraftPurgeWorker) purge(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := w.drafts.DeleteSavedBefore(ctx, w.now().Add(-w.ttl))
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Purge failed, retrying next interval")
		}
		return
	}
	if n > 0 {
		w.log.Info().Int64("count", n).Msg("Purged expired drafts")
	}
}
