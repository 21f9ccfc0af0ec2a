package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// FormReaper is the part of the course form service the reaper drives.
type FormReaper interface {
	ReapIdle() int
	Shutdown()
}

// FormReaperWorker periodically closes course forms nobody has touched for a
// while. Their drafts stay in storage.
type FormReaperWorker struct {
	forms    FormReaper
	interval time.Duration
	log      zerolog.Logger
}

// NewFormReaperWorker creates a new FormReaperWorker.
func NewFormReaperWorker(forms FormReaper, interval time.Duration, log zerolog.Logger) *FormReaperWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &FormReaperWorker{
		forms:    forms,
		interval: interval,
		log:      log.With().Str("component", "form_reaper_worker").Logger(),
	}
}

// Start runs until ctx is cancelled, then closes every remaining form so
// their autosave loops stop. Call in a goroutine.
func (w *FormReaperWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.forms.Shutdown()
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			if n := w.forms.ReapIdle(); n > 0 {
				w.log.Info().Int("count", n).Msg("Closed idle forms")
			}
		}
	}
}
