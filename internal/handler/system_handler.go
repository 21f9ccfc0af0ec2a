package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ibnmalik/lms-admin/internal/response"
	"github.com/rs/zerolog"
)

// Pinger checks that a backing store answers.
type Pinger func(ctx context.Context) error

// SystemHandler reports process health and form counts.
type SystemHandler struct {
	startTime    time.Time
	draftBackend string
	ping         Pinger
	openForms    func() int
	log          zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. ping may be nil for the
// memory backend.
func NewSystemHandler(draftBackend string, ping Pinger, openForms func() int, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		startTime:    time.Now(),
		draftBackend: draftBackend,
		ping:         ping,
		openForms:    openForms,
		log:          log.With().Str("component", "system_handler").Logger(),
	}
}

type systemStatus struct {
	Uptime       string `json:"uptime"`
	DraftBackend string `json:"draft_backend"`
	DraftStoreOK bool   `json:"draft_store_ok"`
	OpenForms    int    `json:"open_forms"`
	Goroutines   int    `json:"goroutines"`
	HeapAlloc    uint64 `json:"heap_alloc"`
	NumGC        uint32 `json:"num_gc"`
	GoVersion    string `json:"go_version"`
}

// Health godoc
// GET /health
// Liveness plus a draft store ping. Answers 503 when drafts cannot be saved.
func (h *SystemHandler) Health(c *gin.Context) {
	status := h.status(c.Request.Context())
	if !status.DraftStoreOK {
		response.Success(c, http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok"})
}

// Status godoc
// GET /api/v1/admin/system/status
func (h *SystemHandler) Status(c *gin.Context) {
	response.Success(c, http.StatusOK, h.status(c.Request.Context()))
}

func (h *SystemHandler) status(ctx context.Context) systemStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	ok := true
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.log.Warn().Err(err).Str("backend", h.draftBackend).Msg("Draft store ping failed")
			ok = false
		}
	}

	return systemStatus{
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		DraftBackend: h.draftBackend,
		DraftStoreOK: ok,
		OpenForms:    h.openForms(),
		Goroutines:   runtime.NumGoroutine(),
		HeapAlloc:    mem.HeapAlloc,
		NumGC:        mem.NumGC,
		GoVersion:    runtime.Version(),
	}
}
