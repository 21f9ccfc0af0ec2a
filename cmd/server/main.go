package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ibnmalik/lms-admin/internal/config"
	"github.com/ibnmalik/lms-admin/internal/courseapi"
	"github.com/ibnmalik/lms-admin/internal/database"
	"github.com/ibnmalik/lms-admin/internal/draft"
	"github.com/ibnmalik/lms-admin/internal/handler"
	"github.com/ibnmalik/lms-admin/internal/logger"
	"github.com/ibnmalik/lms-admin/internal/middleware"
	"github.com/ibnmalik/lms-admin/internal/repository"
	"github.com/ibnmalik/lms-admin/internal/router"
	"github.com/ibnmalik/lms-admin/internal/service"
	"github.com/ibnmalik/lms-admin/internal/validator"
	"github.com/ibnmalik/lms-admin/internal/worker"
	"github.com/rs/zerolog"
)

// draftBackend is the storage selected by DRAFT_BACKEND plus what it needs
// at runtime.
type draftBackend struct {
	storage draft.Storage
	ping    handler.Pinger
	limiter middleware.Limiter
	purger  worker.DraftPurger
	close   func()
}

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("draft_backend", cfg.DraftBackend).
		Msg("Starting LMS admin backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect Draft Storage ─────────────────────────────────────────
	backend := openDraftBackend(ctx, cfg, log)
	defer backend.close()

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	courseAPI := courseapi.New(cfg.CourseAPIURL, cfg.CourseAPITimeout, log)
	drafts := draft.NewStore(backend.storage, log)
	formService := service.NewCourseFormService(courseAPI, drafts, service.FormOptions{
		AutosaveInterval: cfg.DraftInterval,
		IdleTimeout:      cfg.FormIdleTimeout,
	}, log)
	mediaService := service.NewMediaService(cfg.MaxUploadBytes)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Course:      handler.NewCourseHandler(courseAPI, log),
		CourseForm:  handler.NewCourseFormHandler(formService, mediaService, log),
		ExamBuilder: handler.NewExamBuilderHandler(formService, log),
		DraftWS:     handler.NewDraftWSHandler(formService, log, cfg.AllowedOrigins),
		System:      handler.NewSystemHandler(cfg.DraftBackend, backend.ping, formService.OpenForms, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workersDone := make(chan struct{})

	reaper := worker.NewFormReaperWorker(formService, time.Minute, log)
	var purge *worker.DraftPurgeWorker
	if backend.purger != nil && cfg.DraftTTL > 0 {
		purge = worker.NewDraftPurgeWorker(backend.purger, cfg.DraftTTL, time.Hour, log)
	}

	go func() {
		defer close(workersDone)
		if purge != nil {
			go purge.Start(workerCtx)
		}
		reaper.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	submitLimit := submitLimiter(cfg, backend.limiter, log)
	r := router.SetupRouter(authService, submitLimit, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop workers. The reaper closes every open form on the way out;
	// drafts stay in storage for the next session.
	workerCancel()
	select {
	case <-workersDone:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Workers did not stop in time")
	}

	log.Info().Msg("Server exited cleanly")
}

func openDraftBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) draftBackend {
	switch cfg.DraftBackend {
	case config.DraftBackendRedis:
		rdb, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		return draftBackend{
			storage: draft.NewRedisStorage(rdb, cfg.DraftTTL),
			ping:    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			limiter: middleware.NewRedisLimiter(rdb, cfg.SubmitRatePerMin, time.Minute),
			close:   func() { _ = rdb.Close() },
		}

	case config.DraftBackendPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		repo := repository.NewDraftRepository(pool)
		return draftBackend{
			storage: repo,
			ping:    pool.Ping,
			purger:  repo,
			close:   pool.Close,
		}

	case config.DraftBackendMemory:
		log.Warn().Msg("Drafts are kept in memory and will not survive a restart")
		return draftBackend{storage: draft.NewMemoryStorage(), close: func() {}}

	default:
		log.Fatal().Str("draft_backend", cfg.DraftBackend).Msg("Unknown DRAFT_BACKEND")
		return draftBackend{}
	}
}

// submitLimiter limits course submits per admin. Redis backs it when
// available so the limit holds across instances.
func submitLimiter(cfg *config.Config, shared middleware.Limiter, log zerolog.Logger) gin.HandlerFunc {
	if cfg.SubmitRatePerMin <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	l := shared
	if l == nil {
		l = middleware.NewMemoryLimiter(cfg.SubmitRatePerMin, time.Minute)
	}
	return middleware.RateLimit(l, middleware.SubmitKey, log)
}
