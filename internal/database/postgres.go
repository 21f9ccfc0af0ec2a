package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ibnmalik/lms-admin/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// NewPostgresPool connects the pool backing the postgres draft store. A
// missing form_drafts table is logged, not fatal; run cmd/migrate up.
func NewPostgresPool(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxDBConns
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "lms-admin"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	var table *string
	if err := pool.QueryRow(ctx, `SELECT to_regclass('form_drafts')::text`).Scan(&table); err != nil {
		log.Warn().Err(err).Msg("Could not check for form_drafts table")
	} else if table == nil {
		log.Warn().Msg("form_drafts table missing, drafts will not be saved until migrations run")
	}

	log.Info().
		Int32("max_conns", cfg.MaxDBConns).
		Msg("PostgreSQL draft store connected")

	return pool, nil
}
