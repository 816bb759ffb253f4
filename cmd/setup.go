package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/backdrop/internal/config"
	"github.com/kozaktomas/backdrop/internal/database"
	"github.com/kozaktomas/backdrop/internal/database/postgres"
	"github.com/kozaktomas/backdrop/internal/pipeline"
	"github.com/kozaktomas/backdrop/internal/removal"
)

// openRecorder returns the PostgreSQL run history when DATABASE_URL is set and
// an in-memory ring otherwise. The returned close func is never nil.
func openRecorder(ctx context.Context, cfg *config.Config) (database.RunRecorder, func(), error) {
	if cfg.Database.URL == "" {
		log.Infof("Run history kept in memory (last %d runs)", cfg.Output.HistoryLimit)
		return database.NewMemoryRecorder(cfg.Output.HistoryLimit), func() {}, nil
	}

	log.Info("Connecting to PostgreSQL database...")
	pool, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	log.Info("Run history stored in PostgreSQL")
	return postgres.NewRunRepository(pool), func() { pool.Close() }, nil
}

// newPipeline validates the configuration and wires the removal backend, the
// output storage and the run history into a pipeline.
func newPipeline(ctx context.Context, cfg *config.Config, recorder database.RunRecorder) (*pipeline.Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	storage := pipeline.NewStorage(cfg.Output.Dir, cfg.Output.OriginalsDir, cfg.Output.KeepOriginals)
	if err := storage.EnsureDirs(); err != nil {
		return nil, err
	}

	remover, err := removal.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s remover: %w", cfg.Removal.Backend, err)
	}
	log.WithFields(log.Fields{
		"backend": remover.Name(),
		"output":  storage.OutputDir(),
	}).Info("Removal pipeline ready")

	opts := []pipeline.Option{pipeline.WithResizeFilter(cfg.Removal.ResizeFilter)}
	if recorder != nil {
		opts = append(opts, pipeline.WithRecorder(recorder))
	}
	return pipeline.New(remover, storage, opts...), nil
}
