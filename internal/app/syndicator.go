package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/inklet-hq/syndicator/internal/config"
	"github.com/inklet-hq/syndicator/internal/connections"
	"github.com/inklet-hq/syndicator/internal/logger"
	"github.com/inklet-hq/syndicator/internal/orchestrator"
	"github.com/inklet-hq/syndicator/internal/queue"
	"github.com/inklet-hq/syndicator/internal/storage"
	"github.com/inklet-hq/syndicator/pkg/platforms"
	"github.com/inklet-hq/syndicator/pkg/sinks"
)

// Syndicator is the publish runtime. It wires storage, the adapter registry,
// outcome sinks, the orchestrator, and the queue sweeper, and drives the
// sweep loops until shutdown.
type Syndicator struct {
	cfg          *config.Config
	store        storage.Store
	orchestrator *orchestrator.Service
	sweeper      *queue.Sweeper
	log          logger.Logger
}

// NewSyndicator builds the runtime from config.
func NewSyndicator(ctx context.Context, cfg *config.Config, log logger.Logger) (*Syndicator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := storage.NewStore(ctx, cfg.StorageType, storage.Options{
		BBoltPath:   cfg.BBoltPath,
		PostgresDSN: cfg.PostgresDSN,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type": cfg.StorageType,
		"path": cfg.BBoltPath,
	})

	if cfg.ConnectionsFile != "" {
		if _, statErr := os.Stat(cfg.ConnectionsFile); statErr == nil {
			entries, err := connections.LoadSeed(cfg.ConnectionsFile)
			if err != nil {
				store.Close()
				return nil, fmt.Errorf("load connections seed: %w", err)
			}
			if err := connections.Apply(ctx, store, entries); err != nil {
				store.Close()
				return nil, fmt.Errorf("apply connections seed: %w", err)
			}
			log.InfoObj("connections seeded", "connections_meta", map[string]any{
				"count": len(entries),
				"file":  cfg.ConnectionsFile,
			})
		}
	}

	fanout, err := buildSinks(ctx, cfg, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	registry := platforms.DefaultRegistry(platforms.DefaultHTTPClient(cfg.HTTPTimeout))
	resolver := connections.NewResolver(store)

	orch := orchestrator.NewService(store, resolver, registry, orchestrator.Options{
		Attempts: cfg.PublishAttempts,
		Backoff:  cfg.PublishBackoff,
		Fanout:   fanout,
		Logger:   log,
	})
	sweeper := queue.NewSweeper(store, orch, log).WithMaxRetries(cfg.QueueMaxRetries)

	return &Syndicator{
		cfg:          cfg,
		store:        store,
		orchestrator: orch,
		sweeper:      sweeper,
		log:          log,
	}, nil
}

// buildSinks loads the optional sinks file and materializes the fanout.
func buildSinks(ctx context.Context, cfg *config.Config, log logger.Logger) (*sinks.Fanout, error) {
	if cfg.SinksFile == "" {
		return nil, nil
	}

	sinkReg, err := sinks.LoadRegistry(cfg.SinksFile)
	if err != nil {
		return nil, fmt.Errorf("load sinks registry: %w", err)
	}

	enabled := sinkReg.Enabled()
	if len(enabled) == 0 {
		return nil, nil
	}

	built, err := sinks.BuildAll(ctx, sinks.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build sinks: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, sinkCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   sinkCfg.ID,
			"type": sinkCfg.Type,
		})
	}
	log.InfoObj("sinks registry loaded", "sinks_meta", map[string]any{
		"count": len(summaries),
		"sinks": summaries,
	})
	return sinks.NewFanout(built), nil
}

// Orchestrator exposes the publish service for one-shot callers.
func (s *Syndicator) Orchestrator() *orchestrator.Service {
	return s.orchestrator
}

// Store exposes the datastore for scheduling callers.
func (s *Syndicator) Store() storage.Store {
	return s.store
}

// Run drives the sweep and retry-sweep loops until the context is cancelled.
func (s *Syndicator) Run(ctx context.Context) error {
	if s == nil || s.sweeper == nil {
		return fmt.Errorf("syndicator is not initialized")
	}
	defer s.closeStore()

	s.log.InfoObj("sweeper loop starting", "sweeper_state", map[string]any{
		"sweep_interval":       s.cfg.SweepInterval.String(),
		"retry_sweep_interval": s.cfg.RetrySweepInterval.String(),
		"batch_size":           s.cfg.SweepBatchSize,
	})

	s.runSweep(ctx)

	sweepTicker := time.NewTicker(s.cfg.SweepInterval)
	defer sweepTicker.Stop()
	retryTicker := time.NewTicker(s.cfg.RetrySweepInterval)
	defer retryTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoObj("sweeper loop exiting", "reason", ctx.Err())
			return nil
		case <-sweepTicker.C:
			s.runSweep(ctx)
		case <-retryTicker.C:
			if _, err := s.sweeper.RetrySweep(ctx, s.cfg.SweepBatchSize); err != nil {
				s.log.ErrorObj("retry sweep failed", "error", err)
			}
		}
	}
}

// runSweep performs a single sweep pass.
func (s *Syndicator) runSweep(ctx context.Context) {
	start := time.Now()
	claimed, err := s.sweeper.Sweep(ctx, s.cfg.SweepBatchSize)
	if err != nil {
		s.log.ErrorObj("sweep failed", "error", err)
		return
	}
	if claimed > 0 {
		s.log.InfoObj("sweep completed", "sweep_meta", map[string]any{
			"claimed":    claimed,
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
	}
}

// closeStore safely closes the storage backend, logging any errors encountered.
func (s *Syndicator) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.log.ErrorObj("storage close failed", "error", err)
	}
}
