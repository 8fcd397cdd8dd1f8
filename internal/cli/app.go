package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bizzlechizzle/datemine/internal/cache"
	"github.com/bizzlechizzle/datemine/internal/learning"
	"github.com/bizzlechizzle/datemine/internal/llm"
	"github.com/bizzlechizzle/datemine/internal/logger"
	"github.com/bizzlechizzle/datemine/internal/model"
	"github.com/bizzlechizzle/datemine/internal/pipeline"
	"github.com/bizzlechizzle/datemine/internal/review"
	"github.com/bizzlechizzle/datemine/internal/source"
	"github.com/bizzlechizzle/datemine/internal/store"
)

// app holds the collaborators shared by the commands of one invocation
type app struct {
	cfg     *model.Config
	logger  *zap.Logger
	store   *store.Store
	learner *learning.Learner
}

// newApp loads the configuration, builds the logger and opens the store
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Database, log)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("open store: %w", err)
	}

	snapshots := cache.NewMemoryCache(cfg.Learning.SnapshotTTL, 2*cfg.Learning.SnapshotTTL)
	return &app{
		cfg:     cfg,
		logger:  log,
		store:   st,
		learner: learning.NewLearner(st, snapshots, cfg.Learning, log, nil),
	}, nil
}

// Close releases the store and flushes the logger
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// pipeline builds the extraction pipeline with the configured date engine
// and, when fetch is set, a web page provider for URL-only documents
func (a *app) pipeline(fetch bool) (*pipeline.Pipeline, error) {
	opts := []pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithLearner(a.learner),
	}

	switch engine := strings.ToLower(a.cfg.Parser.Engine); engine {
	case "", "rules":
	case "llm":
		provider, err := llm.NewProvider(llm.ConfigFromModel(a.cfg))
		if err != nil {
			return nil, fmt.Errorf("llm engine: %w", err)
		}
		if provider == nil {
			return nil, fmt.Errorf("llm engine: no llm.provider configured")
		}
		opts = append(opts, pipeline.WithParser(llm.NewDateParser(provider, a.logger)))
	default:
		return nil, fmt.Errorf("unknown parser engine %q (rules, llm)", engine)
	}

	if fetch {
		opts = append(opts, pipeline.WithFetcher(a.pageProvider()))
	}
	return pipeline.New(a.store, a.cfg, opts...), nil
}

func (a *app) pageProvider() *source.PageProvider {
	var pages cache.Cache
	if a.cfg.Cache.Enabled {
		pages = cache.NewLayeredCache(a.cfg.Cache.MemoryTTL, a.cfg.Cache.Dir, a.cfg.Cache.DiskTTL)
	}
	return source.NewPageProvider(a.cfg.HTTP, pages, a.cfg.Cache.DiskTTL, a.logger)
}

func (a *app) review() *review.Service {
	return review.New(a.store, a.learner, review.WithLogger(a.logger))
}
