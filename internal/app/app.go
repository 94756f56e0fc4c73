package app

import (
	"errors"
	"fmt"
	"log/slog"

	"mediajob/internal/builtin"
	"mediajob/internal/config"
	"mediajob/internal/datastore"
	"mediajob/internal/job"
	"mediajob/internal/jobcache"
	"mediajob/internal/logging"
	"mediajob/internal/registry"
	"mediajob/internal/urlfetch"
)

// Runtime owns every collaborator built for one process.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *registry.Registry
	Store    datastore.Store
	Fetcher  *urlfetch.Fetcher
	Cache    *jobcache.Manager
	Jobs     *job.App
}

// New wires a Runtime from cfg. Close releases what it opened.
func New(cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	reg := registry.New()
	builtin.Register(reg, builtin.Config{TempDir: cfg.Content.TempDir})

	store, err := datastore.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open datastore: %w", err)
	}
	fetcher := urlfetch.NewFromConfig(cfg, logger)

	jobs := job.NewApp()
	jobs.Store = store
	jobs.URLFetcher = fetcher
	jobs.Secret = cfg.SecretBytes()
	jobs.InferMimeTypeFromFileExt = cfg.Job.InferMimeTypeFromFileExt
	jobs.FallbackMimeType = cfg.Job.FallbackMimeType
	jobs.BlockSize = cfg.Content.BlockSize
	jobs.TempDir = cfg.Content.TempDir
	jobs.Logger = logger
	reg.Bind(jobs)

	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Store:    store,
		Fetcher:  fetcher,
		Cache:    jobcache.NewManager(cfg, logger),
		Jobs:     jobs,
	}
	logger.Debug("runtime ready",
		logging.String("datastore", cfg.Datastore.Backend),
		logging.Bool("cache_enabled", rt.Cache != nil),
		logging.Int("processors", len(reg.Processors.Names())),
		logging.Int("encoders", len(reg.Encoders.Names())),
		logging.Int("generators", len(reg.Generators.Names())),
		logging.Int("analysers", len(reg.Analysers.Names())),
	)
	return rt, nil
}

// Close releases the datastore.
func (r *Runtime) Close() error {
	if r == nil || r.Store == nil {
		return nil
	}
	return r.Store.Close()
}
