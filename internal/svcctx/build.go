package svcctx

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/home"
	"github.com/jackzampolin/folio/internal/jobs"
	"github.com/jackzampolin/folio/internal/providers"
	"github.com/jackzampolin/folio/internal/repository"
	"github.com/jackzampolin/folio/internal/router"
	"github.com/jackzampolin/folio/internal/scramble"
	"github.com/jackzampolin/folio/internal/textsource"
	"github.com/jackzampolin/folio/internal/validate"
	"github.com/jackzampolin/folio/internal/vision"
)

// New opens the repository, builds the provider registry and the routing
// controller from the current config.
func New(ctx context.Context, mgr *config.Manager, h *home.Dir, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := mgr.Get()

	repo, err := repository.Open(ctx, cfg.RepositoryConfig(h.DatabasePath()), logger)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	reg := providers.NewRegistry()
	reg.SetLogger(logger.With("component", "providers"))
	reg.Reload(cfg.ToProviderRegistryConfig())

	s := &Services{
		Config:     mgr,
		Registry:   reg,
		Repository: repo,
		Pool: jobs.NewBatchPool(jobs.BatchPoolConfig{
			Name:        "documents",
			Logger:      logger,
			WorkerCount: cfg.Defaults.MaxWorkers,
		}),
		Gate:   newGate(cfg),
		Logger: logger,
		Home:   h,
	}

	c, err := BuildController(cfg, s.Registry, s.Gate, logger)
	if err != nil {
		repo.Close()
		return nil, err
	}
	s.SetController(c)
	return s, nil
}

func newGate(cfg *config.Config) *jobs.Gate {
	var limiter *providers.RateLimiter
	if rps := cfg.Defaults.InferenceRateLimit; rps > 0 {
		limiter = providers.NewRateLimiter(rps)
	}
	return jobs.NewGate(cfg.Defaults.InferenceConcurrency, limiter)
}

// Reload applies a changed config: providers are re-registered and a new
// controller is swapped in. The gate and storage are kept.
func (s *Services) Reload(cfg *config.Config) error {
	s.Registry.Reload(cfg.ToProviderRegistryConfig())
	c, err := BuildController(cfg, s.Registry, s.Gate, s.Logger)
	if err != nil {
		return err
	}
	s.SetController(c)
	s.Logger.Info("config reloaded",
		"llm", s.Registry.ListLLM(),
		"ocr", s.Registry.ListOCR(),
		"vision", s.Registry.ListVision(),
		"min_entries", c.Thresholds().MinEntries)
	return nil
}

// Close releases the repository.
func (s *Services) Close() error {
	if s.Repository == nil {
		return nil
	}
	return s.Repository.Close()
}

// BuildController wires text sources and the inference tiers selected in
// cfg.Defaults. A default provider that is missing from the registry leaves
// its tier unset, and the controller records it as skipped.
func BuildController(cfg *config.Config, reg *providers.Registry, gate *jobs.Gate, logger *slog.Logger) (*router.Controller, error) {
	th := cfg.Thresholds()
	c := router.New(textsource.NewPoppler(), textsource.NewRawPDF(), th, logger)
	c.Gate = gate
	c.Category = cfg.CategoryLookup()

	if name := cfg.Defaults.OCRProvider; name != "" {
		if p, err := reg.GetOCR(name); err == nil {
			c.OCR = textsource.NewOCR(p, logger)
		} else {
			logger.Debug("ocr tier disabled", "provider", name, "error", err)
		}
	}

	if name := cfg.Defaults.VisionProvider; name != "" {
		if p, err := reg.GetVision(name); err == nil {
			x := vision.New(p, logger)
			x.Timeout = th.TierTimeout
			x.PageCeiling = th.PageCeiling
			c.Vision = x
		} else {
			logger.Debug("vision tier disabled", "provider", name, "error", err)
		}
	}

	if name := cfg.Defaults.LLMProvider; name != "" {
		llm, err := reg.GetLLM(name)
		if err != nil {
			logger.Debug("llm tiers disabled", "provider", name, "error", err)
			return c, nil
		}
		model := cfg.LLMProviders[name].Model

		r, err := scramble.New(llm, model, logger)
		if err != nil {
			return nil, err
		}
		r.Timeout = th.TierTimeout
		r.MinEntries = th.MinEntries
		r.PageCeiling = th.PageCeiling
		c.Scramble = r

		if th.ConstrainedRetry {
			c.Validator = validate.New(validate.NewLLMRetrier(llm, model), logger)
		}
	}

	return c, nil
}
