package config

import (
	"time"

	"github.com/jackzampolin/folio/internal/category"
	"github.com/jackzampolin/folio/internal/outline"
	"github.com/jackzampolin/folio/internal/repository"
)

// Config holds folio configuration.
// Stored at: {home}/config.yaml
type Config struct {
	LLMProviders    map[string]LLMProviderCfg    `mapstructure:"llm_providers" yaml:"llm_providers"`
	OCRProviders    map[string]OCRProviderCfg    `mapstructure:"ocr_providers" yaml:"ocr_providers"`
	VisionProviders map[string]VisionProviderCfg `mapstructure:"vision_providers" yaml:"vision_providers"`
	Defaults        DefaultsCfg                  `mapstructure:"defaults" yaml:"defaults"`
	Extraction      ExtractionCfg                `mapstructure:"extraction" yaml:"extraction"`
	Storage         StorageCfg                   `mapstructure:"storage" yaml:"storage"`
	Categories      map[string][]string          `mapstructure:"categories" yaml:"categories"`

	// WellCategories overrides Categories for individual collections.
	WellCategories map[string]map[string][]string `mapstructure:"well_categories" yaml:"well_categories,omitempty"`
}

// LLMProviderCfg configures a generative text provider.
type LLMProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`     // "openrouter", "openai"
	Model     string  `mapstructure:"model" yaml:"model"`   // Model name
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// OCRProviderCfg configures an OCR provider.
type OCRProviderCfg struct {
	Type      string   `mapstructure:"type" yaml:"type"` // "mistral-ocr", "tesseract"
	Model     string   `mapstructure:"model" yaml:"model,omitempty"`
	APIKey    string   `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL   string   `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Languages []string `mapstructure:"languages" yaml:"languages,omitempty"` // Tesseract only
	RateLimit float64  `mapstructure:"rate_limit" yaml:"rate_limit"`
	Enabled   bool     `mapstructure:"enabled" yaml:"enabled"`
}

// VisionProviderCfg configures a document vision provider.
type VisionProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"` // "mistral-ocr", "gemini"
	Model     string  `mapstructure:"model" yaml:"model,omitempty"`
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg selects providers and sizes the worker pool.
type DefaultsCfg struct {
	LLMProvider          string  `mapstructure:"llm_provider" yaml:"llm_provider"`
	OCRProvider          string  `mapstructure:"ocr_provider" yaml:"ocr_provider"`
	VisionProvider       string  `mapstructure:"vision_provider" yaml:"vision_provider"`
	MaxWorkers           int     `mapstructure:"max_workers" yaml:"max_workers"` // 0 = cores - 2
	InferenceConcurrency int     `mapstructure:"inference_concurrency" yaml:"inference_concurrency"`
	InferenceRateLimit   float64 `mapstructure:"inference_rate_limit" yaml:"inference_rate_limit"` // 0 = unlimited
}

// ExtractionCfg holds the tunable extraction thresholds.
type ExtractionCfg struct {
	MinEntries          int     `mapstructure:"min_entries" yaml:"min_entries"`
	AcceptConfidence    float64 `mapstructure:"accept_confidence" yaml:"accept_confidence"`
	VisionMinConfidence float64 `mapstructure:"vision_min_confidence" yaml:"vision_min_confidence"`
	PageCeiling         int     `mapstructure:"page_ceiling" yaml:"page_ceiling"`
	ScannedChars        int     `mapstructure:"scanned_chars" yaml:"scanned_chars"`
	SamplePages         int     `mapstructure:"sample_pages" yaml:"sample_pages"`
	FrontMatterPages    int     `mapstructure:"front_matter_pages" yaml:"front_matter_pages"`
	TierTimeoutSeconds  int     `mapstructure:"tier_timeout_seconds" yaml:"tier_timeout_seconds"`
	ConstrainedRetry    bool    `mapstructure:"constrained_retry" yaml:"constrained_retry"`
}

// StorageCfg selects the document repository.
type StorageCfg struct {
	Driver   string `mapstructure:"driver" yaml:"driver"` // sqlite, postgres, memory
	DSN      string `mapstructure:"dsn" yaml:"dsn"`       // sqlite path or postgres URL; empty = {home}/data/folio.db
	MaxConns int32  `mapstructure:"max_conns" yaml:"max_conns,omitempty"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	th := outline.DefaultThresholds()
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:      "openrouter",
				Model:     "google/gemini-2.5-flash",
				APIKey:    "${OPENROUTER_API_KEY}",
				RateLimit: 2.0,
				Enabled:   true,
			},
			"openai": {
				Type:      "openai",
				Model:     "gpt-4.1-mini",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 2.0,
				Enabled:   false,
			},
		},
		OCRProviders: map[string]OCRProviderCfg{
			"mistral": {
				Type:      "mistral-ocr",
				APIKey:    "${MISTRAL_API_KEY}",
				RateLimit: 6.0,
				Enabled:   true,
			},
			"tesseract": {
				Type:      "tesseract",
				Languages: []string{"eng"},
				Enabled:   false,
			},
		},
		VisionProviders: map[string]VisionProviderCfg{
			"mistral": {
				Type:      "mistral-ocr",
				APIKey:    "${MISTRAL_API_KEY}",
				RateLimit: 6.0,
				Enabled:   true,
			},
			"gemini": {
				Type:      "gemini",
				Model:     "gemini-2.5-flash",
				APIKey:    "${GEMINI_API_KEY}",
				RateLimit: 2.0,
				Enabled:   false,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider:          "openrouter",
			OCRProvider:          "mistral",
			VisionProvider:       "mistral",
			InferenceConcurrency: 1,
		},
		Extraction: ExtractionCfg{
			MinEntries:          th.MinEntries,
			AcceptConfidence:    th.AcceptConfidence,
			VisionMinConfidence: th.VisionMinConfidence,
			PageCeiling:         th.PageCeiling,
			ScannedChars:        th.ScannedChars,
			SamplePages:         th.SamplePages,
			FrontMatterPages:    th.FrontMatterPages,
			TierTimeoutSeconds:  int(th.TierTimeout / time.Second),
			ConstrainedRetry:    true,
		},
		Storage: StorageCfg{
			Driver: repository.DriverSQLite,
		},
		Categories: category.DefaultTable(),
	}
}

// Thresholds converts the extraction section, filling unset values with
// the compiled-in defaults.
func (c *Config) Thresholds() outline.Thresholds {
	e := c.Extraction
	return outline.Thresholds{
		MinEntries:          e.MinEntries,
		AcceptConfidence:    e.AcceptConfidence,
		VisionMinConfidence: e.VisionMinConfidence,
		PageCeiling:         e.PageCeiling,
		ScannedChars:        e.ScannedChars,
		SamplePages:         e.SamplePages,
		FrontMatterPages:    e.FrontMatterPages,
		TierTimeout:         time.Duration(e.TierTimeoutSeconds) * time.Second,
		ConstrainedRetry:    e.ConstrainedRetry,
	}.Normalize()
}

// RepositoryConfig returns the storage settings. An empty sqlite DSN
// resolves to defaultPath.
func (c *Config) RepositoryConfig(defaultPath string) repository.Config {
	cfg := repository.Config{
		Driver:   c.Storage.Driver,
		DSN:      ResolveEnvVars(c.Storage.DSN),
		MaxConns: c.Storage.MaxConns,
	}
	if cfg.Driver == "" {
		cfg.Driver = repository.DriverSQLite
	}
	if cfg.Driver == repository.DriverSQLite && cfg.DSN == "" {
		cfg.DSN = defaultPath
	}
	return cfg
}

// CategoryLookup builds the keyword lookup. Without a categories section
// the built-in table is used.
func (c *Config) CategoryLookup() *category.Lookup {
	table := category.Table(c.Categories)
	if len(table) == 0 {
		table = category.DefaultTable()
	}
	wells := make(map[string]category.Table, len(c.WellCategories))
	for id, t := range c.WellCategories {
		wells[id] = category.Table(t)
	}
	return category.New(table, wells)
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// GetOCRProvider returns an OCR provider config by name.
func (c *Config) GetOCRProvider(name string) (OCRProviderCfg, bool) {
	cfg, ok := c.OCRProviders[name]
	return cfg, ok
}

// GetVisionProvider returns a vision provider config by name.
func (c *Config) GetVisionProvider(name string) (VisionProviderCfg, bool) {
	cfg, ok := c.VisionProviders[name]
	return cfg, ok
}
