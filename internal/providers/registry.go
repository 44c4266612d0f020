package providers

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
)

// Registry holds named LLM, OCR and vision providers. Reload reconciles it
// against a RegistryConfig, rebuilding only providers whose config changed.
type Registry struct {
	mu     sync.RWMutex
	llm    *table[LLMClient, LLMProviderConfig]
	ocr    *table[OCRProvider, OCRProviderConfig]
	vision *table[VisionProvider, VisionProviderConfig]
	logger *slog.Logger
}

// table is one kind of provider plus the config each was built from.
// Providers registered directly have no config entry.
type table[T any, C any] struct {
	kind    string
	items   map[string]T
	configs map[string]C
}

func newTable[T any, C any](kind string) *table[T, C] {
	return &table[T, C]{kind: kind, items: make(map[string]T), configs: make(map[string]C)}
}

func (t *table[T, C]) get(name string) (T, error) {
	item, ok := t.items[name]
	if !ok {
		return item, fmt.Errorf("%s not found: %s", t.kind, name)
	}
	return item, nil
}

func (t *table[T, C]) names() []string {
	names := make([]string, 0, len(t.items))
	for name := range t.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *table[T, C]) set(name string, item T) {
	t.items[name] = item
	delete(t.configs, name)
}

// reconcile makes the table match want. usable filters disabled or
// credential-less entries, same decides whether a built provider can be
// kept, and build fails for unknown types.
func (t *table[T, C]) reconcile(logger *slog.Logger, want map[string]C, typeOf func(C) string,
	usable func(C) bool, same func(a, b C) bool, build func(C) (T, error)) {
	keep := make(map[string]bool, len(want))
	for name, cfg := range want {
		if !usable(cfg) {
			continue
		}
		_, existed := t.items[name]
		if prev, ok := t.configs[name]; existed && ok && same(prev, cfg) {
			keep[name] = true
			continue
		}
		item, err := build(cfg)
		if err != nil {
			logger.Warn(t.kind+" unavailable", "name", name, "type", typeOf(cfg), "error", err)
			continue
		}
		t.items[name] = item
		t.configs[name] = cfg
		keep[name] = true
		verb := "registered "
		if existed {
			verb = "updated "
		}
		logger.Info(verb+t.kind, "name", name, "type", typeOf(cfg))
	}
	for name := range t.items {
		if !keep[name] {
			delete(t.items, name)
			delete(t.configs, name)
			logger.Info("unregistered "+t.kind, "name", name)
		}
	}
}

// NewRegistry returns an empty registry logging to slog.Default.
func NewRegistry() *Registry {
	return &Registry{
		llm:    newTable[LLMClient, LLMProviderConfig]("LLM client"),
		ocr:    newTable[OCRProvider, OCRProviderConfig]("OCR provider"),
		vision: newTable[VisionProvider, VisionProviderConfig]("vision provider"),
		logger: slog.Default(),
	}
}

// NewRegistryFromConfig returns a registry holding every enabled provider in
// cfg that has the credentials it needs.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// SetLogger replaces the logger; nil restores slog.Default.
func (r *Registry) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

func (r *Registry) RegisterLLM(name string, c LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm.set(name, c)
}

func (r *Registry) RegisterOCR(name string, p OCRProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ocr.set(name, p)
}

func (r *Registry) RegisterVision(name string, p VisionProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vision.set(name, p)
}

func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.llm.get(name)
}

func (r *Registry) GetOCR(name string) (OCRProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ocr.get(name)
}

func (r *Registry) GetVision(name string) (VisionProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.vision.get(name)
}

// ListLLM, ListOCR and ListVision return sorted provider names.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.llm.names()
}

func (r *Registry) ListOCR() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ocr.names()
}

func (r *Registry) ListVision() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.vision.names()
}

func (r *Registry) HasLLM(name string) bool {
	_, err := r.GetLLM(name)
	return err == nil
}

func (r *Registry) HasOCR(name string) bool {
	_, err := r.GetOCR(name)
	return err == nil
}

func (r *Registry) HasVision(name string) bool {
	_, err := r.GetVision(name)
	return err == nil
}

// RegistryConfig lists the providers to build, keyed by name. API keys are
// already resolved.
type RegistryConfig struct {
	LLMProviders    map[string]LLMProviderConfig
	OCRProviders    map[string]OCRProviderConfig
	VisionProviders map[string]VisionProviderConfig
}

type LLMProviderConfig struct {
	Type      string // openrouter or openai
	Model     string
	APIKey    string
	BaseURL   string
	RateLimit float64 // requests per second
	Enabled   bool
}

type OCRProviderConfig struct {
	Type      string // mistral-ocr or tesseract
	Model     string
	APIKey    string
	BaseURL   string
	Languages []string // tesseract only
	RateLimit float64
	Enabled   bool
}

type VisionProviderConfig struct {
	Type      string // mistral-ocr or gemini
	Model     string
	APIKey    string
	BaseURL   string
	RateLimit float64
	Enabled   bool
}

// Reload reconciles the registry with cfg. Providers missing from cfg are
// dropped, changed ones rebuilt and unchanged ones kept.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.llm.reconcile(r.logger, cfg.LLMProviders,
		func(c LLMProviderConfig) string { return c.Type },
		func(c LLMProviderConfig) bool { return c.Enabled && c.APIKey != "" },
		func(a, b LLMProviderConfig) bool { return a == b },
		createLLMClient)

	// Tesseract runs locally and needs no key.
	r.ocr.reconcile(r.logger, cfg.OCRProviders,
		func(c OCRProviderConfig) string { return c.Type },
		func(c OCRProviderConfig) bool { return c.Enabled && (c.APIKey != "" || c.Type == TesseractName) },
		func(a, b OCRProviderConfig) bool {
			return a.Type == b.Type && a.Model == b.Model && a.APIKey == b.APIKey &&
				a.BaseURL == b.BaseURL && a.RateLimit == b.RateLimit &&
				slices.Equal(a.Languages, b.Languages)
		},
		createOCRProvider)

	r.vision.reconcile(r.logger, cfg.VisionProviders,
		func(c VisionProviderConfig) string { return c.Type },
		func(c VisionProviderConfig) bool { return c.Enabled && c.APIKey != "" },
		func(a, b VisionProviderConfig) bool { return a == b },
		createVisionProvider)
}

func createLLMClient(cfg LLMProviderConfig) (LLMClient, error) {
	switch cfg.Type {
	case OpenRouterName:
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			RPS:          cfg.RateLimit,
		}), nil
	case OpenAIName:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			RateLimit:    cfg.RateLimit,
		}), nil
	}
	return nil, fmt.Errorf("unknown LLM provider type %q", cfg.Type)
}

func createOCRProvider(cfg OCRProviderConfig) (OCRProvider, error) {
	switch cfg.Type {
	case MistralOCRName:
		return NewMistralOCRClient(MistralOCRConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			RateLimit: cfg.RateLimit,
		}), nil
	case TesseractName:
		return NewTesseractOCR(cfg.Languages...), nil
	}
	return nil, fmt.Errorf("unknown OCR provider type %q", cfg.Type)
}

func createVisionProvider(cfg VisionProviderConfig) (VisionProvider, error) {
	switch cfg.Type {
	case MistralOCRName:
		return NewMistralOCRClient(MistralOCRConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			RateLimit: cfg.RateLimit,
		}), nil
	case GeminiVisionName:
		g, err := NewGeminiVision(context.Background(), GeminiVisionConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("unknown vision provider type %q", cfg.Type)
}
