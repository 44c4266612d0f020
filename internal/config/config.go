// Package config loads folio's YAML configuration through viper, with
// FOLIO_* environment overrides and optional hot reload.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	yamlv2 "gopkg.in/yaml.v2"
	"gopkg.in/yaml.v3"

	"github.com/jackzampolin/folio/internal/providers"
)

// EnvPrefix prefixes environment overrides, e.g. FOLIO_EXTRACTION_MIN_ENTRIES.
const EnvPrefix = "FOLIO"

// Manager owns the viper instance and the last successfully decoded Config.
type Manager struct {
	v *viper.Viper

	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager reads cfgFile, or searches ".", $FOLIO_HOME and ~/.folio for
// config.yaml when cfgFile is empty. No file at all means defaults.
func NewManager(cfgFile string) (*Manager, error) {
	v, err := newViper(cfgFile)
	if err != nil {
		return nil, err
	}
	cm := &Manager{v: v}
	if cm.config, err = cm.decode(); err != nil {
		return nil, err
	}
	return cm, nil
}

func newViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	leaves, err := defaultLeaves()
	if err != nil {
		return nil, err
	}
	for key, value := range leaves {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case cfgFile != "":
		v.SetConfigFile(cfgFile)
	default:
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if os.Getenv("FOLIO_HOME") != "" {
			v.AddConfigPath("$FOLIO_HOME")
		}
		v.AddConfigPath("$HOME/.folio")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// defaultLeaves flattens DefaultConfig to dotted keys. Registering every
// leaf with SetDefault is what lets AutomaticEnv override it.
func defaultLeaves() (map[string]any, error) {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode defaults: %w", err)
	}
	leaves := make(map[string]any)
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, val := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := val.(map[string]any); ok && len(sub) > 0 {
				walk(key, sub)
				continue
			}
			leaves[key] = val
		}
	}
	walk("", tree)
	return leaves, nil
}

func (cm *Manager) decode() (*Config, error) {
	cfg := new(Config)
	if err := cm.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Get returns the current configuration. Callers must not modify it.
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFileUsed is the path that was read, or "" when running on defaults.
func (cm *Manager) ConfigFileUsed() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers fn to run after each successful reload.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	cm.callbacks = append(cm.callbacks, fn)
	cm.mu.Unlock()
}

// WatchConfig reloads on file changes. A file that fails to decode keeps the
// previous config and fires no callbacks.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := cm.decode()
		if err != nil {
			return
		}
		cm.mu.Lock()
		cm.config = cfg
		callbacks := append(([]func(*Config))(nil), cm.callbacks...)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars replaces each ${NAME} in value with the environment
// variable NAME; unset variables become "".
func ResolveEnvVars(value string) string {
	return envRef.ReplaceAllStringFunc(value, func(ref string) string {
		return os.Getenv(envRef.FindStringSubmatch(ref)[1])
	})
}

// ToProviderRegistryConfig resolves API keys and converts the provider
// sections for providers.NewRegistryFromConfig.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	rc := providers.RegistryConfig{
		LLMProviders:    make(map[string]providers.LLMProviderConfig, len(c.LLMProviders)),
		OCRProviders:    make(map[string]providers.OCRProviderConfig, len(c.OCRProviders)),
		VisionProviders: make(map[string]providers.VisionProviderConfig, len(c.VisionProviders)),
	}
	for name, p := range c.LLMProviders {
		rc.LLMProviders[name] = providers.LLMProviderConfig{
			Type: p.Type, Model: p.Model, APIKey: ResolveEnvVars(p.APIKey),
			BaseURL: p.BaseURL, RateLimit: p.RateLimit, Enabled: p.Enabled,
		}
	}
	for name, p := range c.OCRProviders {
		rc.OCRProviders[name] = providers.OCRProviderConfig{
			Type: p.Type, Model: p.Model, APIKey: ResolveEnvVars(p.APIKey),
			BaseURL: p.BaseURL, Languages: p.Languages, RateLimit: p.RateLimit, Enabled: p.Enabled,
		}
	}
	for name, p := range c.VisionProviders {
		rc.VisionProviders[name] = providers.VisionProviderConfig{
			Type: p.Type, Model: p.Model, APIKey: ResolveEnvVars(p.APIKey),
			BaseURL: p.BaseURL, RateLimit: p.RateLimit, Enabled: p.Enabled,
		}
	}
	return rc
}

const defaultHeader = `# Folio configuration
#
# API keys may reference the environment as ${NAME}, e.g.
#   export MISTRAL_API_KEY=... OPENROUTER_API_KEY=...
# Any leaf can be overridden as FOLIO_<SECTION>_<KEY>, e.g.
#   FOLIO_EXTRACTION_MIN_ENTRIES=5

`

// WriteDefault writes DefaultConfig to path with a short usage header.
func WriteDefault(path string) error {
	data, err := yamlv2.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	return os.WriteFile(path, append([]byte(defaultHeader), data...), 0o644)
}
