// Package config handles loading and saving cascadeviz configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/cascadeviz/config.yaml
//   - Data:    ~/.local/share/cascadeviz/ (persisted graph cache)
//   - State:   ~/.local/state/cascadeviz/ (view state)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/marketgraph/cascadeviz/pkg/layout"
)

// APIConfig locates the prediction backend.
type APIConfig struct {
	BaseURL        string `yaml:"base_url,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
}

// CacheConfig controls the graph data cache.
type CacheConfig struct {
	TTLMinutes int    `yaml:"ttl_minutes,omitempty"`
	SQLitePath string `yaml:"sqlite_path,omitempty"` // empty disables persistence
}

// CanvasConfig sizes the rendering surface.
type CanvasConfig struct {
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`
}

// CascadeConfig tunes the trigger used when a watched cascade render
// re-predicts on config reload. Zero values defer to the command flags.
type CascadeConfig struct {
	SurprisePercent float64 `yaml:"surprise_percent,omitempty"`
	HorizonDays     int     `yaml:"horizon_days,omitempty"`
}

// Config is the top-level configuration for cascadeviz.
type Config struct {
	API       APIConfig     `yaml:"api,omitempty"`
	Cache     CacheConfig   `yaml:"cache,omitempty"`
	Canvas    CanvasConfig  `yaml:"canvas,omitempty"`
	Layout    layout.Params `yaml:"layout,omitempty"`
	Cascade   CascadeConfig `yaml:"cascade,omitempty"`
	Portfolio []string      `yaml:"portfolio,omitempty"` // entity ids for the golden-ring decoration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 30,
		},
		Cache: CacheConfig{
			TTLMinutes: 30,
		},
		Canvas: CanvasConfig{
			Width:  1280,
			Height: 800,
		},
		Layout: layout.DefaultParams(),
	}
}

// ConfigDir returns the XDG config directory for cascadeviz.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "cascadeviz")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "cascadeviz")
}

// DataDir returns the XDG data directory for cascadeviz.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "cascadeviz")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "cascadeviz")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Cache.SQLitePath = expandHome(cfg.Cache.SQLitePath)
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// InPortfolio reports whether an entity id is on the configured watchlist.
func (c Config) InPortfolio(id string) bool {
	for _, p := range c.Portfolio {
		if strings.EqualFold(p, id) {
			return true
		}
	}
	return false
}

// PortfolioSet returns the watchlist as a set for the renderer.
func (c Config) PortfolioSet() map[string]bool {
	set := make(map[string]bool, len(c.Portfolio))
	for _, p := range c.Portfolio {
		set[p] = true
	}
	return set
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
