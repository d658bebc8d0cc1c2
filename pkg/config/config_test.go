package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.API.BaseURL == "" {
		t.Error("default API base URL empty")
	}
	if cfg.Cache.TTLMinutes != 30 {
		t.Errorf("default TTL = %d, want 30", cfg.Cache.TTLMinutes)
	}
	if cfg.Layout.GroupRadius != 350 {
		t.Errorf("default group radius = %v, want 350", cfg.Layout.GroupRadius)
	}
	if cfg.Canvas.Width <= 0 || cfg.Canvas.Height <= 0 {
		t.Errorf("default canvas = %dx%d", cfg.Canvas.Width, cfg.Canvas.Height)
	}
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.API.BaseURL != DefaultConfig().API.BaseURL {
		t.Errorf("missing file did not yield defaults: %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.API.BaseURL = "http://predict.internal:9000"
	cfg.Cache.TTLMinutes = 5
	cfg.Layout.WarmupTicks = 120
	cfg.Cascade.SurprisePercent = -8.5
	cfg.Cascade.HorizonDays = 30
	cfg.Portfolio = []string{"AAPL", "XLE"}

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.API.BaseURL != cfg.API.BaseURL {
		t.Errorf("base URL = %q", loaded.API.BaseURL)
	}
	if loaded.Cache.TTLMinutes != 5 || loaded.Layout.WarmupTicks != 120 {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.Cascade.SurprisePercent != -8.5 || loaded.Cascade.HorizonDays != 30 {
		t.Errorf("cascade tuning = %+v", loaded.Cascade)
	}
	if !loaded.InPortfolio("aapl") {
		t.Error("portfolio lookup not case-insensitive")
	}
	if loaded.InPortfolio("MSFT") {
		t.Error("non-member reported in portfolio")
	}
}

func TestLoadFromPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := "api:\n  base_url: http://example.test\n"
	if err := os.WriteFile(path, []byte(partial), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.API.BaseURL != "http://example.test" {
		t.Errorf("base URL = %q", cfg.API.BaseURL)
	}
	if cfg.Cache.TTLMinutes != 30 || cfg.Canvas.Width != 1280 {
		t.Errorf("unlisted fields lost defaults: %+v", cfg)
	}
}

func TestLoadFromMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("malformed yaml accepted")
	}
}

func TestPortfolioSet(t *testing.T) {
	cfg := Config{Portfolio: []string{"AAPL", "XLK"}}
	set := cfg.PortfolioSet()
	if !set["AAPL"] || !set["XLK"] || len(set) != 2 {
		t.Errorf("set = %v", set)
	}
}
