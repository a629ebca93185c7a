package scanconfig

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `meta:
  scan_id: nse_momentum_v1
  version: "2"
universe:
  code: nse-eq
history:
  lookback_days: 252
  min_bars: 60
ranking:
  strategies: [golden_cross, breakout_52w]
  aggregate: sum
  top_n: 10
`

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, yamlData, err := Load(writeSettings(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Meta.ScanID != "nse_momentum_v1" {
		t.Errorf("expected scan_id=nse_momentum_v1, got %s", cfg.Meta.ScanID)
	}
	if cfg.Ranking.Aggregate != "sum" {
		t.Errorf("expected aggregate=sum, got %s", cfg.Ranking.Aggregate)
	}
	if len(yamlData) == 0 {
		t.Error("raw yaml bytes not returned")
	}

	hash, err := Hash(cfg)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(hash))
	}

	hash2, _ := Hash(cfg)
	if hash != hash2 {
		t.Error("hash not deterministic")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, _, err := Load(writeSettings(t, sampleYAML+"surprise: true\n"))
	if err == nil {
		t.Fatal("unknown top-level field should fail the load")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default settings must validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing scan_id", func(c *Config) { c.Meta.ScanID = "" }},
		{"missing universe", func(c *Config) { c.Universe.Code = "" }},
		{"zero lookback", func(c *Config) { c.History.LookbackDays = 0 }},
		{"min_bars over lookback", func(c *Config) { c.History.MinBars = 9999 }},
		{"no strategies", func(c *Config) { c.Ranking.Strategies = nil }},
		{"unknown strategy", func(c *Config) { c.Ranking.Strategies = []string{"moon_phase"} }},
		{"bad aggregate", func(c *Config) { c.Ranking.Aggregate = "max" }},
		{"zero top_n", func(c *Config) { c.Ranking.TopN = 0 }},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		if err := Validate(cfg); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestHashChangesWithSettings(t *testing.T) {
	a := Default()
	b := Default()
	b.Ranking.TopN = 50

	ha, err := Hash(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := Hash(b)
	if err != nil {
		t.Fatal(err)
	}
	if ha == hb {
		t.Error("different settings must hash differently")
	}
}
