// Package scanconfig loads and validates the market scan settings file.
// The loaded document is hashed so scan results can be tied to the exact
// settings that produced them.
package scanconfig

// Config is the full scan settings document.
type Config struct {
	Meta     Meta     `yaml:"meta" json:"meta"`
	Universe Universe `yaml:"universe" json:"universe"`
	History  History  `yaml:"history" json:"history"`
	Ranking  Ranking  `yaml:"ranking" json:"ranking"`
}

// Meta identifies the settings document.
type Meta struct {
	ScanID  string `yaml:"scan_id" json:"scan_id"`
	Version string `yaml:"version" json:"version"`
}

// Universe selects which stored universe to scan.
type Universe struct {
	Code string `yaml:"code" json:"code"`
}

// History bounds the price history a scan works over.
type History struct {
	LookbackDays int `yaml:"lookback_days" json:"lookback_days"`
	MinBars      int `yaml:"min_bars" json:"min_bars"`
}

// Ranking controls which strategies run and how signals aggregate.
// Aggregate is "best" (top strategy per symbol) or "sum" (total score
// across strategies per symbol).
type Ranking struct {
	Strategies []string `yaml:"strategies" json:"strategies"`
	Aggregate  string   `yaml:"aggregate" json:"aggregate"`
	TopN       int      `yaml:"top_n" json:"top_n"`
}

// Default returns the settings used when no file is configured.
func Default() *Config {
	return &Config{
		Meta: Meta{ScanID: "default", Version: "1"},
		Universe: Universe{
			Code: "nse-eq",
		},
		History: History{
			LookbackDays: 252,
			MinBars:      30,
		},
		Ranking: Ranking{
			Strategies: []string{"golden_cross", "rsi_momentum", "breakout_52w", "volume_surge"},
			Aggregate:  "best",
			TopN:       25,
		},
	}
}
