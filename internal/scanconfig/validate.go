package scanconfig

import "fmt"

// ValidationError is a settings constraint violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var knownStrategies = map[string]bool{
	"golden_cross": true,
	"rsi_momentum": true,
	"breakout_52w": true,
	"volume_surge": true,
}

// Validate checks all required constraints.
func Validate(cfg *Config) error {
	if cfg.Meta.ScanID == "" {
		return ValidationError{"meta.scan_id", "required"}
	}
	if cfg.Universe.Code == "" {
		return ValidationError{"universe.code", "required"}
	}
	if cfg.History.LookbackDays <= 0 {
		return ValidationError{"history.lookback_days", "must be > 0"}
	}
	if cfg.History.MinBars < 0 {
		return ValidationError{"history.min_bars", "must be >= 0"}
	}
	if cfg.History.MinBars > cfg.History.LookbackDays {
		return ValidationError{"history.min_bars", "must not exceed lookback_days"}
	}
	if len(cfg.Ranking.Strategies) == 0 {
		return ValidationError{"ranking.strategies", "at least one strategy required"}
	}
	for _, name := range cfg.Ranking.Strategies {
		if !knownStrategies[name] {
			return ValidationError{"ranking.strategies", fmt.Sprintf("unknown strategy %q", name)}
		}
	}
	if cfg.Ranking.Aggregate != "best" && cfg.Ranking.Aggregate != "sum" {
		return ValidationError{"ranking.aggregate", `must be "best" or "sum"`}
	}
	if cfg.Ranking.TopN <= 0 {
		return ValidationError{"ranking.top_n", "must be > 0"}
	}
	return nil
}
