package analysis

import (
	"math"
	"sort"
)

// Signal is one strategy firing on one symbol.
type Signal struct {
	Symbol   string             `json:"symbol"`
	Strategy string             `json:"strategy"`
	Score    float64            `json:"score"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
}

// Strategy evaluates one rule over price history. It reports whether the
// rule fired, the score it contributes, and the metrics behind the call.
type Strategy func(candles []Candle) (bool, float64, map[string]float64)

// Strategy names, as used in scan settings.
const (
	StrategyGoldenCross = "golden_cross"
	StrategyRSIMomentum = "rsi_momentum"
	StrategyBreakout52W = "breakout_52w"
	StrategyVolumeSurge = "volume_surge"
)

// strategyFuncs maps names to implementations.
var strategyFuncs = map[string]Strategy{
	StrategyGoldenCross: GoldenCross,
	StrategyRSIMomentum: RSIMomentum,
	StrategyBreakout52W: Breakout52W,
	StrategyVolumeSurge: VolumeSurge,
}

// StrategyNames returns the known strategy names, sorted.
func StrategyNames() []string {
	names := make([]string, 0, len(strategyFuncs))
	for name := range strategyFuncs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GoldenCross fires when SMA50 is above SMA200. Base score 2.0, plus 1.0
// when the cross happened within the last 10 bars.
func GoldenCross(candles []Candle) (bool, float64, map[string]float64) {
	closes := Closes(candles)
	s50 := SMA(closes, 50)
	s200 := SMA(closes, 200)

	last50, ok50 := lastValid(s50)
	last200, ok200 := lastValid(s200)
	if !ok50 || !ok200 {
		return false, 0, nil
	}

	cond := last50 > last200
	if !cond {
		return false, 0, metricsFor(closes, s50, s200)
	}

	score := 2.0
	if crossedRecently(s50, s200, 10) {
		score += 1.0
	}
	return true, score, metricsFor(closes, s50, s200)
}

func metricsFor(closes, s50, s200 []float64) map[string]float64 {
	m := map[string]float64{}
	if v, ok := lastValid(closes); ok {
		m["close"] = v
	}
	if v, ok := lastValid(s50); ok {
		m["sma50"] = v
	}
	if v, ok := lastValid(s200); ok {
		m["sma200"] = v
	}
	return m
}

// crossedRecently reports whether fast crossed above slow within the last
// n bars.
func crossedRecently(fast, slow []float64, n int) bool {
	start := len(fast) - n
	if start < 1 {
		start = 1
	}
	for i := start; i < len(fast); i++ {
		if math.IsNaN(fast[i]) || math.IsNaN(slow[i]) || math.IsNaN(fast[i-1]) || math.IsNaN(slow[i-1]) {
			continue
		}
		if fast[i-1] <= slow[i-1] && fast[i] > slow[i] {
			return true
		}
	}
	return false
}

// RSIMomentum fires when RSI14 sits in the 55-70 band and has been rising
// in at least 3 of the last 5 bars. Score 1.5.
func RSIMomentum(candles []Candle) (bool, float64, map[string]float64) {
	closes := Closes(candles)
	r := RSI(closes, 14)

	val, ok := lastValid(r)
	if !ok {
		return false, 0, nil
	}

	rising := false
	if len(r) >= 6 {
		positives := 0
		for i := len(r) - 5; i < len(r); i++ {
			if !math.IsNaN(r[i]) && !math.IsNaN(r[i-1]) && r[i] > r[i-1] {
				positives++
			}
		}
		rising = positives >= 3
	}

	metrics := map[string]float64{"rsi14": val}
	if v, ok := lastValid(closes); ok {
		metrics["close"] = v
	}

	if val >= 55 && val <= 70 && rising {
		return true, 1.5, metrics
	}
	return false, 0, metrics
}

// Breakout52W fires when the last close is within 2% of the 52-week
// (252 bar) high. Needs at least 200 bars of history. Score 2.0.
func Breakout52W(candles []Candle) (bool, float64, map[string]float64) {
	closes := Closes(candles)
	if len(closes) < 200 {
		return false, 0, nil
	}

	high := maxTail(closes, 252)
	last := closes[len(closes)-1]
	if high <= 0 || math.IsInf(high, -1) {
		return false, 0, nil
	}

	dist := (high - last) / high
	metrics := map[string]float64{"close": last, "dist_52w_high": dist}
	if last >= 0.98*high {
		return true, 2.0, metrics
	}
	return false, 0, metrics
}

// VolumeSurge fires when the 5-bar average volume runs at 1.5x the 20-bar
// average or more. Score 1.0.
func VolumeSurge(candles []Candle) (bool, float64, map[string]float64) {
	vol := Volumes(candles)
	v5, ok5 := lastValid(SMA(vol, 5))
	v20, ok20 := lastValid(SMA(vol, 20))
	if !ok5 || !ok20 || v20 == 0 {
		return false, 0, nil
	}

	ratio := v5 / v20
	metrics := map[string]float64{"vol5x20": ratio}
	if ratio >= 1.5 {
		return true, 1.0, metrics
	}
	return false, 0, metrics
}

// Evaluate runs the named strategies over one symbol's history and returns
// the signals that fired. Unknown names are skipped.
func Evaluate(symbol string, candles []Candle, strategies []string) []Signal {
	var signals []Signal
	for _, name := range strategies {
		fn, ok := strategyFuncs[name]
		if !ok {
			continue
		}
		fired, score, metrics := fn(candles)
		if fired && score > 0 {
			signals = append(signals, Signal{
				Symbol:   symbol,
				Strategy: name,
				Score:    score,
				Metrics:  metrics,
			})
		}
	}
	return signals
}
