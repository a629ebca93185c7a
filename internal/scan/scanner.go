// Package scan runs the configured strategies over a universe of symbols
// and ranks the resulting signals. Price history comes from a
// HistoryProvider; the scanner itself never talks to market data sources.
package scan

import (
	"context"
	"sort"
	"strings"

	"github.com/smassist/backend/internal/analysis"
	"github.com/smassist/backend/internal/scanconfig"
	"github.com/smassist/backend/pkg/logger"
)

// HistoryProvider supplies daily candles for a symbol, newest last.
type HistoryProvider interface {
	History(ctx context.Context, symbol string, lookbackDays int) ([]analysis.Candle, error)
}

// Result is one ranked row of scan output. Under "best" aggregation the
// Strategy is the top strategy for the symbol; under "sum" it joins every
// strategy that fired with '+'.
type Result struct {
	Symbol   string             `json:"symbol"`
	Strategy string             `json:"strategy"`
	Score    float64            `json:"score"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
}

// Scanner evaluates strategies over symbols.
type Scanner struct {
	settings *scanconfig.Config
	provider HistoryProvider
	logger   *logger.Logger
}

// New creates a new Scanner.
func New(settings *scanconfig.Config, provider HistoryProvider, log *logger.Logger) *Scanner {
	return &Scanner{
		settings: settings,
		provider: provider,
		logger:   log,
	}
}

// Run scans the given symbols and returns ranked results, best score
// first, symbol ascending on ties, truncated to the configured top N.
// Symbols whose history cannot be fetched or is too short are skipped,
// not fatal: a scan over a large universe should survive individual
// symbol failures.
func (s *Scanner) Run(ctx context.Context, symbols []string) ([]Result, error) {
	var results []Result

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candles, err := s.provider.History(ctx, symbol, s.settings.History.LookbackDays)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("History fetch failed")
			continue
		}
		if len(candles) < s.settings.History.MinBars {
			s.logger.WithFields(map[string]interface{}{
				"symbol": symbol,
				"bars":   len(candles),
			}).Debug("Skipping symbol with short history")
			continue
		}

		signals := analysis.Evaluate(symbol, candles, s.settings.Ranking.Strategies)
		switch s.settings.Ranking.Aggregate {
		case "sum":
			results = append(results, sumSignals(symbol, signals))
		default:
			if best, ok := bestSignal(signals); ok {
				results = append(results, best)
			}
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Symbol < results[j].Symbol
	})

	if n := s.settings.Ranking.TopN; n > 0 && len(results) > n {
		results = results[:n]
	}
	return results, nil
}

// sumSignals totals every fired strategy for one symbol. Symbols with no
// signals still produce a zero-score "none" row, so a sum-mode scan shows
// the whole universe.
func sumSignals(symbol string, signals []analysis.Signal) Result {
	if len(signals) == 0 {
		return Result{Symbol: symbol, Strategy: "none"}
	}

	names := make([]string, 0, len(signals))
	metrics := map[string]float64{}
	total := 0.0
	for _, sig := range signals {
		names = append(names, sig.Strategy)
		total += sig.Score
		for k, v := range sig.Metrics {
			metrics[k] = v
		}
	}
	return Result{
		Symbol:   symbol,
		Strategy: strings.Join(names, "+"),
		Score:    total,
		Metrics:  metrics,
	}
}

// bestSignal picks the highest-scoring signal for one symbol.
func bestSignal(signals []analysis.Signal) (Result, bool) {
	if len(signals) == 0 {
		return Result{}, false
	}
	best := signals[0]
	for _, sig := range signals[1:] {
		if sig.Score > best.Score {
			best = sig
		}
	}
	return Result{
		Symbol:   best.Symbol,
		Strategy: best.Strategy,
		Score:    best.Score,
		Metrics:  best.Metrics,
	}, true
}
