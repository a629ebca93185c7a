package scan

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/smassist/backend/internal/analysis"
)

// FileProvider serves daily candles from per-symbol CSV files in a local
// directory, one file per symbol named <SYMBOL>.csv with a header of
// date,open,high,low,close,volume. Rows are expected oldest first.
type FileProvider struct {
	dir string
}

// NewFileProvider creates a FileProvider rooted at dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

// History loads the candle file for symbol and returns at most the last
// lookbackDays rows.
func (p *FileProvider) History(ctx context.Context, symbol string, lookbackDays int) ([]analysis.Candle, error) {
	path := filepath.Join(p.dir, strings.ToUpper(strings.TrimSpace(symbol))+".csv")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history for %s: %w", symbol, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse history for %s: %w", symbol, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "open", "high", "low", "close", "volume"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("history for %s: missing column %q", symbol, required)
		}
	}

	candles := make([]analysis.Candle, 0, len(records)-1)
	for _, rec := range records[1:] {
		candle, err := parseCandle(rec, cols)
		if err != nil {
			// Tolerate the odd malformed row rather than failing the symbol.
			continue
		}
		candles = append(candles, candle)
	}

	if lookbackDays > 0 && len(candles) > lookbackDays {
		candles = candles[len(candles)-lookbackDays:]
	}

	return candles, nil
}

func parseCandle(rec []string, cols map[string]int) (analysis.Candle, error) {
	field := func(name string) string {
		idx := cols[name]
		if idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}

	var candle analysis.Candle
	var err error

	if candle.Date, err = time.Parse("2006-01-02", field("date")); err != nil {
		return candle, fmt.Errorf("parse date: %w", err)
	}

	if candle.Open, err = strconv.ParseFloat(field("open"), 64); err != nil {
		return candle, fmt.Errorf("parse open: %w", err)
	}
	if candle.High, err = strconv.ParseFloat(field("high"), 64); err != nil {
		return candle, fmt.Errorf("parse high: %w", err)
	}
	if candle.Low, err = strconv.ParseFloat(field("low"), 64); err != nil {
		return candle, fmt.Errorf("parse low: %w", err)
	}
	if candle.Close, err = strconv.ParseFloat(field("close"), 64); err != nil {
		return candle, fmt.Errorf("parse close: %w", err)
	}
	if candle.Volume, err = strconv.ParseFloat(field("volume"), 64); err != nil {
		return candle, fmt.Errorf("parse volume: %w", err)
	}

	return candle, nil
}
