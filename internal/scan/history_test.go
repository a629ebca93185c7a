package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const sampleHistory = `date,open,high,low,close,volume
2025-08-25,100,102,99,101,50000
2025-08-26,101,103,100,102,52000
not-a-date,101,103,100,102,52000
2025-08-27,102,104,101,103,61000
`

func TestFileProviderHistory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "TCS.csv"), []byte(sampleHistory), 0o644); err != nil {
		t.Fatal(err)
	}

	provider := NewFileProvider(dir)

	candles, err := provider.History(context.Background(), " tcs ", 252)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(candles) != 3 {
		t.Fatalf("History() returned %d candles, want 3 (malformed row skipped)", len(candles))
	}
	if candles[2].Close != 103 {
		t.Errorf("last close = %v, want 103", candles[2].Close)
	}
	if candles[0].Date.Format("2006-01-02") != "2025-08-25" {
		t.Errorf("first date = %s, want 2025-08-25", candles[0].Date.Format("2006-01-02"))
	}
}

func TestFileProviderLookbackTrim(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "TCS.csv"), []byte(sampleHistory), 0o644); err != nil {
		t.Fatal(err)
	}

	candles, err := NewFileProvider(dir).History(context.Background(), "TCS", 2)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("History() returned %d candles, want 2", len(candles))
	}
	if candles[0].Close != 102 {
		t.Errorf("first kept close = %v, want 102", candles[0].Close)
	}
}

func TestFileProviderMissingSymbol(t *testing.T) {
	provider := NewFileProvider(t.TempDir())
	if _, err := provider.History(context.Background(), "GHOST", 252); err == nil {
		t.Error("History() for missing file should fail")
	}
}

func TestFileProviderMissingColumn(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "BAD.csv"), []byte("date,close\n2025-08-25,100\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileProvider(dir).History(context.Background(), "BAD", 252); err == nil {
		t.Error("History() without OHLCV columns should fail")
	}
}
