package analysis

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	got := SMA(values, 3)

	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Errorf("positions before the window fills must be NaN, got %v", got[:2])
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if !almostEqual(got[i+2], w) {
			t.Errorf("SMA[%d] = %v, want %v", i+2, got[i+2], w)
		}
	}
}

func TestSMAShortSeries(t *testing.T) {
	got := SMA([]float64{1, 2}, 5)
	for i, v := range got {
		if !math.IsNaN(v) {
			t.Errorf("SMA[%d] = %v, want NaN for series shorter than window", i, v)
		}
	}
}

func TestRSIAllGains(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = float64(100 + i)
	}
	r := RSI(values, 14)

	if !math.IsNaN(r[0]) {
		t.Error("RSI[0] must be NaN")
	}
	if last := r[len(r)-1]; !almostEqual(last, 100) {
		t.Errorf("RSI of a strictly rising series = %v, want 100", last)
	}
}

func TestRSIAllLosses(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = float64(200 - i)
	}
	r := RSI(values, 14)
	if last := r[len(r)-1]; !almostEqual(last, 0) {
		t.Errorf("RSI of a strictly falling series = %v, want 0", last)
	}
}

func TestRSIMixedBounded(t *testing.T) {
	values := []float64{10, 11, 10.5, 11.5, 11, 12, 11.8, 12.5, 12.2, 13, 12.7, 13.5, 13.2, 14, 13.8, 14.5}
	r := RSI(values, 14)
	last := r[len(r)-1]
	if math.IsNaN(last) || last <= 50 || last >= 100 {
		t.Errorf("RSI of a choppy uptrend = %v, want in (50, 100)", last)
	}
}

func TestATR(t *testing.T) {
	candles := []Candle{
		{High: 12, Low: 10, Close: 11},
		{High: 13, Low: 11, Close: 12},
		{High: 15, Low: 12, Close: 14},
	}
	got := ATR(candles, 2)

	// TR = [2, 2, 3]; rolling mean over 2 -> [NaN, 2, 2.5]
	if !math.IsNaN(got[0]) {
		t.Errorf("ATR[0] = %v, want NaN", got[0])
	}
	if !almostEqual(got[1], 2) || !almostEqual(got[2], 2.5) {
		t.Errorf("ATR = %v, want [NaN 2 2.5]", got)
	}
}

func TestATRGapUp(t *testing.T) {
	// Gap open: true range must use the previous close, not the day's range.
	candles := []Candle{
		{High: 10, Low: 9, Close: 10},
		{High: 20, Low: 19, Close: 19},
	}
	got := ATR(candles, 1)
	if !almostEqual(got[1], 10) {
		t.Errorf("ATR[1] = %v, want 10 (high minus previous close)", got[1])
	}
}
