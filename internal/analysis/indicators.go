// Package analysis computes technical indicators and strategy signals over
// daily price history. All series functions return one value per input bar;
// positions the indicator cannot be computed for yet hold NaN.
package analysis

import (
	"math"
	"time"
)

// Candle is one daily OHLCV bar.
type Candle struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Closes extracts the close series from candles.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts the volume series from candles.
func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}

// SMA is the simple moving average. The first window-1 positions are NaN.
func SMA(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 || len(values) < window {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// RSI is the relative strength index with exponentially weighted gain and
// loss averages (alpha = 2/(period+1)). The first position is NaN since it
// has no prior bar to diff against.
func RSI(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(values) < 2 {
		return out
	}

	alpha := 2.0 / (float64(period) + 1.0)
	var avgUp, avgDown float64
	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		up := math.Max(delta, 0)
		down := math.Max(-delta, 0)

		if i == 1 {
			avgUp = up
			avgDown = down
		} else {
			avgUp = (1-alpha)*avgUp + alpha*up
			avgDown = (1-alpha)*avgDown + alpha*down
		}

		if avgDown == 0 {
			if avgUp > 0 {
				out[i] = 100
			}
			continue
		}
		rs := avgUp / avgDown
		out[i] = 100 - (100 / (1 + rs))
	}
	return out
}

// ATR is the average true range: a rolling mean of the true range, where
// true range is the largest of high-low, |high-prevClose|, |low-prevClose|.
func ATR(candles []Candle, period int) []float64 {
	out := make([]float64, len(candles))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(candles) < 2 {
		return out
	}

	tr := make([]float64, len(candles))
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		prevClose := candles[i-1].Close
		tr[i] = math.Max(candles[i].High-candles[i].Low,
			math.Max(math.Abs(candles[i].High-prevClose), math.Abs(candles[i].Low-prevClose)))
	}
	return SMA(tr, period)
}

// lastValid returns the last non-NaN value of a series.
func lastValid(values []float64) (float64, bool) {
	for i := len(values) - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) {
			return values[i], true
		}
	}
	return 0, false
}

// maxTail returns the maximum over the last n values.
func maxTail(values []float64, n int) float64 {
	start := len(values) - n
	if start < 0 {
		start = 0
	}
	best := math.Inf(-1)
	for _, v := range values[start:] {
		if !math.IsNaN(v) && v > best {
			best = v
		}
	}
	return best
}
