package formulas

import (
	"github.com/markcheno/go-talib"
)

// SmoothSMA applies a simple moving average over the whole series. The
// first length-1 positions have no full window yet; they keep the raw
// value so chart series stay the same length as their inputs.
func SmoothSMA(values []float64, length int) []float64 {
	if length <= 1 || len(values) < length {
		return values
	}
	return patchWarmup(values, talib.Sma(values, length), length)
}

// SmoothEMA applies an exponential moving average over the whole series,
// with the same warmup handling as SmoothSMA.
func SmoothEMA(values []float64, length int) []float64 {
	if length <= 1 || len(values) < length {
		return values
	}
	return patchWarmup(values, talib.Ema(values, length), length)
}

// patchWarmup replaces the first length-1 positions, which talib leaves
// unfilled, with the raw input values.
func patchWarmup(raw, smoothed []float64, length int) []float64 {
	out := make([]float64, len(raw))
	copy(out, smoothed)
	for i := 0; i < length-1 && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}
