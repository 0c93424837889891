// Package formulas provides the numeric building blocks shared by charts
// and forecasting: descriptive statistics, quantiles and series smoothing.
package formulas

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// MeanStdDev computes both moments in one pass.
func MeanStdDev(data []float64) (mean, stdDev float64) {
	if len(data) == 0 {
		return 0, 0
	}
	if len(data) < 2 {
		return data[0], 0
	}
	return stat.MeanStdDev(data, nil)
}

// Quantile returns the p-quantile (0..1) of the data. The input does not
// need to be sorted.
func Quantile(p float64, data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// CumulativeSum returns the running total of the series.
func CumulativeSum(data []float64) []float64 {
	out := make([]float64, len(data))
	var total float64
	for i, v := range data {
		total += v
		out[i] = total
	}
	return out
}
