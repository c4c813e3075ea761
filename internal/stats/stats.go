// Package stats provides the numeric kernels shared by the profiler and the
// quality-fix engine. All functions operate on plain float64 slices; callers
// extract non-missing values from table columns first. Where a statistic is
// undefined for the input, the ok result is false.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// Median returns the middle value, averaging the two central values for
// even-length input
func Median(values []float64) (float64, bool) {
	n := len(values)
	if n == 0 {
		return 0, false
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2], true
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2, true
}

// SampleStd returns the sample standard deviation (n-1 denominator).
// Undefined for fewer than 2 values.
func SampleStd(values []float64) (float64, bool) {
	n := len(values)
	if n < 2 {
		return 0, false
	}
	mean, _ := Mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1)), true
}

// MinMax returns the smallest and largest values
func MinMax(values []float64) (float64, float64, bool) {
	if len(values) == 0 {
		return 0, 0, false
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, true
}

// Quantile returns the p-quantile (0 <= p <= 1) using linear interpolation
// between closest ranks
func Quantile(values []float64, p float64) (float64, bool) {
	n := len(values)
	if n == 0 || p < 0 || p > 1 {
		return 0, false
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], true
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac, true
}

// Skewness returns the Fisher-Pearson coefficient of skewness
// g1 = m3 / m2^(3/2) using population moments, without bias adjustment.
// Undefined for fewer than 3 values or zero variance.
func Skewness(values []float64) (float64, bool) {
	n := len(values)
	if n < 3 {
		return 0, false
	}
	mean, _ := Mean(values)
	m2, m3 := 0.0, 0.0
	for _, v := range values {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= float64(n)
	m3 /= float64(n)
	if m2 == 0 {
		return 0, false
	}
	return m3 / math.Pow(m2, 1.5), true
}

// Pearson returns the Pearson correlation of two equal-length series.
// NaN entries mark missing observations; only pairs where both sides are
// present contribute. Undefined with fewer than 2 complete pairs or zero
// variance on either side.
func Pearson(x, y []float64) (float64, bool) {
	if len(x) != len(y) {
		return 0, false
	}
	var xs, ys []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	n := len(xs)
	if n < 2 {
		return 0, false
	}

	mx, _ := Mean(xs)
	my, _ := Mean(ys)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		dy := ys[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	return sxy / math.Sqrt(sxx*syy), true
}

// Round2 rounds to two decimal places, used for reported percentages
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round3 rounds to three decimal places, the precision reports use for
// timings and confidence figures
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Round4 rounds to four decimal places, used for reported correlations
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
