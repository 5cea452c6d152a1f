package indicator

import "math"

// TrueRange calculates the true range of each bar after the first.
// Returns slice of length: len(closes) - 1, where [i] belongs to bar i+1
func TrueRange(highs, lows, closes []float64) []float64 {
	n := len(closes)
	if n < 2 || len(highs) != n || len(lows) != n {
		return []float64{}
	}

	result := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		prevClose := closes[i-1]
		tr := math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-prevClose), math.Abs(lows[i]-prevClose)))
		result = append(result, tr)
	}
	return result
}

// ATR calculates Average True Range as the simple mean of the last period
// true ranges. The first value belongs to bar index period.
func ATR(highs, lows, closes []float64, period int) []float64 {
	return SMA(TrueRange(highs, lows, closes), period)
}

// Align right-aligns an indicator series to n bars, padding the warm-up
// section with NaN so that values[i] belongs to bar i.
func Align(values []float64, n int) []float64 {
	out := make([]float64, n)
	offset := n - len(values)
	for i := range out {
		if i < offset {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i-offset]
	}
	return out
}
