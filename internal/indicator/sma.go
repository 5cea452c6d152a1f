// Package indicator computes the price-derived series strategies trade on.
// Every function returns only the fully warmed-up values; use Align to line
// them up with the bars they belong to.
package indicator

// SMA returns the simple moving average over period prices. Value i averages
// prices[i : i+period], so there are len(prices)-period+1 values.
func SMA(prices []float64, period int) []float64 {
	sum, ok := window(prices, period)
	if !ok {
		return []float64{}
	}

	p := float64(period)
	out := make([]float64, 1, len(prices)-period+1)
	out[0] = sum / p
	for i := period; i < len(prices); i++ {
		sum += prices[i] - prices[i-period]
		out = append(out, sum/p)
	}
	return out
}

// EMA returns the exponential moving average with smoothing 2/(period+1),
// seeded with the SMA of the first period prices.
func EMA(prices []float64, period int) []float64 {
	sum, ok := window(prices, period)
	if !ok {
		return []float64{}
	}

	alpha := 2 / float64(period+1)
	ema := sum / float64(period)
	out := make([]float64, 1, len(prices)-period+1)
	out[0] = ema
	for _, p := range prices[period:] {
		ema += alpha * (p - ema)
		out = append(out, ema)
	}
	return out
}

// window sums the first period prices. ok is false when period is not
// positive or there are fewer prices than one window.
func window(prices []float64, period int) (sum float64, ok bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}
	for _, p := range prices[:period] {
		sum += p
	}
	return sum, true
}
