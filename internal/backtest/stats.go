package backtest

import (
	"math"
)

// ComputeMetrics derives the statistics of everything booked in the ledger.
func ComputeMetrics(l *Ledger) Metrics {
	return CalculateMetrics(l.Trades(), l.EquityCurve(), l.InitialCapital())
}

// CalculateMetrics computes performance statistics from trades and their
// equity curve. It is a pure function: the same inputs always give the same
// metrics.
func CalculateMetrics(trades []Trade, curve []EquityPoint, initialCapital float64) Metrics {
	if len(trades) == 0 {
		return Metrics{}
	}

	var m Metrics
	var grossWin, grossLoss float64
	pips := make([]float64, 0, len(trades))

	for _, t := range trades {
		pips = append(pips, t.Pips)
		m.TotalPips += t.Pips

		switch {
		case t.Pips > 0:
			m.Wins++
			grossWin += t.Pips
			m.LargestWinPips = math.Max(m.LargestWinPips, t.Pips)
		case t.Pips < 0:
			m.Losses++
			grossLoss += t.Pips
			m.LargestLossPips = math.Min(m.LargestLossPips, t.Pips)
		}
		if t.ExitReason == ExitEndOfData {
			m.EndOfData++
		}
		if t.Outcome() == OutcomeBreakEven {
			m.BreakEven++
		}
	}

	m.TotalTrades = len(trades)
	m.WinRate = float64(m.Wins) / float64(m.TotalTrades)
	if m.Wins > 0 {
		m.AvgWinPips = grossWin / float64(m.Wins)
	}
	if m.Losses > 0 {
		m.AvgLossPips = grossLoss / float64(m.Losses)
	}
	m.ProfitFactor = profitFactor(grossWin, grossLoss)
	m.MaxDrawdownPips = calculateMaxDrawdown(curve)
	m.SharpeRatio = calculateSharpeRatio(pips)

	if initialCapital > 0 && len(curve) > 0 {
		final := curve[len(curve)-1].Equity
		m.TotalReturnPct = (final - initialCapital) / initialCapital * 100
	}

	return m
}

// profitFactor divides gross winning pips by the magnitude of gross losing pips.
func profitFactor(grossWin, grossLoss float64) float64 {
	if grossWin <= 0 {
		return 0
	}
	if grossLoss == 0 {
		return math.Inf(1)
	}
	return grossWin / math.Abs(grossLoss)
}

// calculateMaxDrawdown finds the largest peak-to-trough decline of the
// cumulative pips curve. The running peak starts at zero, the opening balance.
func calculateMaxDrawdown(curve []EquityPoint) float64 {
	var peak, maxDD float64
	for _, p := range curve {
		if p.CumulativePips > peak {
			peak = p.CumulativePips
		}
		if dd := peak - p.CumulativePips; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// calculateSharpeRatio is mean over population standard deviation of per-trade
// pips, not annualized, with a zero risk-free rate.
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)))

	if stdDev == 0 {
		return 0
	}
	return mean / stdDev
}
