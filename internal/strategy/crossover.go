package strategy

import (
	"fmt"
	"math"

	"github.com/newthinker/swiftsig/internal/core"
)

// ATRExits places stop-loss and take-profit levels at multiples of the
// average true range away from the entry price.
type ATRExits struct {
	StopMult   float64
	TargetMult float64
}

// Levels returns the take-profit and stop-loss prices for an entry.
func (e ATRExits) Levels(entry, atr float64, dir core.Direction) (tp, sl float64) {
	if dir == core.Short {
		return entry - atr*e.TargetMult, entry + atr*e.StopMult
	}
	return entry + atr*e.TargetMult, entry - atr*e.StopMult
}

// CrossoverSignals scans bar-aligned fast and slow lines (NaN during warm-up)
// and proposes a LONG where fast crosses above slow and a SHORT where it
// crosses below, entering at that bar's close.
// Crossings whose levels would be degenerate (zero ATR, negative stop) are dropped.
func CrossoverSignals(series core.Series, pair, name string, fast, slow, atr []float64, exits ATRExits) []core.Signal {
	var signals []core.Signal

	for i := 1; i < series.Len(); i++ {
		if anyNaN(fast[i], slow[i], atr[i], fast[i-1], slow[i-1]) {
			continue
		}

		diff := fast[i] - slow[i]
		prevDiff := fast[i-1] - slow[i-1]

		var dir core.Direction
		var reason string
		switch {
		case diff > 0 && prevDiff <= 0:
			dir = core.Long
			reason = fmt.Sprintf("bullish cross: fast %.5f crossed above slow %.5f", fast[i], slow[i])
		case diff < 0 && prevDiff >= 0:
			dir = core.Short
			reason = fmt.Sprintf("bearish cross: fast %.5f crossed below slow %.5f", fast[i], slow[i])
		default:
			continue
		}

		bar := series.Bars[i]
		tp, sl := exits.Levels(bar.Close, atr[i], dir)
		sig := core.Signal{
			Pair:       pair,
			Direction:  dir,
			Strategy:   name,
			EntryTime:  bar.Time,
			EntryPrice: bar.Close,
			TakeProfit: tp,
			StopLoss:   sl,
			Confidence: crossConfidence(fast[i], slow[i]),
			Reason:     reason,
		}
		if sig.Validate() != nil {
			continue
		}
		signals = append(signals, sig)
	}

	return signals
}

// crossConfidence returns higher confidence for larger divergence
func crossConfidence(fast, slow float64) float64 {
	if slow == 0 {
		return 0.5
	}
	diff := math.Abs((fast - slow) / slow)

	// Scale to 0.5-0.9 range based on divergence
	return math.Min(0.5+diff*10, 0.9)
}

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
