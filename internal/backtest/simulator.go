package backtest

import (
	"github.com/newthinker/swiftsig/internal/core"
	"github.com/shopspring/decimal"
)

// Simulator resolves signals against a price series bar by bar.
type Simulator struct {
	pipValue decimal.Decimal
}

// NewSimulator creates a simulator measuring results in pips of pipValue.
func NewSimulator(pipValue float64) *Simulator {
	return &Simulator{pipValue: decimal.NewFromFloat(pipValue)}
}

// Resolve walks forward from the bar after the signal's entry bar until the
// take-profit or stop-loss level is touched, or the data runs out.
//
// skip is empty when the signal resolved into trade. A signal whose pair is in
// openPairs is skipped with SkipOverlap; a signal entering on the last bar is
// skipped with SkipNoForwardData.
//
// When one bar's range covers both levels the intrabar path is unknown, and
// the trade is booked as a stop-loss. This is a deliberate conservative bias.
func (s *Simulator) Resolve(series core.Series, sig core.Signal, openPairs map[string]bool) (trade Trade, skip SkipReason) {
	if openPairs[sig.Pair] {
		return Trade{}, SkipOverlap
	}

	entry, ok := series.IndexOf(sig.EntryTime)
	if !ok || entry >= series.Len()-1 {
		return Trade{}, SkipNoForwardData
	}

	for _, bar := range series.Bars[entry+1:] {
		hitSL, hitTP := touches(sig, bar)
		switch {
		case hitSL:
			return s.close(sig, bar, sig.StopLoss, ExitStopLoss), ""
		case hitTP:
			return s.close(sig, bar, sig.TakeProfit, ExitTakeProfit), ""
		}
	}

	last := series.Last()
	return s.close(sig, last, last.Close, ExitEndOfData), ""
}

// touches reports which protective levels a bar reaches.
func touches(sig core.Signal, bar core.OHLCV) (hitSL, hitTP bool) {
	if sig.Direction == core.Short {
		return bar.High >= sig.StopLoss, bar.Low <= sig.TakeProfit
	}
	return bar.Low <= sig.StopLoss, bar.High >= sig.TakeProfit
}

func (s *Simulator) close(sig core.Signal, bar core.OHLCV, price float64, reason ExitReason) Trade {
	pips := s.Pips(sig.Direction, sig.EntryPrice, price)
	return Trade{
		Signal:     sig,
		ExitTime:   bar.Time,
		ExitPrice:  price,
		ExitReason: reason,
		Pips:       pips,
		IsWin:      pips > 0,
	}
}

// Pips converts a price move into pips in the trade's favour.
// Decimal arithmetic keeps level-to-level moves exact, so 1.1030-1.1000 is
// 30 pips rather than 30.000000000001.
func (s *Simulator) Pips(dir core.Direction, entry, exit float64) float64 {
	delta := decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(entry))
	if dir == core.Short {
		delta = delta.Neg()
	}
	pips, _ := delta.Div(s.pipValue).Float64()
	return pips
}
