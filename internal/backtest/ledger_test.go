package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closed(entry, exit int, pips float64) Trade {
	return Trade{
		Signal:     longAt(entry, 1.1, 1.2, 1.0),
		ExitTime:   at(exit),
		ExitReason: ExitTakeProfit,
		Pips:       pips,
		IsWin:      pips > 0,
	}
}

func TestLedger_OpenPairs(t *testing.T) {
	l := NewLedger(cfg())
	sig := longAt(0, 1.1, 1.2, 1.0)

	l.RegisterOpen(sig)
	assert.True(t, l.OpenPairs(at(0))["EURUSD"])

	tr := closed(0, 3, 10)
	l.RegisterClose(tr)

	assert.True(t, l.OpenPairs(at(2))["EURUSD"], "still open before exit")
	assert.False(t, l.OpenPairs(at(3))["EURUSD"], "free at the exit bar")
	assert.False(t, l.OpenPairs(at(1))["GBPUSD"])
}

func TestLedger_TradesOrderedByEntry(t *testing.T) {
	l := NewLedger(cfg())
	l.RegisterClose(closed(5, 6, 1))
	l.RegisterClose(closed(1, 9, 2))
	l.RegisterClose(closed(1, 4, 3))

	trades := l.Trades()
	require.Len(t, trades, 3)
	assert.Equal(t, 3.0, trades[0].Pips)
	assert.Equal(t, 2.0, trades[1].Pips)
	assert.Equal(t, 1.0, trades[2].Pips)
	assert.Equal(t, 3, l.Len())
}

func TestLedger_EquityCurve(t *testing.T) {
	l := NewLedger(cfg())
	l.RegisterClose(closed(0, 2, 20))
	l.RegisterClose(closed(3, 4, -10))
	l.RegisterClose(closed(5, 7, 15))

	curve := l.EquityCurve()
	require.Len(t, curve, 3)

	// 0.1 lot at 0.0001 per pip is one unit of currency per pip
	assert.Equal(t, []float64{20, 10, 25}, []float64{curve[0].CumulativePips, curve[1].CumulativePips, curve[2].CumulativePips})
	assert.InDelta(t, 10020, curve[0].Equity, 1e-9)
	assert.InDelta(t, 10025, curve[2].Equity, 1e-9)
	assert.Equal(t, -10.0, curve[1].TradePips)
	assert.Equal(t, at(4), curve[1].Time)
	assert.InDelta(t, 10025, l.FinalEquity(), 1e-9)
}

func TestLedger_Skip(t *testing.T) {
	l := NewLedger(cfg())
	l.Skip(SkipOverlap)
	l.Skip(SkipOverlap)
	l.Skip(SkipNoForwardData)

	assert.Equal(t, SkipCounts{Overlap: 2, NoForwardData: 1}, l.Skipped())
	assert.Equal(t, 3, l.Skipped().Total())
	assert.Zero(t, l.Len())
}
