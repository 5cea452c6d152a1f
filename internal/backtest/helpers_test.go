package backtest

import (
	"time"

	"github.com/newthinker/swiftsig/internal/core"
)

var t0 = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func at(i int) time.Time {
	return t0.Add(time.Duration(i) * time.Hour)
}

// flat returns n bars that never move away from price.
func flat(n int, price float64) []core.OHLCV {
	bars := make([]core.OHLCV, n)
	for i := range bars {
		bars[i] = core.OHLCV{Open: price, High: price, Low: price, Close: price, Time: at(i)}
	}
	return bars
}

// withRange overrides the low and high of bar i and keeps open/close inside it.
func withRange(bars []core.OHLCV, i int, low, high float64) []core.OHLCV {
	mid := (low + high) / 2
	bars[i].Low, bars[i].High = low, high
	bars[i].Open, bars[i].Close = mid, mid
	return bars
}

func series(bars []core.OHLCV) core.Series {
	return core.NewSeries("EURUSD", "1h", bars)
}

func longAt(i int, entry, tp, sl float64) core.Signal {
	return core.Signal{Pair: "EURUSD", Direction: core.Long, Strategy: "test",
		EntryTime: at(i), EntryPrice: entry, TakeProfit: tp, StopLoss: sl}
}

func shortAt(i int, entry, tp, sl float64) core.Signal {
	return core.Signal{Pair: "EURUSD", Direction: core.Short, Strategy: "test",
		EntryTime: at(i), EntryPrice: entry, TakeProfit: tp, StopLoss: sl}
}

func cfg() RunConfig {
	return RunConfig{Strategy: "test", InitialCapital: 10000, PipValue: 0.0001, LotSize: 0.1}
}
