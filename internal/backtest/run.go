package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/newthinker/swiftsig/internal/core"
)

// Run replays series against signals and returns the resolved trades with
// their metrics. Inputs are validated up front: any malformed bar, invalid
// signal or bad configuration aborts the run with an input error and no
// partial result. Overlapping signals are skipped and counted instead.
//
// Run has no hidden state and never mutates series or signals.
func Run(series core.Series, signals []core.Signal, cfg RunConfig) (*Result, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	if err := validateSignals(series, signals); err != nil {
		return nil, err
	}

	ordered := make([]core.Signal, len(signals))
	copy(ordered, signals)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EntryTime.Before(ordered[j].EntryTime)
	})

	sim := NewSimulator(cfg.PipValue)
	ledger := NewLedger(cfg)

	for _, sig := range ordered {
		trade, skip := sim.Resolve(series, sig, ledger.OpenPairs(sig.EntryTime))
		if skip != "" {
			ledger.Skip(skip)
			continue
		}
		ledger.RegisterOpen(sig)
		ledger.RegisterClose(trade)
	}

	trades := ledger.Trades()
	curve := ledger.EquityCurve()

	return &Result{
		Pair:     resultPair(series, ordered),
		Strategy: resultStrategy(cfg, ordered),
		Interval: series.Interval,
		Period: Period{
			Start: series.First().Time,
			End:   series.Last().Time,
			Bars:  series.Len(),
		},
		InitialCapital: cfg.InitialCapital,
		PipValue:       cfg.PipValue,
		LotSize:        cfg.LotSize,
		Signals:        len(signals),
		Trades:         trades,
		Metrics:        CalculateMetrics(trades, curve, cfg.InitialCapital),
		EquityCurve:    curve,
		Skipped:        ledger.Skipped(),
		FinalEquity:    ledger.FinalEquity(),
	}, nil
}

func (c RunConfig) normalize() (RunConfig, error) {
	if c.LotSize == 0 {
		c.LotSize = 1
	}
	switch {
	case math.IsNaN(c.PipValue) || math.IsInf(c.PipValue, 0) || c.PipValue <= 0:
		return c, core.WrapError(core.ErrInvalidRunConfig, fmt.Errorf("pip value must be positive, got %v", c.PipValue))
	case math.IsNaN(c.InitialCapital) || c.InitialCapital < 0:
		return c, core.WrapError(core.ErrInvalidRunConfig, fmt.Errorf("initial capital cannot be negative, got %v", c.InitialCapital))
	case c.LotSize < 0:
		return c, core.WrapError(core.ErrInvalidRunConfig, fmt.Errorf("lot size cannot be negative, got %v", c.LotSize))
	}
	return c, nil
}

// validateSignals checks every signal's invariants and that its entry time
// is one of the series' bars.
func validateSignals(series core.Series, signals []core.Signal) error {
	for i, sig := range signals {
		if err := sig.Validate(); err != nil {
			return fmt.Errorf("signal %d: %w", i, err)
		}
		if _, ok := series.IndexOf(sig.EntryTime); !ok {
			return core.WrapError(core.ErrInvalidSignal, fmt.Errorf("signal %d: entry time %s is not a bar of %s",
				i, sig.EntryTime.Format(time.RFC3339), series.Symbol))
		}
	}
	return nil
}

func resultPair(series core.Series, signals []core.Signal) string {
	if series.Symbol != "" || len(signals) == 0 {
		return series.Symbol
	}
	return signals[0].Pair
}

func resultStrategy(cfg RunConfig, signals []core.Signal) string {
	if cfg.Strategy != "" || len(signals) == 0 {
		return cfg.Strategy
	}
	return signals[0].Strategy
}
