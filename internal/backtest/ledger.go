package backtest

import (
	"sort"
	"time"

	"github.com/newthinker/swiftsig/internal/core"
)

// Ledger collects the trades of one run and tracks which pairs hold an open
// position. It is owned by a single run and not safe for concurrent use.
type Ledger struct {
	initialCapital float64
	pipValue       float64
	lotSize        float64

	trades    []Trade
	pending   map[string]core.Signal
	openUntil map[string]time.Time
	skipped   SkipCounts
}

// NewLedger creates an empty ledger for the given run parameters.
func NewLedger(cfg RunConfig) *Ledger {
	return &Ledger{
		initialCapital: cfg.InitialCapital,
		pipValue:       cfg.PipValue,
		lotSize:        cfg.LotSize,
		pending:        make(map[string]core.Signal),
		openUntil:      make(map[string]time.Time),
	}
}

// OpenPairs returns the pairs with a position still open at the given time.
// Positions occupy [entry, exit): a signal entering exactly at the previous
// exit does not overlap.
func (l *Ledger) OpenPairs(at time.Time) map[string]bool {
	pairs := make(map[string]bool, len(l.pending)+len(l.openUntil))
	for pair := range l.pending {
		pairs[pair] = true
	}
	for pair, until := range l.openUntil {
		if at.Before(until) {
			pairs[pair] = true
		}
	}
	return pairs
}

// RegisterOpen marks the signal's pair as holding a position.
func (l *Ledger) RegisterOpen(sig core.Signal) {
	l.pending[sig.Pair] = sig
}

// RegisterClose books a resolved trade and releases its pair at the exit time.
func (l *Ledger) RegisterClose(t Trade) {
	pair := t.Signal.Pair
	delete(l.pending, pair)
	if until, ok := l.openUntil[pair]; !ok || t.ExitTime.After(until) {
		l.openUntil[pair] = t.ExitTime
	}
	l.trades = append(l.trades, t)
}

// Skip counts a signal that did not become a trade.
func (l *Ledger) Skip(reason SkipReason) {
	switch reason {
	case SkipOverlap:
		l.skipped.Overlap++
	case SkipNoForwardData:
		l.skipped.NoForwardData++
	}
}

// Skipped returns the skip tally.
func (l *Ledger) Skipped() SkipCounts {
	return l.skipped
}

// Len returns the number of booked trades.
func (l *Ledger) Len() int {
	return len(l.trades)
}

// Trades returns the booked trades ordered by entry time, then exit time.
func (l *Ledger) Trades() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Signal.EntryTime.Equal(b.Signal.EntryTime) {
			return a.Signal.EntryTime.Before(b.Signal.EntryTime)
		}
		return a.ExitTime.Before(b.ExitTime)
	})
	return out
}

// EquityCurve accumulates pips in resolution order, one point per trade exit.
func (l *Ledger) EquityCurve() []EquityPoint {
	resolved := make([]Trade, len(l.trades))
	copy(resolved, l.trades)
	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].ExitTime.Before(resolved[j].ExitTime)
	})

	curve := make([]EquityPoint, 0, len(resolved))
	var cumulative float64
	for _, t := range resolved {
		cumulative += t.Pips
		curve = append(curve, EquityPoint{
			Time:           t.ExitTime,
			CumulativePips: cumulative,
			Equity:         l.equityAt(cumulative),
			TradePips:      t.Pips,
		})
	}
	return curve
}

// FinalEquity returns the account balance after every booked trade.
func (l *Ledger) FinalEquity() float64 {
	var total float64
	for _, t := range l.trades {
		total += t.Pips
	}
	return l.equityAt(total)
}

// InitialCapital returns the starting balance.
func (l *Ledger) InitialCapital() float64 {
	return l.initialCapital
}

func (l *Ledger) equityAt(pips float64) float64 {
	return l.initialCapital + pips*l.pipValue*l.lotSize*ContractSize
}
