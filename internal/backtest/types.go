package backtest

import (
	"encoding/json"
	"math"
	"time"

	"github.com/newthinker/swiftsig/internal/core"
)

// ContractSize is the number of units in one standard lot.
const ContractSize = 100000

// breakEvenPips is the band around zero inside which an END_OF_DATA trade
// is reported as break-even.
const breakEvenPips = 1.0

// ExitReason tells why a trade was closed.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitEndOfData  ExitReason = "END_OF_DATA"
)

// Outcome is the reporting classification of a trade.
type Outcome string

const (
	OutcomeWin       Outcome = "WIN"
	OutcomeLoss      Outcome = "LOSS"
	OutcomeBreakEven Outcome = "BREAK_EVEN"
)

// SkipReason tells why a signal did not become a trade.
type SkipReason string

const (
	// SkipOverlap: the pair already had an open trade at the signal's entry time.
	SkipOverlap SkipReason = "overlap"
	// SkipNoForwardData: the entry bar is the last bar, so no exit can follow it.
	SkipNoForwardData SkipReason = "no_forward_data"
)

// Trade is the resolved outcome of a signal.
type Trade struct {
	Signal     core.Signal `json:"signal"`
	ExitTime   time.Time   `json:"exit_time"`
	ExitPrice  float64     `json:"exit_price"`
	ExitReason ExitReason  `json:"exit_reason"`
	Pips       float64     `json:"pips"`
	IsWin      bool        `json:"is_win"`
}

// Outcome classifies the trade for reports. Trades still running at the end
// of the data that moved less than a pip are break-even.
func (t Trade) Outcome() Outcome {
	if t.ExitReason == ExitEndOfData && math.Abs(t.Pips) < breakEvenPips {
		return OutcomeBreakEven
	}
	if t.IsWin {
		return OutcomeWin
	}
	return OutcomeLoss
}

// EquityPoint samples the running balance at a trade's exit.
type EquityPoint struct {
	Time           time.Time `json:"time"`
	CumulativePips float64   `json:"cumulative_pips"`
	Equity         float64   `json:"equity"`
	TradePips      float64   `json:"trade_pips"`
}

// Metrics holds aggregate performance statistics. Pips are the primary unit.
type Metrics struct {
	TotalTrades int     `json:"total_trades"`
	Wins        int     `json:"total_wins"`
	Losses      int     `json:"total_losses"`
	BreakEven   int     `json:"total_break_even"`
	EndOfData   int     `json:"total_end_of_data"`
	WinRate     float64 `json:"win_rate"` // fraction in [0, 1]

	TotalPips       float64 `json:"total_pips"`
	AvgWinPips      float64 `json:"avg_winning_pips"`
	AvgLossPips     float64 `json:"avg_losing_pips"`
	LargestWinPips  float64 `json:"largest_win_pips"`
	LargestLossPips float64 `json:"largest_loss_pips"`

	// ProfitFactor is +Inf when there are wins and no losses.
	ProfitFactor    float64 `json:"profit_factor"`
	MaxDrawdownPips float64 `json:"max_drawdown_pips"`
	SharpeRatio     float64 `json:"sharpe_ratio"`
	TotalReturnPct  float64 `json:"total_return_pct"`
}

// ProfitFactorInfinite reports whether there were wins but no losing pips.
func (m Metrics) ProfitFactorInfinite() bool {
	return math.IsInf(m.ProfitFactor, 1)
}

// MarshalJSON writes an infinite profit factor as the string "inf".
func (m Metrics) MarshalJSON() ([]byte, error) {
	type plain Metrics
	out := struct {
		plain
		ProfitFactor any `json:"profit_factor"`
	}{plain: plain(m), ProfitFactor: m.ProfitFactor}
	if m.ProfitFactorInfinite() {
		out.ProfitFactor = "inf"
	}
	return json.Marshal(out)
}

// Period describes the replayed price range.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Bars  int       `json:"bars"`
}

// SkipCounts tallies signals that did not become trades.
type SkipCounts struct {
	Overlap       int `json:"overlap"`
	NoForwardData int `json:"no_forward_data"`
}

// Total returns the number of skipped signals.
func (s SkipCounts) Total() int {
	return s.Overlap + s.NoForwardData
}

// Result is the complete output of one run. It is built once and not
// modified afterwards; exporters depend on its field names.
type Result struct {
	Pair           string        `json:"pair"`
	Strategy       string        `json:"strategy"`
	Interval       string        `json:"interval,omitempty"`
	Period         Period        `json:"period"`
	InitialCapital float64       `json:"initial_capital"`
	PipValue       float64       `json:"pip_value"`
	LotSize        float64       `json:"lot_size"`
	Signals        int           `json:"signals"`
	Trades         []Trade       `json:"trades"`
	Metrics        Metrics       `json:"metrics"`
	EquityCurve    []EquityPoint `json:"equity_curve"`
	Skipped        SkipCounts    `json:"skipped"`
	FinalEquity    float64       `json:"final_equity"`
}

// RunConfig carries the per-run parameters. Each run gets its own value.
type RunConfig struct {
	Strategy       string
	InitialCapital float64
	PipValue       float64
	LotSize        float64 // defaults to 1 standard lot
}
