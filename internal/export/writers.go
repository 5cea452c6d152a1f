package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/swiftsig/internal/backtest"
)

var tradeHeader = []string{
	"pair", "entry_time", "exit_time", "direction", "strategy_name",
	"entry_price", "tp_price", "sl_price", "exit_price", "status", "outcome", "pips",
}

// tradeRow is the flat form of a trade shared by the CSV and JSON exports.
type tradeRow struct {
	Pair       string    `json:"pair"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	Direction  string    `json:"direction"`
	Strategy   string    `json:"strategy_name"`
	EntryPrice float64   `json:"entry_price"`
	TakeProfit float64   `json:"tp_price"`
	StopLoss   float64   `json:"sl_price"`
	ExitPrice  float64   `json:"exit_price"`
	Status     string    `json:"status"`
	Outcome    string    `json:"outcome"`
	Pips       float64   `json:"pips"`
}

func rows(trades []backtest.Trade) []tradeRow {
	out := make([]tradeRow, 0, len(trades))
	for _, t := range trades {
		out = append(out, tradeRow{
			Pair:       t.Signal.Pair,
			EntryTime:  t.Signal.EntryTime.UTC(),
			ExitTime:   t.ExitTime.UTC(),
			Direction:  string(t.Signal.Direction),
			Strategy:   t.Signal.Strategy,
			EntryPrice: t.Signal.EntryPrice,
			TakeProfit: t.Signal.TakeProfit,
			StopLoss:   t.Signal.StopLoss,
			ExitPrice:  t.ExitPrice,
			Status:     string(t.ExitReason),
			Outcome:    string(t.Outcome()),
			Pips:       roundPips(t.Pips),
		})
	}
	return out
}

// TradesCSV renders one row per trade in entry order.
func TradesCSV(res *backtest.Result) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(tradeHeader); err != nil {
		return nil, err
	}

	for _, r := range rows(res.Trades) {
		rec := []string{
			r.Pair,
			r.EntryTime.Format(time.RFC3339),
			r.ExitTime.Format(time.RFC3339),
			r.Direction,
			r.Strategy,
			formatFloat(r.EntryPrice),
			formatFloat(r.TakeProfit),
			formatFloat(r.StopLoss),
			formatFloat(r.ExitPrice),
			r.Status,
			r.Outcome,
			formatFloat(r.Pips),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// EquityCSV renders the equity curve, one row per trade exit.
func EquityCSV(res *backtest.Result) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"time", "cumulative_pips", "equity", "trade_pips"}); err != nil {
		return nil, err
	}
	for _, p := range res.EquityCurve {
		rec := []string{
			p.Time.UTC().Format(time.RFC3339),
			formatFloat(roundPips(p.CumulativePips)),
			decimal.NewFromFloat(p.Equity).StringFixed(2),
			formatFloat(roundPips(p.TradePips)),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

type resultDocument struct {
	Pair           string                 `json:"pair"`
	Strategy       string                 `json:"strategy"`
	Interval       string                 `json:"interval,omitempty"`
	Period         backtest.Period        `json:"period"`
	InitialCapital float64                `json:"initial_capital"`
	FinalEquity    float64                `json:"final_equity"`
	PipValue       float64                `json:"pip_value"`
	LotSize        float64                `json:"lot_size"`
	Signals        int                    `json:"signals"`
	Skipped        backtest.SkipCounts    `json:"skipped"`
	Metrics        backtest.Metrics       `json:"metrics"`
	Trades         []tradeRow             `json:"trades"`
	EquityCurve    []backtest.EquityPoint `json:"equity_curve"`
}

// ResultJSON renders the full result as indented JSON. An infinite profit
// factor is written as "inf".
func ResultJSON(res *backtest.Result) ([]byte, error) {
	doc := resultDocument{
		Pair:           res.Pair,
		Strategy:       res.Strategy,
		Interval:       res.Interval,
		Period:         res.Period,
		InitialCapital: res.InitialCapital,
		FinalEquity:    res.FinalEquity,
		PipValue:       res.PipValue,
		LotSize:        res.LotSize,
		Signals:        res.Signals,
		Skipped:        res.Skipped,
		Metrics:        res.Metrics,
		Trades:         rows(res.Trades),
		EquityCurve:    res.EquityCurve,
	}
	if doc.EquityCurve == nil {
		doc.EquityCurve = []backtest.EquityPoint{}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// roundPips rounds to hundredths of a pip.
func roundPips(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
