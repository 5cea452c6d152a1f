package core

import (
	"fmt"
	"math"
	"time"
)

// OHLCV represents a candlestick/bar
type OHLCV struct {
	Symbol   string    `json:"symbol,omitempty"`
	Interval string    `json:"interval,omitempty"` // "1m", "5m", "1h", "1d"
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume,omitempty"`
	Time     time.Time `json:"time"`
}

// Validate checks that all price fields are present and consistently ordered.
func (b OHLCV) Validate() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bar %s: missing or non-finite price", b.Time.Format(time.RFC3339))
		}
	}
	if b.Low > b.Open || b.Low > b.Close || b.High < b.Open || b.High < b.Close {
		return fmt.Errorf("bar %s: low %.5f / high %.5f do not bound open %.5f and close %.5f",
			b.Time.Format(time.RFC3339), b.Low, b.High, b.Open, b.Close)
	}
	return nil
}

// Direction is the side of a proposed trade.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// Signal is a proposed trade entry with predefined target and stop levels.
// Signals are produced by strategies and treated as immutable values.
type Signal struct {
	Pair       string    `json:"pair"`
	Direction  Direction `json:"direction"`
	Strategy   string    `json:"strategy_name"`
	EntryTime  time.Time `json:"entry_time"`
	EntryPrice float64   `json:"entry_price"`
	TakeProfit float64   `json:"tp_price"`
	StopLoss   float64   `json:"sl_price"`
	Confidence float64   `json:"confidence,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// Validate checks the price ordering required for the signal's direction.
func (s Signal) Validate() error {
	if s.Pair == "" {
		return WrapError(ErrInvalidSignal, fmt.Errorf("pair is empty"))
	}
	if !s.Direction.Valid() {
		return WrapError(ErrInvalidSignal, fmt.Errorf("unknown direction %q", s.Direction))
	}
	for _, v := range []float64{s.EntryPrice, s.TakeProfit, s.StopLoss} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return WrapError(ErrInvalidSignal, fmt.Errorf("%s %s at %s: prices must be positive and finite",
				s.Pair, s.Direction, s.EntryTime.Format(time.RFC3339)))
		}
	}

	switch s.Direction {
	case Long:
		if !(s.TakeProfit > s.EntryPrice && s.EntryPrice > s.StopLoss) {
			return WrapError(ErrInvalidSignal, fmt.Errorf("%s LONG at %s: want tp %.5f > entry %.5f > sl %.5f",
				s.Pair, s.EntryTime.Format(time.RFC3339), s.TakeProfit, s.EntryPrice, s.StopLoss))
		}
	case Short:
		if !(s.TakeProfit < s.EntryPrice && s.EntryPrice < s.StopLoss) {
			return WrapError(ErrInvalidSignal, fmt.Errorf("%s SHORT at %s: want tp %.5f < entry %.5f < sl %.5f",
				s.Pair, s.EntryTime.Format(time.RFC3339), s.TakeProfit, s.EntryPrice, s.StopLoss))
		}
	}
	return nil
}
