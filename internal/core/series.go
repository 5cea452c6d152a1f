package core

import (
	"fmt"
	"sort"
	"time"
)

// Series is an ordered, timestamp-indexed sequence of bars for one symbol
// and one timeframe. The engine never mutates it.
type Series struct {
	Symbol   string
	Interval string
	Bars     []OHLCV
}

// NewSeries builds a series from fetched bars.
func NewSeries(symbol, interval string, bars []OHLCV) Series {
	return Series{Symbol: symbol, Interval: interval, Bars: bars}
}

// Len returns the number of bars.
func (s Series) Len() int {
	return len(s.Bars)
}

// First returns the earliest bar. The series must not be empty.
func (s Series) First() OHLCV {
	return s.Bars[0]
}

// Last returns the latest bar. The series must not be empty.
func (s Series) Last() OHLCV {
	return s.Bars[len(s.Bars)-1]
}

// Validate rejects empty series, malformed bars and non-increasing timestamps.
func (s Series) Validate() error {
	if len(s.Bars) == 0 {
		return WrapError(ErrInvalidSeries, fmt.Errorf("%s: series is empty", s.Symbol))
	}
	for i, b := range s.Bars {
		if err := b.Validate(); err != nil {
			return WrapError(ErrInvalidSeries, fmt.Errorf("%s[%d]: %w", s.Symbol, i, err))
		}
		if i > 0 && !b.Time.After(s.Bars[i-1].Time) {
			return WrapError(ErrInvalidSeries, fmt.Errorf("%s[%d]: timestamp %s not after %s",
				s.Symbol, i, b.Time.Format(time.RFC3339), s.Bars[i-1].Time.Format(time.RFC3339)))
		}
	}
	return nil
}

// IndexOf returns the index of the bar opening exactly at t.
// The series must be sorted by time.
func (s Series) IndexOf(t time.Time) (int, bool) {
	i := sort.Search(len(s.Bars), func(i int) bool {
		return !s.Bars[i].Time.Before(t)
	})
	if i < len(s.Bars) && s.Bars[i].Time.Equal(t) {
		return i, true
	}
	return -1, false
}

// Closes extracts closing prices.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts high prices.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts low prices.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}
