package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestDirection_Valid(t *testing.T) {
	if !Long.Valid() || !Short.Valid() {
		t.Error("LONG and SHORT should be valid")
	}
	if Direction("FLAT").Valid() {
		t.Error("unknown direction should be invalid")
	}
}

func TestOHLCV_Validate(t *testing.T) {
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		bar     OHLCV
		wantErr bool
	}{
		{"valid", OHLCV{Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15, Time: now}, false},
		{"flat bar", OHLCV{Open: 1.1, High: 1.1, Low: 1.1, Close: 1.1, Time: now}, false},
		{"low above open", OHLCV{Open: 1.1, High: 1.2, Low: 1.12, Close: 1.15, Time: now}, true},
		{"high below close", OHLCV{Open: 1.1, High: 1.14, Low: 1.0, Close: 1.15, Time: now}, true},
		{"missing close", OHLCV{Open: 1.1, High: 1.2, Low: 1.0, Close: math.NaN(), Time: now}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bar.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSignal_Validate(t *testing.T) {
	at := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		sig     Signal
		wantErr bool
	}{
		{"long ok", Signal{Pair: "EURUSD=X", Direction: Long, EntryTime: at, EntryPrice: 1.1, TakeProfit: 1.103, StopLoss: 1.0985}, false},
		{"short ok", Signal{Pair: "EURUSD=X", Direction: Short, EntryTime: at, EntryPrice: 1.1, TakeProfit: 1.097, StopLoss: 1.1015}, false},
		{"long tp below entry", Signal{Pair: "EURUSD=X", Direction: Long, EntryPrice: 1.1, TakeProfit: 1.09, StopLoss: 1.08}, true},
		{"long sl above entry", Signal{Pair: "EURUSD=X", Direction: Long, EntryPrice: 1.1, TakeProfit: 1.12, StopLoss: 1.11}, true},
		{"short inverted", Signal{Pair: "EURUSD=X", Direction: Short, EntryPrice: 1.1, TakeProfit: 1.12, StopLoss: 1.09}, true},
		{"no pair", Signal{Direction: Long, EntryPrice: 1.1, TakeProfit: 1.12, StopLoss: 1.09}, true},
		{"bad direction", Signal{Pair: "X", Direction: "UP", EntryPrice: 1.1, TakeProfit: 1.12, StopLoss: 1.09}, true},
		{"zero price", Signal{Pair: "X", Direction: Long, EntryPrice: 0, TakeProfit: 1.12, StopLoss: 1.09}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sig.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSignal) {
				t.Errorf("expected INVALID_SIGNAL, got %v", err)
			}
		})
	}
}

func TestSeries_Validate(t *testing.T) {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bar := func(h int) OHLCV {
		return OHLCV{Open: 1.1, High: 1.2, Low: 1.0, Close: 1.1, Time: base.Add(time.Duration(h) * time.Hour)}
	}

	if err := NewSeries("X", "1h", nil).Validate(); !errors.Is(err, ErrInvalidSeries) {
		t.Errorf("empty series: got %v", err)
	}
	if err := NewSeries("X", "1h", []OHLCV{bar(0), bar(1), bar(2)}).Validate(); err != nil {
		t.Errorf("valid series: got %v", err)
	}
	if err := NewSeries("X", "1h", []OHLCV{bar(0), bar(2), bar(1)}).Validate(); !errors.Is(err, ErrInvalidSeries) {
		t.Errorf("out of order: got %v", err)
	}
	if err := NewSeries("X", "1h", []OHLCV{bar(0), bar(0)}).Validate(); !errors.Is(err, ErrInvalidSeries) {
		t.Errorf("duplicate timestamp: got %v", err)
	}
}

func TestSeries_IndexOf(t *testing.T) {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	var bars []OHLCV
	for i := 0; i < 5; i++ {
		bars = append(bars, OHLCV{Open: 1, High: 1, Low: 1, Close: 1, Time: base.Add(time.Duration(i) * time.Hour)})
	}
	s := NewSeries("X", "1h", bars)

	if i, ok := s.IndexOf(base.Add(3 * time.Hour)); !ok || i != 3 {
		t.Errorf("IndexOf = (%d, %v), want (3, true)", i, ok)
	}
	if _, ok := s.IndexOf(base.Add(90 * time.Minute)); ok {
		t.Error("expected no match between bars")
	}
	if _, ok := s.IndexOf(base.Add(10 * time.Hour)); ok {
		t.Error("expected no match past the end")
	}
}
