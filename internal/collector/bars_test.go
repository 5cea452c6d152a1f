package collector

import (
	"math"
	"testing"
	"time"

	"github.com/newthinker/swiftsig/internal/core"
)

var base = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

func bar(offset time.Duration, o, h, l, c, v float64) core.OHLCV {
	return core.OHLCV{Open: o, High: h, Low: l, Close: c, Volume: v, Time: base.Add(offset)}
}

func TestClean(t *testing.T) {
	bars := []core.OHLCV{
		bar(2*time.Hour, 1, 2, 0.5, 1.5, 10),
		bar(0, 1, 2, 0.5, 1.5, 10),
		bar(time.Hour, math.NaN(), 2, 0.5, 1.5, 10),
		bar(2*time.Hour, 1, 3, 0.5, 2.5, 20),
	}

	got := Clean(bars)
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}
	if !got[0].Time.Equal(base) {
		t.Errorf("expected first bar at %v, got %v", base, got[0].Time)
	}
	if got[1].Close != 2.5 {
		t.Errorf("duplicate timestamp should keep the last bar, got close %v", got[1].Close)
	}
}

func TestResample(t *testing.T) {
	bars := []core.OHLCV{
		bar(0, 10, 12, 9, 11, 1),
		bar(time.Hour, 11, 15, 10, 14, 2),
		bar(2*time.Hour, 14, 14, 8, 9, 3),
		bar(3*time.Hour, 9, 10, 9, 10, 4),
		bar(4*time.Hour, 10, 11, 10, 11, 5),
	}

	got := Resample(bars, 4*time.Hour, "4h")
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}
	first := got[0]
	if first.Open != 10 || first.High != 15 || first.Low != 8 || first.Close != 10 || first.Volume != 10 {
		t.Errorf("unexpected aggregate %+v", first)
	}
	if first.Interval != "4h" || !got[1].Time.Equal(base.Add(4*time.Hour)) {
		t.Errorf("unexpected bucket %+v", got[1])
	}
}

func TestParseInterval(t *testing.T) {
	tests := map[string]time.Duration{
		"1m":  time.Minute,
		"15m": 15 * time.Minute,
		"4h":  4 * time.Hour,
		"1d":  24 * time.Hour,
	}
	for in, want := range tests {
		got, err := ParseInterval(in)
		if err != nil || got != want {
			t.Errorf("ParseInterval(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseInterval("fortnight"); err == nil {
		t.Error("expected error for unknown interval")
	}
}
