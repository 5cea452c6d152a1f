package ma_crossover

import (
	"testing"
	"time"

	"github.com/newthinker/swiftsig/internal/core"
	"github.com/newthinker/swiftsig/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMACrossover_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*MACrossover)(nil)
}

func TestMACrossover_Name(t *testing.T) {
	s := New(5, 10)
	if s.Name() != "ma_crossover" {
		t.Errorf("expected 'ma_crossover', got '%s'", s.Name())
	}
}

// seriesFromCloses builds bars with open == close and a one point range.
func seriesFromCloses(closes []float64) core.Series {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = core.OHLCV{
			Open:  c,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
			Time:  base.Add(time.Duration(i) * time.Hour),
		}
	}
	return core.NewSeries("TEST", "1h", bars)
}

func newSmall(t *testing.T) *MACrossover {
	s := New(2, 4)
	require.NoError(t, s.Init(strategy.Config{Enabled: true, Params: map[string]any{"atr_period": 2}}))
	return s
}

func TestMACrossover_BullishCross(t *testing.T) {
	s := newSmall(t)

	// fast(2) at bar 4 = 82.5 < slow(4) 87.5; at bar 5 fast 100 > slow 93.75
	series := seriesFromCloses([]float64{100, 95, 90, 85, 80, 120, 121})

	signals, err := s.GenerateSignals(series, "TEST")
	require.NoError(t, err)
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, core.Long, sig.Direction)
	assert.Equal(t, series.Bars[5].Time, sig.EntryTime)
	assert.Equal(t, 120.0, sig.EntryPrice)
	// ATR(2) at bar 5 = (6 + 41) / 2 = 23.5
	assert.InDelta(t, 120+3*23.5, sig.TakeProfit, 1e-9)
	assert.InDelta(t, 120-2*23.5, sig.StopLoss, 1e-9)
	assert.Equal(t, "ma_crossover", sig.Strategy)
	assert.NoError(t, sig.Validate())
}

func TestMACrossover_BearishCross(t *testing.T) {
	s := newSmall(t)

	series := seriesFromCloses([]float64{100, 105, 110, 115, 120, 80, 79})

	signals, err := s.GenerateSignals(series, "TEST")
	require.NoError(t, err)
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, core.Short, sig.Direction)
	assert.Equal(t, 80.0, sig.EntryPrice)
	assert.InDelta(t, 80-3*23.5, sig.TakeProfit, 1e-9)
	assert.InDelta(t, 80+2*23.5, sig.StopLoss, 1e-9)
}

func TestMACrossover_NoSignalsDuringWarmUp(t *testing.T) {
	s := newSmall(t)
	series := seriesFromCloses([]float64{100, 95, 90, 85, 80, 120, 121})

	signals, err := s.GenerateSignals(series, "TEST")
	require.NoError(t, err)
	for _, sig := range signals {
		idx, ok := series.IndexOf(sig.EntryTime)
		require.True(t, ok)
		assert.GreaterOrEqual(t, idx, s.WarmUp())
	}
}

func TestMACrossover_NotEnoughData(t *testing.T) {
	s := New(5, 10)
	signals, err := s.GenerateSignals(seriesFromCloses([]float64{1, 2, 3}), "TEST")
	assert.NoError(t, err)
	assert.Empty(t, signals)
}

func TestMACrossover_Init(t *testing.T) {
	s := NewDefault()
	err := s.Init(strategy.Config{Params: map[string]any{
		"fast_period": 10,
		"slow_period": float64(30), // YAML/JSON numbers
		"sl_atr_mult": 1.5,
	}})
	require.NoError(t, err)
	assert.Equal(t, 10, s.fastPeriod)
	assert.Equal(t, 30, s.slowPeriod)
	assert.Equal(t, 1.5, s.exits.StopMult)
	assert.Equal(t, DefaultTPATRMult, s.exits.TargetMult)

	bad := NewDefault()
	assert.Error(t, bad.Init(strategy.Config{Params: map[string]any{"fast_period": 60}}))
	assert.Error(t, NewDefault().Init(strategy.Config{Params: map[string]any{"slow_period": "fifty"}}))
}
