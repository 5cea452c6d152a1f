package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/swiftsig/internal/collector"
	"github.com/newthinker/swiftsig/internal/core"
	"github.com/newthinker/swiftsig/internal/storage/archive"
)

type countingSource struct {
	bars  []core.OHLCV
	err   error
	calls int
}

func (s *countingSource) Name() string                    { return "fake" }
func (s *countingSource) Init(cfg collector.Config) error { return nil }
func (s *countingSource) FetchHistory(symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	s.calls++
	return s.bars, s.err
}

var start = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

func sourceBars() []core.OHLCV {
	return []core.OHLCV{
		{Symbol: "EURUSD", Interval: "1h", Open: 1.08, High: 1.09, Low: 1.07, Close: 1.085, Volume: 3, Time: start},
		{Symbol: "EURUSD", Interval: "1h", Open: 1.085, High: 1.086, Low: 1.08, Close: 1.081, Time: start.Add(time.Hour)},
	}
}

func TestCache_StoresThenServes(t *testing.T) {
	store, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	src := &countingSource{bars: sourceBars()}
	c := New(src, store)

	end := start.Add(2 * time.Hour)
	first, err := c.FetchHistory("EURUSD", start, end, "1h")
	require.NoError(t, err)
	second, err := c.FetchHistory("EURUSD", start, end, "1h")
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, first, second)

	exists, err := store.Exists(context.Background(), "prices/fake/EURUSD_1h_20240201_20240201.csv")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCache_DifferentRangeMisses(t *testing.T) {
	store, _ := archive.NewLocalFS(t.TempDir())
	src := &countingSource{bars: sourceBars()}
	c := New(src, store, WithPrefix("cache/"))

	_, err := c.FetchHistory("EURUSD", start, start.Add(24*time.Hour), "1h")
	require.NoError(t, err)
	_, err = c.FetchHistory("EURUSD", start, start.Add(48*time.Hour), "1h")
	require.NoError(t, err)

	assert.Equal(t, 2, src.calls)
	assert.Equal(t, "cache/fake/EURUSD_4h_20240201_20240202.csv",
		c.Key("EURUSD=X", start, start.Add(24*time.Hour), "4h"))
}

func TestCache_SameDayReused(t *testing.T) {
	store, _ := archive.NewLocalFS(t.TempDir())
	src := &countingSource{bars: sourceBars()}
	c := New(src, store)

	// runs without explicit dates end at "now"
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := c.FetchHistory("EURUSD", now.AddDate(0, 0, -30), now, "1h")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	bars, err := c.FetchHistory("EURUSD", now.AddDate(0, 0, -30), now, "1h")
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Len(t, bars, 2)
}

func TestCache_Clear(t *testing.T) {
	store, _ := archive.NewLocalFS(t.TempDir())
	src := &countingSource{bars: sourceBars()}
	c := New(src, store)
	ctx := context.Background()

	for _, pair := range []string{"EURUSD", "EURGBP", "GBPUSD"} {
		_, err := c.FetchHistory(pair, start, start.Add(2*time.Hour), "1h")
		require.NoError(t, err)
	}
	require.NoError(t, store.Write(ctx, "backtests/EURUSD_results.json", []byte("{}")))

	removed, err := c.Clear(ctx, "EURUSD=X")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = c.FetchHistory("EURUSD", start, start.Add(2*time.Hour), "1h")
	require.NoError(t, err)
	assert.Equal(t, 4, src.calls, "cleared entry is fetched again")

	removed, err = c.Clear(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	left, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"backtests/EURUSD_results.json"}, left)
}

func TestCache_SourceErrorNotCached(t *testing.T) {
	store, _ := archive.NewLocalFS(t.TempDir())
	src := &countingSource{err: errors.New("rate limited")}
	c := New(src, store)

	_, err := c.FetchHistory("EURUSD", start, start.Add(time.Hour), "1h")
	assert.Error(t, err)

	paths, _ := store.List(context.Background(), "prices")
	assert.Empty(t, paths)
}

func TestCache_CorruptEntryRefetched(t *testing.T) {
	store, _ := archive.NewLocalFS(t.TempDir())
	src := &countingSource{bars: sourceBars()}
	c := New(src, store)

	end := start.Add(2 * time.Hour)
	require.NoError(t, store.Write(context.Background(), c.Key("EURUSD", start, end, "1h"), []byte("garbage")))

	bars, err := c.FetchHistory("EURUSD", start, end, "1h")
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.Equal(t, 1, src.calls)
}
