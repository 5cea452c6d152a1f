package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/swiftsig/internal/backtest"
	"github.com/newthinker/swiftsig/internal/collector"
	"github.com/newthinker/swiftsig/internal/config"
	"github.com/newthinker/swiftsig/internal/storage/archive"
)

func TestResolvePair(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		forex  bool
		crypto bool
		want   string
		class  collector.AssetClass
		err    bool
	}{
		{"bare", []string{"eurusd"}, false, false, "EURUSD", collector.AssetAuto, false},
		{"forex words", []string{"EUR USD"}, true, false, "EURUSD", collector.AssetForex, false},
		{"forex args", []string{"gbp", "jpy"}, true, false, "GBPJPY", collector.AssetForex, false},
		{"forex wrong length", []string{"EURO"}, true, false, "", "", true},
		{"crypto base", []string{"btc"}, false, true, "BTC", collector.AssetCrypto, false},
		{"crypto with quote", []string{"ETH USDT"}, false, true, "ETHUSDT", collector.AssetCrypto, false},
		{"too many words", []string{"A B C"}, false, false, "", "", true},
		{"invalid characters", []string{"EUR$"}, false, false, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, class, err := resolvePair(tt.args, tt.forex, tt.crypto)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, pair)
			assert.Equal(t, tt.class, class)
		})
	}
}

func TestRunFlags_DateRange(t *testing.T) {
	cfg := config.Defaults()
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

	start, end, err := (&runFlags{}).dateRange(cfg, now)
	require.NoError(t, err)
	assert.Equal(t, now, end)
	assert.Equal(t, now.AddDate(0, 0, -cfg.Backtest.DaysBack), start)

	start, _, err = (&runFlags{days: 7}).dateRange(cfg, now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -7), start)

	start, end, err = (&runFlags{start: "2024-01-01", end: "2024-02-01"}).dateRange(cfg, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), end)

	_, _, err = (&runFlags{start: "2024-03-01", end: "2024-02-01"}).dateRange(cfg, now)
	assert.Error(t, err)

	_, _, err = (&runFlags{start: "01/03/2024"}).dateRange(cfg, now)
	assert.Error(t, err)
}

func TestPrintBatchTable(t *testing.T) {
	var buf bytes.Buffer
	printBatchTable(&buf, []backtest.BatchResult{
		{Result: &backtest.Result{Pair: "EURUSD", Metrics: backtest.Metrics{TotalTrades: 4, WinRate: 0.5, TotalPips: 35}}},
		{Result: &backtest.Result{Pair: "USDJPY", Metrics: backtest.Metrics{TotalTrades: 1, WinRate: 1, TotalPips: 12.5}}},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "WIN RATE")
	assert.Contains(t, lines[1], "50.0%")
	assert.Contains(t, lines[2], "USDJPY")
}

func TestPrintBatchTable_Failures(t *testing.T) {
	var buf bytes.Buffer
	printBatchTable(&buf, []backtest.BatchResult{
		{Result: &backtest.Result{Pair: "EURUSD", Metrics: backtest.Metrics{TotalTrades: 2, WinRate: 0.5}}},
		{Job: backtest.Job{Request: backtest.Request{Pair: "XXXYYY"}}, Err: errors.New("XXXYYY/ma_crossover: symbol not found")},
	})

	out := buf.String()
	assert.Contains(t, out, "EURUSD")
	assert.Regexp(t, `XXXYYY\s+-`, out)
	assert.Contains(t, out, "1 of 2 runs failed:")
	assert.Contains(t, out, "XXXYYY/ma_crossover: symbol not found")
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "SwiftSig dev")
}

func TestCacheClearCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SWIFTSIG_STORAGE_PATH", dir)
	store, err := archive.NewLocalFS(dir)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, "prices/yahoo/EURUSD_1h_20240101_20240201.csv", []byte("x")))
	require.NoError(t, store.Write(ctx, "prices/yahoo/GBPUSD_1h_20240101_20240201.csv", []byte("x")))

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"cache", "clear", "eurusd"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "Removed 1 cached price range(s) for EURUSD")

	left, err := store.List(ctx, "prices")
	require.NoError(t, err)
	assert.Equal(t, []string{"prices/yahoo/GBPUSD_1h_20240101_20240201.csv"}, left)
}
