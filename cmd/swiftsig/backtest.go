package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/swiftsig/internal/app"
	"github.com/newthinker/swiftsig/internal/backtest"
	"github.com/newthinker/swiftsig/internal/collector"
	"github.com/newthinker/swiftsig/internal/collector/csvfile"
	"github.com/newthinker/swiftsig/internal/config"
	"github.com/newthinker/swiftsig/internal/export"
	"github.com/newthinker/swiftsig/internal/notifier"
)

// runFlags are shared by backtest and batch.
type runFlags struct {
	strategy  string
	timeframe string
	days      int
	start     string
	end       string
	capital   float64
	lot       float64
	csvFile   string
	noExport  bool
	format    string
	out       string
}

var (
	backtestFlags runFlags
	forexPair     bool
	cryptoPair    bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest PAIR",
	Short: "Run a strategy against historical data for one pair",
	Long: `Run a strategy against historical data and show performance statistics.

PAIR may be written EURUSD, "EUR USD", BTC or "BTC USDT". Six-letter pairs of
known currencies are treated as forex; use --forex or --crypto to force it.`,
	Example: `  swiftsig backtest EURUSD --timeframe 1h --days 60
  swiftsig backtest BTC --crypto --strategy ema_atr --format json
  swiftsig backtest GBPUSD --csv data/GBPUSD_1h.csv --no-export`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBacktest,
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "strategy to use (default from config: ma_crossover)")
	cmd.Flags().StringVar(&f.timeframe, "timeframe", "", "bar interval: 1m, 5m, 15m, 1h, 4h or 1d (default from config: 1h)")
	cmd.Flags().IntVar(&f.days, "days", 0, "days of history when --start is not given (default from config: 30)")
	cmd.Flags().StringVar(&f.start, "start", "", "start date YYYY-MM-DD")
	cmd.Flags().StringVar(&f.end, "end", "", "end date YYYY-MM-DD (default today)")
	cmd.Flags().Float64Var(&f.capital, "capital", -1, "initial capital (default from config: 10000)")
	cmd.Flags().Float64Var(&f.lot, "lot", 0, "lot size in standard lots (default from config: 1)")
	cmd.Flags().StringVar(&f.csvFile, "csv", "", "read bars from this CSV file instead of the data provider")
	cmd.Flags().BoolVar(&f.noExport, "no-export", false, "don't export results to files")
	cmd.Flags().StringVar(&f.format, "format", "", "export format: csv, json or both (default from config: both)")
	cmd.Flags().StringVar(&f.out, "out", "", "output directory or key prefix for exported results")
}

func init() {
	backtestFlags.register(backtestCmd)
	backtestCmd.Flags().BoolVar(&forexPair, "forex", false, "treat PAIR as forex (EUR USD becomes EURUSD=X)")
	backtestCmd.Flags().BoolVar(&cryptoPair, "crypto", false, "treat PAIR as crypto (BTC becomes BTC-USD)")
	backtestCmd.MarkFlagsMutuallyExclusive("forex", "crypto")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	pair, class, err := resolvePair(args, forexPair, cryptoPair)
	if err != nil {
		return err
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if class != collector.AssetAuto {
		yc := cfg.Collectors["yahoo"]
		yc.AssetClass = string(class)
		if cfg.Collectors == nil {
			cfg.Collectors = map[string]config.CollectorConfig{}
		}
		cfg.Collectors["yahoo"] = yc
	}

	a, strategyName, err := backtestFlags.build(cfg, log)
	if err != nil {
		return err
	}
	start, end, err := backtestFlags.dateRange(cfg, time.Now().UTC())
	if err != nil {
		return err
	}
	req := backtestFlags.request(a, pair, start, end)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s\nSwiftSig Backtesting Platform\n%s\n\n", strings.Repeat("=", 60), strings.Repeat("=", 60))
	fmt.Fprintf(out, "Loading %s %s bars from %s to %s...\n", pair, req.Interval,
		start.Format(time.DateOnly), end.Format(time.DateOnly))
	fmt.Fprintf(out, "Strategy: %s\n", strategyName)

	res, err := a.Backtest(ctx, strategyName, req)
	if err != nil {
		return err
	}
	export.PrintSummary(out, res)

	files, err := backtestFlags.export(ctx, out, a, cfg, log, res)
	if err != nil {
		return err
	}
	a.Notify(ctx, notifier.NewReport(res, files))
	return nil
}

// build creates the app, honoring --csv and --out.
func (f *runFlags) build(cfg *config.Config, log *zap.Logger) (*app.App, string, error) {
	if f.out != "" {
		cfg.Backtest.OutputPrefix = f.out
	}

	var opts []app.Option
	if f.csvFile != "" {
		opts = append(opts, app.WithSource(csvfile.NewFile(f.csvFile)))
	}
	a, err := app.New(cfg, log, opts...)
	if err != nil {
		return nil, "", err
	}

	name := f.strategy
	if name == "" {
		name = cfg.Backtest.Strategy
	}
	return a, name, nil
}

// dateRange resolves --start/--end/--days into [start, end).
func (f *runFlags) dateRange(cfg *config.Config, now time.Time) (time.Time, time.Time, error) {
	end := now
	if f.end != "" {
		t, err := time.Parse(time.DateOnly, f.end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date format (expected YYYY-MM-DD): %w", err)
		}
		end = t
	}

	if f.start != "" {
		start, err := time.Parse(time.DateOnly, f.start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date format (expected YYYY-MM-DD): %w", err)
		}
		if !start.Before(end) {
			return time.Time{}, time.Time{}, fmt.Errorf("end date must be after start date")
		}
		return start, end, nil
	}

	days := f.days
	if days <= 0 {
		days = cfg.Backtest.DaysBack
	}
	return end.AddDate(0, 0, -days), end, nil
}

// request applies the per-run flag overrides on top of the config defaults.
func (f *runFlags) request(a *app.App, pair string, start, end time.Time) backtest.Request {
	req := a.Request(pair, start, end)
	if f.timeframe != "" {
		req.Interval = f.timeframe
	}
	if f.capital >= 0 {
		req.InitialCapital = f.capital
	}
	if f.lot > 0 {
		req.LotSize = f.lot
	}
	return req
}

// export writes res unless --no-export is set and returns the written URIs.
func (f *runFlags) export(ctx context.Context, out io.Writer, a *app.App, cfg *config.Config, log *zap.Logger, res *backtest.Result) (map[string]string, error) {
	if f.noExport {
		return nil, nil
	}
	name := f.format
	if name == "" {
		name = cfg.Backtest.ExportFormat
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return nil, err
	}

	files, err := a.Export(ctx, res, format)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(out, "Results saved:")
	for _, key := range []string{export.KeyTradesCSV, export.KeyEquityCSV, export.KeyResultsJSON} {
		if uri, ok := files[key]; ok {
			fmt.Fprintf(out, "  - %s: %s\n", key, uri)
		}
	}
	log.Debug("export finished", zap.Int("files", len(files)))
	return files, nil
}

// resolvePair joins the PAIR words and works out the asset class the flags
// ask for.
func resolvePair(args []string, forex, crypto bool) (string, collector.AssetClass, error) {
	words := strings.Fields(strings.ToUpper(strings.Join(args, " ")))
	if len(words) == 0 || len(words) > 2 {
		return "", "", fmt.Errorf("pair must be one word or base and quote, got %q", strings.Join(args, " "))
	}
	pair := strings.Join(words, "")

	var class collector.AssetClass
	switch {
	case forex:
		if len(pair) != 6 {
			return "", "", fmt.Errorf("forex pair format: EUR USD or EURUSD, got %q", pair)
		}
		class = collector.AssetForex
	case crypto:
		class = collector.AssetCrypto
	}

	if err := collector.ValidatePair(pair); err != nil {
		return "", "", err
	}
	return pair, class, nil
}
