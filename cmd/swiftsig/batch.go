package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/swiftsig/internal/backtest"
	"github.com/newthinker/swiftsig/internal/collector"
	"github.com/newthinker/swiftsig/internal/notifier"
)

var (
	batchFlags runFlags
	batchPairs []string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Backtest one strategy over several pairs concurrently",
	Example: `  swiftsig batch --pairs EURUSD,GBPUSD,USDJPY --days 90
  swiftsig batch --strategy ema_atr --timeframe 4h --format json`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	batchFlags.register(batchCmd)
	batchCmd.Flags().StringSliceVar(&batchPairs, "pairs", nil, "comma-separated pairs (default from config)")

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	pairs := batchPairs
	if len(pairs) == 0 {
		pairs = cfg.Backtest.Pairs
	}
	if len(pairs) == 0 {
		return fmt.Errorf("no pairs given: use --pairs or backtest.pairs in the config")
	}
	if batchFlags.csvFile != "" {
		return fmt.Errorf("--csv serves one file and cannot be used with batch")
	}

	a, strategyName, err := batchFlags.build(cfg, log)
	if err != nil {
		return err
	}
	start, end, err := batchFlags.dateRange(cfg, time.Now().UTC())
	if err != nil {
		return err
	}

	reqs := make([]backtest.Request, 0, len(pairs))
	for _, p := range pairs {
		pair := strings.ToUpper(strings.TrimSpace(p))
		if err := collector.ValidatePair(pair); err != nil {
			return err
		}
		reqs = append(reqs, batchFlags.request(a, pair, start, end))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := a.Batch(ctx, strategyName, reqs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Strategy %s, %s to %s\n\n", strategyName, start.Format(time.DateOnly), end.Format(time.DateOnly))
	printBatchTable(out, results)

	reports := make([]notifier.Report, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			reports = append(reports, notifier.FailedReport(r.Job.Request.Pair, strategyName, r.Err))
			continue
		}
		files, err := batchFlags.export(ctx, out, a, cfg, log, r.Result)
		if err != nil {
			return err
		}
		reports = append(reports, notifier.NewReport(r.Result, files))
	}
	a.NotifyBatch(ctx, reports)

	if failed := backtest.Failed(results); len(failed) == len(results) {
		return fmt.Errorf("all %d runs failed", len(results))
	}
	return nil
}

func printBatchTable(w io.Writer, results []backtest.BatchResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PAIR\tTRADES\tWIN RATE\tTOTAL PIPS\tMAX DD\tSHARPE\tRETURN %\t")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\t-\t\n", r.Job.Request.Pair)
			continue
		}
		m := r.Result.Metrics
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%.1f\t%.1f\t%.2f\t%.2f\t\n",
			r.Result.Pair, m.TotalTrades, m.WinRate*100, m.TotalPips, m.MaxDrawdownPips, m.SharpeRatio, m.TotalReturnPct)
	}
	tw.Flush()

	if failed := backtest.Failed(results); len(failed) > 0 {
		fmt.Fprintf(w, "\n%d of %d runs failed:\n", len(failed), len(results))
		for _, r := range failed {
			fmt.Fprintf(w, "  %v\n", r.Err)
		}
	}
}
