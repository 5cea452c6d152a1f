package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/newthinker/swiftsig/internal/backtest"
)

// PrintSummary writes the console report of a run.
func PrintSummary(w io.Writer, res *backtest.Result) {
	m := res.Metrics
	rule := strings.Repeat("=", 60)
	thin := strings.Repeat("-", 60)

	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, "BACKTEST RESULTS: %s\n", res.Pair)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Strategy: %s\n", res.Strategy)
	fmt.Fprintf(w, "Period: %s to %s\n", res.Period.Start.Format(time.DateOnly), res.Period.End.Format(time.DateOnly))
	fmt.Fprintf(w, "Bars: %d\n", res.Period.Bars)
	fmt.Fprintf(w, "Signals: %d (skipped %d overlap, %d no forward data)\n",
		res.Signals, res.Skipped.Overlap, res.Skipped.NoForwardData)
	fmt.Fprintln(w, thin)
	fmt.Fprintf(w, "Total Trades: %d\n", m.TotalTrades)
	fmt.Fprintf(w, "Win Rate: %.2f%%\n", m.WinRate*100)
	fmt.Fprintf(w, "Total Wins: %d\n", m.Wins)
	fmt.Fprintf(w, "Total Losses: %d\n", m.Losses)
	fmt.Fprintf(w, "End of Data: %d (%d of them break-even)\n", m.EndOfData, m.BreakEven)
	fmt.Fprintln(w, thin)
	fmt.Fprintf(w, "Total Pips: %.2f\n", m.TotalPips)
	fmt.Fprintf(w, "Avg Winning Pips: %.2f\n", m.AvgWinPips)
	fmt.Fprintf(w, "Avg Losing Pips: %.2f\n", m.AvgLossPips)
	fmt.Fprintf(w, "Profit Factor: %s\n", profitFactor(m))
	fmt.Fprintf(w, "Max Drawdown: %.2f pips\n", m.MaxDrawdownPips)
	fmt.Fprintf(w, "Sharpe Ratio: %.2f\n", m.SharpeRatio)
	fmt.Fprintln(w, thin)
	fmt.Fprintf(w, "Initial Capital: %.2f\n", res.InitialCapital)
	fmt.Fprintf(w, "Final Equity: %.2f (%+.2f%%)\n", res.FinalEquity, m.TotalReturnPct)
	fmt.Fprintf(w, "%s\n\n", rule)
}

func profitFactor(m backtest.Metrics) string {
	if m.ProfitFactorInfinite() {
		return "inf"
	}
	return fmt.Sprintf("%.2f", m.ProfitFactor)
}
