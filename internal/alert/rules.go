package alert

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/newthinker/swiftsig/internal/backtest"
)

// exprPattern matches "metric op value", e.g. "max_drawdown_pips > 150".
var exprPattern = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<)\s*(-?[\d.]+|inf)$`)

// Rule defines an alert rule over the metrics of one backtest.
type Rule struct {
	Name     string `mapstructure:"name"`
	Expr     string `mapstructure:"expr"`
	Severity string `mapstructure:"severity"`
	Message  string `mapstructure:"message"`
}

type condition struct {
	metric    string
	op        string
	threshold float64
}

func (r *Rule) parse() (condition, error) {
	matches := exprPattern.FindStringSubmatch(strings.TrimSpace(r.Expr))
	if len(matches) != 4 {
		return condition{}, fmt.Errorf("alert %s: expression %q is not \"metric op value\"", r.Name, r.Expr)
	}

	threshold := math.Inf(1)
	if matches[3] != "inf" {
		v, err := strconv.ParseFloat(matches[3], 64)
		if err != nil {
			return condition{}, fmt.Errorf("alert %s: threshold %q: %w", r.Name, matches[3], err)
		}
		threshold = v
	}
	return condition{metric: matches[1], op: matches[2], threshold: threshold}, nil
}

// Validate checks that the rule is named and that its expression parses and
// names a known metric.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("alert rule without name (expr %q)", r.Expr)
	}
	c, err := r.parse()
	if err != nil {
		return err
	}
	if _, ok := MetricValues(backtest.Metrics{})[c.metric]; !ok {
		return fmt.Errorf("alert %s: unknown metric %q", r.Name, c.metric)
	}
	return nil
}

// Evaluate evaluates the rule expression against metrics. Malformed rules and
// missing metrics never match.
func (r *Rule) Evaluate(metrics map[string]float64) bool {
	c, err := r.parse()
	if err != nil {
		return false
	}

	value, exists := metrics[c.metric]
	if !exists {
		return false
	}

	switch c.op {
	case ">":
		return value > c.threshold
	case "<":
		return value < c.threshold
	case ">=":
		return value >= c.threshold
	case "<=":
		return value <= c.threshold
	case "==":
		return value == c.threshold
	case "!=":
		return value != c.threshold
	default:
		return false
	}
}

// FormatMessage formats the alert message with the metric's value.
func (r *Rule) FormatMessage(metrics map[string]float64) string {
	msg := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(r.severity()), r.Name, r.Message)
	if c, err := r.parse(); err == nil {
		if v, ok := metrics[c.metric]; ok {
			msg += fmt.Sprintf(" (%s=%s)", c.metric, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return msg
}

func (r *Rule) severity() string {
	if r.Severity == "" {
		return "warning"
	}
	return r.Severity
}

// MetricValues flattens m into the names rules refer to. The names follow
// the JSON field names of backtest.Metrics.
func MetricValues(m backtest.Metrics) map[string]float64 {
	return map[string]float64{
		"total_trades":      float64(m.TotalTrades),
		"total_wins":        float64(m.Wins),
		"total_losses":      float64(m.Losses),
		"total_end_of_data": float64(m.EndOfData),
		"win_rate":          m.WinRate,
		"total_pips":        m.TotalPips,
		"avg_winning_pips":  m.AvgWinPips,
		"avg_losing_pips":   m.AvgLossPips,
		"largest_win_pips":  m.LargestWinPips,
		"largest_loss_pips": m.LargestLossPips,
		"profit_factor":     m.ProfitFactor,
		"max_drawdown_pips": m.MaxDrawdownPips,
		"sharpe_ratio":      m.SharpeRatio,
		"total_return_pct":  m.TotalReturnPct,
	}
}
