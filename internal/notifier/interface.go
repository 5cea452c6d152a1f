package notifier

import (
	"context"
	"time"

	"github.com/newthinker/swiftsig/internal/backtest"
)

// Config holds notifier configuration
type Config struct {
	Enabled bool           `mapstructure:"enabled"`
	Params  map[string]any `mapstructure:"params"`
}

// Notifier delivers backtest reports to an outside channel.
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Notify delivers one report
	Notify(ctx context.Context, report Report) error

	// NotifyBatch delivers the reports of a batch run as one message
	NotifyBatch(ctx context.Context, reports []Report) error
}

// Report summarizes a finished backtest. Error is set, and the figures are
// zero, when the run failed.
type Report struct {
	JobID       string            `json:"job_id,omitempty"`
	Pair        string            `json:"pair"`
	Strategy    string            `json:"strategy"`
	Interval    string            `json:"interval,omitempty"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	Trades      int               `json:"trades"`
	Skipped     int               `json:"skipped"`
	Metrics     backtest.Metrics  `json:"metrics"`
	FinalEquity float64           `json:"final_equity"`
	Files       map[string]string `json:"files,omitempty"`
	Alerts      []string          `json:"alerts,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// NewReport summarizes res. files are the exported URIs, if any.
func NewReport(res *backtest.Result, files map[string]string) Report {
	return Report{
		Pair:        res.Pair,
		Strategy:    res.Strategy,
		Interval:    res.Interval,
		Start:       res.Period.Start,
		End:         res.Period.End,
		Trades:      len(res.Trades),
		Skipped:     res.Skipped.Total(),
		Metrics:     res.Metrics,
		FinalEquity: res.FinalEquity,
		Files:       files,
	}
}

// FailedReport reports a run that returned err.
func FailedReport(pair, strategy string, err error) Report {
	return Report{Pair: pair, Strategy: strategy, Error: err.Error()}
}

// Failed reports whether the run failed.
func (r Report) Failed() bool {
	return r.Error != ""
}
