package backtest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/swiftsig/internal/core"
	"github.com/newthinker/swiftsig/internal/strategy"
)

// DefaultInterval is the bar interval used when a request names none.
const DefaultInterval = "1h"

// OHLCVProvider defines the interface for fetching historical OHLCV data
type OHLCVProvider interface {
	FetchHistory(symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}

// Recorder receives the outcome of every backtest run.
type Recorder interface {
	RecordRun(strategy string, result *Result, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(string, *Result, time.Duration, error) {}

// Request describes one backtest: which pair, over what range and with
// which account parameters.
type Request struct {
	Pair           string
	Interval       string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	PipValue       float64
	LotSize        float64
}

// Job pairs a strategy with a request for RunBatch.
type Job struct {
	Strategy strategy.Strategy
	Request  Request
}

// Backtester fetches price history, asks a strategy for signals and replays
// them through Run.
type Backtester struct {
	provider    OHLCVProvider
	logger      *zap.Logger
	recorder    Recorder
	concurrency int
}

// Option configures a Backtester.
type Option func(*Backtester)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backtester) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRecorder sets the recorder notified after each run.
func WithRecorder(r Recorder) Option {
	return func(b *Backtester) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithConcurrency bounds the number of runs RunBatch executes at once.
func WithConcurrency(n int) Option {
	return func(b *Backtester) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// New creates a new Backtester with the given OHLCV provider
func New(provider OHLCVProvider, opts ...Option) *Backtester {
	b := &Backtester{
		provider:    provider,
		logger:      zap.NewNop(),
		recorder:    nopRecorder{},
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run executes a backtest for the given strategy and request.
func (b *Backtester) Run(ctx context.Context, strat strategy.Strategy, req Request) (*Result, error) {
	started := time.Now()
	res, err := b.run(ctx, strat, req)
	elapsed := time.Since(started)
	b.recorder.RecordRun(strat.Name(), res, elapsed, err)

	if err != nil {
		b.logger.Warn("backtest failed",
			zap.String("pair", req.Pair),
			zap.String("strategy", strat.Name()),
			zap.Error(err))
		return nil, err
	}

	b.logger.Info("backtest completed",
		zap.String("pair", res.Pair),
		zap.String("strategy", res.Strategy),
		zap.Int("bars", res.Period.Bars),
		zap.Int("signals", res.Signals),
		zap.Int("trades", len(res.Trades)),
		zap.Int("skipped", res.Skipped.Total()),
		zap.Float64("total_pips", res.Metrics.TotalPips),
		zap.Duration("elapsed", elapsed))
	return res, nil
}

func (b *Backtester) run(ctx context.Context, strat strategy.Strategy, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	interval := req.Interval
	if interval == "" {
		interval = DefaultInterval
	}

	bars, err := b.provider.FetchHistory(req.Pair, req.Start, req.End, interval)
	if err != nil {
		return nil, fmt.Errorf("fetching %s history: %w", req.Pair, err)
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("%s %s between %s and %s",
			req.Pair, interval, req.Start.Format(time.DateOnly), req.End.Format(time.DateOnly)))
	}
	if warm := strat.WarmUp(); len(bars) <= warm {
		b.logger.Warn("history shorter than strategy warm-up",
			zap.String("pair", req.Pair),
			zap.Int("bars", len(bars)),
			zap.Int("warm_up", warm))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	series := core.NewSeries(req.Pair, interval, bars)
	signals, err := strat.GenerateSignals(series, req.Pair)
	if err != nil {
		return nil, core.WrapError(core.ErrStrategyFailed, err)
	}
	b.logger.Debug("signals generated",
		zap.String("pair", req.Pair),
		zap.String("strategy", strat.Name()),
		zap.Int("count", len(signals)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pipValue := req.PipValue
	if pipValue == 0 {
		pipValue = DefaultPipValue(req.Pair)
	}

	return Run(series, signals, RunConfig{
		Strategy:       strat.Name(),
		InitialCapital: req.InitialCapital,
		PipValue:       pipValue,
		LotSize:        req.LotSize,
	})
}

// BatchResult is the outcome of one RunBatch job: either Result or Err is set.
type BatchResult struct {
	Job    Job
	Result *Result
	Err    error
}

// RunBatch executes independent jobs concurrently and returns one outcome per
// job, in job order. A failing job does not affect the others. The error is
// non-nil only when ctx ends before every job has run.
func (b *Backtester) RunBatch(ctx context.Context, jobs []Job) ([]BatchResult, error) {
	results := make([]BatchResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			res, err := b.Run(ctx, job.Strategy, job.Request)
			if err != nil {
				err = fmt.Errorf("%s/%s: %w", job.Request.Pair, job.Strategy.Name(), err)
			}
			results[i] = BatchResult{Job: job, Result: res, Err: err}
			return nil
		})
	}

	g.Wait()
	return results, ctx.Err()
}

// Failed returns the outcomes of a batch that ended in an error.
func Failed(results []BatchResult) []BatchResult {
	var failed []BatchResult
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
