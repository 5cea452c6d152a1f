package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/swiftsig/internal/alert"
	"github.com/newthinker/swiftsig/internal/api"
	handlerapi "github.com/newthinker/swiftsig/internal/api/handler/api"
	"github.com/newthinker/swiftsig/internal/backtest"
	"github.com/newthinker/swiftsig/internal/collector"
	"github.com/newthinker/swiftsig/internal/collector/binance"
	"github.com/newthinker/swiftsig/internal/collector/cache"
	"github.com/newthinker/swiftsig/internal/collector/csvfile"
	"github.com/newthinker/swiftsig/internal/collector/yahoo"
	"github.com/newthinker/swiftsig/internal/config"
	"github.com/newthinker/swiftsig/internal/export"
	"github.com/newthinker/swiftsig/internal/metrics"
	"github.com/newthinker/swiftsig/internal/notifier"
	"github.com/newthinker/swiftsig/internal/notifier/telegram"
	"github.com/newthinker/swiftsig/internal/notifier/webhook"
	"github.com/newthinker/swiftsig/internal/storage/archive"
	"github.com/newthinker/swiftsig/internal/strategy"
	"github.com/newthinker/swiftsig/internal/strategy/ema_atr"
	"github.com/newthinker/swiftsig/internal/strategy/ma_crossover"
)

// App wires configuration into the price source, strategies, backtester,
// exporter and HTTP server.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	collectors *collector.Registry
	strategies *strategy.Registry
	storage    archive.Storage
	source     collector.Collector
	metrics    *metrics.Registry
	backtester *backtest.Backtester
	exporter   *export.Exporter
	notifiers  *notifier.Registry
	alerts     *alert.Evaluator
}

type options struct {
	source     collector.Collector
	storage    archive.Storage
	collectors []collector.Collector
	strategies []strategy.Strategy
	notifiers  []notifier.Notifier
}

// Option customizes New.
type Option func(*options)

// WithSource bypasses the configured provider and cache.
func WithSource(c collector.Collector) Option {
	return func(o *options) { o.source = c }
}

// WithStorage replaces the configured archive backend.
func WithStorage(s archive.Storage) Option {
	return func(o *options) { o.storage = s }
}

// WithCollector registers an extra collector, replacing a built-in one of
// the same name.
func WithCollector(c collector.Collector) Option {
	return func(o *options) { o.collectors = append(o.collectors, c) }
}

// WithStrategy registers an extra strategy.
func WithStrategy(s strategy.Strategy) Option {
	return func(o *options) { o.strategies = append(o.strategies, s) }
}

// WithNotifier registers an extra, already initialized notifier.
func WithNotifier(n notifier.Notifier) Option {
	return func(o *options) { o.notifiers = append(o.notifiers, n) }
}

// New creates a new App instance
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		collectors: collector.NewRegistry(),
		strategies: strategy.NewRegistry(logger),
	}

	a.collectors.Register(yahoo.New())
	a.collectors.Register(binance.New())
	a.collectors.Register(csvfile.New(""))
	for _, c := range o.collectors {
		a.collectors.Register(c)
	}

	a.strategies.RegisterFactory(func() strategy.Strategy { return ma_crossover.NewDefault() })
	a.strategies.RegisterFactory(func() strategy.Strategy { return ema_atr.New() })
	for _, s := range o.strategies {
		a.strategies.Register(s)
	}
	if err := a.strategies.Configure(cfg.StrategyConfigs()); err != nil {
		return nil, fmt.Errorf("configuring strategies: %w", err)
	}

	a.storage = o.storage
	if a.storage == nil {
		s, err := archive.New(cfg.Archive())
		if err != nil {
			return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Type, err)
		}
		a.storage = s
	}

	a.source = o.source
	if a.source == nil {
		src, err := a.openSource()
		if err != nil {
			return nil, err
		}
		a.source = src
	}

	btOpts := []backtest.Option{
		backtest.WithLogger(logger),
		backtest.WithConcurrency(cfg.Backtest.Concurrency),
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
		btOpts = append(btOpts, backtest.WithRecorder(a.metrics))
	}
	if err := a.setupNotifiers(o.notifiers); err != nil {
		return nil, err
	}
	if len(cfg.Alerts.Rules) > 0 {
		ev, err := alert.NewEvaluator(cfg.Alerts.Rules)
		if err != nil {
			return nil, fmt.Errorf("loading alert rules: %w", err)
		}
		ev.SetCooldown(cfg.Alerts.Cooldown)
		a.alerts = ev
	}

	a.backtester = backtest.New(a.source, btOpts...)
	a.exporter = export.NewExporter(a.storage,
		export.WithPrefix(cfg.Backtest.OutputPrefix),
		export.WithLogger(logger))

	logger.Debug("app initialized",
		zap.String("provider", a.source.Name()),
		zap.String("storage", cfg.Storage.Type),
		zap.Strings("strategies", a.strategies.Names()),
		zap.Strings("notifiers", a.notifiers.Names()))
	return a, nil
}

func (a *App) setupNotifiers(extra []notifier.Notifier) error {
	a.notifiers = notifier.NewRegistry()
	for name, nc := range a.cfg.NotifierConfigs() {
		var n notifier.Notifier
		switch name {
		case "webhook":
			n = webhook.New("", nil)
		case "telegram":
			n = telegram.New("", "")
		default:
			return fmt.Errorf("unknown notifier %q", name)
		}
		if err := n.Init(nc); err != nil {
			return fmt.Errorf("initializing %s notifier: %w", name, err)
		}
		if err := a.notifiers.Register(n); err != nil {
			return err
		}
	}
	for _, n := range extra {
		if err := a.notifiers.Register(n); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) openSource() (collector.Collector, error) {
	name := a.cfg.Data.Provider
	src, err := a.collectors.Lookup(name)
	if err != nil {
		return nil, err
	}
	if err := src.Init(a.cfg.Collector(name)); err != nil {
		return nil, fmt.Errorf("initializing %s collector: %w", name, err)
	}
	if a.cfg.Data.Cache.Enabled {
		return cache.New(src, a.storage,
			cache.WithPrefix(a.cfg.Data.Cache.Prefix),
			cache.WithLogger(a.logger)), nil
	}
	return src, nil
}

// ClearCache deletes the cached price ranges of symbol from archive storage,
// or every cached range of the current provider when symbol is empty. It
// works whether or not caching is currently enabled.
func (a *App) ClearCache(ctx context.Context, symbol string) (int, error) {
	c, ok := a.source.(*cache.Cache)
	if !ok {
		c = cache.New(a.source, a.storage,
			cache.WithPrefix(a.cfg.Data.Cache.Prefix),
			cache.WithLogger(a.logger))
	}
	return c.Clear(ctx, symbol)
}

// Request builds a backtest request for pair over [start, end) from the
// configured defaults.
func (a *App) Request(pair string, start, end time.Time) backtest.Request {
	bt := a.cfg.Backtest
	return backtest.Request{
		Pair:           pair,
		Interval:       bt.Timeframe,
		Start:          start,
		End:            end,
		InitialCapital: bt.InitialCapital,
		PipValue:       bt.PipValueFor(pair),
		LotSize:        bt.LotSize,
	}
}

// Backtest runs the named strategy for one request.
func (a *App) Backtest(ctx context.Context, strategyName string, req backtest.Request) (*backtest.Result, error) {
	strat, err := a.strategies.Lookup(strategyName)
	if err != nil {
		return nil, err
	}
	return a.backtester.Run(ctx, strat, req)
}

// Batch runs the named strategy over every request concurrently and returns
// one outcome per request. Runs fail independently.
func (a *App) Batch(ctx context.Context, strategyName string, reqs []backtest.Request) ([]backtest.BatchResult, error) {
	strat, err := a.strategies.Lookup(strategyName)
	if err != nil {
		return nil, err
	}
	jobs := make([]backtest.Job, len(reqs))
	for i, req := range reqs {
		jobs[i] = backtest.Job{Strategy: strat, Request: req}
	}
	return a.backtester.RunBatch(ctx, jobs)
}

// Export writes res to archive storage.
func (a *App) Export(ctx context.Context, res *backtest.Result, format export.Format) (map[string]string, error) {
	return a.exporter.Export(ctx, res, format)
}

// Notify checks the alert rules against one finished run and announces it.
// Delivery failures are logged only.
func (a *App) Notify(ctx context.Context, report notifier.Report) {
	if a.notifiers.Len() == 0 && a.alerts == nil {
		return
	}
	report = a.checkAlerts(report)
	a.logFailures(a.notifiers.NotifyAll(ctx, report))
}

// NotifyBatch announces the runs of a batch as one message per notifier.
func (a *App) NotifyBatch(ctx context.Context, reports []notifier.Report) {
	checked := make([]notifier.Report, len(reports))
	for i, r := range reports {
		checked[i] = a.checkAlerts(r)
	}
	a.logFailures(a.notifiers.NotifyAllBatch(ctx, checked))
}

// checkAlerts attaches the alert rules a successful run fires.
func (a *App) checkAlerts(report notifier.Report) notifier.Report {
	if a.alerts == nil || report.Failed() {
		return report
	}
	for _, al := range a.alerts.Check(report.Pair+"/"+report.Strategy, report.Metrics) {
		a.logger.Warn("alert fired",
			zap.String("rule", al.Rule),
			zap.String("severity", al.Severity),
			zap.String("pair", report.Pair),
			zap.String("strategy", report.Strategy),
			zap.Float64("value", al.Value))
		report.Alerts = append(report.Alerts, al.Message)
	}
	return report
}

func (a *App) logFailures(errs map[string]error) {
	for name, err := range errs {
		a.logger.Warn("notification failed", zap.String("notifier", name), zap.Error(err))
	}
}

// Server builds the HTTP API on top of the app's services.
func (a *App) Server() (*api.Server, error) {
	srv := a.cfg.Server
	bt := a.cfg.Backtest
	return api.NewServer(api.Config{
		Host:    srv.Host,
		Port:    srv.Port,
		APIKey:  srv.APIKey,
		MaxJobs: srv.MaxJobs,
		JobTTL:  time.Duration(srv.JobTTLHours) * time.Hour,
	}, api.Dependencies{
		Backtester: a.backtester,
		Strategies: a.strategies,
		Exporter:   a.exporter,
		Metrics:    a.metrics,
		Notify:     a.Notify,
		Defaults: handlerapi.Defaults{
			Strategy:       bt.Strategy,
			Timeframe:      bt.Timeframe,
			DaysBack:       bt.DaysBack,
			InitialCapital: bt.InitialCapital,
			LotSize:        bt.LotSize,
		},
	}, a.logger)
}

// Strategies returns the strategy registry.
func (a *App) Strategies() *strategy.Registry {
	return a.strategies
}

// Source returns the price source backtests read from.
func (a *App) Source() collector.Collector {
	return a.source
}

// Storage returns the archive backend.
func (a *App) Storage() archive.Storage {
	return a.storage
}

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}
