package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/swiftsig/internal/api/job"
	"github.com/newthinker/swiftsig/internal/api/response"
	"github.com/newthinker/swiftsig/internal/backtest"
	"github.com/newthinker/swiftsig/internal/collector"
	"github.com/newthinker/swiftsig/internal/core"
	"github.com/newthinker/swiftsig/internal/export"
	"github.com/newthinker/swiftsig/internal/notifier"
	"github.com/newthinker/swiftsig/internal/strategy"
)

const (
	jobTypeBacktest = "backtest"
	backtestTimeout = 5 * time.Minute
)

// BacktestRequest is the request body for starting a backtest. Start and End
// are YYYY-MM-DD; without them the range is the last Days days. Params
// override the configured strategy parameters for this job only.
type BacktestRequest struct {
	Pair           string         `json:"pair"`
	Strategy       string         `json:"strategy"`
	Params         map[string]any `json:"params,omitempty"`
	Timeframe      string         `json:"timeframe,omitempty"`
	Start          string         `json:"start,omitempty"`
	End            string         `json:"end,omitempty"`
	Days           int            `json:"days,omitempty"`
	InitialCapital *float64       `json:"initial_capital,omitempty"`
	LotSize        float64        `json:"lot_size,omitempty"`
	PipValue       float64        `json:"pip_value,omitempty"`
	Export         string         `json:"export,omitempty"`
}

// Defaults fill in what a request leaves out.
type Defaults struct {
	Strategy       string
	Timeframe      string
	DaysBack       int
	InitialCapital float64
	LotSize        float64
}

// BacktestResult is stored on a completed job.
type BacktestResult struct {
	*backtest.Result
	Files map[string]string `json:"files,omitempty"`

	paths map[string]string
}

// fileKinds maps the {kind} of a download URL to an export key. csv and json
// name the trades and results files.
var fileKinds = map[string]string{
	"trades":  export.KeyTradesCSV,
	"equity":  export.KeyEquityCSV,
	"results": export.KeyResultsJSON,
	"csv":     export.KeyTradesCSV,
	"json":    export.KeyResultsJSON,
}

// JobGauge is told how many backtest jobs are in flight.
type JobGauge interface {
	SetJobsActive(jobType string, count int)
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	jobStore   *job.Store
	backtester *backtest.Backtester
	strategies *strategy.Registry
	exporter   *export.Exporter
	defaults   Defaults
	gauge      JobGauge
	notify     func(context.Context, notifier.Report)
	logger     *zap.Logger
	now        func() time.Time
}

// BacktestOption configures a BacktestHandler.
type BacktestOption func(*BacktestHandler)

// WithExporter lets requests ask for their results to be exported.
func WithExporter(e *export.Exporter) BacktestOption {
	return func(h *BacktestHandler) { h.exporter = e }
}

// WithDefaults sets the values used for omitted request fields.
func WithDefaults(d Defaults) BacktestOption {
	return func(h *BacktestHandler) { h.defaults = d }
}

// WithJobGauge reports active job counts.
func WithJobGauge(g JobGauge) BacktestOption {
	return func(h *BacktestHandler) { h.gauge = g }
}

// WithNotify announces finished jobs, successful or not, through fn.
func WithNotify(fn func(context.Context, notifier.Report)) BacktestOption {
	return func(h *BacktestHandler) { h.notify = fn }
}

// WithLogger sets the handler's logger.
func WithLogger(l *zap.Logger) BacktestOption {
	return func(h *BacktestHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewBacktestHandler creates a new backtest handler.
func NewBacktestHandler(
	jobStore *job.Store,
	backtester *backtest.Backtester,
	strategies *strategy.Registry,
	opts ...BacktestOption,
) *BacktestHandler {
	h := &BacktestHandler{
		jobStore:   jobStore,
		backtester: backtester,
		strategies: strategies,
		defaults: Defaults{
			Timeframe:      backtest.DefaultInterval,
			DaysBack:       30,
			InitialCapital: 10000,
			LotSize:        1,
		},
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Create validates the request and starts a backtest job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, core.WrapError(core.ErrBadRequest, err))
		return
	}

	btReq, strat, format, err := h.prepare(req)
	if err != nil {
		response.Fail(w, err)
		return
	}

	j := h.jobStore.Create(jobTypeBacktest)
	h.reportActive()

	go h.runBacktest(j.ID, strat, btReq, format)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

// prepare turns a request into a backtest request, applying defaults.
func (h *BacktestHandler) prepare(req BacktestRequest) (backtest.Request, strategy.Strategy, export.Format, error) {
	var out backtest.Request

	name := req.Strategy
	if name == "" {
		name = h.defaults.Strategy
	}
	if req.Pair == "" || name == "" {
		return out, nil, "", core.WrapError(core.ErrConfigMissing, fmt.Errorf("pair and strategy are required"))
	}
	pair := strings.ToUpper(strings.TrimSpace(req.Pair))
	if err := collector.ValidatePair(pair); err != nil {
		return out, nil, "", core.WrapError(core.ErrBadRequest, err)
	}

	strat, err := h.strategies.Build(name, req.Params)
	if err != nil {
		if errors.Is(err, core.ErrStrategyNotFound) {
			return out, nil, "", err
		}
		return out, nil, "", core.WrapError(core.ErrBadRequest, err)
	}

	interval := req.Timeframe
	if interval == "" {
		interval = h.defaults.Timeframe
	}
	if _, err := collector.ParseInterval(interval); err != nil {
		return out, nil, "", core.WrapError(core.ErrBadRequest, err)
	}

	start, end, err := h.dateRange(req)
	if err != nil {
		return out, nil, "", err
	}

	var format export.Format
	if req.Export != "" {
		if h.exporter == nil {
			return out, nil, "", core.WrapError(core.ErrBadRequest, fmt.Errorf("export is not enabled on this server"))
		}
		if format, err = export.ParseFormat(req.Export); err != nil {
			return out, nil, "", err
		}
	}

	capital := h.defaults.InitialCapital
	if req.InitialCapital != nil {
		capital = *req.InitialCapital
	}
	lot := req.LotSize
	if lot == 0 {
		lot = h.defaults.LotSize
	}

	out = backtest.Request{
		Pair:           pair,
		Interval:       interval,
		Start:          start,
		End:            end,
		InitialCapital: capital,
		PipValue:       req.PipValue,
		LotSize:        lot,
	}
	return out, strat, format, nil
}

func (h *BacktestHandler) dateRange(req BacktestRequest) (time.Time, time.Time, error) {
	end := h.now().UTC()
	if req.End != "" {
		t, err := time.Parse(time.DateOnly, req.End)
		if err != nil {
			return time.Time{}, time.Time{}, core.WrapError(core.ErrBadRequest, err)
		}
		end = t
	}

	if req.Start != "" {
		start, err := time.Parse(time.DateOnly, req.Start)
		if err != nil {
			return time.Time{}, time.Time{}, core.WrapError(core.ErrBadRequest, err)
		}
		if !start.Before(end) {
			return time.Time{}, time.Time{}, core.WrapError(core.ErrBadRequest,
				fmt.Errorf("start %s is not before end %s", req.Start, end.Format(time.DateOnly)))
		}
		return start, end, nil
	}

	days := req.Days
	if days <= 0 {
		days = h.defaults.DaysBack
	}
	return end.AddDate(0, 0, -days), end, nil
}

// runBacktest executes the backtest and updates job status.
func (h *BacktestHandler) runBacktest(jobID string, strat strategy.Strategy, req backtest.Request, format export.Format) {
	defer h.reportActive()

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
		j.Progress = 10
	})

	ctx, cancel := context.WithTimeout(context.Background(), backtestTimeout)
	defer cancel()

	result, err := h.backtester.Run(ctx, strat, req)
	if err != nil {
		h.fail(jobID, err)
		h.announce(ctx, jobID, notifier.FailedReport(req.Pair, strat.Name(), err))
		return
	}

	out := BacktestResult{Result: result}
	if format != "" {
		h.jobStore.Update(jobID, func(j *job.Job) { j.Progress = 90 })
		files, err := h.exporter.ExportFiles(ctx, result, format)
		if err != nil {
			h.fail(jobID, err)
			h.announce(ctx, jobID, notifier.FailedReport(req.Pair, strat.Name(), err))
			return
		}
		out.Files = export.URIs(files)
		out.paths = make(map[string]string, len(files))
		for key, f := range files {
			out.paths[key] = f.Path
		}
	}

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Progress = 100
		j.Result = out
	})
	h.announce(ctx, jobID, notifier.NewReport(result, out.Files))
}

func (h *BacktestHandler) announce(ctx context.Context, jobID string, report notifier.Report) {
	if h.notify == nil {
		return
	}
	report.JobID = jobID
	h.notify(context.WithoutCancel(ctx), report)
}

func (h *BacktestHandler) fail(jobID string, err error) {
	h.logger.Warn("backtest job failed", zap.String("job_id", jobID), zap.Error(err))

	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		coreErr = core.WrapError(core.ErrStrategyFailed, err)
	}
	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusFailed
		j.Error = coreErr
	})
}

func (h *BacktestHandler) reportActive() {
	if h.gauge != nil {
		h.gauge.SetJobsActive(jobTypeBacktest, h.jobStore.Active(jobTypeBacktest))
	}
}

// GetStatus returns the status of a backtest job.
func (h *BacktestHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	resp := map[string]any{
		"job_id":     j.ID,
		"status":     j.Status,
		"progress":   j.Progress,
		"created_at": j.CreatedAt,
		"updated_at": j.UpdatedAt,
	}

	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = response.Detail(j.Error)
	}

	response.JSON(w, http.StatusOK, resp)
}

// Download serves one exported file of a completed job.
func (h *BacktestHandler) Download(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	kind := r.PathValue("kind")
	key, ok := fileKinds[strings.ToLower(kind)]
	if !ok {
		response.Fail(w, core.WrapError(core.ErrBadRequest,
			fmt.Errorf("unknown file kind %q (want trades, equity or results)", kind)))
		return
	}

	res, _ := j.Result.(BacktestResult)
	stored, ok := res.paths[key]
	if j.Status != job.StatusComplete || !ok || h.exporter == nil {
		response.Fail(w, core.WrapError(core.ErrFileNotFound,
			fmt.Errorf("job %s has no %s file", j.ID, kind)))
		return
	}

	data, err := h.exporter.Read(r.Context(), stored)
	if err != nil {
		response.Fail(w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType(key))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(stored)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// List returns every known backtest job without results.
func (h *BacktestHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobStore.List()
	out := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		if j.Type != jobTypeBacktest {
			continue
		}
		out = append(out, map[string]any{
			"job_id":     j.ID,
			"status":     j.Status,
			"progress":   j.Progress,
			"created_at": j.CreatedAt,
		})
	}
	response.JSON(w, http.StatusOK, out)
}
