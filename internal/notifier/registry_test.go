package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/swiftsig/internal/backtest"
)

type mockNotifier struct {
	name       string
	reports    []Report
	batchCalls int
	shouldFail bool
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Init(cfg Config) error { return nil }

func (m *mockNotifier) Notify(ctx context.Context, r Report) error {
	m.reports = append(m.reports, r)
	if m.shouldFail {
		return errors.New("send failed")
	}
	return nil
}

func (m *mockNotifier) NotifyBatch(ctx context.Context, rs []Report) error {
	m.batchCalls++
	if m.shouldFail {
		return errors.New("batch send failed")
	}
	return nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	mock := &mockNotifier{name: "test"}
	if err := r.Register(mock); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Duplicate registration should fail
	if err := r.Register(mock); err == nil {
		t.Error("expected error for duplicate registration")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 notifier, got %d", r.Len())
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "test"})

	n, err := r.Get("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Name() != "test" {
		t.Errorf("expected 'test', got '%s'", n.Name())
	}

	if _, err := r.Get("nonexistent"); err == nil {
		t.Error("expected error for non-existent notifier")
	}
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "webhook"})
	r.Register(&mockNotifier{name: "telegram"})

	names := r.Names()
	if len(names) != 2 || names[0] != "telegram" || names[1] != "webhook" {
		t.Errorf("unexpected order: %v", names)
	}
}

func TestRegistry_NotifyAll(t *testing.T) {
	r := NewRegistry()
	ok := &mockNotifier{name: "ok"}
	bad := &mockNotifier{name: "bad", shouldFail: true}
	r.Register(ok)
	r.Register(bad)

	errs := r.NotifyAll(context.Background(), Report{Pair: "EURUSD"})

	if len(errs) != 1 || errs["bad"] == nil {
		t.Errorf("expected only 'bad' to fail, got %v", errs)
	}
	if len(ok.reports) != 1 || ok.reports[0].Pair != "EURUSD" {
		t.Errorf("report not delivered: %+v", ok.reports)
	}
}

func TestRegistry_NotifyAllBatch(t *testing.T) {
	r := NewRegistry()
	mock := &mockNotifier{name: "test"}
	r.Register(mock)

	if errs := r.NotifyAllBatch(context.Background(), nil); len(errs) != 0 || mock.batchCalls != 0 {
		t.Error("empty batch should not be sent")
	}

	errs := r.NotifyAllBatch(context.Background(), []Report{{Pair: "EURUSD"}, {Pair: "GBPUSD"}})
	if len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	if mock.batchCalls != 1 {
		t.Errorf("expected 1 batch call, got %d", mock.batchCalls)
	}
}

func TestNewReport(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	res := &backtest.Result{
		Pair:        "EURUSD",
		Strategy:    "ma_crossover",
		Interval:    "1h",
		Period:      backtest.Period{Start: start, End: start.Add(48 * time.Hour), Bars: 48},
		Trades:      make([]backtest.Trade, 3),
		Skipped:     backtest.SkipCounts{Overlap: 2},
		Metrics:     backtest.Metrics{TotalPips: 42},
		FinalEquity: 10420,
	}

	rep := NewReport(res, map[string]string{"results_json": "out/x.json"})
	if rep.Trades != 3 || rep.Skipped != 2 || rep.Metrics.TotalPips != 42 || rep.Failed() {
		t.Errorf("unexpected report: %+v", rep)
	}

	failed := FailedReport("EURUSD", "ma_crossover", errors.New("no data"))
	if !failed.Failed() || failed.Error != "no data" {
		t.Errorf("unexpected failed report: %+v", failed)
	}
}
