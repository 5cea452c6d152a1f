package yahoo

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/swiftsig/internal/collector"
	"github.com/newthinker/swiftsig/internal/core"
)

func TestYahoo_ImplementsCollector(t *testing.T) {
	var _ collector.Collector = (*Yahoo)(nil)
}

func TestYahoo_Name(t *testing.T) {
	y := New()
	if y.Name() != "yahoo" {
		t.Errorf("expected 'yahoo', got '%s'", y.Name())
	}
}

func TestYahoo_ToYahooSymbol(t *testing.T) {
	tests := []struct {
		input    string
		class    collector.AssetClass
		expected string
	}{
		{"EURUSD", collector.AssetAuto, "EURUSD=X"},
		{"EURUSD=X", collector.AssetAuto, "EURUSD=X"},
		{"BTC-USD", collector.AssetAuto, "BTC-USD"},
		{"BTCUSDT", collector.AssetAuto, "BTC-USD"},
		{"AAPL", collector.AssetAuto, "AAPL"},
		{"EURUSD=X", collector.AssetCrypto, "EURUSD=X"},
		{"BTC", collector.AssetCrypto, "BTC-USD"},
		{"ETHEUR", collector.AssetCrypto, "ETH-EUR"},
		{"XAUUSD", collector.AssetForex, "XAUUSD=X"},
	}

	for _, tc := range tests {
		y := New()
		y.SetAssetClass(tc.class)
		got := y.toYahooSymbol(tc.input)
		if got != tc.expected {
			t.Errorf("toYahooSymbol(%s, %q) = %s, want %s", tc.input, tc.class, got, tc.expected)
		}
	}
}

func TestYahoo_ToYahooInterval(t *testing.T) {
	y := New()
	if got, width, err := y.toYahooInterval("4h"); err != nil || got != "1h" || width != 4*time.Hour {
		t.Errorf("4h mapped to %s/%v/%v", got, width, err)
	}
	if got, width, err := y.toYahooInterval("15m"); err != nil || got != "15m" || width != 0 {
		t.Errorf("15m mapped to %s/%v/%v", got, width, err)
	}
	if _, _, err := y.toYahooInterval("3h"); err == nil {
		t.Error("expected error for unsupported interval")
	}
}

const chartJSON = `{"chart":{"result":[{"meta":{"symbol":"EURUSD=X"},
"timestamp":[1714953600,1714957200,1714960800,1714964400,1714968000],
"indicators":{"quote":[{
"open":[1.0760,1.0762,null,1.0770,1.0772],
"high":[1.0765,1.0771,null,1.0775,1.0780],
"low":[1.0755,1.0760,null,1.0765,1.0770],
"close":[1.0762,1.0768,null,1.0772,1.0778],
"volume":[0,0,null,0,null]}]}}],"error":null}}`

func TestYahoo_FetchHistory(t *testing.T) {
	var gotPath, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotInterval = r.URL.Query().Get("interval")
		w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	y := NewWithBaseURL(srv.URL)
	start := time.Unix(1714953600, 0)
	bars, err := y.FetchHistory("EURUSD", start, start.Add(5*time.Hour), "1h")
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}

	if gotPath != "/EURUSD=X" {
		t.Errorf("requested %s, want /EURUSD=X", gotPath)
	}
	if gotInterval != "1h" {
		t.Errorf("interval = %s, want 1h", gotInterval)
	}
	if len(bars) != 4 {
		t.Fatalf("expected 4 bars (null row skipped), got %d", len(bars))
	}
	if bars[0].Symbol != "EURUSD" || bars[0].Close != 1.0762 {
		t.Errorf("unexpected first bar %+v", bars[0])
	}
	if bars[0].Time.Location() != time.UTC {
		t.Error("bar times should be UTC")
	}
}

func TestYahoo_FetchHistory_Resamples4h(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	y := NewWithBaseURL(srv.URL)
	start := time.Unix(1714953600, 0)
	bars, err := y.FetchHistory("EURUSD", start, start.Add(5*time.Hour), "4h")
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}
	// 00:00..03:00 UTC fall in one bucket, 04:00 starts the next
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].High != 1.0775 || bars[0].Close != 1.0772 || bars[0].Interval != "4h" {
		t.Errorf("unexpected aggregate %+v", bars[0])
	}
}

func TestYahoo_FetchHistory_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewWithBaseURL(srv.URL).FetchHistory("ZZZZZZ", time.Now().Add(-time.Hour), time.Now(), "1h")
	if !errors.Is(err, core.ErrSymbolNotFound) {
		t.Errorf("expected SYMBOL_NOT_FOUND, got %v", err)
	}
}

func TestYahoo_FetchHistory_InvalidSymbol(t *testing.T) {
	if _, err := New().FetchHistory("EUR USD", time.Now().Add(-time.Hour), time.Now(), "1h"); err == nil {
		t.Error("expected validation error")
	}
}
