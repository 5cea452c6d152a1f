package binance

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/newthinker/swiftsig/internal/collector"
	"github.com/newthinker/swiftsig/internal/core"
)

const (
	baseURL = "https://api.binance.com"

	// maxKlines is the page size limit of the klines endpoint
	maxKlines = 1000
)

// Binance fetches crypto klines from the Binance spot API
type Binance struct {
	client       *http.Client
	baseURL      string
	defaultQuote string
}

// New creates a new Binance collector
func New() *Binance {
	return &Binance{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:      baseURL,
		defaultQuote: "USDT",
	}
}

// NewWithBaseURL creates a Binance collector with custom base URL (for testing)
func NewWithBaseURL(u string) *Binance {
	b := New()
	b.baseURL = u
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

func (b *Binance) Init(cfg collector.Config) error {
	if cfg.BaseURL != "" {
		b.baseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		b.client.Timeout = cfg.Timeout
	}
	if quote, ok := cfg.Extra["default_quote"].(string); ok && quote != "" {
		b.defaultQuote = quote
	}
	return nil
}

// FetchHistory fetches historical OHLCV data from Binance, following pages
// until end is reached.
func (b *Binance) FetchHistory(symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if err := collector.ValidatePair(symbol); err != nil {
		return nil, err
	}
	binanceInterval, err := b.toInterval(interval)
	if err != nil {
		return nil, err
	}
	pair := collector.NormalizeSymbol(symbol, b.defaultQuote)

	var data []core.OHLCV
	from := start
	for from.Before(end) {
		page, err := b.fetchPage(pair, binanceInterval, from, end)
		if err != nil {
			return nil, err
		}
		for i := range page {
			page[i].Symbol = symbol
			page[i].Interval = interval
		}
		data = append(data, page...)

		if len(page) < maxKlines {
			break
		}
		from = page[len(page)-1].Time.Add(time.Millisecond)
	}

	return collector.Clean(data), nil
}

func (b *Binance) fetchPage(pair, interval string, start, end time.Time) ([]core.OHLCV, error) {
	q := url.Values{}
	q.Set("symbol", pair)
	q.Set("interval", interval)
	q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(end.UnixMilli()-1, 10))
	q.Set("limit", strconv.Itoa(maxKlines))

	req, err := http.NewRequest(http.MethodGet, b.baseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		// Binance answers unknown symbols with 400 {"code":-1121}
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("binance: %s", pair))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var klines [][]any
	if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	data := make([]core.OHLCV, 0, len(klines))
	for _, k := range klines {
		if len(k) < 6 {
			continue
		}

		openTime, _ := k[0].(float64)
		data = append(data, core.OHLCV{
			Open:   parseField(k[1]),
			High:   parseField(k[2]),
			Low:    parseField(k[3]),
			Close:  parseField(k[4]),
			Volume: parseField(k[5]),
			Time:   time.UnixMilli(int64(openTime)).UTC(),
		})
	}

	return data, nil
}

// parseField reads a numeric kline field, which Binance sends as a string.
func parseField(v any) float64 {
	s, _ := v.(string)
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func (b *Binance) toInterval(interval string) (string, error) {
	switch interval {
	case "1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "12h", "1d", "1w":
		return interval, nil
	case "1wk":
		return "1w", nil
	default:
		return "", fmt.Errorf("binance: unsupported interval %q", interval)
	}
}
