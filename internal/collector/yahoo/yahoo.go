package yahoo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newthinker/swiftsig/internal/collector"
	"github.com/newthinker/swiftsig/internal/core"
)

const (
	baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
)

// Yahoo implements the Yahoo Finance chart collector
type Yahoo struct {
	client  *http.Client
	baseURL string
	class   collector.AssetClass
	config  collector.Config
}

// New creates a new Yahoo collector
func New() *Yahoo {
	return &Yahoo{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates a Yahoo collector with custom base URL (for testing)
func NewWithBaseURL(u string) *Yahoo {
	y := New()
	y.baseURL = u
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// Init applies the collector config. Extra["asset_class"] forces how bare
// pairs are spelled ("forex" or "crypto"); otherwise the class is guessed.
func (y *Yahoo) Init(cfg collector.Config) error {
	y.config = cfg
	if cfg.BaseURL != "" {
		y.baseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		y.client.Timeout = cfg.Timeout
	}
	if class, ok := cfg.Extra["asset_class"].(string); ok {
		y.SetAssetClass(collector.AssetClass(class))
	}
	return nil
}

// SetAssetClass overrides the asset class guess.
func (y *Yahoo) SetAssetClass(class collector.AssetClass) {
	y.class = class
}

// toYahooSymbol converts a pair to Yahoo's ticker format
func (y *Yahoo) toYahooSymbol(symbol string) string {
	s := strings.ToUpper(symbol)
	if strings.HasSuffix(s, "=X") || strings.Contains(s, "-") {
		return s
	}

	class := y.class
	if class == collector.AssetAuto {
		class = collector.Classify(s)
	}

	switch class {
	case collector.AssetForex:
		return s + "=X"
	case collector.AssetCrypto:
		for _, quote := range []string{"USDT", "USD", "EUR"} {
			if strings.HasSuffix(s, quote) && len(s) > len(quote) {
				return collector.CryptoPair(strings.TrimSuffix(s, quote), strings.TrimSuffix(quote, "T"))
			}
		}
		return collector.CryptoPair(s, "")
	}
	return s
}

// FetchHistory fetches historical OHLCV data
func (y *Yahoo) FetchHistory(symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if err := collector.ValidatePair(symbol); err != nil {
		return nil, err
	}
	yahooInterval, width, err := y.toYahooInterval(interval)
	if err != nil {
		return nil, err
	}
	yahooSymbol := y.toYahooSymbol(symbol)

	q := url.Values{}
	q.Set("interval", yahooInterval)
	q.Set("period1", fmt.Sprint(start.Unix()))
	q.Set("period2", fmt.Sprint(end.Unix()))
	endpoint := fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(yahooSymbol), q.Encode())

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; swiftsig)")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("yahoo: %s", yahooSymbol))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description)
	}

	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no data for symbol: %s", yahooSymbol))
	}

	r := result.Chart.Result[0]
	quotes := r.Indicators.Quote[0]

	data := make([]core.OHLCV, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		o, h, l, c := at(quotes.Open, i), at(quotes.High, i), at(quotes.Low, i), at(quotes.Close, i)
		if o == nil || h == nil || l == nil || c == nil {
			continue // Skip missing data
		}
		var volume float64
		if v := at(quotes.Volume, i); v != nil {
			volume = *v
		}
		data = append(data, core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     *o,
			High:     *h,
			Low:      *l,
			Close:    *c,
			Volume:   volume,
			Time:     time.Unix(ts, 0).UTC(),
		})
	}

	data = collector.Clean(data)
	if width > 0 {
		data = collector.Resample(data, width, interval)
	}
	return data, nil
}

// toYahooInterval maps an interval to one the chart API serves. Intervals
// Yahoo lacks are fetched at a finer interval and resampled to width.
func (y *Yahoo) toYahooInterval(interval string) (yahoo string, width time.Duration, err error) {
	switch interval {
	case "1m", "2m", "5m", "15m", "30m", "90m", "1h", "1d":
		return interval, 0, nil
	case "60m":
		return "1h", 0, nil
	case "1w", "1wk":
		return "1wk", 0, nil
	case "4h":
		return "1h", 4 * time.Hour, nil
	default:
		return "", 0, fmt.Errorf("yahoo: unsupported interval %q", interval)
	}
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol       string `json:"symbol"`
	Currency     string `json:"currency"`
	ExchangeName string `json:"exchangeName"`
	Timezone     string `json:"timezone"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}
