package collector

import (
	"time"

	"github.com/newthinker/swiftsig/internal/core"
)

// Config holds collector configuration
type Config struct {
	Enabled bool
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Extra   map[string]any
}

// Collector fetches historical bars from one data source.
type Collector interface {
	Name() string
	Init(cfg Config) error

	// FetchHistory returns bars in [start, end) ordered by time.
	// interval: "1m", "5m", "15m", "1h", "4h", "1d"
	FetchHistory(symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}
