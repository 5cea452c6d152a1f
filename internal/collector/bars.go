package collector

import (
	"fmt"
	"sort"
	"time"

	"github.com/newthinker/swiftsig/internal/core"
)

// Clean orders bars by time, keeps the last of any duplicated timestamp and
// drops bars that fail validation. Sources occasionally return a trailing
// partial bar twice or a row with missing prices.
func Clean(bars []core.OHLCV) []core.OHLCV {
	out := make([]core.OHLCV, 0, len(bars))
	for _, b := range bars {
		if b.Validate() == nil {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time.Equal(b.Time) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

// Resample aggregates bars into buckets of the given width. Widths that
// divide a day start their buckets at midnight UTC. Input must be ordered by
// time.
func Resample(bars []core.OHLCV, width time.Duration, interval string) []core.OHLCV {
	if width <= 0 || len(bars) == 0 {
		return bars
	}

	var out []core.OHLCV
	for _, b := range bars {
		bucket := b.Time.Truncate(width)
		n := len(out)
		if n == 0 || !out[n-1].Time.Equal(bucket) {
			agg := b
			agg.Time = bucket
			agg.Interval = interval
			out = append(out, agg)
			continue
		}
		agg := &out[n-1]
		agg.High = max(agg.High, b.High)
		agg.Low = min(agg.Low, b.Low)
		agg.Close = b.Close
		agg.Volume += b.Volume
	}
	return out
}

// ParseInterval converts a bar interval such as "15m", "4h" or "1d" to a
// duration.
func ParseInterval(interval string) (time.Duration, error) {
	switch interval {
	case "1d":
		return 24 * time.Hour, nil
	case "1w", "1wk":
		return 7 * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(interval)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("unsupported interval %q", interval)
	}
	return d, nil
}
