package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/swiftsig/internal/core"
)

// Header is the column layout shared with the exported price cache files.
var Header = []string{"Datetime", "Open", "High", "Low", "Close", "Volume"}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Encode writes bars as CSV with a header row. Times are written in UTC.
func Encode(w io.Writer, bars []core.OHLCV) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, b := range bars {
		rec := []string{
			b.Time.UTC().Format(time.RFC3339),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatFloat(b.Volume),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode reads bars from CSV. The header row is required; columns are
// matched by name, case-insensitively, and Volume may be absent.
func Decode(r io.Reader, symbol, interval string) ([]core.OHLCV, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols, err := columns(header)
	if err != nil {
		return nil, err
	}

	var bars []core.OHLCV
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		b, err := parseRecord(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		b.Symbol = symbol
		b.Interval = interval
		bars = append(bars, b)
	}
	return bars, nil
}

func columns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if name == "date" || name == "time" || name == "timestamp" {
			name = "datetime"
		}
		cols[name] = i
	}
	for _, required := range []string{"datetime", "open", "high", "low", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	return cols, nil
}

func parseRecord(rec []string, cols map[string]int) (core.OHLCV, error) {
	var b core.OHLCV
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	t, err := parseTime(field("datetime"))
	if err != nil {
		return b, err
	}
	b.Time = t

	for name, dst := range map[string]*float64{"open": &b.Open, "high": &b.High, "low": &b.Low, "close": &b.Close} {
		v, err := strconv.ParseFloat(field(name), 64)
		if err != nil {
			return b, fmt.Errorf("%s: %w", name, err)
		}
		*dst = v
	}
	if s := field("volume"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return b, fmt.Errorf("volume: %w", err)
		}
		b.Volume = v
	}
	return b, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", s)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
