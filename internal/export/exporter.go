package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/swiftsig/internal/backtest"
	"github.com/newthinker/swiftsig/internal/collector"
	"github.com/newthinker/swiftsig/internal/core"
	"github.com/newthinker/swiftsig/internal/storage/archive"
)

// Format selects which files Export writes.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatBoth Format = "both"
)

// ParseFormat validates a format name. An empty name means both.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatBoth, nil
	case FormatCSV, FormatJSON, FormatBoth:
		return f, nil
	default:
		return "", core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown export format %q (want csv, json or both)", s))
	}
}

// Keys of the map returned by Export.
const (
	KeyTradesCSV   = "trades_csv"
	KeyEquityCSV   = "equity_csv"
	KeyResultsJSON = "results_json"
)

// Exporter writes results to archive storage as
// <prefix>/<PAIR>_<strategy>_<YYYYmmdd_HHMMSS>_{trades.csv,equity.csv,results.json}.
type Exporter struct {
	storage archive.Storage
	prefix  string
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithPrefix sets the directory (or key prefix) results are written under.
func WithPrefix(prefix string) Option {
	return func(e *Exporter) {
		e.prefix = strings.Trim(prefix, "/")
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the time source used for file names.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		e.now = now
	}
}

// NewExporter creates an exporter writing to storage.
func NewExporter(storage archive.Storage, opts ...Option) *Exporter {
	e := &Exporter{
		storage: storage,
		prefix:  "backtests",
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BaseName returns the file name stem for a result exported at t.
func BaseName(res *backtest.Result, t time.Time) string {
	strategy := res.Strategy
	if strategy == "" {
		strategy = "unknown"
	}
	return fmt.Sprintf("%s_%s_%s", collector.BaseSymbol(res.Pair), strategy, t.Format("20060102_150405"))
}

// File is one exported object.
type File struct {
	Path string `json:"path"` // storage path, readable with Exporter.Read
	URI  string `json:"uri"`
}

// Export writes the result in the given format and returns the URI of every
// file written, keyed by KeyTradesCSV, KeyEquityCSV and KeyResultsJSON. The
// CSV files are skipped when the run produced no trades.
func (e *Exporter) Export(ctx context.Context, res *backtest.Result, format Format) (map[string]string, error) {
	files, err := e.ExportFiles(ctx, res, format)
	return URIs(files), err
}

// ExportFiles is Export returning storage paths along with the URIs.
func (e *Exporter) ExportFiles(ctx context.Context, res *backtest.Result, format Format) (map[string]File, error) {
	base := BaseName(res, e.now())
	written := make(map[string]File)

	put := func(key, suffix string, render func(*backtest.Result) ([]byte, error)) error {
		data, err := render(res)
		if err != nil {
			return core.WrapError(core.ErrExportFailed, fmt.Errorf("rendering %s: %w", key, err))
		}
		path := base + suffix
		if e.prefix != "" {
			path = e.prefix + "/" + path
		}
		if err := e.storage.Write(ctx, path, data); err != nil {
			return core.WrapError(core.ErrExportFailed, fmt.Errorf("writing %s: %w", path, err))
		}
		written[key] = File{Path: path, URI: e.storage.URI(path)}
		e.logger.Info("results exported", zap.String("kind", key), zap.String("uri", written[key].URI))
		return nil
	}

	if (format == FormatCSV || format == FormatBoth) && len(res.Trades) > 0 {
		if err := put(KeyTradesCSV, "_trades.csv", TradesCSV); err != nil {
			return written, err
		}
		if err := put(KeyEquityCSV, "_equity.csv", EquityCSV); err != nil {
			return written, err
		}
	}
	if format == FormatJSON || format == FormatBoth {
		if err := put(KeyResultsJSON, "_results.json", ResultJSON); err != nil {
			return written, err
		}
	}
	return written, nil
}

// Read returns the contents of an exported file.
func (e *Exporter) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := e.storage.Read(ctx, path)
	if errors.Is(err, archive.ErrNotExist) {
		return nil, core.WrapError(core.ErrFileNotFound, err)
	}
	return data, err
}

// URIs maps each key of files to its URI.
func URIs(files map[string]File) map[string]string {
	out := make(map[string]string, len(files))
	for key, f := range files {
		out[key] = f.URI
	}
	return out
}

// ContentType returns the media type of the file stored under key.
func ContentType(key string) string {
	if strings.HasSuffix(key, "_json") {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}
