package csvfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/newthinker/swiftsig/internal/collector"
	"github.com/newthinker/swiftsig/internal/core"
)

// CSVFile serves history from CSV files on disk, either one fixed file or
// <dir>/<PAIR>_<interval>.csv per request.
type CSVFile struct {
	dir  string
	file string
}

// New creates a collector reading per-pair files from dir.
func New(dir string) *CSVFile {
	return &CSVFile{dir: dir}
}

// NewFile creates a collector that answers every request from one file.
func NewFile(path string) *CSVFile {
	return &CSVFile{file: path}
}

func (c *CSVFile) Name() string {
	return "csv"
}

func (c *CSVFile) Init(cfg collector.Config) error {
	if dir, ok := cfg.Extra["dir"].(string); ok && dir != "" {
		c.dir = dir
	}
	if file, ok := cfg.Extra["file"].(string); ok && file != "" {
		c.file = file
	}
	if c.dir == "" && c.file == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("csv collector needs a dir or file"))
	}
	return nil
}

// Path returns the file a request for symbol and interval reads.
func (c *CSVFile) Path(symbol, interval string) string {
	if c.file != "" {
		return c.file
	}
	name := fmt.Sprintf("%s_%s.csv", collector.BaseSymbol(symbol), strings.ToLower(interval))
	return filepath.Join(c.dir, name)
}

// FetchHistory reads the file and returns the bars in [start, end). A zero
// start or end leaves that side open.
func (c *CSVFile) FetchHistory(symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	path := c.Path(symbol, interval)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("%s: %w", path, err))
		}
		return nil, err
	}
	defer f.Close()

	bars, err := Decode(f, symbol, interval)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Window(collector.Clean(bars), start, end), nil
}

// Window returns the bars with start <= time < end. Bars must be ordered.
func Window(bars []core.OHLCV, start, end time.Time) []core.OHLCV {
	out := make([]core.OHLCV, 0, len(bars))
	for _, b := range bars {
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && !b.Time.Before(end) {
			break
		}
		out = append(out, b)
	}
	return out
}
