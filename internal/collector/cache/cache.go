package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/swiftsig/internal/collector"
	"github.com/newthinker/swiftsig/internal/collector/csvfile"
	"github.com/newthinker/swiftsig/internal/core"
	"github.com/newthinker/swiftsig/internal/storage/archive"
)

// Cache wraps a collector and keeps every fetched range as a CSV object in
// archive storage, keyed by pair, interval and the UTC days the range spans.
// A repeated request on the same day is served from storage without touching
// the source.
type Cache struct {
	source  collector.Collector
	storage archive.Storage
	prefix  string
	logger  *zap.Logger
	timeout time.Duration
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPrefix sets the storage prefix for cache objects. Default "prices".
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = strings.Trim(prefix, "/")
	}
}

// New wraps source with a storage-backed cache.
func New(source collector.Collector, storage archive.Storage, opts ...Option) *Cache {
	c := &Cache{
		source:  source,
		storage: storage,
		prefix:  "prices",
		logger:  zap.NewNop(),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Name() string {
	return c.source.Name()
}

func (c *Cache) Init(cfg collector.Config) error {
	return c.source.Init(cfg)
}

// Key returns the storage path of a cached range. Only the dates of start and
// end are part of the key.
func (c *Cache) Key(symbol string, start, end time.Time, interval string) string {
	return fmt.Sprintf("%s%s_%s_%s_%s.csv", c.dir(),
		collector.BaseSymbol(symbol), interval,
		start.UTC().Format("20060102"), end.UTC().Format("20060102"))
}

func (c *Cache) dir() string {
	if c.prefix == "" {
		return c.source.Name() + "/"
	}
	return c.prefix + "/" + c.source.Name() + "/"
}

// Clear deletes the cached ranges of symbol, or of every symbol when symbol
// is empty, and returns how many entries were removed.
func (c *Cache) Clear(ctx context.Context, symbol string) (int, error) {
	prefix := c.dir()
	if symbol != "" {
		prefix += collector.BaseSymbol(symbol) + "_"
	}
	paths, err := c.storage.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("listing price cache: %w", err)
	}

	removed := 0
	for _, p := range paths {
		if err := c.storage.Delete(ctx, p); err != nil {
			return removed, fmt.Errorf("deleting %s: %w", p, err)
		}
		removed++
	}
	c.logger.Info("price cache cleared", zap.String("prefix", prefix), zap.Int("removed", removed))
	return removed, nil
}

// FetchHistory serves the range from storage when present, otherwise fetches
// it from the source and stores it. Storage failures are logged and never
// fail the fetch.
func (c *Cache) FetchHistory(symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	key := c.Key(symbol, start, end, interval)
	data, err := c.storage.Read(ctx, key)
	switch {
	case err == nil:
		bars, derr := csvfile.Decode(bytes.NewReader(data), symbol, interval)
		if derr == nil && len(bars) > 0 {
			c.logger.Debug("price cache hit", zap.String("key", key), zap.Int("bars", len(bars)))
			return bars, nil
		}
		c.logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(derr))
	case !errors.Is(err, archive.ErrNotExist):
		c.logger.Warn("price cache read failed", zap.String("key", key), zap.Error(err))
	}

	bars, err := c.source.FetchHistory(symbol, start, end, interval)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return bars, nil
	}

	var buf bytes.Buffer
	if err := csvfile.Encode(&buf, bars); err != nil {
		c.logger.Warn("encoding price cache entry", zap.String("key", key), zap.Error(err))
		return bars, nil
	}
	if err := c.storage.Write(ctx, key, buf.Bytes()); err != nil {
		c.logger.Warn("price cache write failed", zap.String("key", key), zap.Error(err))
		return bars, nil
	}
	c.logger.Debug("price cache stored", zap.String("key", key), zap.Int("bars", len(bars)))
	return bars, nil
}
