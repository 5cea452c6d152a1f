// internal/storage/archive/interface.go
package archive

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotExist is returned by Read when nothing is stored at the path.
var ErrNotExist = errors.New("archive: object does not exist")

// Storage is the blob store behind exported results and the price cache.
// Paths are slash-separated and relative to the backend's root.
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)

	// URI names the stored object for humans, e.g. in CLI output.
	URI(path string) string
}

// Config selects and configures a backend.
type Config struct {
	Backend string // "localfs" or "s3"
	Path    string // localfs root
	S3      S3Config
}

// New opens the backend named by cfg.Backend.
func New(cfg Config) (Storage, error) {
	switch cfg.Backend {
	case "", "localfs":
		path := cfg.Path
		if path == "" {
			path = "."
		}
		return NewLocalFS(path)
	case "s3":
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 storage: bucket is required")
		}
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
