package strategy

import (
	"github.com/newthinker/swiftsig/internal/core"
)

// Config holds strategy configuration
type Config struct {
	Enabled bool
	Params  map[string]any
}

// Strategy proposes trades for a price series. Implementations must not
// modify the series and must be safe to call from concurrent runs.
type Strategy interface {
	Name() string
	Description() string
	// WarmUp is the number of leading bars consumed by indicators before
	// the strategy can emit a signal.
	WarmUp() int
	Init(cfg Config) error
	GenerateSignals(series core.Series, pair string) ([]core.Signal, error)
}
