package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/swiftsig/internal/core"
	"go.uber.org/zap"
)

// Factory builds a fresh, unconfigured strategy instance
type Factory func() Strategy

// Registry holds the strategies available to backtests, keyed by name
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	factories  map[string]Factory
	params     map[string]map[string]any
	logger     *zap.Logger
}

// NewRegistry creates an empty strategy registry
func NewRegistry(logger ...*zap.Logger) *Registry {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Registry{
		strategies: make(map[string]Strategy),
		factories:  make(map[string]Factory),
		params:     make(map[string]map[string]any),
		logger:     l,
	}
}

// Register adds a strategy, replacing any strategy with the same name
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.strategies[s.Name()]; exists {
		r.logger.Warn("replacing registered strategy", zap.String("strategy", s.Name()))
	}
	r.strategies[s.Name()] = s
	delete(r.factories, s.Name())
}

// RegisterFactory registers the strategy f builds. The registry keeps one
// shared instance for Lookup and calls f again whenever Build needs an
// instance with its own parameters.
func (r *Registry) RegisterFactory(f Factory) {
	s := f()
	r.Register(s)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[s.Name()] = f
}

// Configure initializes every registered strategy that has an entry in cfgs.
// Disabled strategies are removed.
func (r *Registry) Configure(cfgs map[string]Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, cfg := range cfgs {
		s, ok := r.strategies[name]
		if !ok {
			r.logger.Warn("config for unknown strategy", zap.String("strategy", name))
			continue
		}
		if !cfg.Enabled {
			delete(r.strategies, name)
			r.logger.Info("strategy disabled", zap.String("strategy", name))
			continue
		}
		if err := s.Init(cfg); err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
		r.params[name] = cfg.Params
		r.logger.Debug("strategy configured",
			zap.String("strategy", name),
			zap.String("description", s.Description()),
		)
	}
	return nil
}

// Get retrieves a strategy by name
func (r *Registry) Get(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// Lookup is Get returning a STRATEGY_NOT_FOUND error for unknown names
func (r *Registry) Lookup(name string) (Strategy, error) {
	s, ok := r.Get(name)
	if !ok {
		return nil, core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("unknown strategy %q", name))
	}
	return s, nil
}

// Build returns a strategy for one run. Without params it is the shared
// instance Lookup returns. Otherwise a fresh instance is built and
// initialized with the configured parameters overridden by params, leaving
// the shared instance untouched. Init errors are returned as they are.
func (r *Registry) Build(name string, params map[string]any) (Strategy, error) {
	if len(params) == 0 {
		return r.Lookup(name)
	}

	r.mu.RLock()
	_, registered := r.strategies[name]
	factory, ok := r.factories[name]
	base := r.params[name]
	r.mu.RUnlock()

	if !registered {
		return nil, core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("unknown strategy %q", name))
	}
	if !ok {
		return nil, fmt.Errorf("strategy %q does not accept per-run parameters", name)
	}

	merged := make(map[string]any, len(base)+len(params))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}

	s := factory()
	if err := s.Init(Config{Enabled: true, Params: merged}); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

// Names returns the registered strategy names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetAll returns all registered strategies ordered by name
func (r *Registry) GetAll() []Strategy {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Strategy, 0, len(names))
	for _, name := range names {
		if s, ok := r.strategies[name]; ok {
			result = append(result, s)
		}
	}
	return result
}
