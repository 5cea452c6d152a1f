package ma_crossover

import (
	"fmt"

	"github.com/newthinker/swiftsig/internal/core"
	"github.com/newthinker/swiftsig/internal/indicator"
	"github.com/newthinker/swiftsig/internal/strategy"
)

// Default parameters
const (
	DefaultFastPeriod = 20
	DefaultSlowPeriod = 50
	DefaultATRPeriod  = 14
	DefaultSLATRMult  = 2.0
	DefaultTPATRMult  = 3.0
)

// MACrossover implements a simple moving average crossover strategy with
// ATR-based take-profit and stop-loss levels
type MACrossover struct {
	fastPeriod int
	slowPeriod int
	atrPeriod  int
	exits      strategy.ATRExits
}

// New creates a new MA Crossover strategy
func New(fastPeriod, slowPeriod int) *MACrossover {
	return &MACrossover{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
		atrPeriod:  DefaultATRPeriod,
		exits: strategy.ATRExits{
			StopMult:   DefaultSLATRMult,
			TargetMult: DefaultTPATRMult,
		},
	}
}

// NewDefault creates the strategy with its default periods
func NewDefault() *MACrossover {
	return New(DefaultFastPeriod, DefaultSlowPeriod)
}

func (m *MACrossover) Name() string {
	return "ma_crossover"
}

func (m *MACrossover) Description() string {
	return fmt.Sprintf("MA Crossover (%d/%d), ATR(%d) stop %.1fx target %.1fx",
		m.fastPeriod, m.slowPeriod, m.atrPeriod, m.exits.StopMult, m.exits.TargetMult)
}

func (m *MACrossover) WarmUp() int {
	return max(m.slowPeriod, m.atrPeriod)
}

func (m *MACrossover) Init(cfg strategy.Config) error {
	var err error
	if m.fastPeriod, err = strategy.IntParam(cfg.Params, "fast_period", m.fastPeriod); err != nil {
		return err
	}
	if m.slowPeriod, err = strategy.IntParam(cfg.Params, "slow_period", m.slowPeriod); err != nil {
		return err
	}
	if m.atrPeriod, err = strategy.IntParam(cfg.Params, "atr_period", m.atrPeriod); err != nil {
		return err
	}
	if m.exits.StopMult, err = strategy.FloatParam(cfg.Params, "sl_atr_mult", m.exits.StopMult); err != nil {
		return err
	}
	if m.exits.TargetMult, err = strategy.FloatParam(cfg.Params, "tp_atr_mult", m.exits.TargetMult); err != nil {
		return err
	}

	if m.fastPeriod <= 0 || m.slowPeriod <= 0 || m.atrPeriod <= 0 {
		return fmt.Errorf("periods must be positive")
	}
	if m.fastPeriod >= m.slowPeriod {
		return fmt.Errorf("fast_period (%d) must be below slow_period (%d)", m.fastPeriod, m.slowPeriod)
	}
	if m.exits.StopMult <= 0 || m.exits.TargetMult <= 0 {
		return fmt.Errorf("ATR multiples must be positive")
	}
	return nil
}

func (m *MACrossover) GenerateSignals(series core.Series, pair string) ([]core.Signal, error) {
	n := series.Len()
	if n <= m.WarmUp() {
		return nil, nil // Not enough data
	}

	closes := series.Closes()
	fast := indicator.Align(indicator.SMA(closes, m.fastPeriod), n)
	slow := indicator.Align(indicator.SMA(closes, m.slowPeriod), n)
	atr := indicator.Align(indicator.ATR(series.Highs(), series.Lows(), closes, m.atrPeriod), n)

	return strategy.CrossoverSignals(series, pair, m.Name(), fast, slow, atr, m.exits), nil
}
