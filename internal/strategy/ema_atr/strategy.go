package ema_atr

import (
	"fmt"

	"github.com/newthinker/swiftsig/internal/core"
	"github.com/newthinker/swiftsig/internal/indicator"
	"github.com/newthinker/swiftsig/internal/strategy"
)

// EMAATR trades exponential moving average crossovers with a 2:1
// reward-to-risk ATR bracket
type EMAATR struct {
	fastPeriod int
	slowPeriod int
	atrPeriod  int
	exits      strategy.ATRExits
}

// New creates the strategy with EMA 9/21, ATR 14, stop 1.5 ATR, target 3 ATR
func New() *EMAATR {
	return &EMAATR{
		fastPeriod: 9,
		slowPeriod: 21,
		atrPeriod:  14,
		exits:      strategy.ATRExits{StopMult: 1.5, TargetMult: 3.0},
	}
}

func (e *EMAATR) Name() string {
	return "ema_atr"
}

func (e *EMAATR) Description() string {
	return fmt.Sprintf("EMA Crossover (%d/%d) with ATR(%d) bracket", e.fastPeriod, e.slowPeriod, e.atrPeriod)
}

func (e *EMAATR) WarmUp() int {
	return max(e.slowPeriod, e.atrPeriod)
}

func (e *EMAATR) Init(cfg strategy.Config) error {
	var err error
	if e.fastPeriod, err = strategy.IntParam(cfg.Params, "fast_period", e.fastPeriod); err != nil {
		return err
	}
	if e.slowPeriod, err = strategy.IntParam(cfg.Params, "slow_period", e.slowPeriod); err != nil {
		return err
	}
	if e.atrPeriod, err = strategy.IntParam(cfg.Params, "atr_period", e.atrPeriod); err != nil {
		return err
	}
	if e.exits.StopMult, err = strategy.FloatParam(cfg.Params, "sl_atr_mult", e.exits.StopMult); err != nil {
		return err
	}
	if e.exits.TargetMult, err = strategy.FloatParam(cfg.Params, "tp_atr_mult", e.exits.TargetMult); err != nil {
		return err
	}
	if e.fastPeriod <= 0 || e.fastPeriod >= e.slowPeriod || e.atrPeriod <= 0 {
		return fmt.Errorf("invalid periods fast=%d slow=%d atr=%d", e.fastPeriod, e.slowPeriod, e.atrPeriod)
	}
	if e.exits.StopMult <= 0 || e.exits.TargetMult <= 0 {
		return fmt.Errorf("ATR multiples must be positive")
	}
	return nil
}

func (e *EMAATR) GenerateSignals(series core.Series, pair string) ([]core.Signal, error) {
	n := series.Len()
	if n <= e.WarmUp() {
		return nil, nil
	}

	closes := series.Closes()
	fast := indicator.Align(indicator.EMA(closes, e.fastPeriod), n)
	slow := indicator.Align(indicator.EMA(closes, e.slowPeriod), n)
	atr := indicator.Align(indicator.ATR(series.Highs(), series.Lows(), closes, e.atrPeriod), n)

	return strategy.CrossoverSignals(series, pair, e.Name(), fast, slow, atr, e.exits), nil
}
