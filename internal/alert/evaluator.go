package alert

import (
	"sync"
	"time"

	"github.com/newthinker/swiftsig/internal/backtest"
)

// Alert is a rule that fired for one backtest.
type Alert struct {
	Rule     string  `json:"rule"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Value    float64 `json:"value"`
}

// Evaluator checks backtest metrics against a fixed rule set. A rule fires
// at most once per subject within the cooldown, so repeated runs of the same
// pair do not flood the notifiers.
type Evaluator struct {
	rules    []Rule
	cooldown time.Duration

	// keyed by rule name and subject
	lastFired map[string]time.Time

	now func() time.Time

	mu sync.Mutex
}

// NewEvaluator validates rules and creates an evaluator with no cooldown.
func NewEvaluator(rules []Rule) (*Evaluator, error) {
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &Evaluator{
		rules:     rules,
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}, nil
}

// SetCooldown sets the minimum time between two firings of a rule for the
// same subject.
func (e *Evaluator) SetCooldown(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cooldown = d
}

// Len returns the number of rules.
func (e *Evaluator) Len() int {
	return len(e.rules)
}

// Check evaluates every rule against m and returns those that fire for
// subject, typically "PAIR/strategy".
func (e *Evaluator) Check(subject string, m backtest.Metrics) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	values := MetricValues(m)

	var fired []Alert
	for i := range e.rules {
		rule := &e.rules[i]
		if !rule.Evaluate(values) {
			continue
		}

		key := rule.Name + "|" + subject
		if last, ok := e.lastFired[key]; ok && now.Sub(last) < e.cooldown {
			continue
		}
		e.lastFired[key] = now

		c, _ := rule.parse()
		fired = append(fired, Alert{
			Rule:     rule.Name,
			Severity: rule.severity(),
			Message:  rule.FormatMessage(values),
			Value:    values[c.metric],
		})
	}
	return fired
}

// advanceTime is for testing - advances the internal clock.
func (e *Evaluator) advanceTime(d time.Duration) {
	oldNow := e.now
	e.now = func() time.Time {
		return oldNow().Add(d)
	}
}
