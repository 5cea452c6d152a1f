package backtest

import "strings"

// DefaultPipValue returns the price increment of one pip for a pair:
// 0.01 for yen crosses and 0.0001 for everything else.
func DefaultPipValue(pair string) float64 {
	if strings.Contains(strings.ToUpper(pair), "JPY") {
		return 0.01
	}
	return 0.0001
}
