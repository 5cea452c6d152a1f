package api

import (
	"net/http"

	"github.com/newthinker/swiftsig/internal/api/response"
	"github.com/newthinker/swiftsig/internal/strategy"
)

// StrategyInfo describes a registered strategy.
type StrategyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	WarmUp      int    `json:"warm_up_bars"`
}

// StrategiesHandler lists the strategies a backtest can use.
type StrategiesHandler struct {
	strategies *strategy.Registry
}

// NewStrategiesHandler creates a new strategies handler.
func NewStrategiesHandler(strategies *strategy.Registry) *StrategiesHandler {
	return &StrategiesHandler{strategies: strategies}
}

// List returns the registered strategies ordered by name.
func (h *StrategiesHandler) List(w http.ResponseWriter, r *http.Request) {
	all := h.strategies.GetAll()
	out := make([]StrategyInfo, 0, len(all))
	for _, s := range all {
		out = append(out, StrategyInfo{
			Name:        s.Name(),
			Description: s.Description(),
			WarmUp:      s.WarmUp(),
		})
	}
	response.JSON(w, http.StatusOK, out)
}
