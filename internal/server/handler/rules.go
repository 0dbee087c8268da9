package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

// RulesProvider resolves validation rules for a pair.
type RulesProvider interface {
	Rules(ctx context.Context, target, quote string) (domain.ValidationRules, error)
}

// RulesHandler serves the resolved validation rules of a pair.
type RulesHandler struct {
	rules  RulesProvider
	logger *slog.Logger
}

// NewRulesHandler creates a RulesHandler.
func NewRulesHandler(rules RulesProvider, logger *slog.Logger) *RulesHandler {
	return &RulesHandler{rules: rules, logger: logger}
}

type rulesResponse struct {
	Symbol string                 `json:"symbol"`
	Rules  domain.ValidationRules `json:"rules"`
}

// GetRules returns tick sizes and order limits for a pair.
// GET /api/rules/{quote}/{target}
func (h *RulesHandler) GetRules(w http.ResponseWriter, r *http.Request) {
	target, quote := pairParams(r)
	rules, err := h.rules.Rules(r.Context(), target, quote)
	if err != nil {
		failWith(w, r, h.logger, "get rules", err)
		return
	}
	writeJSON(w, http.StatusOK, rulesResponse{Symbol: domain.Symbol(target, quote), Rules: rules})
}
