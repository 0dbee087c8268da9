package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

// AnalysisService is what the analysis handler needs from the service layer.
type AnalysisService interface {
	AnalyzePair(ctx context.Context, target, quote string) (domain.AnalysisResult, error)
	Latest(ctx context.Context, target, quote string) (domain.AnalysisResult, error)
	History(ctx context.Context, target, quote string, opts domain.ListOpts) ([]domain.AnalysisResult, error)
}

// AnalysisHandler serves microstructure analysis endpoints.
type AnalysisHandler struct {
	analysis AnalysisService
	logger   *slog.Logger
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(analysis AnalysisService, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis, logger: logger}
}

// Analyze fetches a fresh snapshot from the exchange and analyzes it.
// GET /api/analysis/{quote}/{target}
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	target, quote := pairParams(r)
	result, err := h.analysis.AnalyzePair(r.Context(), target, quote)
	if err != nil {
		failWith(w, r, h.logger, "analyze", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Latest returns the most recent recorded analysis.
// GET /api/analysis/{quote}/{target}/latest
func (h *AnalysisHandler) Latest(w http.ResponseWriter, r *http.Request) {
	target, quote := pairParams(r)
	result, err := h.analysis.Latest(r.Context(), target, quote)
	if err != nil {
		failWith(w, r, h.logger, "latest analysis", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type historyResponse struct {
	Symbol   string                  `json:"symbol"`
	Analyses []domain.AnalysisResult `json:"analyses"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
}

// History lists persisted analyses, newest first.
// GET /api/analysis/{quote}/{target}/history?limit=50&offset=0&since=...&until=...
func (h *AnalysisHandler) History(w http.ResponseWriter, r *http.Request) {
	target, quote := pairParams(r)
	opts := parseListOpts(r)
	results, err := h.analysis.History(r.Context(), target, quote, opts)
	if err != nil {
		failWith(w, r, h.logger, "analysis history", err)
		return
	}
	if results == nil {
		results = []domain.AnalysisResult{}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Symbol:   domain.Symbol(target, quote),
		Analyses: results,
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	})
}
