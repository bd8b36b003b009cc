package analysis

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/domain"
)

// Handler handles analysis HTTP requests.
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates an analysis handler.
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analysis").Logger(),
	}
}

// RegisterRoutes mounts the analysis endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/analysis", func(r chi.Router) {
		r.Get("/{symbol}", h.HandleList)
		r.Post("/{symbol}", h.HandleAnalyze)
	})
}

// HandleList handles GET /api/analysis/{symbol}
// Returns every unexpired analysis for the symbol.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	records, err := h.service.List(r.Context(), symbol)
	if err != nil {
		h.respondError(w, symbol, err, "Failed to list analyses")
		return
	}
	if records == nil {
		records = []domain.AnalysisRecord{}
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"symbol":   symbol,
		"analyses": records,
		"count":    len(records),
	}))
}

// HandleAnalyze handles POST /api/analysis/{symbol}
// Generates a fresh comprehensive analysis synchronously.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	records, err := h.service.Analyze(r.Context(), symbol)
	if err != nil {
		h.respondError(w, symbol, err, "Analysis failed")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"symbol":   symbol,
		"analyses": records,
		"count":    len(records),
	}))
}

func (h *Handler) respondError(w http.ResponseWriter, symbol string, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Stock not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrExternalService):
		h.log.Error().Err(err).Str("symbol", symbol).Msg(msg)
		http.Error(w, "Analysis provider unavailable", http.StatusBadGateway)
	case errors.Is(err, domain.ErrMalformedResponse):
		h.log.Error().Err(err).Str("symbol", symbol).Msg(msg)
		http.Error(w, "Analysis provider returned malformed data", http.StatusBadGateway)
	default:
		h.log.Error().Err(err).Str("symbol", symbol).Msg(msg)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}
