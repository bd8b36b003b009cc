package recommendations

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/domain"
)

// Handler handles recommendation HTTP requests.
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a recommendations handler.
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "recommendations").Logger(),
	}
}

// RegisterRoutes mounts the recommendation endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/recommendations", func(r chi.Router) {
		r.Get("/", h.HandleQuery)
		r.Get("/top", h.HandleTop)
		r.Get("/{symbol}", h.HandleGet)
		r.Post("/{symbol}", h.HandleRecompute)
	})
}

// HandleQuery handles GET /api/recommendations?min_score=&risk=&limit=
// risk accepts a comma-separated list of low, medium, high.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	minScore := 0.0
	if v := r.URL.Query().Get("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			http.Error(w, "min_score must be a number in [0, 1]", http.StatusBadRequest)
			return
		}
		minScore = f
	}

	riskLevels, err := parseRiskLevels(r.URL.Query().Get("risk"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	recs, err := h.service.Query(r.Context(), minScore, riskLevels, queryInt(r, "limit", 50))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query recommendations")
		http.Error(w, "Failed to query recommendations", http.StatusInternalServerError)
		return
	}

	h.writeList(w, recs)
}

// HandleTop handles GET /api/recommendations/top?n=
func (h *Handler) HandleTop(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.TopN(r.Context(), queryInt(r, "n", 10))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get top recommendations")
		http.Error(w, "Failed to get top recommendations", http.StatusInternalServerError)
		return
	}

	h.writeList(w, recs)
}

// HandleGet handles GET /api/recommendations/{symbol}
// Returns the stored recommendation, scoring the symbol first when no
// valid one exists.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.respondWithRecommendation(w, r, false)
}

// HandleRecompute handles POST /api/recommendations/{symbol}
// Always scores fresh.
func (h *Handler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	h.respondWithRecommendation(w, r, true)
}

func (h *Handler) respondWithRecommendation(w http.ResponseWriter, r *http.Request, force bool) {
	symbol := chi.URLParam(r, "symbol")

	rec, err := h.service.Get(r.Context(), symbol, force)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Stock not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get recommendation")
		http.Error(w, "Failed to get recommendation", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(rec))
}

func (h *Handler) writeList(w http.ResponseWriter, recs []domain.Recommendation) {
	if recs == nil {
		recs = []domain.Recommendation{}
	}
	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"recommendations": recs,
		"count":           len(recs),
	}))
}

func parseRiskLevels(raw string) ([]domain.RiskLevel, error) {
	if raw == "" {
		return nil, nil
	}

	var out []domain.RiskLevel
	for _, part := range strings.Split(raw, ",") {
		switch rl := domain.RiskLevel(strings.TrimSpace(strings.ToLower(part))); rl {
		case domain.RiskLow, domain.RiskMedium, domain.RiskHigh:
			out = append(out, rl)
		default:
			return nil, errors.New("risk must be a comma-separated list of low, medium, high")
		}
	}
	return out, nil
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

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
