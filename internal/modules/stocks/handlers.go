package stocks

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/domain"
)

// Handler handles stock HTTP requests.
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a stocks handler.
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "stocks").Logger(),
	}
}

// RegisterRoutes mounts the stock endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/stocks", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/search", h.HandleSearch)
		r.Get("/{symbol}", h.HandleGet)
		r.Get("/{symbol}/history", h.HandleHistory)
		r.Get("/{symbol}/chart", h.HandleChart)
		r.Post("/{symbol}/refresh", h.HandleRefresh)
	})
}

// HandleList handles GET /api/stocks
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	stocks, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list stocks")
		http.Error(w, "Failed to list stocks", http.StatusInternalServerError)
		return
	}
	if stocks == nil {
		stocks = []domain.Stock{}
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"stocks": stocks,
		"count":  len(stocks),
	}))
}

// HandleSearch handles GET /api/stocks/search?q=
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		http.Error(w, "Missing query parameter q", http.StatusBadRequest)
		return
	}

	stocks, err := h.service.Search(r.Context(), term, queryInt(r, "limit", 20))
	if err != nil {
		h.log.Error().Err(err).Str("term", term).Msg("Search failed")
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}
	if stocks == nil {
		stocks = []domain.Stock{}
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"stocks": stocks,
		"count":  len(stocks),
	}))
}

// HandleGet handles GET /api/stocks/{symbol}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	stock, err := h.service.Get(r.Context(), symbol)
	if err != nil {
		h.respondError(w, symbol, err, "Failed to get stock")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(stock))
}

// HandleHistory handles GET /api/stocks/{symbol}/history?days=
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	bars, err := h.service.History(r.Context(), symbol, queryInt(r, "days", 0))
	if err != nil {
		h.respondError(w, symbol, err, "Failed to get price history")
		return
	}
	if bars == nil {
		bars = []domain.PriceBar{}
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"symbol": symbol,
		"bars":   bars,
		"count":  len(bars),
	}))
}

// HandleChart handles GET /api/stocks/{symbol}/chart?days=
func (h *Handler) HandleChart(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	chart, err := h.service.Chart(r.Context(), symbol, queryInt(r, "days", 0))
	if err != nil {
		h.respondError(w, symbol, err, "Failed to build chart data")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(chart))
}

// HandleRefresh handles POST /api/stocks/{symbol}/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	stock, err := h.service.Sync(r.Context(), symbol)
	if err != nil {
		h.respondError(w, symbol, err, "Refresh failed")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(stock))
}

func (h *Handler) respondError(w http.ResponseWriter, symbol string, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Stock not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrNoPriceHistory):
		http.Error(w, "No price history available", http.StatusNotFound)
	case errors.Is(err, domain.ErrExternalService):
		h.log.Error().Err(err).Str("symbol", symbol).Msg(msg)
		http.Error(w, "Market data provider unavailable", http.StatusBadGateway)
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

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
