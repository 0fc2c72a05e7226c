package market

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abodzsar29/full-stack-trading-sim/internal/model"
	"github.com/abodzsar29/full-stack-trading-sim/internal/store"
)

// Handlers serves the stock/quote endpoints.
type Handlers struct {
	quotes  store.QuoteStore
	history *PolygonClient
}

// NewHandlers creates the stock HTTP handlers.
func NewHandlers(quotes store.QuoteStore, history *PolygonClient) *Handlers {
	return &Handlers{quotes: quotes, history: history}
}

// ListStocks handles GET /api/stocks
func (h *Handlers) ListStocks(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.quotes.ListQuotes(r.Context())
	if err != nil {
		slog.Error("list quotes failed", "err", err)
		writeError(w, "Failed to fetch stocks", http.StatusInternalServerError)
		return
	}
	if quotes == nil {
		quotes = []model.Quote{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(quotes)
}

// GetStock handles GET /api/stocks/{symbol}
func (h *Handlers) GetStock(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	quote, err := h.quotes.CurrentQuote(r.Context(), symbol)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, "Stock not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("get quote failed", "symbol", symbol, "err", err)
		writeError(w, "Failed to fetch stock", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(quote)
}

// GetStockHistory handles GET /api/stocks/{symbol}/history?timeframe=1year
// Provider failures degrade to an empty series rather than an error so
// charts render without data instead of breaking the page.
func (h *Handlers) GetStockHistory(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = "2year"
	}

	bars, err := h.history.DailyBars(r.Context(), symbol, timeframe)
	if err != nil {
		slog.Warn("historical data unavailable", "symbol", symbol, "err", err)
		bars = []model.Bar{}
	}
	if bars == nil {
		bars = []model.Bar{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bars)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
