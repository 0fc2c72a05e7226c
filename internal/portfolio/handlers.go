package portfolio

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/abodzsar29/full-stack-trading-sim/internal/model"
)

// defaultAccount is used when the client sends no User-Id header.
const defaultAccount = "default-user"

// TradeRequest is the JSON body for POST /api/portfolio/trade.
type TradeRequest struct {
	Symbol   string          `json:"symbol"`
	Side     string          `json:"type"` // BUY or SELL
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// accountID resolves the per-account identifier from the request.
func accountID(r *http.Request) string {
	if id := r.Header.Get("User-Id"); id != "" {
		return id
	}
	return defaultAccount
}

// HandleGetPortfolio handles GET /api/portfolio
func (s *Service) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := s.GetPortfolio(r.Context(), accountID(r))
	if err != nil {
		slog.Error("get portfolio failed", "err", err)
		writeError(w, "Failed to fetch portfolio", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// HandleGetHoldings handles GET /api/portfolio/holdings
func (s *Service) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.GetHoldings(r.Context(), accountID(r))
	if err != nil {
		slog.Error("get holdings failed", "err", err)
		writeError(w, "Failed to fetch holdings", http.StatusInternalServerError)
		return
	}
	if holdings == nil {
		holdings = []model.HoldingView{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(holdings)
}

// HandleGetTransactions handles GET /api/portfolio/transactions
func (s *Service) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.GetTransactions(r.Context(), accountID(r))
	if err != nil {
		slog.Error("get transactions failed", "err", err)
		writeError(w, "Failed to fetch transactions", http.StatusInternalServerError)
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txns)
}

// HandleGetHistory handles GET /api/portfolio/history
func (s *Service) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.GetHistory(r.Context(), accountID(r))
	if err != nil {
		slog.Error("get history failed", "err", err)
		writeError(w, "Failed to fetch portfolio history", http.StatusInternalServerError)
		return
	}
	if snaps == nil {
		snaps = []model.Snapshot{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snaps)
}

// HandleTrade handles POST /api/portfolio/trade
// Business rejections come back 200 with success=false; only storage
// faults surface as 500.
func (s *Service) HandleTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	account := accountID(r)
	symbol := strings.ToUpper(req.Symbol)

	result, err := s.ExecuteTrade(r.Context(), account, symbol, req.Side, req.Quantity, req.Price)
	if err != nil {
		slog.Error("trade execution fault", "account", account, "symbol", symbol, "err", err)
		writeError(w, "Failed to execute trade", http.StatusInternalServerError)
		return
	}

	// Revaluation is a deliberate best-effort follow-up: the trade has
	// committed, so a snapshot failure only leaves the totals stale
	// until the next successful revaluation.
	if result.Success {
		if err := s.RevalueAndSnapshot(r.Context(), account); err != nil {
			slog.Error("post-trade revaluation failed", "account", account, "err", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
