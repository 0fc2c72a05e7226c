package market_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abodzsar29/full-stack-trading-sim/internal/market"
	"github.com/abodzsar29/full-stack-trading-sim/internal/model"
	"github.com/abodzsar29/full-stack-trading-sim/internal/store"
)

func newStockRouter(t *testing.T, ms *store.MemoryStore, polygonURL string) chi.Router {
	t.Helper()
	h := market.NewHandlers(ms, market.NewPolygonClient("test-key", polygonURL))

	r := chi.NewRouter()
	r.Get("/api/stocks", h.ListStocks)
	r.Get("/api/stocks/{symbol}", h.GetStock)
	r.Get("/api/stocks/{symbol}/history", h.GetStockHistory)
	return r
}

func TestListStocks(t *testing.T) {
	ms := store.NewMemoryStore()
	for _, sym := range []string{"MSFT", "AAPL"} {
		ms.UpsertQuote(context.Background(), &model.Quote{
			Symbol: sym, Name: sym, Price: d(100), UpdatedAt: time.Now().UTC(),
		})
	}
	router := newStockRouter(t, ms, "")

	req := httptest.NewRequest("GET", "/api/stocks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var quotes []model.Quote
	json.Unmarshal(w.Body.Bytes(), &quotes)
	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(quotes))
	}
	if quotes[0].Symbol != "AAPL" {
		t.Errorf("expected symbol ordering, got %s first", quotes[0].Symbol)
	}
}

func TestGetStock_UppercasesAndNotFound(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.UpsertQuote(context.Background(), &model.Quote{
		Symbol: "AAPL", Name: "Apple Inc.", Price: d(150), UpdatedAt: time.Now().UTC(),
	})
	router := newStockRouter(t, ms, "")

	req := httptest.NewRequest("GET", "/api/stocks/aapl", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("lowercase symbol should resolve, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/stocks/NOPE", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown symbol, got %d", w.Code)
	}
}

func TestGetStockHistory_DegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	router := newStockRouter(t, store.NewMemoryStore(), srv.URL)

	req := httptest.NewRequest("GET", "/api/stocks/AAPL/history?timeframe=1year", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("history failure must degrade, got %d", w.Code)
	}

	var bars []model.Bar
	json.Unmarshal(w.Body.Bytes(), &bars)
	if len(bars) != 0 {
		t.Errorf("expected empty series, got %d bars", len(bars))
	}
}
