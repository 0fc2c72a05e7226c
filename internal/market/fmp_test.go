package market_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/abodzsar29/full-stack-trading-sim/internal/market"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestBatchQuotes_ParsesResponse(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"symbol":"AAPL","name":"Apple Inc.","price":150.25,"change":1.5,"changesPercentage":1.01},
			{"symbol":"MSFT","name":"","price":300,"change":-2,"changesPercentage":-0.66},
			{"symbol":"","price":10},
			{"symbol":"BAD","price":0}
		]`))
	}))
	defer srv.Close()

	client := market.NewFMPClient("test-key", srv.URL)
	quotes, err := client.BatchQuotes(context.Background(), []string{"AAPL", "MSFT"})
	if err != nil {
		t.Fatalf("BatchQuotes failed: %v", err)
	}

	if !strings.HasSuffix(gotPath, "/api/v3/quote/AAPL,MSFT") {
		t.Errorf("unexpected request path: %s", gotPath)
	}
	if !strings.Contains(gotQuery, "apikey=test-key") {
		t.Errorf("expected apikey in query, got %s", gotQuery)
	}

	// Entries without a symbol or positive price are dropped.
	if len(quotes) != 2 {
		t.Fatalf("expected 2 valid quotes, got %d", len(quotes))
	}
	if !quotes[0].Price.Equal(d(150.25)) {
		t.Errorf("expected AAPL price 150.25, got %s", quotes[0].Price)
	}
	if quotes[1].Name != "MSFT Inc." {
		t.Errorf("missing name should default, got %q", quotes[1].Name)
	}
	if quotes[0].UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestBatchQuotes_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := market.NewFMPClient("test-key", srv.URL)
	_, err := client.BatchQuotes(context.Background(), []string{"AAPL"})
	if !errors.Is(err, market.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestBatchQuotes_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := market.NewFMPClient("bad-key", srv.URL)
	_, err := client.BatchQuotes(context.Background(), []string{"AAPL"})
	if !errors.Is(err, market.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestBatchQuotes_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	client := market.NewFMPClient("test-key", srv.URL)
	if _, err := client.BatchQuotes(context.Background(), []string{"AAPL"}); err == nil {
		t.Error("expected decode error for non-array body")
	}
}
