package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abodzsar29/full-stack-trading-sim/internal/model"
)

const defaultFMPBaseURL = "https://financialmodelingprep.com"

// Rate-limit and auth failures get dedicated errors so the poller can
// log them distinctly; both are transient from the ledger's point of
// view.
var (
	ErrRateLimited  = fmt.Errorf("quote provider rate limit exceeded")
	ErrUnauthorized = fmt.Errorf("quote provider rejected API key")
)

// FMPClient fetches batch quotes from the Financial Modeling Prep API.
type FMPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewFMPClient creates a quote client. baseURL overrides the production
// endpoint for tests; pass "" for the default.
func NewFMPClient(apiKey, baseURL string) *FMPClient {
	if baseURL == "" {
		baseURL = defaultFMPBaseURL
	}
	return &FMPClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// fmpQuote mirrors one element of the FMP /api/v3/quote response.
type fmpQuote struct {
	Symbol            string          `json:"symbol"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	Change            decimal.Decimal `json:"change"`
	ChangesPercentage decimal.Decimal `json:"changesPercentage"`
}

// BatchQuotes fetches current quotes for all symbols in one request.
// Entries with a missing symbol or non-positive price are skipped.
func (c *FMPClient) BatchQuotes(ctx context.Context, symbols []string) ([]model.Quote, error) {
	url := fmt.Sprintf("%s/api/v3/quote/%s?apikey=%s",
		c.baseURL, strings.Join(symbols, ","), c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "TradingSimulator/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	default:
		return nil, fmt.Errorf("fetch quotes: unexpected status %d", resp.StatusCode)
	}

	var raw []fmpQuote
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode quotes: %w", err)
	}

	now := time.Now().UTC()
	quotes := make([]model.Quote, 0, len(raw))
	for _, r := range raw {
		if r.Symbol == "" || !r.Price.IsPositive() {
			continue
		}
		name := r.Name
		if name == "" {
			name = r.Symbol + " Inc."
		}
		quotes = append(quotes, model.Quote{
			Symbol:        r.Symbol,
			Name:          name,
			Price:         r.Price,
			Change:        r.Change,
			ChangePercent: r.ChangesPercentage,
			UpdatedAt:     now,
		})
	}
	return quotes, nil
}
