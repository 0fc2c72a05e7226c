package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/abodzsar29/full-stack-trading-sim/internal/model"
)

const defaultPolygonBaseURL = "https://api.polygon.io"

// PolygonClient fetches daily OHLCV aggregates from Polygon.io for the
// charting endpoints.
type PolygonClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewPolygonClient creates a historical-data client. baseURL overrides
// the production endpoint for tests; pass "" for the default.
func NewPolygonClient(apiKey, baseURL string) *PolygonClient {
	if baseURL == "" {
		baseURL = defaultPolygonBaseURL
	}
	return &PolygonClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type polygonAggsResponse struct {
	Status  string `json:"status"`
	Results []struct {
		T int64   `json:"t"` // epoch millis
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
		V float64 `json:"v"`
	} `json:"results"`
}

// DailyBars returns daily candles for a symbol over a timeframe preset
// (1day, 1week, 1month, 6month, 1year, ytd; anything else means 2year).
func (c *PolygonClient) DailyBars(ctx context.Context, symbol, timeframe string) ([]model.Bar, error) {
	start, end := dateRange(timeframe, time.Now().UTC())

	url := fmt.Sprintf(
		"%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&limit=5000&apiKey=%s",
		c.baseURL, symbol, start, end, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "TradingSimulator/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch history %s: unexpected status %d", symbol, resp.StatusCode)
	}

	var raw polygonAggsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", symbol, err)
	}
	if raw.Status != "OK" {
		return nil, fmt.Errorf("fetch history %s: provider status %q", symbol, raw.Status)
	}

	bars := make([]model.Bar, 0, len(raw.Results))
	for _, r := range raw.Results {
		bars = append(bars, model.Bar{
			Date:   time.UnixMilli(r.T).UTC().Format("2006-01-02"),
			Open:   r.O,
			High:   r.H,
			Low:    r.L,
			Close:  r.C,
			Volume: r.V,
		})
	}
	return bars, nil
}

// dateRange maps a timeframe preset to inclusive start/end dates.
func dateRange(timeframe string, now time.Time) (string, string) {
	var start time.Time
	switch timeframe {
	case "1day":
		start = now.AddDate(0, 0, -1)
	case "1week":
		start = now.AddDate(0, 0, -7)
	case "1month":
		start = now.AddDate(0, -1, 0)
	case "6month":
		start = now.AddDate(0, -6, 0)
	case "1year":
		start = now.AddDate(-1, 0, 0)
	case "ytd":
		start = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	default: // 2year
		start = now.AddDate(-2, 0, 0)
	}
	const layout = "2006-01-02"
	return start.Format(layout), now.Format(layout)
}
