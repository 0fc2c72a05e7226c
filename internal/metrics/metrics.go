// Package metrics provides Prometheus instrumentation for the trading
// simulator.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesTotal counts committed trades, partitioned by side.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingsim_trades_total",
		Help: "Total number of trades executed",
	}, []string{"side"})

	// TradeRejections counts trades rejected before any mutation,
	// partitioned by reason (insufficient_funds, insufficient_shares,
	// invalid_order, invalid_side, unknown_symbol). Storage faults are
	// not rejections and are not counted here.
	TradeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingsim_trade_rejections_total",
		Help: "Trades rejected by business or validation checks",
	}, []string{"reason"})

	// TradeLatency tracks end-to-end trade execution latency.
	TradeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradingsim_trade_latency_seconds",
		Help:    "Trade execution latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"side"})

	// SnapshotsTotal counts portfolio revaluation snapshots written.
	SnapshotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradingsim_snapshots_total",
		Help: "Portfolio valuation snapshots appended",
	})

	// QuoteRefreshTotal counts quote poll cycles by outcome.
	QuoteRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingsim_quote_refresh_total",
		Help: "Quote refresh cycles",
	}, []string{"status"})

	// QuoteRefreshDuration tracks how long a full refresh cycle takes.
	QuoteRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tradingsim_quote_refresh_duration_seconds",
		Help:    "Quote refresh cycle duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradingsim_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradingsim_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradingsim_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the route surface is small.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
