package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/abodzsar29/full-stack-trading-sim/internal/market"
	"github.com/abodzsar29/full-stack-trading-sim/internal/metrics"
	"github.com/abodzsar29/full-stack-trading-sim/internal/portfolio"
	"github.com/abodzsar29/full-stack-trading-sim/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	// --- Initialize stores ---
	var ledger store.Store
	var quotes store.QuoteStore
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		pg := store.NewPostgresStore(pool)
		ledger = pg
		quotes = pg
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through caches if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			ledger = store.NewCachedStore(ledger, rdb, 30*time.Second)
			quotes = store.NewCachedQuoteStore(quotes, rdb, 5*time.Minute)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		ms := store.NewMemoryStore()
		ledger = ms
		quotes = ms
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- WebSocket hub ---
	hub := market.NewHub()
	go hub.Run()

	// --- Quote poller ---
	refreshInterval := 6 * time.Minute
	if v := os.Getenv("QUOTE_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Error("invalid QUOTE_REFRESH_INTERVAL", "err", err)
			os.Exit(1)
		}
		refreshInterval = d
	}

	fmpClient := market.NewFMPClient(os.Getenv("FMP_API_KEY"), "")
	poller := market.NewPoller(quotes, fmpClient, hub, market.Universe, refreshInterval)

	pollCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	go poller.Run(pollCtx)

	// --- Services ---
	portfolioSvc := portfolio.NewService(ledger, quotes, hub)
	polygonClient := market.NewPolygonClient(os.Getenv("POLYGON_API_KEY"), "")
	stockHandlers := market.NewHandlers(quotes, polygonClient)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, User-Id")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"trading-sim"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// WebSocket endpoint for real-time quote and trade updates.
		r.Get("/ws", hub.HandleWS)

		// Market data.
		r.Get("/stocks", stockHandlers.ListStocks)
		r.Get("/stocks/{symbol}", stockHandlers.GetStock)
		r.Get("/stocks/{symbol}/history", stockHandlers.GetStockHistory)

		// Portfolio ledger.
		r.Get("/portfolio", portfolioSvc.HandleGetPortfolio)
		r.Get("/portfolio/holdings", portfolioSvc.HandleGetHoldings)
		r.Get("/portfolio/transactions", portfolioSvc.HandleGetTransactions)
		r.Get("/portfolio/history", portfolioSvc.HandleGetHistory)
		r.Post("/portfolio/trade", portfolioSvc.HandleTrade)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("trading-sim listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopPoller()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down trading-sim...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("trading-sim stopped")
}
