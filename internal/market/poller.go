package market

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/abodzsar29/full-stack-trading-sim/internal/metrics"
	"github.com/abodzsar29/full-stack-trading-sim/internal/store"
)

// Poller keeps the quote store fresh by fetching the whole symbol
// universe in one batch request on a fixed interval. Refresh failures
// are logged and retried on the next tick; the ledger keeps serving the
// last known prices in the meantime.
type Poller struct {
	quotes   store.QuoteStore
	client   *FMPClient
	hub      *Hub // optional
	symbols  []string
	interval time.Duration
}

// NewPoller creates a quote poller. Pass nil for hub if broadcasting is
// not needed.
func NewPoller(quotes store.QuoteStore, client *FMPClient, hub *Hub, symbols []string, interval time.Duration) *Poller {
	return &Poller{
		quotes:   quotes,
		client:   client,
		hub:      hub,
		symbols:  symbols,
		interval: interval,
	}
}

// Run refreshes once immediately, then on every tick until ctx is
// cancelled. Must be called in a goroutine.
func (p *Poller) Run(ctx context.Context) {
	if err := p.Refresh(ctx); err != nil {
		slog.Error("initial quote refresh failed", "err", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				slog.Error("quote refresh failed", "err", err)
			}
		}
	}
}

// Refresh fetches the batch and upserts every valid quote. A partial
// upsert failure skips the symbol and continues; the caller sees an
// error only when the fetch itself failed.
func (p *Poller) Refresh(ctx context.Context) error {
	start := time.Now()

	quotes, err := p.client.BatchQuotes(ctx, p.symbols)
	if err != nil {
		metrics.QuoteRefreshTotal.WithLabelValues("error").Inc()
		if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnauthorized) {
			slog.Warn("quote provider refused request", "err", err)
		}
		return err
	}

	updated := 0
	for i := range quotes {
		if err := p.quotes.UpsertQuote(ctx, &quotes[i]); err != nil {
			slog.Warn("quote upsert failed", "symbol", quotes[i].Symbol, "err", err)
			continue
		}
		updated++
	}

	metrics.QuoteRefreshTotal.WithLabelValues("ok").Inc()
	metrics.QuoteRefreshDuration.Observe(time.Since(start).Seconds())

	slog.Info("quotes refreshed", "requested", len(p.symbols), "updated", updated)

	if p.hub != nil {
		p.hub.Broadcast(Message{Type: "quote_update", Updated: updated})
	}
	return nil
}
