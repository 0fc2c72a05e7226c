// Package portfolio implements the trade-execution and portfolio-ledger
// engine: the component that atomically mutates cash, holdings, and the
// transaction log on every trade, maintains cost-basis accounting, and
// revalues the portfolio against live quotes.
//
// All monetary values use shopspring/decimal, never float64.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abodzsar29/full-stack-trading-sim/internal/market"
	"github.com/abodzsar29/full-stack-trading-sim/internal/metrics"
	"github.com/abodzsar29/full-stack-trading-sim/internal/model"
	"github.com/abodzsar29/full-stack-trading-sim/internal/store"
)

// historyLimit caps GetHistory at roughly one year of daily snapshots.
const historyLimit = 365

// Service is the portfolio ledger engine. It holds no account state
// between calls; the store is the single source of truth, and trade
// serialization is delegated to the store's transaction isolation.
type Service struct {
	store  store.Store
	quotes store.QuoteStore
	hub    *market.Hub // optional WebSocket hub for trade broadcasts
}

// NewService creates a new portfolio service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, quotes store.QuoteStore, hub *market.Hub) *Service {
	return &Service{
		store:  st,
		quotes: quotes,
		hub:    hub,
	}
}

// GetPortfolio returns the account's portfolio, creating it with the
// default starting balance on first access.
func (s *Service) GetPortfolio(ctx context.Context, accountID string) (*model.Portfolio, error) {
	p, err := s.store.GetPortfolio(ctx, accountID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get portfolio: %w", err)
	}

	if err := s.store.CreatePortfolio(ctx, model.NewPortfolio(accountID)); err != nil {
		return nil, fmt.Errorf("create portfolio: %w", err)
	}

	// Re-read so concurrent first-access races all observe the row the
	// first writer committed.
	p, err = s.store.GetPortfolio(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get portfolio after create: %w", err)
	}

	slog.Info("portfolio created", "account", accountID, "cash", p.CashBalance.String())
	return p, nil
}

// GetHoldings returns the account's open positions joined with current
// quotes. A holding whose symbol has no quote is flagged stale and
// contributes zero value until the next successful refresh.
func (s *Service) GetHoldings(ctx context.Context, accountID string) ([]model.HoldingView, error) {
	holdings, err := s.store.GetHoldings(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get holdings: %w", err)
	}

	views := make([]model.HoldingView, 0, len(holdings))
	for _, h := range holdings {
		view := model.HoldingView{Holding: h}

		q, err := s.quotes.CurrentQuote(ctx, h.Symbol)
		switch {
		case errors.Is(err, store.ErrNotFound):
			view.PriceStale = true
			view.CurrentPrice = decimal.Zero
			view.CurrentValue = decimal.Zero
			view.UnrealizedPnL = decimal.Zero
			slog.Warn("no quote for held symbol, valuing at zero",
				"account", accountID, "symbol", h.Symbol)
		case err != nil:
			return nil, fmt.Errorf("quote %s: %w", h.Symbol, err)
		default:
			view.StockName = q.Name
			view.CurrentPrice = q.Price
			view.CurrentValue = h.Quantity.Mul(q.Price)
			view.UnrealizedPnL = q.Price.Sub(h.AverageCost).Mul(h.Quantity)
		}

		views = append(views, view)
	}
	return views, nil
}

// GetTransactions returns the account's trade log, newest first.
func (s *Service) GetTransactions(ctx context.Context, accountID string) ([]model.Transaction, error) {
	txns, err := s.store.GetTransactions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get transactions: %w", err)
	}
	return txns, nil
}

// GetHistory returns up to a year of valuation snapshots, newest first,
// truncated to day granularity.
func (s *Service) GetHistory(ctx context.Context, accountID string) ([]model.Snapshot, error) {
	snaps, err := s.store.GetHistory(ctx, accountID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	for i := range snaps {
		snaps[i].Timestamp = snaps[i].Timestamp.Truncate(24 * time.Hour)
	}
	return snaps, nil
}

// ExecuteTrade executes one BUY or SELL as a single atomic unit: cash,
// holding, and transaction log all commit together or not at all.
// Business rejections (insufficient funds/shares) and validation faults
// return Success=false with a nil error; a non-nil error always means a
// storage fault and guarantees no mutation was committed.
func (s *Service) ExecuteTrade(ctx context.Context, accountID, symbol, side string, quantity, price decimal.Decimal) (model.TradeResult, error) {
	start := time.Now()

	if side != model.SideBuy && side != model.SideSell {
		return s.reject(accountID, symbol, side, "invalid_side", msgTradeFailed), nil
	}
	if !quantity.IsPositive() || !price.IsPositive() {
		return s.reject(accountID, symbol, side, "invalid_order", msgInvalidOrder), nil
	}
	// Symbols must be quotable. Only a definitive miss rejects; a quote
	// store hiccup must not block trading since the price is
	// caller-supplied.
	if _, err := s.quotes.CurrentQuote(ctx, symbol); errors.Is(err, store.ErrNotFound) {
		return s.reject(accountID, symbol, side, "unknown_symbol", msgUnknownSymbol), nil
	}

	// Lazy-create the portfolio so the trade tx always has a row to lock.
	if _, err := s.GetPortfolio(ctx, accountID); err != nil {
		return model.TradeResult{Success: false, Message: msgTradeFailed},
			fmt.Errorf("execute trade: %w", err)
	}

	cost := quantity.Mul(price)

	err := s.store.ExecuteInTradeTx(ctx, accountID, func(tx store.TradeTx) error {
		if side == model.SideBuy {
			if err := applyBuy(ctx, tx, symbol, quantity, price, cost); err != nil {
				return err
			}
		} else {
			if err := applySell(ctx, tx, symbol, quantity, cost); err != nil {
				return err
			}
		}

		return tx.InsertTransaction(ctx, &model.Transaction{
			ID:        uuid.New().String(),
			AccountID: accountID,
			Symbol:    symbol,
			Side:      side,
			Quantity:  quantity,
			Price:     price,
			Total:     cost,
			Timestamp: time.Now().UTC(),
		})
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrInsufficientFunds):
		return s.reject(accountID, symbol, side, "insufficient_funds", msgInsufficientFunds), nil
	case errors.Is(err, ErrInsufficientShares):
		return s.reject(accountID, symbol, side, "insufficient_shares", msgInsufficientShares), nil
	default:
		return model.TradeResult{Success: false, Message: msgTradeFailed},
			fmt.Errorf("execute trade %s %s %s: %w", accountID, side, symbol, err)
	}

	metrics.TradesTotal.WithLabelValues(side).Inc()
	metrics.TradeLatency.WithLabelValues(side).Observe(time.Since(start).Seconds())

	slog.Info("trade executed",
		"account", accountID,
		"symbol", symbol,
		"side", side,
		"qty", quantity.String(),
		"price", price.String(),
		"cost", cost.String(),
	)

	if s.hub != nil {
		s.hub.Broadcast(market.Message{
			Type:     "trade_executed",
			Symbol:   symbol,
			Side:     side,
			Quantity: quantity.String(),
			Price:    price.String(),
		})
	}

	return model.TradeResult{Success: true, Message: msgTradeExecuted}, nil
}

// applyBuy debits cash and grows (or opens) the holding at a
// volume-weighted average cost. The sufficiency check uses the balance
// re-read inside the locked transaction, never caller-visible state.
func applyBuy(ctx context.Context, tx store.TradeTx, symbol string, quantity, price, cost decimal.Decimal) error {
	p, err := tx.Portfolio(ctx)
	if err != nil {
		return err
	}
	if p.CashBalance.LessThan(cost) {
		return ErrInsufficientFunds
	}
	if err := tx.AdjustCash(ctx, cost.Neg()); err != nil {
		return err
	}

	h, err := tx.Holding(ctx, symbol)
	if errors.Is(err, store.ErrNotFound) {
		return tx.UpsertHolding(ctx, symbol, quantity, price)
	}
	if err != nil {
		return err
	}

	// Weighted average over the full new quantity, with the traded cost
	// (not the bare price) as the numerator increment.
	newQuantity := h.Quantity.Add(quantity)
	newAverageCost := h.AverageCost.Mul(h.Quantity).Add(cost).Div(newQuantity)
	return tx.UpsertHolding(ctx, symbol, newQuantity, newAverageCost)
}

// applySell credits cash at the trade price and shrinks the holding.
// Average cost never moves on a sell; a holding sold to zero is deleted
// rather than kept as a zero row.
func applySell(ctx context.Context, tx store.TradeTx, symbol string, quantity, cost decimal.Decimal) error {
	h, err := tx.Holding(ctx, symbol)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInsufficientShares
	}
	if err != nil {
		return err
	}
	if h.Quantity.LessThan(quantity) {
		return ErrInsufficientShares
	}

	if err := tx.AdjustCash(ctx, cost); err != nil {
		return err
	}

	newQuantity := h.Quantity.Sub(quantity)
	if newQuantity.IsPositive() {
		return tx.UpsertHolding(ctx, symbol, newQuantity, h.AverageCost)
	}
	return tx.DeleteHolding(ctx, symbol)
}

// RevalueAndSnapshot recomputes the portfolio's total value from
// current quotes, writes it back to the portfolio row, and appends one
// history snapshot. Called after every successful trade as a separate
// best-effort step: a failure here never rolls back the trade, it just
// leaves the totals stale until the next revaluation.
func (s *Service) RevalueAndSnapshot(ctx context.Context, accountID string) error {
	holdings, err := s.GetHoldings(ctx, accountID)
	if err != nil {
		return fmt.Errorf("revalue: %w", err)
	}
	p, err := s.GetPortfolio(ctx, accountID)
	if err != nil {
		return fmt.Errorf("revalue: %w", err)
	}

	holdingsValue := decimal.Zero
	for _, h := range holdings {
		holdingsValue = holdingsValue.Add(h.CurrentValue)
	}
	totalValue := p.CashBalance.Add(holdingsValue)
	totalPnL := totalValue.Sub(model.StartingCash)

	if err := s.store.UpdatePortfolioValue(ctx, accountID, totalValue, totalPnL); err != nil {
		return fmt.Errorf("revalue: update portfolio: %w", err)
	}

	if err := s.store.InsertSnapshot(ctx, &model.Snapshot{
		ID:            uuid.New().String(),
		AccountID:     accountID,
		TotalValue:    totalValue,
		CashBalance:   p.CashBalance,
		HoldingsValue: holdingsValue,
		Timestamp:     time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("revalue: insert snapshot: %w", err)
	}

	metrics.SnapshotsTotal.Inc()

	slog.Info("portfolio revalued",
		"account", accountID,
		"total_value", totalValue.String(),
		"holdings_value", holdingsValue.String(),
		"total_pnl", totalPnL.String(),
	)
	return nil
}

// reject records a non-fault trade rejection. Rejections are expected
// outcomes and are logged at info level, never as errors.
func (s *Service) reject(accountID, symbol, side, reason, message string) model.TradeResult {
	metrics.TradeRejections.WithLabelValues(reason).Inc()
	slog.Info("trade rejected",
		"account", accountID,
		"symbol", symbol,
		"side", side,
		"reason", reason,
	)
	return model.TradeResult{Success: false, Message: message}
}
