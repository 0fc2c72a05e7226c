// Package store defines the persistence interfaces for the trading
// simulator. Implementations include PostgreSQL (source of truth),
// Redis (read-through cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/abodzsar29/full-stack-trading-sim/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the ledger persistence interface. The store is the single
// source of truth; the engine holds no state between calls.
type Store interface {
	// --- Portfolio ---

	// GetPortfolio retrieves the portfolio row for an account, or
	// ErrNotFound if it has never been created.
	GetPortfolio(ctx context.Context, accountID string) (*model.Portfolio, error)

	// CreatePortfolio inserts a new portfolio row. Concurrent creates
	// for the same account must not fail: first writer wins.
	CreatePortfolio(ctx context.Context, p *model.Portfolio) error

	// UpdatePortfolioValue writes the revalued totals back to the
	// portfolio row.
	UpdatePortfolioValue(ctx context.Context, accountID string, totalValue, totalPnL decimal.Decimal) error

	// --- Reads ---

	// GetHoldings returns all open holdings (quantity > 0) for an account.
	GetHoldings(ctx context.Context, accountID string) ([]model.Holding, error)

	// GetTransactions returns the trade log for an account, newest first.
	GetTransactions(ctx context.Context, accountID string) ([]model.Transaction, error)

	// --- Valuation history ---

	// InsertSnapshot appends one valuation record.
	InsertSnapshot(ctx context.Context, s *model.Snapshot) error

	// GetHistory returns up to limit snapshots, newest first.
	GetHistory(ctx context.Context, accountID string, limit int) ([]model.Snapshot, error)

	// --- Trade execution ---

	// ExecuteInTradeTx runs fn inside a transaction that serializes
	// trades on one account: the account's portfolio row is locked for
	// the duration, and every mutation made through the TradeTx either
	// commits as a whole or rolls back as a whole. Trades on different
	// accounts do not block each other. Any error returned by fn aborts
	// the transaction and is passed through unchanged.
	ExecuteInTradeTx(ctx context.Context, accountID string, fn func(tx TradeTx) error) error
}

// TradeTx is the transaction-scoped view of one account's ledger rows,
// handed to the trade algorithm by ExecuteInTradeTx.
type TradeTx interface {
	// Portfolio re-reads the locked portfolio row.
	Portfolio(ctx context.Context) (*model.Portfolio, error)

	// Holding reads the holding for one symbol, or ErrNotFound.
	Holding(ctx context.Context, symbol string) (*model.Holding, error)

	// AdjustCash applies a signed delta to the cash balance.
	AdjustCash(ctx context.Context, delta decimal.Decimal) error

	// UpsertHolding creates or replaces the holding for a symbol.
	UpsertHolding(ctx context.Context, symbol string, quantity, averageCost decimal.Decimal) error

	// DeleteHolding removes a fully closed position.
	DeleteHolding(ctx context.Context, symbol string) error

	// InsertTransaction appends an immutable trade record.
	InsertTransaction(ctx context.Context, t *model.Transaction) error
}

// QuoteStore holds the latest market data per symbol, written by the
// quote poller and read during valuation.
type QuoteStore interface {
	// CurrentQuote returns the latest quote for a symbol, or ErrNotFound.
	CurrentQuote(ctx context.Context, symbol string) (*model.Quote, error)

	// ListQuotes returns all known quotes ordered by symbol.
	ListQuotes(ctx context.Context) ([]model.Quote, error)

	// UpsertQuote writes the latest quote for a symbol.
	UpsertQuote(ctx context.Context, q *model.Quote) error
}
