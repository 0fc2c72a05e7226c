// Package model defines the core domain types shared across the trading
// simulator. All monetary values use shopspring/decimal, never float64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// StartingCash is the cash balance every new portfolio begins with.
var StartingCash = decimal.NewFromInt(10000)

// Portfolio is the single ledger row for one account. Created lazily on
// first access, mutated only by trade execution and revaluation, never
// deleted. CashBalance must never go negative.
type Portfolio struct {
	AccountID   string          `json:"account_id" db:"account_id"`
	CashBalance decimal.Decimal `json:"cash_balance" db:"cash_balance"`
	TotalValue  decimal.Decimal `json:"total_value" db:"total_value"`
	TotalPnL    decimal.Decimal `json:"total_pnl" db:"total_pnl"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// NewPortfolio returns a portfolio with the default starting balance.
func NewPortfolio(accountID string) *Portfolio {
	now := time.Now().UTC()
	return &Portfolio{
		AccountID:   accountID,
		CashBalance: StartingCash,
		TotalValue:  StartingCash,
		TotalPnL:    decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Holding is an open position in one symbol for one account, keyed by
// (account, symbol). Quantity is always > 0; a holding that reaches
// zero is deleted, never kept as a zero row. AverageCost is the
// volume-weighted average of the buys still represented in the current
// quantity; sells never move it.
type Holding struct {
	AccountID   string          `json:"account_id" db:"account_id"`
	Symbol      string          `json:"symbol" db:"symbol"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost" db:"average_cost"`
}

// HoldingView is a holding joined with its current quote. PriceStale is
// set when no quote was available for the symbol; the holding then
// contributes zero to portfolio value until the next refresh.
type HoldingView struct {
	Holding
	StockName     string          `json:"stock_name"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	PriceStale    bool            `json:"price_stale,omitempty"`
}

// Transaction is an immutable record of one executed trade. Once
// written these are never modified or deleted.
type Transaction struct {
	ID        string          `json:"id" db:"id"`
	AccountID string          `json:"account_id" db:"account_id"`
	Symbol    string          `json:"symbol" db:"symbol"`
	Side      string          `json:"type" db:"side"` // BUY or SELL
	Quantity  decimal.Decimal `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Total     decimal.Decimal `json:"total" db:"total"` // quantity * price
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// Snapshot is one append-only portfolio valuation record.
type Snapshot struct {
	ID            string          `json:"id" db:"id"`
	AccountID     string          `json:"account_id" db:"account_id"`
	TotalValue    decimal.Decimal `json:"total_value" db:"total_value"`
	CashBalance   decimal.Decimal `json:"cash_balance" db:"cash_balance"`
	HoldingsValue decimal.Decimal `json:"holdings_value" db:"holdings_value"`
	Timestamp     time.Time       `json:"date" db:"snapshot_at"`
}

// Quote is the latest known market data for one symbol, refreshed by
// the quote poller.
type Quote struct {
	Symbol        string          `json:"symbol" db:"symbol"`
	Name          string          `json:"name" db:"name"`
	Price         decimal.Decimal `json:"price" db:"price"`
	Change        decimal.Decimal `json:"change" db:"change"`
	ChangePercent decimal.Decimal `json:"change_percent" db:"change_percent"`
	UpdatedAt     time.Time       `json:"last_updated" db:"updated_at"`
}

// Bar is one daily OHLCV candle from the historical data provider.
// Chart data only; it never enters ledger arithmetic.
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// TradeResult is the outcome of a trade attempt. Business rejections
// (insufficient funds/shares) come back as Success=false with a nil
// error; storage faults are returned separately as errors.
type TradeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
