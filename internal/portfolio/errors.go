package portfolio

import "errors"

// Business rejections. These abort the trade transaction without any
// mutation and surface to callers as TradeResult values, never as
// errors, so "funds were short" stays distinct from "the store is
// down".
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// Caller-facing trade messages.
const (
	msgTradeExecuted      = "Trade executed successfully"
	msgTradeFailed        = "Trade execution failed"
	msgInsufficientFunds  = "Insufficient funds"
	msgInsufficientShares = "Insufficient shares"
	msgInvalidOrder       = "Invalid quantity or price"
	msgUnknownSymbol      = "Unknown symbol"
)
