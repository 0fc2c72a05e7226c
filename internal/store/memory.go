package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/abodzsar29/full-stack-trading-sim/internal/model"
)

// MemoryStore implements Store and QuoteStore with in-memory maps. Used
// for testing and development. Not suitable for production (no
// persistence). Trade transactions are serialized under one mutex; the
// per-account row locking that matters at scale lives in PostgresStore.
type MemoryStore struct {
	mu         sync.RWMutex
	portfolios map[string]*model.Portfolio
	holdings   map[string]map[string]model.Holding // accountID → symbol → holding
	txns       []model.Transaction
	history    []model.Snapshot
	quotes     map[string]*model.Quote
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		portfolios: make(map[string]*model.Portfolio),
		holdings:   make(map[string]map[string]model.Holding),
		quotes:     make(map[string]*model.Quote),
	}
}

func (s *MemoryStore) GetPortfolio(_ context.Context, accountID string) (*model.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.portfolios[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *p
	return &copy, nil
}

func (s *MemoryStore) CreatePortfolio(_ context.Context, p *model.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// First writer wins, matching the ON CONFLICT DO NOTHING insert.
	if _, ok := s.portfolios[p.AccountID]; ok {
		return nil
	}
	copy := *p
	s.portfolios[p.AccountID] = &copy
	return nil
}

func (s *MemoryStore) UpdatePortfolioValue(_ context.Context, accountID string, totalValue, totalPnL decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.portfolios[accountID]
	if !ok {
		return ErrNotFound
	}
	p.TotalValue = totalValue
	p.TotalPnL = totalPnL
	return nil
}

func (s *MemoryStore) GetHoldings(_ context.Context, accountID string) ([]model.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Holding
	for _, h := range s.holdings[accountID] {
		if h.Quantity.IsPositive() {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *MemoryStore) GetTransactions(_ context.Context, accountID string) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Transaction
	for _, t := range s.txns {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	// Newest first; insertion order breaks timestamp ties.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *MemoryStore) InsertSnapshot(_ context.Context, snap *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, *snap)
	return nil
}

func (s *MemoryStore) GetHistory(_ context.Context, accountID string, limit int) ([]model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Snapshot
	for _, sn := range s.history {
		if sn.AccountID == accountID {
			out = append(out, sn)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ExecuteInTradeTx stages all mutations and applies them only when fn
// succeeds, mirroring the commit/rollback behavior of the Postgres
// implementation.
func (s *MemoryStore) ExecuteInTradeTx(_ context.Context, accountID string, fn func(tx TradeTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.portfolios[accountID]
	if !ok {
		return ErrNotFound
	}

	staged := &memTradeTx{
		portfolio: *p,
		holdings:  make(map[string]model.Holding, len(s.holdings[accountID])),
		deleted:   make(map[string]bool),
	}
	for sym, h := range s.holdings[accountID] {
		staged.holdings[sym] = h
	}

	if err := fn(staged); err != nil {
		return err
	}

	// Commit.
	*p = staged.portfolio
	if s.holdings[accountID] == nil {
		s.holdings[accountID] = make(map[string]model.Holding)
	}
	for sym, h := range staged.holdings {
		s.holdings[accountID][sym] = h
	}
	for sym := range staged.deleted {
		delete(s.holdings[accountID], sym)
	}
	s.txns = append(s.txns, staged.newTxns...)
	return nil
}

// memTradeTx accumulates trade mutations against copies of the account
// state; nothing is visible until the store commits it.
type memTradeTx struct {
	portfolio model.Portfolio
	holdings  map[string]model.Holding
	deleted   map[string]bool
	newTxns   []model.Transaction
}

func (t *memTradeTx) Portfolio(context.Context) (*model.Portfolio, error) {
	copy := t.portfolio
	return &copy, nil
}

func (t *memTradeTx) Holding(_ context.Context, symbol string) (*model.Holding, error) {
	h, ok := t.holdings[symbol]
	if !ok || t.deleted[symbol] {
		return nil, ErrNotFound
	}
	copy := h
	return &copy, nil
}

func (t *memTradeTx) AdjustCash(_ context.Context, delta decimal.Decimal) error {
	t.portfolio.CashBalance = t.portfolio.CashBalance.Add(delta)
	return nil
}

func (t *memTradeTx) UpsertHolding(_ context.Context, symbol string, quantity, averageCost decimal.Decimal) error {
	delete(t.deleted, symbol)
	t.holdings[symbol] = model.Holding{
		AccountID:   t.portfolio.AccountID,
		Symbol:      symbol,
		Quantity:    quantity,
		AverageCost: averageCost,
	}
	return nil
}

func (t *memTradeTx) DeleteHolding(_ context.Context, symbol string) error {
	delete(t.holdings, symbol)
	t.deleted[symbol] = true
	return nil
}

func (t *memTradeTx) InsertTransaction(_ context.Context, txn *model.Transaction) error {
	t.newTxns = append(t.newTxns, *txn)
	return nil
}

// --- QuoteStore ---

func (s *MemoryStore) CurrentQuote(_ context.Context, symbol string) (*model.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[symbol]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *q
	return &copy, nil
}

func (s *MemoryStore) ListQuotes(_ context.Context) ([]model.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make([]model.Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		quotes = append(quotes, *q)
	}
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Symbol < quotes[j].Symbol })
	return quotes, nil
}

func (s *MemoryStore) UpsertQuote(_ context.Context, q *model.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *q
	s.quotes[q.Symbol] = &copy
	return nil
}
