package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/abodzsar29/full-stack-trading-sim/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis
// read-through cache for the hot read paths (portfolio, holdings,
// transactions). Writes go to the primary store and invalidate the
// account's cached reads; a committed trade invalidates everything for
// the account so no stale balance is ever served after a mutation.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetPortfolio(ctx context.Context, accountID string) (*model.Portfolio, error) {
	data, err := s.rdb.Get(ctx, portfolioKey(accountID)).Bytes()
	if err == nil {
		var p model.Portfolio
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	p, err := s.primary.GetPortfolio(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		s.rdb.Set(ctx, portfolioKey(accountID), data, s.ttl)
	}
	return p, nil
}

func (s *CachedStore) GetHoldings(ctx context.Context, accountID string) ([]model.Holding, error) {
	data, err := s.rdb.Get(ctx, holdingsKey(accountID)).Bytes()
	if err == nil {
		var holdings []model.Holding
		if json.Unmarshal(data, &holdings) == nil {
			return holdings, nil
		}
	}

	holdings, err := s.primary.GetHoldings(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(holdings); err == nil {
		s.rdb.Set(ctx, holdingsKey(accountID), data, s.ttl)
	}
	return holdings, nil
}

func (s *CachedStore) GetTransactions(ctx context.Context, accountID string) ([]model.Transaction, error) {
	data, err := s.rdb.Get(ctx, txnsKey(accountID)).Bytes()
	if err == nil {
		var txns []model.Transaction
		if json.Unmarshal(data, &txns) == nil {
			return txns, nil
		}
	}

	txns, err := s.primary.GetTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(txns); err == nil {
		s.rdb.Set(ctx, txnsKey(accountID), data, s.ttl)
	}
	return txns, nil
}

// --- Writes (primary first, then invalidate) ---

func (s *CachedStore) CreatePortfolio(ctx context.Context, p *model.Portfolio) error {
	if err := s.primary.CreatePortfolio(ctx, p); err != nil {
		return err
	}
	s.rdb.Del(ctx, portfolioKey(p.AccountID))
	return nil
}

func (s *CachedStore) UpdatePortfolioValue(ctx context.Context, accountID string, totalValue, totalPnL decimal.Decimal) error {
	if err := s.primary.UpdatePortfolioValue(ctx, accountID, totalValue, totalPnL); err != nil {
		return err
	}
	s.rdb.Del(ctx, portfolioKey(accountID))
	return nil
}

func (s *CachedStore) ExecuteInTradeTx(ctx context.Context, accountID string, fn func(tx TradeTx) error) error {
	if err := s.primary.ExecuteInTradeTx(ctx, accountID, fn); err != nil {
		return err
	}
	// A committed trade changed cash, holdings, and the trade log.
	s.rdb.Del(ctx, portfolioKey(accountID), holdingsKey(accountID), txnsKey(accountID))
	return nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) InsertSnapshot(ctx context.Context, snap *model.Snapshot) error {
	return s.primary.InsertSnapshot(ctx, snap)
}

func (s *CachedStore) GetHistory(ctx context.Context, accountID string, limit int) ([]model.Snapshot, error) {
	return s.primary.GetHistory(ctx, accountID, limit)
}

// CachedQuoteStore wraps a primary QuoteStore with a Redis read-through
// cache keyed per symbol. The poller's upserts refresh the cache so
// valuation reads rarely touch the primary.
type CachedQuoteStore struct {
	primary QuoteStore
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedQuoteStore creates a cached wrapper around a quote store.
func NewCachedQuoteStore(primary QuoteStore, rdb *redis.Client, ttl time.Duration) *CachedQuoteStore {
	return &CachedQuoteStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedQuoteStore) CurrentQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	data, err := s.rdb.Get(ctx, quoteKey(symbol)).Bytes()
	if err == nil {
		var q model.Quote
		if json.Unmarshal(data, &q) == nil {
			return &q, nil
		}
	}

	q, err := s.primary.CurrentQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	s.cacheQuote(ctx, q)
	return q, nil
}

func (s *CachedQuoteStore) ListQuotes(ctx context.Context) ([]model.Quote, error) {
	return s.primary.ListQuotes(ctx)
}

func (s *CachedQuoteStore) UpsertQuote(ctx context.Context, q *model.Quote) error {
	if err := s.primary.UpsertQuote(ctx, q); err != nil {
		return err
	}
	s.cacheQuote(ctx, q)
	return nil
}

func (s *CachedQuoteStore) cacheQuote(ctx context.Context, q *model.Quote) {
	if data, err := json.Marshal(q); err == nil {
		s.rdb.Set(ctx, quoteKey(q.Symbol), data, s.ttl)
	}
}

func portfolioKey(id string) string { return fmt.Sprintf("portfolio:%s", id) }
func holdingsKey(id string) string  { return fmt.Sprintf("holdings:%s", id) }
func txnsKey(id string) string      { return fmt.Sprintf("transactions:%s", id) }
func quoteKey(sym string) string    { return fmt.Sprintf("quote:%s", sym) }
