package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/abodzsar29/full-stack-trading-sim/internal/model"
)

// PostgresStore implements Store and QuoteStore using PostgreSQL as the
// source of truth. All monetary values are stored as NUMERIC for exact
// decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetPortfolio(ctx context.Context, accountID string) (*model.Portfolio, error) {
	var p model.Portfolio
	var cash, total, pnl string

	err := s.pool.QueryRow(ctx,
		`SELECT account_id, cash_balance::TEXT, total_value::TEXT, total_pnl::TEXT,
		        created_at, updated_at
		 FROM portfolios WHERE account_id = $1`, accountID).
		Scan(&p.AccountID, &cash, &total, &pnl, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get portfolio %s: %w", accountID, err)
	}

	p.CashBalance, _ = decimal.NewFromString(cash)
	p.TotalValue, _ = decimal.NewFromString(total)
	p.TotalPnL, _ = decimal.NewFromString(pnl)

	return &p, nil
}

func (s *PostgresStore) CreatePortfolio(ctx context.Context, p *model.Portfolio) error {
	// First writer wins on concurrent lazy creates for one account.
	_, err := s.pool.Exec(ctx,
		`INSERT INTO portfolios (account_id, cash_balance, total_value, total_pnl, created_at, updated_at)
		 VALUES ($1, $2::NUMERIC, $3::NUMERIC, $4::NUMERIC, $5, $6)
		 ON CONFLICT (account_id) DO NOTHING`,
		p.AccountID, p.CashBalance.String(), p.TotalValue.String(), p.TotalPnL.String(),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create portfolio %s: %w", p.AccountID, err)
	}
	return nil
}

func (s *PostgresStore) UpdatePortfolioValue(ctx context.Context, accountID string, totalValue, totalPnL decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE portfolios
		 SET total_value = $2::NUMERIC, total_pnl = $3::NUMERIC, updated_at = NOW()
		 WHERE account_id = $1`,
		accountID, totalValue.String(), totalPnL.String(),
	)
	if err != nil {
		return fmt.Errorf("update portfolio value %s: %w", accountID, err)
	}
	return nil
}

func (s *PostgresStore) GetHoldings(ctx context.Context, accountID string) ([]model.Holding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT account_id, symbol, quantity::TEXT, average_cost::TEXT
		 FROM holdings
		 WHERE account_id = $1 AND quantity > 0
		 ORDER BY symbol`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []model.Holding
	for rows.Next() {
		var h model.Holding
		var qty, avg string
		if err := rows.Scan(&h.AccountID, &h.Symbol, &qty, &avg); err != nil {
			return nil, err
		}
		h.Quantity, _ = decimal.NewFromString(qty)
		h.AverageCost, _ = decimal.NewFromString(avg)
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (s *PostgresStore) GetTransactions(ctx context.Context, accountID string) ([]model.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, account_id, symbol, side, quantity::TEXT, price::TEXT, total::TEXT, timestamp
		 FROM transactions
		 WHERE account_id = $1
		 ORDER BY timestamp DESC, id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var qty, price, total string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Symbol, &t.Side,
			&qty, &price, &total, &t.Timestamp); err != nil {
			return nil, err
		}
		t.Quantity, _ = decimal.NewFromString(qty)
		t.Price, _ = decimal.NewFromString(price)
		t.Total, _ = decimal.NewFromString(total)
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (s *PostgresStore) InsertSnapshot(ctx context.Context, snap *model.Snapshot) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO portfolio_history (id, account_id, total_value, cash_balance, holdings_value, snapshot_at)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6)`,
		snap.ID, snap.AccountID,
		snap.TotalValue.String(), snap.CashBalance.String(), snap.HoldingsValue.String(),
		snap.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.AccountID, err)
	}
	return nil
}

func (s *PostgresStore) GetHistory(ctx context.Context, accountID string, limit int) ([]model.Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, account_id, total_value::TEXT, cash_balance::TEXT, holdings_value::TEXT,
		        DATE_TRUNC('day', snapshot_at)
		 FROM portfolio_history
		 WHERE account_id = $1
		 ORDER BY snapshot_at DESC, id DESC
		 LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var sn model.Snapshot
		var total, cash, holdings string
		if err := rows.Scan(&sn.ID, &sn.AccountID, &total, &cash, &holdings, &sn.Timestamp); err != nil {
			return nil, err
		}
		sn.TotalValue, _ = decimal.NewFromString(total)
		sn.CashBalance, _ = decimal.NewFromString(cash)
		sn.HoldingsValue, _ = decimal.NewFromString(holdings)
		snaps = append(snaps, sn)
	}
	return snaps, rows.Err()
}

// ExecuteInTradeTx serializes trades per account with a row lock on the
// portfolio row: concurrent trades on the same account queue behind the
// lock and re-read balances after it is granted, while trades on other
// accounts proceed unblocked.
func (s *PostgresStore) ExecuteInTradeTx(ctx context.Context, accountID string, fn func(tx TradeTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin trade tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT 1 FROM portfolios WHERE account_id = $1 FOR UPDATE`, accountID); err != nil {
		return fmt.Errorf("lock portfolio %s: %w", accountID, err)
	}

	if err := fn(&pgTradeTx{tx: tx, accountID: accountID}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit trade tx: %w", err)
	}
	return nil
}

// pgTradeTx scopes all trade mutations to one pgx transaction.
type pgTradeTx struct {
	tx        pgx.Tx
	accountID string
}

func (t *pgTradeTx) Portfolio(ctx context.Context) (*model.Portfolio, error) {
	var p model.Portfolio
	var cash, total, pnl string

	err := t.tx.QueryRow(ctx,
		`SELECT account_id, cash_balance::TEXT, total_value::TEXT, total_pnl::TEXT,
		        created_at, updated_at
		 FROM portfolios WHERE account_id = $1`, t.accountID).
		Scan(&p.AccountID, &cash, &total, &pnl, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read portfolio in tx: %w", err)
	}

	p.CashBalance, _ = decimal.NewFromString(cash)
	p.TotalValue, _ = decimal.NewFromString(total)
	p.TotalPnL, _ = decimal.NewFromString(pnl)

	return &p, nil
}

func (t *pgTradeTx) Holding(ctx context.Context, symbol string) (*model.Holding, error) {
	var h model.Holding
	var qty, avg string

	err := t.tx.QueryRow(ctx,
		`SELECT account_id, symbol, quantity::TEXT, average_cost::TEXT
		 FROM holdings WHERE account_id = $1 AND symbol = $2`, t.accountID, symbol).
		Scan(&h.AccountID, &h.Symbol, &qty, &avg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read holding %s in tx: %w", symbol, err)
	}

	h.Quantity, _ = decimal.NewFromString(qty)
	h.AverageCost, _ = decimal.NewFromString(avg)

	return &h, nil
}

func (t *pgTradeTx) AdjustCash(ctx context.Context, delta decimal.Decimal) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE portfolios
		 SET cash_balance = cash_balance + $2::NUMERIC, updated_at = NOW()
		 WHERE account_id = $1`,
		t.accountID, delta.String(),
	)
	return err
}

func (t *pgTradeTx) UpsertHolding(ctx context.Context, symbol string, quantity, averageCost decimal.Decimal) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO holdings (account_id, symbol, quantity, average_cost)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC)
		 ON CONFLICT (account_id, symbol)
		 DO UPDATE SET quantity = $3::NUMERIC, average_cost = $4::NUMERIC`,
		t.accountID, symbol, quantity.String(), averageCost.String(),
	)
	return err
}

func (t *pgTradeTx) DeleteHolding(ctx context.Context, symbol string) error {
	_, err := t.tx.Exec(ctx,
		`DELETE FROM holdings WHERE account_id = $1 AND symbol = $2`,
		t.accountID, symbol,
	)
	return err
}

func (t *pgTradeTx) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO transactions (id, account_id, symbol, side, quantity, price, total, timestamp)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8)`,
		txn.ID, txn.AccountID, txn.Symbol, txn.Side,
		txn.Quantity.String(), txn.Price.String(), txn.Total.String(),
		txn.Timestamp,
	)
	return err
}

// --- QuoteStore ---

func (s *PostgresStore) CurrentQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	var q model.Quote
	var price, change, changePct string

	err := s.pool.QueryRow(ctx,
		`SELECT symbol, name, price::TEXT, change::TEXT, change_percent::TEXT, updated_at
		 FROM quotes WHERE symbol = $1`, symbol).
		Scan(&q.Symbol, &q.Name, &price, &change, &changePct, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quote %s: %w", symbol, err)
	}

	q.Price, _ = decimal.NewFromString(price)
	q.Change, _ = decimal.NewFromString(change)
	q.ChangePercent, _ = decimal.NewFromString(changePct)

	return &q, nil
}

func (s *PostgresStore) ListQuotes(ctx context.Context) ([]model.Quote, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT symbol, name, price::TEXT, change::TEXT, change_percent::TEXT, updated_at
		 FROM quotes ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []model.Quote
	for rows.Next() {
		var q model.Quote
		var price, change, changePct string
		if err := rows.Scan(&q.Symbol, &q.Name, &price, &change, &changePct, &q.UpdatedAt); err != nil {
			return nil, err
		}
		q.Price, _ = decimal.NewFromString(price)
		q.Change, _ = decimal.NewFromString(change)
		q.ChangePercent, _ = decimal.NewFromString(changePct)
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func (s *PostgresStore) UpsertQuote(ctx context.Context, q *model.Quote) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quotes (symbol, name, price, change, change_percent, updated_at)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6)
		 ON CONFLICT (symbol)
		 DO UPDATE SET name = $2, price = $3::NUMERIC, change = $4::NUMERIC,
		               change_percent = $5::NUMERIC, updated_at = $6`,
		q.Symbol, q.Name,
		q.Price.String(), q.Change.String(), q.ChangePercent.String(),
		q.UpdatedAt,
	)
	return err
}
