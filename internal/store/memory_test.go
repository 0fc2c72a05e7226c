package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abodzsar29/full-stack-trading-sim/internal/model"
	"github.com/abodzsar29/full-stack-trading-sim/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func seedPortfolio(t *testing.T, ms *store.MemoryStore, accountID string) {
	t.Helper()
	if err := ms.CreatePortfolio(context.Background(), model.NewPortfolio(accountID)); err != nil {
		t.Fatalf("failed to seed portfolio: %v", err)
	}
}

func TestGetPortfolio_NotFound(t *testing.T) {
	ms := store.NewMemoryStore()

	_, err := ms.GetPortfolio(context.Background(), "nobody")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreatePortfolio_FirstWriterWins(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	first := model.NewPortfolio("user1")
	if err := ms.CreatePortfolio(ctx, first); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	second := model.NewPortfolio("user1")
	second.CashBalance = d(1)
	if err := ms.CreatePortfolio(ctx, second); err != nil {
		t.Fatalf("concurrent create must not error: %v", err)
	}

	p, _ := ms.GetPortfolio(ctx, "user1")
	if !p.CashBalance.Equal(first.CashBalance) {
		t.Errorf("second create must not overwrite, got cash %s", p.CashBalance)
	}
}

func TestExecuteInTradeTx_RollsBackOnError(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()
	seedPortfolio(t, ms, "user1")

	boom := errors.New("boom")
	err := ms.ExecuteInTradeTx(ctx, "user1", func(tx store.TradeTx) error {
		if err := tx.AdjustCash(ctx, d(-5000)); err != nil {
			return err
		}
		if err := tx.UpsertHolding(ctx, "AAPL", d(10), d(500)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error passed through, got %v", err)
	}

	// Nothing staged was committed.
	p, _ := ms.GetPortfolio(ctx, "user1")
	if !p.CashBalance.Equal(d(10000)) {
		t.Errorf("cash must be rolled back, got %s", p.CashBalance)
	}
	holdings, _ := ms.GetHoldings(ctx, "user1")
	if len(holdings) != 0 {
		t.Errorf("holdings must be rolled back, got %d", len(holdings))
	}
}

func TestExecuteInTradeTx_CommitsOnSuccess(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()
	seedPortfolio(t, ms, "user1")

	err := ms.ExecuteInTradeTx(ctx, "user1", func(tx store.TradeTx) error {
		if err := tx.AdjustCash(ctx, d(-1500)); err != nil {
			return err
		}
		return tx.UpsertHolding(ctx, "AAPL", d(10), d(150))
	})
	if err != nil {
		t.Fatalf("tx failed: %v", err)
	}

	p, _ := ms.GetPortfolio(ctx, "user1")
	if !p.CashBalance.Equal(d(8500)) {
		t.Errorf("expected cash 8500, got %s", p.CashBalance)
	}
	holdings, _ := ms.GetHoldings(ctx, "user1")
	if len(holdings) != 1 || !holdings[0].Quantity.Equal(d(10)) {
		t.Errorf("expected committed holding of 10, got %+v", holdings)
	}
}

func TestExecuteInTradeTx_DeleteHolding(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()
	seedPortfolio(t, ms, "user1")

	ms.ExecuteInTradeTx(ctx, "user1", func(tx store.TradeTx) error {
		return tx.UpsertHolding(ctx, "AAPL", d(10), d(150))
	})
	ms.ExecuteInTradeTx(ctx, "user1", func(tx store.TradeTx) error {
		return tx.DeleteHolding(ctx, "AAPL")
	})

	holdings, _ := ms.GetHoldings(ctx, "user1")
	if len(holdings) != 0 {
		t.Errorf("expected holding deleted, got %d", len(holdings))
	}

	// The deleted symbol reads as absent inside a later tx too.
	ms.ExecuteInTradeTx(ctx, "user1", func(tx store.TradeTx) error {
		if _, err := tx.Holding(ctx, "AAPL"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound for deleted holding, got %v", err)
		}
		return nil
	})
}

func TestExecuteInTradeTx_MissingPortfolio(t *testing.T) {
	ms := store.NewMemoryStore()

	err := ms.ExecuteInTradeTx(context.Background(), "nobody", func(tx store.TradeTx) error {
		return nil
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetTransactions_NewestFirst(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()
	seedPortfolio(t, ms, "user1")

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		i := i
		err := ms.ExecuteInTradeTx(ctx, "user1", func(tx store.TradeTx) error {
			return tx.InsertTransaction(ctx, &model.Transaction{
				ID:        fmt.Sprintf("t%d", i),
				AccountID: "user1",
				Symbol:    "AAPL",
				Side:      model.SideBuy,
				Quantity:  d(1),
				Price:     d(100),
				Total:     d(100),
				Timestamp: base.Add(time.Duration(i) * time.Minute),
			})
		})
		if err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
	}

	txns, err := ms.GetTransactions(ctx, "user1")
	if err != nil {
		t.Fatalf("GetTransactions failed: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txns))
	}
	if txns[0].ID != "t2" || txns[2].ID != "t0" {
		t.Errorf("expected newest first, got order %s,%s,%s", txns[0].ID, txns[1].ID, txns[2].ID)
	}
}

func TestQuoteStore_Roundtrip(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	if _, err := ms.CurrentQuote(ctx, "AAPL"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound before upsert, got %v", err)
	}

	q := &model.Quote{Symbol: "AAPL", Name: "Apple Inc.", Price: d(150), UpdatedAt: time.Now().UTC()}
	if err := ms.UpsertQuote(ctx, q); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err := ms.CurrentQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("CurrentQuote failed: %v", err)
	}
	if !got.Price.Equal(d(150)) {
		t.Errorf("expected price 150, got %s", got.Price)
	}

	// Upsert replaces.
	q.Price = d(155)
	ms.UpsertQuote(ctx, q)
	got, _ = ms.CurrentQuote(ctx, "AAPL")
	if !got.Price.Equal(d(155)) {
		t.Errorf("expected refreshed price 155, got %s", got.Price)
	}
}
