package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Jahb/WedDataManagement/internal/service"
)

func seedItem(t *testing.T, repo *StockRepo, price, stock int64) string {
	t.Helper()
	ctx := context.Background()
	itemID, err := repo.CreateItem(ctx, price)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if stock > 0 {
		if err := repo.AddStock(ctx, itemID, stock); err != nil {
			t.Fatalf("AddStock: %v", err)
		}
	}
	return itemID
}

func itemStock(t *testing.T, repo *StockRepo, itemID string) int64 {
	t.Helper()
	item, err := repo.FindItem(context.Background(), itemID)
	if err != nil {
		t.Fatalf("FindItem %s: %v", itemID, err)
	}
	return item.Stock
}

func TestReserveStockAllOrNothing(t *testing.T) {
	pool := testPool(t)
	repo := NewStockRepo(pool, nil)
	ctx := context.Background()

	itemA := seedItem(t, repo, 5, 10)
	itemB := seedItem(t, repo, 5, 1)

	counts := map[string]int64{itemA: 2, itemB: 3}
	idemKey := uuid.NewString()

	err := repo.ReserveStock(ctx, counts, idemKey)
	if !errors.Is(err, service.ErrInsufficientStock) {
		t.Fatalf("ReserveStock error = %v, want ErrInsufficientStock", err)
	}
	if got := itemStock(t, repo, itemA); got != 10 {
		t.Errorf("item A stock = %d, want untouched 10 after partial failure", got)
	}
	if got := itemStock(t, repo, itemB); got != 1 {
		t.Errorf("item B stock = %d, want untouched 1", got)
	}

	// The failed attempt is still a completed attempt: its barrier survives
	// and a retry under the same key must not decrement anything even if
	// stock has been replenished since.
	if err := repo.AddStock(ctx, itemB, 10); err != nil {
		t.Fatalf("AddStock: %v", err)
	}
	err = repo.ReserveStock(ctx, counts, idemKey)
	if !errors.Is(err, service.ErrAlreadyProcessed) {
		t.Fatalf("retry error = %v, want ErrAlreadyProcessed", err)
	}
	if got := itemStock(t, repo, itemA); got != 10 {
		t.Errorf("item A stock after fenced retry = %d, want 10", got)
	}
}

func TestReserveStockIsIdempotent(t *testing.T) {
	pool := testPool(t)
	repo := NewStockRepo(pool, nil)
	ctx := context.Background()

	itemID := seedItem(t, repo, 3, 8)
	counts := map[string]int64{itemID: 2}
	idemKey := uuid.NewString()

	if err := repo.ReserveStock(ctx, counts, idemKey); err != nil {
		t.Fatalf("first ReserveStock: %v", err)
	}
	err := repo.ReserveStock(ctx, counts, idemKey)
	if !errors.Is(err, service.ErrAlreadyProcessed) {
		t.Fatalf("second ReserveStock error = %v, want ErrAlreadyProcessed", err)
	}
	if got := itemStock(t, repo, itemID); got != 6 {
		t.Errorf("stock = %d, want one decrement from 8 to 6", got)
	}
}

func TestReleaseStockRestoresCounts(t *testing.T) {
	pool := testPool(t)
	repo := NewStockRepo(pool, nil)
	ctx := context.Background()

	itemA := seedItem(t, repo, 2, 5)
	itemB := seedItem(t, repo, 2, 5)
	counts := map[string]int64{itemA: 2, itemB: 1}

	if err := repo.ReserveStock(ctx, counts, uuid.NewString()); err != nil {
		t.Fatalf("ReserveStock: %v", err)
	}
	if err := repo.ReleaseStock(ctx, counts); err != nil {
		t.Fatalf("ReleaseStock: %v", err)
	}
	if got := itemStock(t, repo, itemA); got != 5 {
		t.Errorf("item A stock = %d, want restored 5", got)
	}
	if got := itemStock(t, repo, itemB); got != 5 {
		t.Errorf("item B stock = %d, want restored 5", got)
	}
}

func TestRemoveStockInsufficient(t *testing.T) {
	pool := testPool(t)
	repo := NewStockRepo(pool, nil)
	ctx := context.Background()

	itemID := seedItem(t, repo, 1, 2)
	err := repo.RemoveStock(ctx, itemID, 5)
	if !errors.Is(err, service.ErrInsufficientStock) {
		t.Fatalf("RemoveStock error = %v, want ErrInsufficientStock", err)
	}
	err = repo.RemoveStock(ctx, uuid.NewString(), 1)
	if !errors.Is(err, service.ErrNoSuchItem) {
		t.Fatalf("RemoveStock on unknown item error = %v, want ErrNoSuchItem", err)
	}
}

func TestTotalCostWithoutCache(t *testing.T) {
	pool := testPool(t)
	repo := NewStockRepo(pool, nil)
	ctx := context.Background()

	itemA := seedItem(t, repo, 7, 0)
	itemB := seedItem(t, repo, 11, 0)

	total, err := repo.TotalCost(ctx, map[string]int64{itemA: 2, itemB: 1})
	if err != nil {
		t.Fatalf("TotalCost: %v", err)
	}
	if total != 25 {
		t.Errorf("total = %d, want 25", total)
	}

	_, err = repo.TotalCost(ctx, map[string]int64{uuid.NewString(): 1})
	if !errors.Is(err, service.ErrNoSuchItem) {
		t.Fatalf("TotalCost on unknown item error = %v, want ErrNoSuchItem", err)
	}
}
