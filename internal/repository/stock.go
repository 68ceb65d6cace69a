package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Jahb/WedDataManagement/internal/model"
	"github.com/Jahb/WedDataManagement/internal/service"
)

const priceKeyPrefix = "price:"

// StockRepo owns the items table and the stock reservation barrier. Item
// prices never change after creation, so they are read through Redis without
// invalidation; stock counts live only in Postgres.
type StockRepo struct {
	db  *pgxpool.Pool
	rdb *redis.Client
}

func NewStockRepo(db *pgxpool.Pool, rdb *redis.Client) *StockRepo {
	return &StockRepo{db: db, rdb: rdb}
}

func (r *StockRepo) CreateItem(ctx context.Context, price int64) (string, error) {
	if price < 0 {
		return "", fmt.Errorf("stock: negative price %d", price)
	}
	itemID := uuid.NewString()
	if _, err := r.db.Exec(ctx,
		`INSERT INTO items (item_id, stock, price) VALUES ($1, 0, $2)`, itemID, price); err != nil {
		return "", fmt.Errorf("stock: create item: %w", err)
	}
	r.primePrice(ctx, itemID, price)
	return itemID, nil
}

func (r *StockRepo) FindItem(ctx context.Context, itemID string) (*model.Item, error) {
	item := &model.Item{ItemID: itemID}
	err := r.db.QueryRow(ctx,
		`SELECT stock, price FROM items WHERE item_id = $1`, itemID).Scan(&item.Stock, &item.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", service.ErrNoSuchItem, itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("stock: find item: %w", err)
	}
	return item, nil
}

func (r *StockRepo) AddStock(ctx context.Context, itemID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("stock: negative amount %d", amount)
	}
	ct, err := r.db.Exec(ctx,
		`UPDATE items SET stock = stock + $1 WHERE item_id = $2`, amount, itemID)
	if err != nil {
		return fmt.Errorf("stock: add stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", service.ErrNoSuchItem, itemID)
	}
	return nil
}

// RemoveStock is the legacy single-item decrement. Not barrier-guarded; the
// saga never calls it.
func (r *StockRepo) RemoveStock(ctx context.Context, itemID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("stock: negative amount %d", amount)
	}
	ct, err := r.db.Exec(ctx,
		`UPDATE items SET stock = stock - $1 WHERE item_id = $2 AND stock >= $1`, amount, itemID)
	if err != nil {
		return fmt.Errorf("stock: remove stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		if _, ferr := r.FindItem(ctx, itemID); ferr != nil {
			return ferr
		}
		return fmt.Errorf("%w: item %s needs %d", service.ErrInsufficientStock, itemID, amount)
	}
	return nil
}

// ReserveStock decrements every item in counts, all or nothing. The barrier
// row for idemKey commits even when an item is short: the decrements run in a
// savepoint that is rolled back alone, recording the attempt as completed so
// retries under the same key short-circuit instead of decrementing again.
func (r *StockRepo) ReserveStock(ctx context.Context, counts map[string]int64, idemKey string) error {
	for itemID, count := range counts {
		if count < 0 {
			return fmt.Errorf("stock: negative count %d for item %s", count, itemID)
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("stock: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx,
		`INSERT INTO stock_barrier (idem_key) VALUES ($1) ON CONFLICT (idem_key) DO NOTHING`,
		idemKey)
	if err != nil {
		return fmt.Errorf("stock: insert barrier: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: reservation %s already ran", service.ErrAlreadyProcessed, idemKey)
	}

	inner, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("stock: savepoint: %w", err)
	}

	var short error
	for _, itemID := range sortedKeys(counts) {
		count := counts[itemID]
		ct, err := inner.Exec(ctx,
			`UPDATE items SET stock = stock - $1 WHERE item_id = $2 AND stock >= $1`,
			count, itemID)
		if err != nil {
			return fmt.Errorf("stock: decrement %s: %w", itemID, err)
		}
		if ct.RowsAffected() == 0 {
			short = fmt.Errorf("%w: item %s needs %d", service.ErrInsufficientStock, itemID, count)
			break
		}
	}

	if short != nil {
		if err := inner.Rollback(ctx); err != nil {
			return fmt.Errorf("stock: rollback decrements: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("stock: commit barrier: %w", err)
		}
		return short
	}

	if err := inner.Commit(ctx); err != nil {
		return fmt.Errorf("stock: commit decrements: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("stock: commit: %w", err)
	}
	return nil
}

// ReleaseStock puts decremented counts back; compensation is driven by the
// orchestrator's own record, so no barrier is consulted here.
func (r *StockRepo) ReleaseStock(ctx context.Context, counts map[string]int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("stock: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, itemID := range sortedKeys(counts) {
		ct, err := tx.Exec(ctx,
			`UPDATE items SET stock = stock + $1 WHERE item_id = $2`, counts[itemID], itemID)
		if err != nil {
			return fmt.Errorf("stock: increment %s: %w", itemID, err)
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", service.ErrNoSuchItem, itemID)
		}
	}
	return tx.Commit(ctx)
}

// TotalCost sums price*count over the mapping, reading prices through Redis.
func (r *StockRepo) TotalCost(ctx context.Context, counts map[string]int64) (int64, error) {
	var total int64
	for _, itemID := range sortedKeys(counts) {
		price, err := r.itemPrice(ctx, itemID)
		if err != nil {
			return 0, err
		}
		total += price * counts[itemID]
	}
	return total, nil
}

func (r *StockRepo) itemPrice(ctx context.Context, itemID string) (int64, error) {
	if r.rdb != nil {
		price, err := r.rdb.Get(ctx, priceKeyPrefix+itemID).Int64()
		if err == nil {
			return price, nil
		}
		if !errors.Is(err, redis.Nil) {
			slog.Warn("stock: price cache read failed, falling back to postgres",
				"item_id", itemID, "error", err)
		}
	}

	var price int64
	err := r.db.QueryRow(ctx,
		`SELECT price FROM items WHERE item_id = $1`, itemID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", service.ErrNoSuchItem, itemID)
	}
	if err != nil {
		return 0, fmt.Errorf("stock: read price: %w", err)
	}
	r.primePrice(ctx, itemID, price)
	return price, nil
}

func (r *StockRepo) primePrice(ctx context.Context, itemID string, price int64) {
	if r.rdb == nil {
		return
	}
	if err := r.rdb.Set(ctx, priceKeyPrefix+itemID, price, 0).Err(); err != nil {
		slog.Warn("stock: price cache write failed", "item_id", itemID, "error", err)
	}
}

// sortedKeys fixes the row-lock order so concurrent multi-item reservations
// cannot deadlock each other.
func sortedKeys(counts map[string]int64) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
