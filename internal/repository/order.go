package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jahb/WedDataManagement/internal/model"
	"github.com/Jahb/WedDataManagement/internal/service"
)

// OrderRepo stores carts. Items are kept one row per occurrence so the same
// item can appear in an order several times.
type OrderRepo struct {
	db *pgxpool.Pool
}

func NewOrderRepo(db *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) CreateOrder(ctx context.Context, userID string) (string, error) {
	orderID := uuid.NewString()
	if _, err := r.db.Exec(ctx,
		`INSERT INTO orders (order_id, user_id) VALUES ($1, $2)`, orderID, userID); err != nil {
		return "", fmt.Errorf("order: create: %w", err)
	}
	return orderID, nil
}

func (r *OrderRepo) RemoveOrder(ctx context.Context, orderID string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM orders WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("order: remove: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", service.ErrNoSuchOrder, orderID)
	}
	return nil
}

func (r *OrderRepo) AddItem(ctx context.Context, orderID, itemID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO order_items (order_id, item_id) VALUES ($1, $2)`, orderID, itemID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return fmt.Errorf("%w: %s", service.ErrNoSuchOrder, orderID)
	}
	if err != nil {
		return fmt.Errorf("order: add item: %w", err)
	}
	return nil
}

// RemoveItem deletes one occurrence of the item, mirroring a single $pull.
func (r *OrderRepo) RemoveItem(ctx context.Context, orderID, itemID string) error {
	ct, err := r.db.Exec(ctx,
		`DELETE FROM order_items
		 WHERE ctid IN (
		   SELECT ctid FROM order_items WHERE order_id = $1 AND item_id = $2 LIMIT 1
		 )`, orderID, itemID)
	if err != nil {
		return fmt.Errorf("order: remove item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("order %s has no item %s", orderID, itemID)
	}
	return nil
}

func (r *OrderRepo) FindOrder(ctx context.Context, orderID string) (*model.Order, error) {
	order := &model.Order{OrderID: orderID}
	err := r.db.QueryRow(ctx,
		`SELECT user_id FROM orders WHERE order_id = $1`, orderID).Scan(&order.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", service.ErrNoSuchOrder, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("order: find: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT item_id FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order: list items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID string
		if err := rows.Scan(&itemID); err != nil {
			return nil, fmt.Errorf("order: scan item: %w", err)
		}
		order.Items = append(order.Items, itemID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order: list items: %w", err)
	}
	return order, nil
}
