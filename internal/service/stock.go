package service

import (
	"context"

	"github.com/Jahb/WedDataManagement/internal/model"
)

// StockService defines the stock ledger operations.
type StockService interface {
	CreateItem(ctx context.Context, price int64) (string, error)
	FindItem(ctx context.Context, itemID string) (*model.Item, error)
	AddStock(ctx context.Context, itemID string, amount int64) error
	RemoveStock(ctx context.Context, itemID string, amount int64) error

	// ReserveStock decrements every item in counts or none of them. The
	// reservation barrier for idemKey is written even when the attempt fails
	// on insufficient stock, so a retry of the same key short-circuits to
	// ErrAlreadyProcessed instead of decrementing again.
	ReserveStock(ctx context.Context, counts map[string]int64, idemKey string) error

	// ReleaseStock puts previously decremented counts back. Driven by the
	// caller's own record of what it reserved; not barrier-guarded.
	ReleaseStock(ctx context.Context, counts map[string]int64) error

	TotalCost(ctx context.Context, counts map[string]int64) (int64, error)
}
