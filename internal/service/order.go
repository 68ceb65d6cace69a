package service

import (
	"context"
	"fmt"

	"github.com/Jahb/WedDataManagement/internal/model"
)

// OrderRepository is the order service's own storage. Only order rows live
// here; balances and stock belong to the other services.
type OrderRepository interface {
	CreateOrder(ctx context.Context, userID string) (string, error)
	RemoveOrder(ctx context.Context, orderID string) error
	AddItem(ctx context.Context, orderID, itemID string) error
	RemoveItem(ctx context.Context, orderID, itemID string) error
	FindOrder(ctx context.Context, orderID string) (*model.Order, error)
}

// PaymentStatusClient reports whether an order's reservation is still held.
type PaymentStatusClient interface {
	PaymentStatus(ctx context.Context, orderID string) (bool, error)
}

// OrderService is the order-facing surface: cart CRUD plus the aggregated
// order view and checkout, both of which go over the broker to the ledgers.
type OrderService struct {
	repo   OrderRepository
	status PaymentStatusClient
	stock  StockReserver
	saga   *CheckoutSaga
}

func NewOrderService(repo OrderRepository, status PaymentStatusClient, stock StockReserver, saga *CheckoutSaga) *OrderService {
	return &OrderService{repo: repo, status: status, stock: stock, saga: saga}
}

func (s *OrderService) CreateOrder(ctx context.Context, userID string) (string, error) {
	return s.repo.CreateOrder(ctx, userID)
}

func (s *OrderService) RemoveOrder(ctx context.Context, orderID string) error {
	return s.repo.RemoveOrder(ctx, orderID)
}

func (s *OrderService) AddItem(ctx context.Context, orderID, itemID string) error {
	return s.repo.AddItem(ctx, orderID, itemID)
}

func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID string) error {
	return s.repo.RemoveItem(ctx, orderID, itemID)
}

// FindOrder returns the order along with its total cost and payment status,
// both fetched from the owning ledgers.
func (s *OrderService) FindOrder(ctx context.Context, orderID string) (*model.OrderDetails, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	total, err := s.stock.TotalCost(ctx, model.CountItems(order.Items))
	if err != nil {
		return nil, fmt.Errorf("order %s: total cost: %w", orderID, err)
	}

	paid, err := s.status.PaymentStatus(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %s: payment status: %w", orderID, err)
	}

	return &model.OrderDetails{
		OrderID:   order.OrderID,
		Paid:      paid,
		Items:     order.Items,
		UserID:    order.UserID,
		TotalCost: total,
	}, nil
}

// Checkout runs the reserve-credit-then-reserve-stock saga for the order.
func (s *OrderService) Checkout(ctx context.Context, orderID string) (CheckoutState, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return StateStart, err
	}
	return s.saga.Checkout(ctx, order)
}
