package nats

import (
	"context"

	"github.com/Jahb/WedDataManagement/internal/model"
)

// PaymentClient is the order service's typed view of the credit ledger over
// the dispatcher.
type PaymentClient struct {
	d *Dispatcher
}

func NewPaymentClient(d *Dispatcher) *PaymentClient {
	return &PaymentClient{d: d}
}

func (c *PaymentClient) ReserveCredit(ctx context.Context, userID, orderID string, amount int64) error {
	return c.d.Call(ctx, model.CreditChannel, model.ReserveCreditRequest{
		Operation: model.OpReserveCredit,
		UserID:    userID,
		OrderID:   orderID,
		Amount:    amount,
	}, nil)
}

func (c *PaymentClient) ReleaseCredit(ctx context.Context, userID, orderID string) error {
	return c.d.Call(ctx, model.CreditChannel, model.ReleaseCreditRequest{
		Operation: model.OpReleaseCredit,
		UserID:    userID,
		OrderID:   orderID,
	}, nil)
}

func (c *PaymentClient) AddCredit(ctx context.Context, userID string, amount int64) error {
	return c.d.Call(ctx, model.CreditChannel, model.AddCreditRequest{
		Operation: model.OpAddCredit,
		UserID:    userID,
		Amount:    amount,
	}, nil)
}

func (c *PaymentClient) PaymentStatus(ctx context.Context, orderID string) (bool, error) {
	var reply model.PaidReply
	err := c.d.Call(ctx, model.CreditChannel, model.PaymentStatusRequest{
		Operation: model.OpPaymentStatus,
		OrderID:   orderID,
	}, &reply)
	if err != nil {
		return false, err
	}
	return reply.Paid, nil
}

// StockClient is the order service's typed view of the stock ledger.
type StockClient struct {
	d *Dispatcher
}

func NewStockClient(d *Dispatcher) *StockClient {
	return &StockClient{d: d}
}

func (c *StockClient) ReserveStock(ctx context.Context, counts map[string]int64, idemKey string) error {
	return c.d.Call(ctx, model.StockChannel, model.ReserveStockRequest{
		Operation:  model.OpReserveStock,
		ItemCounts: counts,
		IdemKey:    idemKey,
	}, nil)
}

func (c *StockClient) ReleaseStock(ctx context.Context, counts map[string]int64) error {
	return c.d.Call(ctx, model.StockChannel, model.ReleaseStockRequest{
		Operation:  model.OpReleaseStock,
		ItemCounts: counts,
	}, nil)
}

func (c *StockClient) AddStock(ctx context.Context, itemID string, amount int64) error {
	return c.d.Call(ctx, model.StockChannel, model.AddStockRequest{
		Operation: model.OpAddStock,
		ItemID:    itemID,
		Amount:    amount,
	}, nil)
}

func (c *StockClient) TotalCost(ctx context.Context, counts map[string]int64) (int64, error) {
	var reply model.TotalCostReply
	err := c.d.Call(ctx, model.StockChannel, model.TotalCostRequest{
		Operation:  model.OpTotalCost,
		ItemCounts: counts,
	}, &reply)
	if err != nil {
		return 0, err
	}
	return reply.TotalCost, nil
}
