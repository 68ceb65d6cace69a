package service

import (
	"context"

	"github.com/Jahb/WedDataManagement/internal/model"
)

// PaymentService defines the credit ledger operations. All transport layers
// (HTTP, NATS responder) depend on this interface, not on the concrete repo.
type PaymentService interface {
	CreateUser(ctx context.Context) (string, error)
	FindUser(ctx context.Context, userID string) (*model.Account, error)
	AddCredit(ctx context.Context, userID string, amount int64) error

	// ReserveCredit debits amount from the user inside one atomic unit guarded
	// by the order's payment barrier. Returns ErrAlreadyProcessed when the
	// barrier already exists and ErrInsufficientFunds when the balance is too
	// low (no mutation in either case).
	ReserveCredit(ctx context.Context, userID, orderID string, amount int64) error

	// ReleaseCredit refunds the barriered amount for the order. Safe to retry:
	// the cancel barrier turns repeats into no-ops (ErrAlreadyProcessed).
	ReleaseCredit(ctx context.Context, userID, orderID string) error

	// PaymentStatus reports paid = reserved and not refunded.
	PaymentStatus(ctx context.Context, orderID string) (bool, error)
}
