package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jahb/WedDataManagement/internal/metrics"
	"github.com/Jahb/WedDataManagement/internal/model"
)

// CheckoutState tracks where a checkout saga ended up. Terminal states are
// StockReserved (success), CreditFailed and Compensated (clean business
// failures) and CompensationFailed (ledgers now disagree, operator needed).
type CheckoutState string

const (
	StateStart              CheckoutState = "START"
	StateReservingCredit    CheckoutState = "RESERVING_CREDIT"
	StateCreditFailed       CheckoutState = "CREDIT_FAILED"
	StateCreditReserved     CheckoutState = "CREDIT_RESERVED"
	StateReservingStock     CheckoutState = "RESERVING_STOCK"
	StateStockReserved      CheckoutState = "STOCK_RESERVED"
	StateStockFailed        CheckoutState = "STOCK_FAILED"
	StateCompensatingCredit CheckoutState = "COMPENSATING_CREDIT"
	StateCompensated        CheckoutState = "COMPENSATED"
	StateCompensationFailed CheckoutState = "COMPENSATION_FAILED"
)

var (
	// ErrCheckoutRejected is a clean business failure: insufficient funds or
	// stock. No reservation survives, the order can be retried or abandoned.
	ErrCheckoutRejected = errors.New("checkout rejected")

	// ErrCompensationFailed means the stock step failed and the follow-up
	// refund failed too. The credit ledger still holds the reservation;
	// automated retries must stop and the order needs manual reconciliation.
	ErrCompensationFailed = errors.New("checkout compensation failed, manual reconciliation required")
)

// CreditReserver is the slice of the credit ledger the saga needs.
type CreditReserver interface {
	ReserveCredit(ctx context.Context, userID, orderID string, amount int64) error
	ReleaseCredit(ctx context.Context, userID, orderID string) error
}

// StockReserver is the slice of the stock ledger the saga needs.
type StockReserver interface {
	ReserveStock(ctx context.Context, counts map[string]int64, idemKey string) error
	TotalCost(ctx context.Context, counts map[string]int64) (int64, error)
}

// CheckoutSaga reserves credit, then stock, and refunds the credit when the
// stock step fails. Both reservations use the order id as their idempotency
// key, so re-running a checkout after a crash or redelivery is safe: the
// ledgers' barriers turn the repeated calls into no-ops.
type CheckoutSaga struct {
	credit CreditReserver
	stock  StockReserver
}

func NewCheckoutSaga(credit CreditReserver, stock StockReserver) *CheckoutSaga {
	return &CheckoutSaga{credit: credit, stock: stock}
}

// Checkout drives the saga for one order and returns the terminal state.
// A non-terminal state in the result means a transport fault interrupted the
// saga there; retrying the same order is safe.
func (s *CheckoutSaga) Checkout(ctx context.Context, order *model.Order) (CheckoutState, error) {
	counts := model.CountItems(order.Items)

	total, err := s.stock.TotalCost(ctx, counts)
	if err != nil {
		return StateStart, fmt.Errorf("checkout %s: total cost: %w", order.OrderID, err)
	}

	if err := s.credit.ReserveCredit(ctx, order.UserID, order.OrderID, total); err != nil {
		var remote *RemoteError
		if !errors.As(err, &remote) {
			// Transport fault: nothing may or may not have been reserved, but
			// the payment barrier makes the retry safe.
			return StateReservingCredit, fmt.Errorf("checkout %s: reserve credit: %w", order.OrderID, err)
		}
		metrics.Checkouts.WithLabelValues("credit_failed").Inc()
		return StateCreditFailed, fmt.Errorf("%w: %s", ErrCheckoutRejected, remote.Message)
	}

	if err := s.stock.ReserveStock(ctx, counts, order.OrderID); err != nil {
		var remote *RemoteError
		if !errors.As(err, &remote) {
			return StateReservingStock, fmt.Errorf("checkout %s: reserve stock: %w", order.OrderID, err)
		}

		slog.Info("checkout: stock reservation failed, refunding credit",
			"order_id", order.OrderID, "user_id", order.UserID, "reason", remote.Message)

		if cerr := s.credit.ReleaseCredit(ctx, order.UserID, order.OrderID); cerr != nil {
			metrics.Checkouts.WithLabelValues("compensation_failed").Inc()
			slog.Error("checkout: credit refund failed, ledgers are inconsistent",
				"order_id", order.OrderID, "user_id", order.UserID, "error", cerr)
			return StateCompensationFailed,
				fmt.Errorf("%w: order %s: release credit: %v (after stock failure: %v)",
					ErrCompensationFailed, order.OrderID, cerr, remote)
		}
		metrics.Checkouts.WithLabelValues("stock_failed").Inc()
		return StateCompensated, fmt.Errorf("%w: %s", ErrCheckoutRejected, remote.Message)
	}

	metrics.Checkouts.WithLabelValues("success").Inc()
	return StateStockReserved, nil
}
