package model

// Operations recognised on the credit channel.
const (
	OpReserveCredit = "reserve"
	OpReleaseCredit = "release"
	OpAddCredit     = "credit"
	OpPaymentStatus = "status"
)

type Account struct {
	UserID string `json:"user_id"`
	Credit int64  `json:"credit"`
}

// ReserveCreditRequest debits a user's credit for an order. OrderID doubles as
// the idempotency key: at most one debit ever happens per order.
type ReserveCreditRequest struct {
	Operation string `json:"operation"`
	UserID    string `json:"user_id"`
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
}

// ReleaseCreditRequest refunds whatever was reserved for the order.
type ReleaseCreditRequest struct {
	Operation string `json:"operation"`
	UserID    string `json:"user_id"`
	OrderID   string `json:"order_id"`
}

type AddCreditRequest struct {
	Operation string `json:"operation"`
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
}

type PaymentStatusRequest struct {
	Operation string `json:"operation"`
	OrderID   string `json:"order_id"`
}

type PaidReply struct {
	Paid  bool   `json:"paid"`
	Error string `json:"error,omitempty"`
}
