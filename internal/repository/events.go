package repository

import "time"

// PaymentEventsTopic carries PaymentEvent records from the credit ledger to
// the audit recorder. QueueSubscribe keeps each event with one recorder even
// when several payment instances run.
const PaymentEventsTopic = "payments.recorded"

const (
	EventKindReserve = "reserve"
	EventKindRelease = "release"
)

// PaymentEvent is an audit record of a committed barrier-guarded mutation.
type PaymentEvent struct {
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}
