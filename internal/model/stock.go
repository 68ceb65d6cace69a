package model

// Operations recognised on the stock channel.
const (
	OpReserveStock = "reserve_many"
	OpReleaseStock = "release_many"
	OpAddStock     = "add"
	OpTotalCost    = "total_cost"
)

type Item struct {
	ItemID string `json:"item_id"`
	Stock  int64  `json:"stock"`
	Price  int64  `json:"price"`
}

// ReserveStockRequest atomically decrements several items at once. IdemKey is
// the caller's idempotency key (the order id for checkouts); repeats of a key
// that already ran short-circuit to success.
type ReserveStockRequest struct {
	Operation  string           `json:"operation"`
	ItemCounts map[string]int64 `json:"item_counts"`
	IdemKey    string           `json:"idem_key"`
}

type ReleaseStockRequest struct {
	Operation  string           `json:"operation"`
	ItemCounts map[string]int64 `json:"item_counts"`
}

type AddStockRequest struct {
	Operation string `json:"operation"`
	ItemID    string `json:"item_id"`
	Amount    int64  `json:"amount"`
}

type TotalCostRequest struct {
	Operation  string           `json:"operation"`
	ItemCounts map[string]int64 `json:"item_counts"`
}

type TotalCostReply struct {
	TotalCost int64  `json:"total_cost"`
	Error     string `json:"error,omitempty"`
}
