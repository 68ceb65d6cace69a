package model

// Order holds a user's cart. Items is a multiset: adding the same item twice
// means buying two of it.
type Order struct {
	OrderID string   `json:"order_id"`
	UserID  string   `json:"user_id"`
	Items   []string `json:"items"`
}

// OrderDetails is the aggregated view served by the order API: payment status
// and total cost come from the ledger services.
type OrderDetails struct {
	OrderID   string   `json:"order_id"`
	Paid      bool     `json:"paid"`
	Items     []string `json:"items"`
	UserID    string   `json:"user_id"`
	TotalCost int64    `json:"total_cost"`
}

// CountItems collapses the item multiset into per-item counts.
func CountItems(items []string) map[string]int64 {
	counts := make(map[string]int64, len(items))
	for _, id := range items {
		counts[id]++
	}
	return counts
}
