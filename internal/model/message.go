package model

// Channel names the ledger services listen on. The order service publishes
// requests to these subjects and each ledger replies to the caller's private
// inbox, so no service ever consumes another service's channel.
const (
	CreditChannel = "credit-channel"
	StockChannel  = "stock-channel"
)

// DoneReply is the standard ledger acknowledgement body. Error is set instead
// of (or alongside) the result fields when the operation failed remotely.
type DoneReply struct {
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}
