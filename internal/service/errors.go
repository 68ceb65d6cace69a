package service

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the repositories and the transport layers.
// ErrAlreadyProcessed is not a failure: a barrier row already existed, so the
// requested mutation happened on an earlier delivery and callers must treat
// the retry as success.
var (
	ErrAlreadyProcessed  = errors.New("request already processed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNoSuchUser        = errors.New("no such user")
	ErrNoSuchItem        = errors.New("no such item")
	ErrNoSuchOrder       = errors.New("no such order")
)

// ErrTimeout is returned by the RPC dispatcher when no reply arrived within
// the configured wait. The pending slot is released and the caller may retry
// with the same idempotency key.
var ErrTimeout = errors.New("rpc: no reply within timeout")

// RemoteError is a failure reported by the remote ledger in its reply body,
// as opposed to a transport fault. For the checkout saga any RemoteError is a
// business failure of the current step.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote: %s", e.Message)
}
