// Package metrics holds the Prometheus collectors shared by the services.
// Every HTTP server exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCRequests counts requests handled by the responders, labelled by
	// channel, operation and outcome (ok, error). Duplicate replays reply
	// done and count as ok.
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_rpc_requests_total",
		Help: "RPC requests handled, by channel, operation and outcome.",
	}, []string{"channel", "operation", "outcome"})

	// RPCTimeouts counts dispatcher calls that got no reply in time.
	RPCTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_rpc_timeouts_total",
		Help: "RPC calls that timed out waiting for a reply.",
	}, []string{"channel"})

	// Checkouts counts saga outcomes: success, credit_failed, stock_failed,
	// compensation_failed.
	Checkouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sagas_total",
		Help: "Checkout sagas by terminal outcome.",
	}, []string{"outcome"})
)
