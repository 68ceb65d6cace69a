package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/Jahb/WedDataManagement/internal/metrics"
)

// HandlerFunc executes one ledger operation from its raw request body.
type HandlerFunc func(ctx context.Context, data []byte) (any, error)

// Responder is the server side of the protocol: it consumes requests from a
// channel, dispatches by operation name and always publishes some reply to
// the caller's reply address with the original correlation id, so the
// caller's dispatcher never hangs past its timeout. Failures, including
// unknown operation names, are reported as {"error": ...} bodies.
type Responder struct {
	nc       *nats.Conn
	pub      publisher
	channel  string
	group    string
	handlers map[string]HandlerFunc
	sub      *nats.Subscription
}

// NewResponder prepares a responder for channel. group is the queue group, so
// several instances of a service share the request load without duplicating
// work. Register handlers before Start.
func NewResponder(nc *nats.Conn, channel, group string) *Responder {
	return &Responder{
		nc:       nc,
		pub:      nc,
		channel:  channel,
		group:    group,
		handlers: make(map[string]HandlerFunc),
	}
}

func (r *Responder) Handle(operation string, h HandlerFunc) {
	r.handlers[operation] = h
}

// Start subscribes and blocks until ctx is cancelled (graceful shutdown).
func (r *Responder) Start(ctx context.Context) error {
	sub, err := r.nc.QueueSubscribe(r.channel, r.group, func(m *nats.Msg) {
		r.dispatch(ctx, m)
	})
	if err != nil {
		return fmt.Errorf("rpc: subscribe %s: %w", r.channel, err)
	}
	r.sub = sub

	slog.Info("rpc: responder is running", "channel", r.channel, "group", r.group)

	<-ctx.Done()
	slog.Info("rpc: responder shutting down, draining subscription", "channel", r.channel)
	return sub.Drain()
}

func (r *Responder) Stop(ctx context.Context) error {
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
	}
	return nil
}

func (r *Responder) dispatch(ctx context.Context, m *nats.Msg) {
	if m.Reply == "" {
		slog.Warn("rpc: dropping request without reply subject", "channel", r.channel)
		return
	}

	var env struct {
		Operation string `json:"operation"`
	}
	var result any
	var err error

	if uerr := json.Unmarshal(m.Data, &env); uerr != nil {
		err = fmt.Errorf("malformed request: %v", uerr)
	} else if h, ok := r.handlers[env.Operation]; !ok {
		err = fmt.Errorf("unknown operation %q", env.Operation)
	} else {
		result, err = h(ctx, m.Data)
	}

	outcome := "ok"
	var body []byte
	switch {
	case err != nil:
		outcome = "error"
		slog.Error("rpc: request failed",
			"channel", r.channel, "operation", env.Operation, "error", err)
		body, _ = json.Marshal(map[string]string{"error": err.Error()})
	default:
		body, err = json.Marshal(result)
		if err != nil {
			outcome = "error"
			slog.Error("rpc: encode reply failed",
				"channel", r.channel, "operation", env.Operation, "error", err)
			body, _ = json.Marshal(map[string]string{"error": "internal: encode reply"})
		}
	}
	metrics.RPCRequests.WithLabelValues(r.channel, env.Operation, outcome).Inc()

	reply := &nats.Msg{Subject: m.Reply, Data: body, Header: nats.Header{}}
	if id := m.Header.Get(correlationHeader); id != "" {
		reply.Header.Set(correlationHeader, id)
	}
	if perr := r.pub.PublishMsg(reply); perr != nil {
		slog.Error("rpc: publish reply failed",
			"channel", r.channel, "operation", env.Operation, "error", perr)
	}
}
