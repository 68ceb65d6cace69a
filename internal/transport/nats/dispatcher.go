package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/Jahb/WedDataManagement/internal/metrics"
	"github.com/Jahb/WedDataManagement/internal/service"
)

// correlationHeader links a reply to the pending call it resolves. The reply
// address travels in Msg.Reply; neither is part of the message body.
const correlationHeader = "Wdm-Correlation-Id"

type publisher interface {
	PublishMsg(*nats.Msg) error
}

// Dispatcher is the client side of the request/response protocol. Each call
// registers a pending slot keyed by a fresh correlation id and suspends until
// the matching reply lands on the dispatcher's private inbox. Any number of
// calls may be in flight at once; replies resolve only their own slot.
type Dispatcher struct {
	pub     publisher
	inbox   string
	timeout time.Duration
	sub     *nats.Subscription

	mu      sync.Mutex
	pending map[string]chan []byte
}

func newDispatcher(pub publisher, inbox string, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		pub:     pub,
		inbox:   inbox,
		timeout: timeout,
		pending: make(map[string]chan []byte),
	}
}

// NewDispatcher subscribes a private reply inbox on nc.
func NewDispatcher(nc *nats.Conn, timeout time.Duration) (*Dispatcher, error) {
	d := newDispatcher(nc, nats.NewInbox(), timeout)
	sub, err := nc.Subscribe(d.inbox, d.onReply)
	if err != nil {
		return nil, fmt.Errorf("rpc: subscribe reply inbox: %w", err)
	}
	d.sub = sub
	return d, nil
}

func (d *Dispatcher) Close() {
	if d.sub != nil {
		_ = d.sub.Drain()
	}
}

// Call publishes req on channel and decodes the matching reply into out. The
// request body must carry its operation field; req is sent as-is. Returns
// service.ErrTimeout when no reply arrives in time, and *service.RemoteError
// when the reply body reports a failure.
func (d *Dispatcher) Call(ctx context.Context, channel string, req, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("rpc: encode request: %w", err)
	}

	id := uuid.NewString()
	ch := make(chan []byte, 1)
	d.mu.Lock()
	d.pending[id] = ch
	d.mu.Unlock()

	msg := &nats.Msg{
		Subject: channel,
		Reply:   d.inbox,
		Data:    body,
		Header:  nats.Header{},
	}
	msg.Header.Set(correlationHeader, id)

	if err := d.pub.PublishMsg(msg); err != nil {
		d.drop(id)
		return fmt.Errorf("rpc: publish request: %w", err)
	}

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	select {
	case data := <-ch:
		return decodeReply(data, out)
	case <-timer.C:
		d.drop(id)
		metrics.RPCTimeouts.WithLabelValues(channel).Inc()
		return fmt.Errorf("%w: channel %s", service.ErrTimeout, channel)
	case <-ctx.Done():
		d.drop(id)
		return ctx.Err()
	}
}

// onReply resolves the pending slot named by the reply's correlation id.
// Untagged or unmatched replies are logged and dropped; they must never
// resolve an unrelated call.
func (d *Dispatcher) onReply(m *nats.Msg) {
	id := m.Header.Get(correlationHeader)
	if id == "" {
		slog.Warn("rpc: dropping reply without correlation id", "subject", m.Subject)
		return
	}

	d.mu.Lock()
	ch, ok := d.pending[id]
	if ok {
		delete(d.pending, id)
	}
	d.mu.Unlock()

	if !ok {
		// Late reply after a timeout, or a stray message.
		slog.Warn("rpc: dropping reply with no pending call", "correlation_id", id)
		return
	}
	ch <- m.Data
}

func (d *Dispatcher) drop(id string) {
	d.mu.Lock()
	delete(d.pending, id)
	d.mu.Unlock()
}

func decodeReply(data []byte, out any) error {
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("rpc: decode reply: %w", err)
	}
	if probe.Error != "" {
		return &service.RemoteError{Message: probe.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("rpc: decode reply: %w", err)
	}
	return nil
}
