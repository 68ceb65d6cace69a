package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/Jahb/WedDataManagement/internal/repository"
)

// EventStore persists payment audit events idempotently.
type EventStore interface {
	RecordPaymentEvent(ctx context.Context, ev repository.PaymentEvent) error
}

// PaymentRecorder listens on the payments.recorded topic and writes each
// reserve/release event to the payment_events table. Delivery is at least
// once; the table's (order_id, kind) key absorbs redeliveries.
type PaymentRecorder struct {
	store    EventStore
	natsConn *nats.Conn
}

func NewPaymentRecorder(store EventStore, nc *nats.Conn) *PaymentRecorder {
	return &PaymentRecorder{store: store, natsConn: nc}
}

// Start subscribes and blocks until ctx is cancelled. QueueSubscribe keeps
// each event with exactly one recorder across payment service instances.
func (w *PaymentRecorder) Start(ctx context.Context) error {
	sub, err := w.natsConn.QueueSubscribe(repository.PaymentEventsTopic, "payment_recorder", func(m *nats.Msg) {
		var event repository.PaymentEvent
		if err := json.Unmarshal(m.Data, &event); err != nil {
			slog.Error("recorder: failed to unmarshal event", "error", err)
			return
		}

		if err := w.store.RecordPaymentEvent(ctx, event); err != nil {
			slog.Error("recorder: failed to persist event",
				"order_id", event.OrderID,
				"kind", event.Kind,
				"error", err,
			)
			return
		}
	})
	if err != nil {
		return fmt.Errorf("recorder: failed to subscribe: %w", err)
	}

	slog.Info("payment event recorder is running")

	<-ctx.Done()

	slog.Info("recorder received shutdown signal, draining subscription...")
	return sub.Drain()
}

// Stop implements the infrastructure.Server interface (no-op, shutdown is via ctx).
func (w *PaymentRecorder) Stop(ctx context.Context) error {
	return nil
}
