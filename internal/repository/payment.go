package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jahb/WedDataManagement/internal/model"
	"github.com/Jahb/WedDataManagement/internal/service"
)

// PaymentRepo owns the accounts table and the two barrier tables. Every
// guarded mutation runs inside one transaction combining the barrier
// check/insert with the balance change, so a barrier row without its matching
// mutation is never observable.
type PaymentRepo struct {
	db  *pgxpool.Pool
	bus MessageBus
}

func NewPaymentRepo(db *pgxpool.Pool, bus MessageBus) *PaymentRepo {
	return &PaymentRepo{db: db, bus: bus}
}

func (r *PaymentRepo) CreateUser(ctx context.Context) (string, error) {
	userID := uuid.NewString()
	if _, err := r.db.Exec(ctx,
		`INSERT INTO accounts (user_id, credit) VALUES ($1, 0)`, userID); err != nil {
		return "", fmt.Errorf("payment: create user: %w", err)
	}
	return userID, nil
}

func (r *PaymentRepo) FindUser(ctx context.Context, userID string) (*model.Account, error) {
	acc := &model.Account{UserID: userID}
	err := r.db.QueryRow(ctx,
		`SELECT credit FROM accounts WHERE user_id = $1`, userID).Scan(&acc.Credit)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", service.ErrNoSuchUser, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("payment: find user: %w", err)
	}
	return acc, nil
}

// AddCredit is an unconditional balance increase; it is not part of the
// saga's exactly-once surface and carries no barrier.
func (r *PaymentRepo) AddCredit(ctx context.Context, userID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("payment: negative amount %d", amount)
	}
	ct, err := r.db.Exec(ctx,
		`UPDATE accounts SET credit = credit + $1 WHERE user_id = $2`, amount, userID)
	if err != nil {
		return fmt.Errorf("payment: add credit: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", service.ErrNoSuchUser, userID)
	}
	return nil
}

// ReserveCredit debits the user for the order. The payment barrier's primary
// key turns redelivered calls into ErrAlreadyProcessed without touching the
// balance; a debit that fails to apply rolls the barrier back with it.
func (r *PaymentRepo) ReserveCredit(ctx context.Context, userID, orderID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("payment: negative amount %d", amount)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("payment: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var credit int64
	err = tx.QueryRow(ctx,
		`SELECT credit FROM accounts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&credit)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", service.ErrNoSuchUser, userID)
	}
	if err != nil {
		return fmt.Errorf("payment: read credit: %w", err)
	}
	if credit < amount {
		return fmt.Errorf("%w: user %s has %d, order %s needs %d",
			service.ErrInsufficientFunds, userID, credit, orderID, amount)
	}

	ct, err := tx.Exec(ctx,
		`INSERT INTO payment_barrier (order_id, amount) VALUES ($1, $2)
		 ON CONFLICT (order_id) DO NOTHING`, orderID, amount)
	if err != nil {
		return fmt.Errorf("payment: insert barrier: %w", err)
	}
	if ct.RowsAffected() == 0 {
		// Barrier already present: this order was debited on an earlier
		// delivery. The recorded amount wins, whatever the retry carried.
		return fmt.Errorf("%w: order %s already reserved", service.ErrAlreadyProcessed, orderID)
	}

	ct, err = tx.Exec(ctx,
		`UPDATE accounts SET credit = credit - $1 WHERE user_id = $2 AND credit >= $1`,
		amount, userID)
	if err != nil {
		return fmt.Errorf("payment: debit: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("payment: debit for order %s did not apply", orderID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("payment: commit: %w", err)
	}

	r.publishEvent(orderID, userID, amount, EventKindReserve)
	return nil
}

// ReleaseCredit refunds the order's reserved amount. When no payment barrier
// exists yet, both barriers are written so that neither a late reserve retry
// nor a release retry can mutate the balance; if the zero barrier loses a
// conflict to a reserve committing concurrently, that reserve's amount is
// re-read and refunded.
func (r *PaymentRepo) ReleaseCredit(ctx context.Context, userID, orderID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("payment: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var amount int64
	err = tx.QueryRow(ctx,
		`SELECT amount FROM payment_barrier WHERE order_id = $1 FOR UPDATE`, orderID).Scan(&amount)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		ct, err := tx.Exec(ctx,
			`INSERT INTO payment_barrier (order_id, amount) VALUES ($1, 0)
			 ON CONFLICT (order_id) DO NOTHING`, orderID)
		if err != nil {
			return fmt.Errorf("payment: insert zero barrier: %w", err)
		}
		if ct.RowsAffected() == 0 {
			// The SELECT found no row but the insert lost a conflict: a
			// concurrent reserve committed its barrier and debit in between.
			// Re-read the recorded amount and refund it below.
			err = tx.QueryRow(ctx,
				`SELECT amount FROM payment_barrier WHERE order_id = $1 FOR UPDATE`,
				orderID).Scan(&amount)
			if err != nil {
				return fmt.Errorf("payment: reread barrier: %w", err)
			}
			break
		}
		ct, err = tx.Exec(ctx,
			`INSERT INTO cancel_barrier (order_id) VALUES ($1)
			 ON CONFLICT (order_id) DO NOTHING`, orderID)
		if err != nil {
			return fmt.Errorf("payment: insert cancel barrier: %w", err)
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			return fmt.Errorf("payment: commit: %w", cerr)
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("%w: order %s already cancelled", service.ErrAlreadyProcessed, orderID)
		}
		return nil
	case err != nil:
		return fmt.Errorf("payment: read barrier: %w", err)
	}

	ct, err := tx.Exec(ctx,
		`INSERT INTO cancel_barrier (order_id) VALUES ($1)
		 ON CONFLICT (order_id) DO NOTHING`, orderID)
	if err != nil {
		return fmt.Errorf("payment: insert cancel barrier: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s already refunded", service.ErrAlreadyProcessed, orderID)
	}

	ct, err = tx.Exec(ctx,
		`UPDATE accounts SET credit = credit + $1 WHERE user_id = $2`, amount, userID)
	if err != nil {
		return fmt.Errorf("payment: refund: %w", err)
	}
	if ct.RowsAffected() == 0 {
		// No account to refund into: fail the whole unit so the cancel
		// barrier does not claim a refund that never happened.
		return fmt.Errorf("%w: %s", service.ErrNoSuchUser, userID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("payment: commit: %w", err)
	}

	r.publishEvent(orderID, userID, amount, EventKindRelease)
	return nil
}

func (r *PaymentRepo) PaymentStatus(ctx context.Context, orderID string) (bool, error) {
	var reserved, cancelled bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payment_barrier WHERE order_id = $1),
		        EXISTS (SELECT 1 FROM cancel_barrier  WHERE order_id = $1)`,
		orderID).Scan(&reserved, &cancelled)
	if err != nil {
		return false, fmt.Errorf("payment: status: %w", err)
	}
	return reserved && !cancelled, nil
}

// RecordPaymentEvent persists an event from the payments.recorded topic. The
// (order_id, kind) key makes redeliveries no-ops.
func (r *PaymentRepo) RecordPaymentEvent(ctx context.Context, ev PaymentEvent) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO payment_events (order_id, kind, user_id, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (order_id, kind) DO NOTHING`,
		ev.OrderID, ev.Kind, ev.UserID, ev.Amount, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("payment: record event: %w", err)
	}
	return nil
}

// publishEvent is best effort: the ledger mutation already committed and the
// audit trail must not fail it.
func (r *PaymentRepo) publishEvent(orderID, userID string, amount int64, kind string) {
	if r.bus == nil {
		return
	}
	data, err := json.Marshal(PaymentEvent{
		OrderID:   orderID,
		UserID:    userID,
		Amount:    amount,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := r.bus.Publish(PaymentEventsTopic, data); err != nil {
		slog.Warn("payment: failed to publish event", "order_id", orderID, "kind", kind, "error", err)
	}
}
