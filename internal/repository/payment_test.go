package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Jahb/WedDataManagement/internal/service"
)

func TestReserveCreditIsIdempotent(t *testing.T) {
	pool := testPool(t)
	bus := newMockBus()
	repo := NewPaymentRepo(pool, bus)
	ctx := context.Background()

	userID, err := repo.CreateUser(ctx)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := repo.AddCredit(ctx, userID, 100); err != nil {
		t.Fatalf("AddCredit: %v", err)
	}

	orderID := uuid.NewString()
	if err := repo.ReserveCredit(ctx, userID, orderID, 30); err != nil {
		t.Fatalf("first ReserveCredit: %v", err)
	}
	err = repo.ReserveCredit(ctx, userID, orderID, 30)
	if !errors.Is(err, service.ErrAlreadyProcessed) {
		t.Fatalf("second ReserveCredit error = %v, want ErrAlreadyProcessed", err)
	}

	acc, err := repo.FindUser(ctx, userID)
	if err != nil {
		t.Fatalf("FindUser: %v", err)
	}
	if acc.Credit != 70 {
		t.Errorf("credit = %d, want one 30 debit from 100", acc.Credit)
	}
	if got := bus.count(PaymentEventsTopic); got != 1 {
		t.Errorf("published %d events, want 1 (duplicates must not publish)", got)
	}
}

func TestReserveCreditDifferentAmountStillDuplicate(t *testing.T) {
	pool := testPool(t)
	repo := NewPaymentRepo(pool, nil)
	ctx := context.Background()

	userID, _ := repo.CreateUser(ctx)
	if err := repo.AddCredit(ctx, userID, 100); err != nil {
		t.Fatalf("AddCredit: %v", err)
	}

	orderID := uuid.NewString()
	if err := repo.ReserveCredit(ctx, userID, orderID, 25); err != nil {
		t.Fatalf("ReserveCredit: %v", err)
	}
	err := repo.ReserveCredit(ctx, userID, orderID, 50)
	if !errors.Is(err, service.ErrAlreadyProcessed) {
		t.Fatalf("retry with new amount error = %v, want ErrAlreadyProcessed", err)
	}

	acc, _ := repo.FindUser(ctx, userID)
	if acc.Credit != 75 {
		t.Errorf("credit = %d, want 75 (the recorded 25 wins)", acc.Credit)
	}
}

func TestReserveCreditInsufficientFundsLeavesNoBarrier(t *testing.T) {
	pool := testPool(t)
	repo := NewPaymentRepo(pool, nil)
	ctx := context.Background()

	userID, _ := repo.CreateUser(ctx)
	if err := repo.AddCredit(ctx, userID, 10); err != nil {
		t.Fatalf("AddCredit: %v", err)
	}

	orderID := uuid.NewString()
	err := repo.ReserveCredit(ctx, userID, orderID, 50)
	if !errors.Is(err, service.ErrInsufficientFunds) {
		t.Fatalf("ReserveCredit error = %v, want ErrInsufficientFunds", err)
	}

	// A rejected attempt must not burn the order id: a later funded retry
	// has to go through.
	if err := repo.AddCredit(ctx, userID, 100); err != nil {
		t.Fatalf("AddCredit: %v", err)
	}
	if err := repo.ReserveCredit(ctx, userID, orderID, 50); err != nil {
		t.Fatalf("retry after funding: %v", err)
	}
	acc, _ := repo.FindUser(ctx, userID)
	if acc.Credit != 60 {
		t.Errorf("credit = %d, want 60", acc.Credit)
	}
}

func TestReserveCreditNoSuchUser(t *testing.T) {
	pool := testPool(t)
	repo := NewPaymentRepo(pool, nil)

	err := repo.ReserveCredit(context.Background(), uuid.NewString(), uuid.NewString(), 10)
	if !errors.Is(err, service.ErrNoSuchUser) {
		t.Fatalf("ReserveCredit error = %v, want ErrNoSuchUser", err)
	}
}

func TestReleaseCreditRefundsAndFlipsStatus(t *testing.T) {
	pool := testPool(t)
	repo := NewPaymentRepo(pool, nil)
	ctx := context.Background()

	userID, _ := repo.CreateUser(ctx)
	if err := repo.AddCredit(ctx, userID, 100); err != nil {
		t.Fatalf("AddCredit: %v", err)
	}

	orderID := uuid.NewString()
	if err := repo.ReserveCredit(ctx, userID, orderID, 40); err != nil {
		t.Fatalf("ReserveCredit: %v", err)
	}
	paid, err := repo.PaymentStatus(ctx, orderID)
	if err != nil || !paid {
		t.Fatalf("PaymentStatus after reserve = %v, %v, want true", paid, err)
	}

	if err := repo.ReleaseCredit(ctx, userID, orderID); err != nil {
		t.Fatalf("ReleaseCredit: %v", err)
	}
	acc, _ := repo.FindUser(ctx, userID)
	if acc.Credit != 100 {
		t.Errorf("credit after refund = %d, want 100", acc.Credit)
	}
	paid, err = repo.PaymentStatus(ctx, orderID)
	if err != nil || paid {
		t.Fatalf("PaymentStatus after release = %v, %v, want false", paid, err)
	}

	err = repo.ReleaseCredit(ctx, userID, orderID)
	if !errors.Is(err, service.ErrAlreadyProcessed) {
		t.Fatalf("second ReleaseCredit error = %v, want ErrAlreadyProcessed", err)
	}
	acc, _ = repo.FindUser(ctx, userID)
	if acc.Credit != 100 {
		t.Errorf("credit after duplicate refund = %d, want still 100", acc.Credit)
	}
}

func TestReleaseBeforeReserveBlocksLateReserve(t *testing.T) {
	pool := testPool(t)
	repo := NewPaymentRepo(pool, nil)
	ctx := context.Background()

	userID, _ := repo.CreateUser(ctx)
	if err := repo.AddCredit(ctx, userID, 100); err != nil {
		t.Fatalf("AddCredit: %v", err)
	}

	// Release arrives first, for an order that was never reserved. It must
	// succeed without touching the balance and fence the order id.
	orderID := uuid.NewString()
	if err := repo.ReleaseCredit(ctx, userID, orderID); err != nil {
		t.Fatalf("ReleaseCredit before reserve: %v", err)
	}
	acc, _ := repo.FindUser(ctx, userID)
	if acc.Credit != 100 {
		t.Errorf("credit = %d, want untouched 100", acc.Credit)
	}

	err := repo.ReserveCredit(ctx, userID, orderID, 30)
	if !errors.Is(err, service.ErrAlreadyProcessed) {
		t.Fatalf("late ReserveCredit error = %v, want ErrAlreadyProcessed", err)
	}
	acc, _ = repo.FindUser(ctx, userID)
	if acc.Credit != 100 {
		t.Errorf("credit after fenced reserve = %d, want 100", acc.Credit)
	}
}

func TestConcurrentReserveAndReleaseConservesCredit(t *testing.T) {
	pool := testPool(t)
	repo := NewPaymentRepo(pool, nil)
	ctx := context.Background()

	const rounds = 50
	const amount = int64(10)

	userID, err := repo.CreateUser(ctx)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := repo.AddCredit(ctx, userID, rounds*amount); err != nil {
		t.Fatalf("AddCredit: %v", err)
	}

	// Race a reserve against a release for the same order. Whichever
	// interleaving wins, afterwards the order must be unpaid and the debit
	// refunded. In particular a release whose barrier insert loses to a
	// concurrent reserve has to refund the reserved amount, not report
	// success with the money gone.
	for i := 0; i < rounds; i++ {
		orderID := uuid.NewString()
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = repo.ReserveCredit(ctx, userID, orderID, amount)
		}()
		go func() {
			defer wg.Done()
			_ = repo.ReleaseCredit(ctx, userID, orderID)
		}()
		wg.Wait()

		paid, err := repo.PaymentStatus(ctx, orderID)
		if err != nil {
			t.Fatalf("round %d: PaymentStatus: %v", i, err)
		}
		if paid {
			t.Fatalf("round %d: order still paid after release", i)
		}
		acc, err := repo.FindUser(ctx, userID)
		if err != nil {
			t.Fatalf("round %d: FindUser: %v", i, err)
		}
		if acc.Credit != rounds*amount {
			t.Fatalf("round %d: credit = %d, want %d (refund lost)", i, acc.Credit, rounds*amount)
		}
	}
}

func TestRecordPaymentEventIgnoresRedelivery(t *testing.T) {
	pool := testPool(t)
	repo := NewPaymentRepo(pool, nil)
	ctx := context.Background()

	ev := PaymentEvent{
		OrderID:   uuid.NewString(),
		UserID:    uuid.NewString(),
		Amount:    12,
		Kind:      EventKindReserve,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.RecordPaymentEvent(ctx, ev); err != nil {
		t.Fatalf("first RecordPaymentEvent: %v", err)
	}
	if err := repo.RecordPaymentEvent(ctx, ev); err != nil {
		t.Fatalf("redelivered RecordPaymentEvent: %v", err)
	}

	var n int
	err := pool.QueryRow(ctx,
		`SELECT count(*) FROM payment_events WHERE order_id = $1`, ev.OrderID).Scan(&n)
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	if n != 1 {
		t.Errorf("stored %d rows, want 1", n)
	}
}
