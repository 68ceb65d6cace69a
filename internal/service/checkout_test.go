package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Jahb/WedDataManagement/internal/model"
)

// memLedgers emulates both ledgers the way their RPC clients look from the
// saga: barrier-guarded mutations, duplicate replays resolving to success and
// business failures surfacing as RemoteError.
type memLedgers struct {
	mu sync.Mutex

	credit        map[string]int64
	payBarrier    map[string]int64
	cancelBarrier map[string]bool

	stock        map[string]int64
	price        map[string]int64
	stockBarrier map[string]bool

	releaseErr        error
	stockTransportErr error
	releaseCalls      int
	reserveStockCalls int
}

func newMemLedgers() *memLedgers {
	return &memLedgers{
		credit:        make(map[string]int64),
		payBarrier:    make(map[string]int64),
		cancelBarrier: make(map[string]bool),
		stock:         make(map[string]int64),
		price:         make(map[string]int64),
		stockBarrier:  make(map[string]bool),
	}
}

func (m *memLedgers) ReserveCredit(ctx context.Context, userID, orderID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payBarrier[orderID]; ok {
		return nil // duplicate replay resolves as success on the wire
	}
	if m.credit[userID] < amount {
		return &RemoteError{Message: fmt.Sprintf("insufficient funds: user %s", userID)}
	}
	m.payBarrier[orderID] = amount
	m.credit[userID] -= amount
	return nil
}

func (m *memLedgers) ReleaseCredit(ctx context.Context, userID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseCalls++
	if m.releaseErr != nil {
		return m.releaseErr
	}
	amount, ok := m.payBarrier[orderID]
	if !ok {
		m.payBarrier[orderID] = 0
		m.cancelBarrier[orderID] = true
		return nil
	}
	if m.cancelBarrier[orderID] {
		return nil
	}
	m.cancelBarrier[orderID] = true
	m.credit[userID] += amount
	return nil
}

func (m *memLedgers) ReserveStock(ctx context.Context, counts map[string]int64, idemKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserveStockCalls++
	if m.stockTransportErr != nil {
		return m.stockTransportErr
	}
	if m.stockBarrier[idemKey] {
		return nil
	}
	m.stockBarrier[idemKey] = true
	for itemID, count := range counts {
		if m.stock[itemID] < count {
			return &RemoteError{Message: fmt.Sprintf("insufficient stock: item %s", itemID)}
		}
	}
	for itemID, count := range counts {
		m.stock[itemID] -= count
	}
	return nil
}

func (m *memLedgers) TotalCost(ctx context.Context, counts map[string]int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for itemID, count := range counts {
		price, ok := m.price[itemID]
		if !ok {
			return 0, &RemoteError{Message: fmt.Sprintf("no such item: %s", itemID)}
		}
		total += price * count
	}
	return total, nil
}

func (m *memLedgers) paid(orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, reserved := m.payBarrier[orderID]
	return reserved && !m.cancelBarrier[orderID]
}

func testOrder() *model.Order {
	return &model.Order{
		OrderID: "order-1",
		UserID:  "user-1",
		Items:   []string{"widget", "widget", "gadget"},
	}
}

func TestCheckoutSuccess(t *testing.T) {
	ledgers := newMemLedgers()
	ledgers.credit["user-1"] = 100
	ledgers.price["widget"] = 10
	ledgers.price["gadget"] = 10
	ledgers.stock["widget"] = 5
	ledgers.stock["gadget"] = 5

	saga := NewCheckoutSaga(ledgers, ledgers)
	state, err := saga.Checkout(context.Background(), testOrder())
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if state != StateStockReserved {
		t.Fatalf("state = %s, want %s", state, StateStockReserved)
	}
	if got := ledgers.credit["user-1"]; got != 70 {
		t.Errorf("credit = %d, want 70 (cost is 2 widgets + 1 gadget)", got)
	}
	if ledgers.stock["widget"] != 3 || ledgers.stock["gadget"] != 4 {
		t.Errorf("stock = %v, want widget 3, gadget 4", ledgers.stock)
	}
	if !ledgers.paid("order-1") {
		t.Error("order not marked paid after successful checkout")
	}
}

func TestCheckoutInsufficientFundsLeavesStockAlone(t *testing.T) {
	ledgers := newMemLedgers()
	ledgers.credit["user-1"] = 5
	ledgers.price["widget"] = 10
	ledgers.price["gadget"] = 10
	ledgers.stock["widget"] = 5
	ledgers.stock["gadget"] = 5

	saga := NewCheckoutSaga(ledgers, ledgers)
	state, err := saga.Checkout(context.Background(), testOrder())
	if !errors.Is(err, ErrCheckoutRejected) {
		t.Fatalf("Checkout() error = %v, want ErrCheckoutRejected", err)
	}
	if state != StateCreditFailed {
		t.Fatalf("state = %s, want %s", state, StateCreditFailed)
	}
	if ledgers.reserveStockCalls != 0 {
		t.Error("stock ledger was called after the credit step failed")
	}
	if ledgers.credit["user-1"] != 5 {
		t.Errorf("credit = %d, want untouched 5", ledgers.credit["user-1"])
	}
}

func TestCheckoutStockFailureRefundsCredit(t *testing.T) {
	ledgers := newMemLedgers()
	ledgers.credit["user-1"] = 100
	ledgers.price["widget"] = 10
	ledgers.price["gadget"] = 10
	ledgers.stock["widget"] = 5
	// gadget has zero stock

	saga := NewCheckoutSaga(ledgers, ledgers)
	state, err := saga.Checkout(context.Background(), testOrder())
	if !errors.Is(err, ErrCheckoutRejected) {
		t.Fatalf("Checkout() error = %v, want ErrCheckoutRejected", err)
	}
	if state != StateCompensated {
		t.Fatalf("state = %s, want %s", state, StateCompensated)
	}
	if got := ledgers.credit["user-1"]; got != 100 {
		t.Errorf("credit after refund = %d, want 100", got)
	}
	if ledgers.stock["widget"] != 5 {
		t.Errorf("widget stock = %d, want untouched 5", ledgers.stock["widget"])
	}
	if ledgers.paid("order-1") {
		t.Error("order still reports paid after compensation")
	}
}

func TestCheckoutCompensationFailureIsFatal(t *testing.T) {
	ledgers := newMemLedgers()
	ledgers.credit["user-1"] = 100
	ledgers.price["widget"] = 10
	ledgers.price["gadget"] = 10
	ledgers.releaseErr = errors.New("credit ledger unreachable")
	// no stock at all, so the stock step fails and compensation kicks in

	saga := NewCheckoutSaga(ledgers, ledgers)
	state, err := saga.Checkout(context.Background(), testOrder())
	if !errors.Is(err, ErrCompensationFailed) {
		t.Fatalf("Checkout() error = %v, want ErrCompensationFailed", err)
	}
	if errors.Is(err, ErrCheckoutRejected) {
		t.Fatal("fatal outcome must be distinct from an ordinary rejection")
	}
	if state != StateCompensationFailed {
		t.Fatalf("state = %s, want %s", state, StateCompensationFailed)
	}
}

func TestCheckoutTransportFaultDoesNotCompensate(t *testing.T) {
	ledgers := newMemLedgers()
	ledgers.credit["user-1"] = 100
	ledgers.price["widget"] = 10
	ledgers.price["gadget"] = 10
	ledgers.stock["widget"] = 5
	ledgers.stock["gadget"] = 5
	ledgers.stockTransportErr = ErrTimeout

	saga := NewCheckoutSaga(ledgers, ledgers)
	state, err := saga.Checkout(context.Background(), testOrder())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Checkout() error = %v, want ErrTimeout", err)
	}
	if state != StateReservingStock {
		t.Fatalf("state = %s, want %s", state, StateReservingStock)
	}
	// A timeout says nothing about whether stock was reserved; refunding here
	// could undo a payment whose stock step actually succeeded.
	if ledgers.releaseCalls != 0 {
		t.Error("compensation ran on a transport fault")
	}
}

func TestCheckoutReplaySameOrderChargesOnce(t *testing.T) {
	ledgers := newMemLedgers()
	ledgers.credit["user-1"] = 100
	ledgers.price["widget"] = 10
	ledgers.price["gadget"] = 10
	ledgers.stock["widget"] = 5
	ledgers.stock["gadget"] = 5

	saga := NewCheckoutSaga(ledgers, ledgers)
	for i := 0; i < 3; i++ {
		state, err := saga.Checkout(context.Background(), testOrder())
		if err != nil {
			t.Fatalf("replay %d: Checkout() error = %v", i, err)
		}
		if state != StateStockReserved {
			t.Fatalf("replay %d: state = %s", i, state)
		}
	}
	if got := ledgers.credit["user-1"]; got != 70 {
		t.Errorf("credit after replays = %d, want exactly one 30 debit", got)
	}
	if ledgers.stock["widget"] != 3 {
		t.Errorf("widget stock after replays = %d, want 3", ledgers.stock["widget"])
	}
}

func TestCheckoutConcurrentSameOrder(t *testing.T) {
	ledgers := newMemLedgers()
	ledgers.credit["user-1"] = 100
	ledgers.price["widget"] = 10
	ledgers.price["gadget"] = 10
	ledgers.stock["widget"] = 5
	ledgers.stock["gadget"] = 5

	saga := NewCheckoutSaga(ledgers, ledgers)
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = saga.Checkout(context.Background(), testOrder())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("checkout %d: %v", i, err)
		}
	}
	if got := ledgers.credit["user-1"]; got != 70 {
		t.Errorf("credit = %d, want exactly one debit across concurrent checkouts", got)
	}
	if ledgers.stock["widget"] != 3 || ledgers.stock["gadget"] != 4 {
		t.Errorf("stock = %v, want one decrement total", ledgers.stock)
	}
}
