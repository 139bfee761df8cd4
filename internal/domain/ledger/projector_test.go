package ledger

import (
	"testing"
	"time"

	"costbook/internal/core/apperror"
	"costbook/internal/core/entity"
	"costbook/internal/core/id"
	"costbook/internal/core/types"
)

func day(n int) time.Time {
	return time.Date(2026, 3, n, 0, 0, 0, 0, time.UTC)
}

func qty(v float64) types.Quantity {
	return types.NewQuantityFromFloat64(v)
}

func money(s string) types.Money {
	return types.MustMoney(s)
}

// receipt builds a recorded receipt movement with its booked amount.
func receipt(dayN int, seq int64, quantity float64, unitPrice string) entity.InventoryMovement {
	q := qty(quantity)
	p := money(unitPrice)
	return entity.InventoryMovement{
		ID:           id.New(),
		AccountID:    id.New(),
		Sequence:     seq,
		MovementDate: day(dayN),
		Type:         entity.MovementTypeReceipt,
		Quantity:     q,
		UnitPrice:    p,
		Amount:       types.RoundAmount(q.Decimal().Mul(p)),
	}
}

// issue builds a recorded issue movement carrying the average cost it was
// originally drawn at.
func issue(dayN int, seq int64, quantity float64, avgCost string) entity.InventoryMovement {
	q := qty(quantity)
	c := money(avgCost)
	return entity.InventoryMovement{
		ID:           id.New(),
		AccountID:    id.New(),
		Sequence:     seq,
		MovementDate: day(dayN),
		Type:         entity.MovementTypeIssue,
		Quantity:     q,
		UnitPrice:    c,
		Amount:       types.RoundAmount(q.Decimal().Mul(c)),
		AverageCost:  c,
	}
}

func assertBalance(t *testing.T, bal Balance, wantQty float64, wantAmount, wantAvg string) {
	t.Helper()
	if bal.Quantity != qty(wantQty) {
		t.Errorf("quantity mismatch\nwant: %v\ngot:  %v", qty(wantQty), bal.Quantity)
	}
	if !bal.Amount.Equal(money(wantAmount)) {
		t.Errorf("amount mismatch\nwant: %s\ngot:  %s", wantAmount, bal.Amount)
	}
	if !bal.AverageCost.Equal(money(wantAvg)) {
		t.Errorf("average cost mismatch\nwant: %s\ngot:  %s", wantAvg, bal.AverageCost)
	}
}

func TestAdvance_ReceiptRecomputesAverage(t *testing.T) {
	// 10 @ 100.00 into empty, then 10 @ 120.00
	step, err := Advance(Balance{}, entity.MovementTypeReceipt, qty(10), money("1000.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertBalance(t, step.Balance, 10, "1000.00", "100.00")

	step, err = Advance(step.Balance, entity.MovementTypeReceipt, qty(10), money("1200.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertBalance(t, step.Balance, 20, "2200.00", "110.00")
}

func TestAdvance_IssueCostsAtRunningAverage(t *testing.T) {
	prior := Balance{Quantity: qty(20), Amount: money("2200.00"), AverageCost: money("110.00")}

	step, err := Advance(prior, entity.MovementTypeIssue, qty(5), types.Zero())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertBalance(t, step.Balance, 15, "1650.00", "110.00")
	if !step.Amount.Equal(money("550.00")) {
		t.Errorf("expected issue cost 550.00, got %s", step.Amount)
	}
}

func TestAdvance_IssueInsufficientStock(t *testing.T) {
	prior := Balance{Quantity: qty(15), Amount: money("1650.00"), AverageCost: money("110.00")}

	_, err := Advance(prior, entity.MovementTypeIssue, qty(100), types.Zero())
	if err == nil {
		t.Fatal("expected negative stock error, got nil")
	}
	if !apperror.IsNegativeStock(err) {
		t.Errorf("expected NEGATIVE_STOCK code, got %v", err)
	}
}

func TestAdvance_AverageCostRounding(t *testing.T) {
	// 3 units @ 10.00 -> avg 10/3 = 3.3333...; rounds to 4 digits half-up
	step, err := Advance(Balance{}, entity.MovementTypeReceipt, qty(3), money("10.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !step.Balance.AverageCost.Equal(money("3.3333")) {
		t.Errorf("expected 3.3333, got %s", step.Balance.AverageCost)
	}

	// drawing 1 rounds the booked amount to 2 digits
	step, err = Advance(step.Balance, entity.MovementTypeIssue, qty(1), types.Zero())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !step.Amount.Equal(money("3.33")) {
		t.Errorf("expected issue cost 3.33, got %s", step.Amount)
	}
}

func TestAdvance_DepletionLeavesResidue(t *testing.T) {
	// Deplete the 3 @ 3.3333 stock fully: residue 10.00 - 3*3.3333 = 0.0001
	prior := Balance{Quantity: qty(3), Amount: money("10.00"), AverageCost: money("3.3333")}

	step, err := Advance(prior, entity.MovementTypeIssue, qty(3), types.Zero())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !step.Balance.Quantity.IsZero() {
		t.Errorf("expected zero quantity, got %v", step.Balance.Quantity)
	}
	if !step.Degenerate {
		t.Error("expected degenerate flag for zero quantity with nonzero amount")
	}
	// average cost carries forward through the empty state
	if !step.Balance.AverageCost.Equal(money("3.3333")) {
		t.Errorf("expected carried average 3.3333, got %s", step.Balance.AverageCost)
	}
}

func TestProject_ScenarioA(t *testing.T) {
	movements := []entity.InventoryMovement{
		receipt(1, 1, 10, "100.00"),
		receipt(3, 2, 10, "120.00"),
		issue(4, 3, 5, "110.00"),
	}

	bal, err := Project(movements)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertBalance(t, bal, 15, "1650.00", "110.00")
}

func TestProject_Deterministic(t *testing.T) {
	movements := []entity.InventoryMovement{
		receipt(1, 1, 7, "13.37"),
		issue(2, 2, 3, "13.37"),
		receipt(2, 3, 11, "15.01"),
		issue(5, 4, 9, "14.57"),
	}

	first, err := Project(movements)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Project(movements)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertBalance(t, second, first.Quantity.Float64(), first.Amount.String(), first.AverageCost.String())
}

func TestProjectBefore_SplitsAtPosition(t *testing.T) {
	movements := []entity.InventoryMovement{
		receipt(1, 1, 10, "100.00"),
		receipt(3, 2, 10, "120.00"),
		issue(4, 3, 5, "110.00"),
	}

	// Insertion point dated day 2: only the day-1 receipt is in the prefix.
	position := entity.InventoryMovement{MovementDate: day(2), Sequence: 4}

	bal, err := ProjectBefore(movements, &position)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertBalance(t, bal, 10, "1000.00", "100.00")
}

func TestProjectBefore_SameDaySortsAfterExisting(t *testing.T) {
	movements := []entity.InventoryMovement{
		receipt(1, 1, 10, "100.00"),
		receipt(1, 2, 10, "120.00"),
	}

	// New movement on day 1 gets a later sequence, so both existing
	// same-day movements belong to its prefix.
	position := entity.InventoryMovement{MovementDate: day(1), Sequence: 3}

	bal, err := ProjectBefore(movements, &position)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertBalance(t, bal, 20, "2200.00", "110.00")
}
