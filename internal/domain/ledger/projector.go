package ledger

import (
	"costbook/internal/core/apperror"
	"costbook/internal/core/entity"
	"costbook/internal/core/types"
)

// Step is the result of advancing the fold by one movement.
type Step struct {
	// Balance is the running state immediately after the movement
	Balance Balance

	// Amount is the value moved by this step: the receipt amount, or the
	// cost of goods out drawn at the running average for issues
	Amount types.Money

	// Degenerate is set when the step leaves zero quantity with a nonzero
	// amount. A legitimate transient state (stock fully depleted, value
	// residue from rounding); the average cost is carried forward.
	Degenerate bool
}

// Advance computes the balance after one movement, given the prior balance.
//
// Receipt of quantity dq with total value v:
//
//	newQ = q + dq; newA = a + v; newC = newA / newQ (half-up, 4 digits)
//
// Issue of quantity dq, costed at the current average c (never the issue's
// own recorded average, which may be stale):
//
//	newQ = q - dq; newA = a - dq*c; newC = c
//
// An issue that would drive newQ negative is a data-integrity error; the
// engine never clamps or guesses a substitute.
func Advance(prior Balance, movementType entity.MovementType, quantity types.Quantity, receiptAmount types.Money) (Step, error) {
	switch movementType {
	case entity.MovementTypeReceipt:
		newQ := prior.Quantity + quantity
		newA := prior.Amount.Add(receiptAmount)
		newC := prior.AverageCost
		if !newQ.IsZero() {
			newC = types.RoundCost(newA.Div(newQ.Decimal()))
		}
		return Step{
			Balance:    Balance{Quantity: newQ, Amount: newA, AverageCost: newC},
			Amount:     receiptAmount,
			Degenerate: newQ.IsZero() && !newA.IsZero(),
		}, nil

	case entity.MovementTypeIssue:
		if prior.Quantity < quantity {
			return Step{}, apperror.NewNegativeStock("", quantity.Float64(), prior.Quantity.Float64())
		}
		cost := types.RoundAmount(quantity.Decimal().Mul(prior.AverageCost))
		newQ := prior.Quantity - quantity
		newA := prior.Amount.Sub(cost)
		return Step{
			Balance:    Balance{Quantity: newQ, Amount: newA, AverageCost: prior.AverageCost},
			Amount:     cost,
			Degenerate: newQ.IsZero() && !newA.IsZero(),
		}, nil

	default:
		return Step{}, apperror.NewValidation("unknown movement type: " + string(movementType))
	}
}

// AdvanceMovement folds one recorded movement into the running balance.
// Receipts contribute their recorded amount; issues are re-costed at the
// running average, which is what makes the fold the ground truth even when
// a movement's stored checkpoint is stale.
func AdvanceMovement(prior Balance, m *entity.InventoryMovement) (Step, error) {
	step, err := Advance(prior, m.Type, m.Quantity, m.Amount)
	if err != nil {
		if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeNegativeStock {
			return Step{}, apperror.NewNegativeStock(m.AccountID.String(), m.Quantity.Float64(), prior.Quantity.Float64()).
				WithDetail("movement_id", m.ID)
		}
		return Step{}, err
	}
	return step, nil
}

// Project folds movements in ledger order from an empty balance,
// producing the account's ground-truth quantity, amount and average cost.
// The cached InventoryBalance is only ever a copy of this result.
func Project(movements []entity.InventoryMovement) (Balance, error) {
	var bal Balance
	for i := range movements {
		step, err := AdvanceMovement(bal, &movements[i])
		if err != nil {
			return Balance{}, err
		}
		bal = step.Balance
	}
	return bal, nil
}

// ProjectBefore folds only movements strictly earlier than the given
// ledger position (movement date, then sequence). This is the balance the
// ledger had immediately before that position: the insertion-point balance
// used for backdated movements.
//
// A movement being inserted "now" always sorts after existing same-day
// movements, so date-equal movements are included in the prefix.
func ProjectBefore(movements []entity.InventoryMovement, position *entity.InventoryMovement) (Balance, error) {
	var bal Balance
	for i := range movements {
		m := &movements[i]
		if !m.Before(position) {
			break
		}
		step, err := AdvanceMovement(bal, m)
		if err != nil {
			return Balance{}, err
		}
		bal = step.Balance
	}
	return bal, nil
}
