package ledger

import (
	"costbook/internal/core/entity"
	"costbook/internal/core/id"
	"costbook/internal/core/types"
)

// effectiveCosts maps each movement to its latest corrected average cost.
// A movement's stored checkpoint is immutable; once a correction has been
// applied, the correction's NewAverageCost is the recorded truth the
// detector compares against. Corrections must be ordered oldest first so
// the newest one wins.
func effectiveCosts(applied []entity.AverageCostCorrection) map[id.ID]types.Money {
	if len(applied) == 0 {
		return nil
	}
	costs := make(map[id.ID]types.Money, len(applied))
	for _, c := range applied {
		costs[c.AffectedMovementID] = c.NewAverageCost
	}
	return costs
}

// effectiveCost returns the recorded average cost for a movement,
// preferring the newest applied correction over the stored checkpoint.
func effectiveCost(m *entity.InventoryMovement, costs map[id.ID]types.Money) types.Money {
	if c, ok := costs[m.ID]; ok {
		return c
	}
	return m.AverageCost
}

// detectForward folds through the movements that chronologically follow an
// insertion point, starting from the balance advanced past the inserted
// movement, and reports every issue whose drawn average cost no longer
// matches its recorded (effective) cost.
//
// Receipts never produce corrections: their own booked amount is
// quantity x unit price regardless of the upstream average. The fold still
// passes through them because they shift the running quantity and amount
// that downstream issues draw from.
//
// The refold enforces the no-negative-stock invariant for every prefix:
// a backdated movement that would drive a later running quantity negative
// surfaces as an error here, and the caller rejects the whole insertion.
func detectForward(start Balance, later []entity.InventoryMovement, costs map[id.ID]types.Money) ([]CorrectionNeeded, Balance, error) {
	var needed []CorrectionNeeded
	bal := start

	for i := range later {
		m := &later[i]

		step, err := AdvanceMovement(bal, m)
		if err != nil {
			return nil, Balance{}, err
		}

		if m.Type == entity.MovementTypeIssue {
			recorded := effectiveCost(m, costs)
			recomputed := bal.AverageCost
			if !recomputed.Equal(recorded) {
				delta := types.RoundAmount(recomputed.Sub(recorded).Mul(m.Quantity.Decimal()))
				needed = append(needed, CorrectionNeeded{
					Movement:       *m,
					OldAverageCost: recorded,
					NewAverageCost: recomputed,
					Amount:         delta,
				})
			}
		}

		bal = step.Balance
	}

	return needed, bal, nil
}

// Detect recomputes the chain downstream of a triggering movement against
// the full ledger and returns the corrections still needed. Read-only and
// idempotent: running it twice without an intervening apply yields the
// identical set, and after a successful apply it yields an empty one.
//
// movements must be the account's full ledger in ledger order; applied
// must be the account's applied corrections oldest first.
func Detect(movements []entity.InventoryMovement, applied []entity.AverageCostCorrection, trigger *entity.InventoryMovement) ([]CorrectionNeeded, error) {
	// Split the ledger at the trigger's position: everything up to and
	// including the trigger seeds the refold, everything after is checked.
	split := len(movements)
	for i := range movements {
		if trigger.Before(&movements[i]) {
			split = i
			break
		}
	}

	prior, err := Project(movements[:split])
	if err != nil {
		return nil, err
	}

	needed, _, err := detectForward(prior, movements[split:], effectiveCosts(applied))
	return needed, err
}
