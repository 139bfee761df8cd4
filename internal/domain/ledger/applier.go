package ledger

import (
	"context"
	"fmt"
	"time"

	"costbook/internal/core/apperror"
	"costbook/internal/core/entity"
	"costbook/internal/core/id"
	"costbook/internal/domain/posting"
	"costbook/pkg/logger"
)

// Applier materializes detected discrepancies as correction records and
// adjusting journal entries. Historical movement rows are never rewritten;
// each correction is a separate compensating entry, preserving the full
// audit trail of what was originally recorded versus what the correction
// fixed.
type Applier struct {
	repo    Repository
	journal posting.Journal
	audit   AuditLogger
}

// NewApplier creates a correction applier.
// audit may be nil; correction audit logging is then skipped.
func NewApplier(repo Repository, journal posting.Journal, audit AuditLogger) *Applier {
	return &Applier{
		repo:    repo,
		journal: journal,
		audit:   audit,
	}
}

// Apply persists one batch of corrections for a single triggering movement
// and posts an adjusting entry per correction. The caller must run Apply
// inside the same transaction as the triggering append: if any entry fails
// to post, the returned error rolls back the whole batch and the
// discrepancy stays re-detectable.
func (a *Applier) Apply(ctx context.Context, account entity.Account, trigger *entity.InventoryMovement, needed []CorrectionNeeded) ([]entity.AverageCostCorrection, error) {
	if len(needed) == 0 {
		return nil, nil
	}

	if id.IsNil(account.CostAccountID) {
		return nil, apperror.NewCorrectionApplication(
			fmt.Errorf("account %s has no cost account configured", account.ID))
	}

	now := time.Now().UTC()

	corrections := make([]entity.AverageCostCorrection, 0, len(needed))
	for _, n := range needed {
		corrections = append(corrections, entity.AverageCostCorrection{
			ID:                 id.New(),
			CompanyID:          account.CompanyID,
			AccountID:          account.ID,
			TriggerMovementID:  trigger.ID,
			AffectedMovementID: n.Movement.ID,
			OldAverageCost:     n.OldAverageCost,
			NewAverageCost:     n.NewAverageCost,
			Amount:             n.Amount,
			CreatedAt:          now,
		})
	}

	if err := a.repo.CreateCorrections(ctx, corrections); err != nil {
		return nil, fmt.Errorf("create corrections: %w", err)
	}

	for i := range corrections {
		c := &corrections[i]
		n := needed[i]

		// A delta that rounds to zero still corrects the recorded cost,
		// but there is no value to book; the entry is skipped.
		entryID := id.Nil()
		if !c.Amount.IsZero() {
			posted, err := a.postAdjustingEntry(ctx, account, c, &n.Movement)
			if err != nil {
				return nil, apperror.NewCorrectionApplication(err).
					WithDetail("correction_id", c.ID).
					WithDetail("affected_movement_id", c.AffectedMovementID)
			}
			entryID = posted
		}

		appliedAt := time.Now().UTC()
		if err := a.repo.MarkCorrectionApplied(ctx, c.ID, entryID, appliedAt); err != nil {
			return nil, fmt.Errorf("mark correction applied: %w", err)
		}
		if !id.IsNil(entryID) {
			linked := entryID
			c.JournalEntryID = &linked
		}
		c.IsApplied = true
		c.AppliedAt = &appliedAt

		if a.audit != nil {
			if err := a.audit.LogChange(ctx, "AverageCostCorrection", c.ID, "apply", map[string]any{
				"account_id":           account.ID.String(),
				"trigger_movement_id":  trigger.ID.String(),
				"affected_movement_id": c.AffectedMovementID.String(),
				"old_average_cost":     c.OldAverageCost.String(),
				"new_average_cost":     c.NewAverageCost.String(),
				"amount":               c.Amount.String(),
				"journal_entry_id":     entryID.String(),
			}); err != nil {
				logger.Warn(ctx, "correction audit log failed", "correction_id", c.ID, "error", err)
			}
		}
	}

	return corrections, nil
}

// postAdjustingEntry books the value delta of one correction.
// A cost increase debits the COGS/expense account and credits the material
// account; a decrease runs the other way. Amounts are always the absolute
// delta. The entry is dated at the affected issue's movement date so the
// revaluation lands in the period whose cost was misstated.
func (a *Applier) postAdjustingEntry(ctx context.Context, account entity.Account, c *entity.AverageCostCorrection, affected *entity.InventoryMovement) (id.ID, error) {
	abs := c.Amount.Abs()

	var lines []posting.LineRequest
	if c.Amount.Sign() >= 0 {
		lines = []posting.LineRequest{
			{AccountID: account.CostAccountID, Debit: abs},
			{AccountID: account.ID, Credit: abs},
		}
	} else {
		lines = []posting.LineRequest{
			{AccountID: account.ID, Debit: abs},
			{AccountID: account.CostAccountID, Credit: abs},
		}
	}

	return a.journal.CreateAndPost(ctx, posting.EntryRequest{
		CompanyID: account.CompanyID,
		EntryDate: affected.MovementDate,
		Description: fmt.Sprintf("Average cost correction %s: %s -> %s",
			account.Code, c.OldAverageCost.String(), c.NewAverageCost.String()),
		Correction: true,
		Lines:      lines,
	})
}
