package ledger

import (
	"context"
	"fmt"
	"time"

	"costbook/internal/core/apperror"
	"costbook/internal/core/entity"
	"costbook/internal/core/id"
	"costbook/internal/core/keylock"
	"costbook/internal/core/tx"
	"costbook/internal/core/types"
	"costbook/internal/domain/posting"
	"costbook/pkg/logger"
)

// Service orchestrates the movement ledger: appending movements, keeping
// the balance projection current, detecting retroactive discrepancies and
// applying corrections. At most one writer runs per account at a time;
// different accounts proceed in parallel.
type Service struct {
	repo      Repository
	txManager tx.Manager
	applier   *Applier
	audit     AuditLogger
	locks     *keylock.KeyLock
}

// NewService creates a new ledger service.
func NewService(repo Repository, txManager tx.Manager, journal posting.Journal, audit AuditLogger) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		applier:   NewApplier(repo, journal, audit),
		audit:     audit,
		locks:     keylock.New(),
	}
}

// RecordFromEntryLine consumes a committed entry line from the posting
// subsystem. Debit-side lines on material accounts become receipts,
// credit-side lines become issues; the receipt unit price is derived from
// the line amount.
func (s *Service) RecordFromEntryLine(ctx context.Context, line posting.PostedLine) (*RecordResult, error) {
	if !line.Quantity.IsPositive() {
		return nil, apperror.NewValidation("entry line quantity must be positive")
	}

	cmd := RecordCommand{
		CompanyID:      line.CompanyID,
		AccountID:      line.AccountID,
		EntryLineID:    line.EntryLineID,
		JournalEntryID: line.JournalEntryID,
		Date:           line.Date,
		Quantity:       line.Quantity,
	}

	switch {
	case line.Debit.Sign() > 0:
		cmd.Type = entity.MovementTypeReceipt
		cmd.UnitPrice = types.RoundCost(line.Debit.Div(line.Quantity.Decimal()))
	case line.Credit.Sign() > 0:
		cmd.Type = entity.MovementTypeIssue
	default:
		return nil, apperror.NewValidation("entry line must carry a debit or credit amount")
	}

	return s.Record(ctx, cmd)
}

// Record appends one movement, running append -> detect -> apply as a
// single unit under the account's exclusive lock and one serializable
// transaction. A backdated movement triggers detection over everything
// that chronologically follows it; detected corrections are applied
// atomically with the append.
func (s *Service) Record(ctx context.Context, cmd RecordCommand) (*RecordResult, error) {
	if err := s.validate(&cmd); err != nil {
		return nil, err
	}

	account, err := s.repo.GetAccount(ctx, cmd.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.QuantityTracked {
		return nil, apperror.NewAccountNotQuantityTracked(account.ID.String())
	}

	s.locks.Lock(cmd.AccountID)
	defer s.locks.Unlock(cmd.AccountID)

	var result *RecordResult
	err = s.txManager.RunSerializable(ctx, func(ctx context.Context) error {
		var txErr error
		result, txErr = s.record(ctx, account, cmd)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "movement recorded",
		"movement_id", result.Movement.ID,
		"account_id", cmd.AccountID,
		"type", cmd.Type,
		"quantity", cmd.Quantity,
		"corrections", len(result.Corrections),
	)

	return result, nil
}

// record runs inside the account lock and transaction.
func (s *Service) record(ctx context.Context, account entity.Account, cmd RecordCommand) (*RecordResult, error) {
	// Row lock on the balance projection: database-level serialization of
	// writers on this account, in addition to the in-process key lock.
	if _, err := s.repo.GetBalanceForUpdate(ctx, account.ID); err != nil {
		return nil, fmt.Errorf("lock balance: %w", err)
	}

	movements, err := s.repo.ListMovements(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}

	seq, err := s.repo.NextSequence(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("next sequence: %w", err)
	}

	movement := entity.InventoryMovement{
		ID:             id.New(),
		CompanyID:      cmd.CompanyID,
		AccountID:      cmd.AccountID,
		EntryLineID:    cmd.EntryLineID,
		JournalEntryID: cmd.JournalEntryID,
		Sequence:       seq,
		MovementDate:   entity.DateOnly(cmd.Date),
		Type:           cmd.Type,
		Quantity:       cmd.Quantity,
		CreatedAt:      time.Now().UTC(),
	}

	// The new movement sorts after all existing same-day movements, so the
	// prefix is everything dated on or before it.
	split := splitAt(movements, &movement)
	prior, later := movements[:split], movements[split:]

	priorBal, err := Project(prior)
	if err != nil {
		return nil, err
	}

	step, err := s.advanceNew(priorBal, &movement, cmd.UnitPrice)
	if err != nil {
		return nil, err
	}

	movement.Amount = step.Amount
	movement.BalanceQuantity = step.Balance.Quantity
	movement.BalanceAmount = step.Balance.Amount
	movement.AverageCost = step.Balance.AverageCost
	if step.Degenerate {
		logger.Warn(ctx, "zero quantity with nonzero amount after movement",
			"account_id", account.ID,
			"amount", step.Balance.Amount,
		)
	}

	// Backdated insert: everything after the insertion point must be
	// refolded and checked before anything is written.
	var needed []CorrectionNeeded
	finalBal := step.Balance
	if len(later) > 0 {
		applied, listErr := s.repo.ListAppliedCorrections(ctx, account.ID)
		if listErr != nil {
			return nil, fmt.Errorf("list applied corrections: %w", listErr)
		}

		var endBal Balance
		needed, endBal, err = detectForward(step.Balance, later, effectiveCosts(applied))
		if err != nil {
			return nil, err
		}
		finalBal = endBal
	}

	if err := s.repo.CreateMovement(ctx, movement); err != nil {
		return nil, fmt.Errorf("create movement: %w", err)
	}

	corrections, err := s.applier.Apply(ctx, account, &movement, needed)
	if err != nil {
		return nil, err
	}

	last := &movement
	if len(later) > 0 {
		last = &later[len(later)-1]
	}
	if err := s.refreshBalance(ctx, account, finalBal, last); err != nil {
		return nil, err
	}

	return &RecordResult{Movement: movement, Corrections: corrections}, nil
}

// advanceNew builds the checkpoint for a movement being appended.
func (s *Service) advanceNew(prior Balance, m *entity.InventoryMovement, unitPrice types.Money) (Step, error) {
	if m.Type == entity.MovementTypeReceipt {
		m.UnitPrice = unitPrice
		amount := types.RoundAmount(m.Quantity.Decimal().Mul(unitPrice))
		return Advance(prior, m.Type, m.Quantity, amount)
	}

	if prior.Quantity < m.Quantity {
		// Insufficient quantity as of the movement date: reject, never clamp.
		return Step{}, apperror.NewNegativeStock(m.AccountID.String(), m.Quantity.Float64(), prior.Quantity.Float64())
	}
	step, err := Advance(prior, m.Type, m.Quantity, types.Zero())
	if err != nil {
		return Step{}, err
	}
	m.UnitPrice = prior.AverageCost
	return step, nil
}

// PreviewCorrections is the dry-run interface: it computes the corrections
// a movement would trigger without writing anything. Detection is
// read-only; running it any number of times yields the identical set.
func (s *Service) PreviewCorrections(ctx context.Context, cmd RecordCommand) ([]CorrectionNeeded, error) {
	if err := s.validate(&cmd); err != nil {
		return nil, err
	}

	account, err := s.repo.GetAccount(ctx, cmd.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.QuantityTracked {
		return nil, apperror.NewAccountNotQuantityTracked(account.ID.String())
	}

	movements, err := s.repo.ListMovements(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}

	probe := entity.InventoryMovement{
		AccountID:    cmd.AccountID,
		MovementDate: entity.DateOnly(cmd.Date),
		Sequence:     1<<62 - 1,
		Type:         cmd.Type,
		Quantity:     cmd.Quantity,
	}

	split := splitAt(movements, &probe)
	prior, later := movements[:split], movements[split:]

	priorBal, err := Project(prior)
	if err != nil {
		return nil, err
	}

	step, err := s.advanceNew(priorBal, &probe, cmd.UnitPrice)
	if err != nil {
		return nil, err
	}

	if len(later) == 0 {
		return nil, nil
	}

	applied, err := s.repo.ListAppliedCorrections(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("list applied corrections: %w", err)
	}

	needed, _, err := detectForward(step.Balance, later, effectiveCosts(applied))
	return needed, err
}

// DetectForMovement re-checks an existing movement against the recorded
// chain, as if it had just been inserted. After a successful apply this
// returns an empty list for the same trigger.
func (s *Service) DetectForMovement(ctx context.Context, movementID id.ID) ([]CorrectionNeeded, error) {
	trigger, err := s.repo.GetMovement(ctx, movementID)
	if err != nil {
		return nil, err
	}

	movements, err := s.repo.ListMovements(ctx, trigger.AccountID)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}

	applied, err := s.repo.ListAppliedCorrections(ctx, trigger.AccountID)
	if err != nil {
		return nil, fmt.Errorf("list applied corrections: %w", err)
	}

	return Detect(movements, applied, &trigger)
}

// CurrentBalance returns the cached balance projection.
func (s *Service) CurrentBalance(ctx context.Context, accountID id.ID) (entity.InventoryBalance, error) {
	return s.repo.GetBalance(ctx, accountID)
}

// RebuildBalance recomputes the cached projection by folding the full
// ledger. The fold result is authoritative: if the cache ever disagrees,
// this is how it is repaired.
func (s *Service) RebuildBalance(ctx context.Context, accountID id.ID) (entity.InventoryBalance, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return entity.InventoryBalance{}, err
	}

	s.locks.Lock(accountID)
	defer s.locks.Unlock(accountID)

	var balance entity.InventoryBalance
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		stale, err := s.repo.GetBalance(ctx, accountID)
		if err != nil {
			return err
		}

		movements, err := s.repo.ListMovements(ctx, accountID)
		if err != nil {
			return fmt.Errorf("list movements: %w", err)
		}

		bal, err := Project(movements)
		if err != nil {
			return err
		}

		var last *entity.InventoryMovement
		if len(movements) > 0 {
			last = &movements[len(movements)-1]
		}
		if err := s.refreshBalance(ctx, account, bal, last); err != nil {
			return err
		}

		if balance, err = s.repo.GetBalance(ctx, accountID); err != nil {
			return err
		}

		if s.audit != nil {
			if err := s.audit.LogChange(ctx, "InventoryBalance", accountID, "rebuild", map[string]any{
				"old_quantity":     stale.Quantity.String(),
				"old_amount":       stale.Amount.String(),
				"old_average_cost": stale.AverageCost.String(),
				"new_quantity":     balance.Quantity.String(),
				"new_amount":       balance.Amount.String(),
				"new_average_cost": balance.AverageCost.String(),
			}); err != nil {
				logger.Warn(ctx, "rebuild audit log failed", "account_id", accountID, "error", err)
			}
		}
		return nil
	})
	if err != nil {
		return entity.InventoryBalance{}, err
	}

	logger.Info(ctx, "balance rebuilt from ledger",
		"account_id", accountID,
		"quantity", balance.Quantity,
		"average_cost", balance.AverageCost,
	)

	return balance, nil
}

// Movements returns movement history for an account.
func (s *Service) Movements(ctx context.Context, accountID id.ID, filter MovementFilter) ([]entity.InventoryMovement, error) {
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.repo.ListMovementsFiltered(ctx, accountID, filter)
}

// Corrections returns correction history for an account.
func (s *Service) Corrections(ctx context.Context, accountID id.ID, filter CorrectionFilter) ([]entity.AverageCostCorrection, error) {
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.repo.ListCorrections(ctx, accountID, filter)
}

func (s *Service) validate(cmd *RecordCommand) error {
	if !cmd.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive")
	}
	if cmd.Type != entity.MovementTypeReceipt && cmd.Type != entity.MovementTypeIssue {
		return apperror.NewValidation("movement type must be receipt or issue")
	}
	if cmd.Date.IsZero() {
		return apperror.NewValidation("movement date is required")
	}
	if cmd.Type == entity.MovementTypeReceipt && cmd.UnitPrice.Sign() < 0 {
		return apperror.NewValidation("unit price must not be negative")
	}
	if id.IsNil(cmd.AccountID) {
		return apperror.NewValidation("account_id is required")
	}
	return nil
}

func (s *Service) refreshBalance(ctx context.Context, account entity.Account, bal Balance, last *entity.InventoryMovement) error {
	b := entity.InventoryBalance{
		CompanyID:   account.CompanyID,
		AccountID:   account.ID,
		Quantity:    bal.Quantity,
		Amount:      bal.Amount,
		AverageCost: bal.AverageCost,
		UpdatedAt:   time.Now().UTC(),
	}
	if last != nil {
		b.LastMovementDate = last.MovementDate
		b.LastMovementID = last.ID
	}
	if err := s.repo.UpsertBalance(ctx, b); err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

// splitAt returns the index of the first movement that sorts after the
// given one in ledger order. movements must already be in ledger order.
func splitAt(movements []entity.InventoryMovement, m *entity.InventoryMovement) int {
	for i := range movements {
		if m.Before(&movements[i]) {
			return i
		}
	}
	return len(movements)
}
