package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"costbook/internal/core/apperror"
	"costbook/internal/core/entity"
	"costbook/internal/core/id"
	"costbook/internal/domain/ledger"
	"costbook/internal/infrastructure/storage/postgres"
)

var correctionColumns = postgres.ExtractDBColumns[entity.AverageCostCorrection]()

// CreateCorrections inserts a batch of correction rows.
// Fast path: COPY when inside a transaction, which record always is.
func (r *LedgerRepo) CreateCorrections(ctx context.Context, corrections []entity.AverageCostCorrection) error {
	if len(corrections) == 0 {
		return nil
	}

	values := func(c *entity.AverageCostCorrection) []any {
		return []any{
			c.ID, c.CompanyID, c.AccountID,
			c.TriggerMovementID, c.AffectedMovementID,
			c.OldAverageCost, c.NewAverageCost, c.Amount,
			c.JournalEntryID, c.IsApplied, c.AppliedAt, c.CreatedAt,
		}
	}

	if r.txManager.GetTx(ctx) != nil {
		rows := make([][]any, 0, len(corrections))
		for i := range corrections {
			rows = append(rows, values(&corrections[i]))
		}
		if _, err := r.inserter.CopyFromSlice(ctx, correctionsTable, correctionColumns, rows); err != nil {
			return fmt.Errorf("copy corrections: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(correctionsTable).Columns(correctionColumns...)
	for i := range corrections {
		q = q.Values(values(&corrections[i])...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert corrections: %w", err)
	}
	return nil
}

// MarkCorrectionApplied transitions a correction to applied and links the
// adjusting entry. journalEntryID may be nil (zero-delta corrections book
// no entry).
func (r *LedgerRepo) MarkCorrectionApplied(ctx context.Context, correctionID, journalEntryID id.ID, appliedAt time.Time) error {
	q := r.builder.Update(correctionsTable).
		Set("is_applied", true).
		Set("applied_at", appliedAt).
		Where(squirrel.Eq{"id": correctionID}).
		Where(squirrel.Eq{"is_applied": false})

	if !id.IsNil(journalEntryID) {
		q = q.Set("journal_entry_id", journalEntryID)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("mark correction applied: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("average cost correction", correctionID)
	}
	return nil
}

// ListAppliedCorrections returns an account's applied corrections oldest
// first, so the newest correction per affected movement wins downstream.
func (r *LedgerRepo) ListAppliedCorrections(ctx context.Context, accountID id.ID) ([]entity.AverageCostCorrection, error) {
	q := r.builder.Select(correctionColumns...).
		From(correctionsTable).
		Where(squirrel.Eq{
			"account_id": accountID,
			"is_applied": true,
		}).
		OrderBy("created_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var corrections []entity.AverageCostCorrection
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &corrections, sql, args...); err != nil {
		return nil, fmt.Errorf("select corrections: %w", err)
	}

	return corrections, nil
}

// ListCorrections returns correction history with filters applied.
func (r *LedgerRepo) ListCorrections(ctx context.Context, accountID id.ID, filter ledger.CorrectionFilter) ([]entity.AverageCostCorrection, error) {
	q := r.builder.Select(correctionColumns...).
		From(correctionsTable).
		Where(squirrel.Eq{"account_id": accountID})

	if filter.TriggerMovementID != nil {
		q = q.Where(squirrel.Eq{"trigger_movement_id": *filter.TriggerMovementID})
	}
	if filter.OnlyApplied {
		q = q.Where(squirrel.Eq{"is_applied": true})
	}

	q = q.OrderBy("created_at", "id")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var corrections []entity.AverageCostCorrection
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &corrections, sql, args...); err != nil {
		return nil, fmt.Errorf("select corrections: %w", err)
	}

	return corrections, nil
}
