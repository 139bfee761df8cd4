package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"costbook/internal/core/apperror"
	"costbook/internal/core/entity"
	"costbook/internal/core/id"
	"costbook/internal/domain/ledger"
	"costbook/internal/infrastructure/storage/postgres"
)

var movementColumns = postgres.ExtractDBColumns[entity.InventoryMovement]()

// movementValues must list fields in struct declaration order to line up
// with movementColumns.
func movementValues(m *entity.InventoryMovement) []any {
	return []any{
		m.ID, m.CompanyID, m.AccountID,
		m.EntryLineID, m.JournalEntryID,
		m.Sequence, m.MovementDate, m.Type,
		m.Quantity, m.UnitPrice, m.Amount,
		m.BalanceQuantity, m.BalanceAmount, m.AverageCost,
		m.CreatedAt,
	}
}

// NextSequence returns the next append sequence for an account.
// Must run inside the record transaction, after the balance row lock, so
// two writers cannot draw the same value.
func (r *LedgerRepo) NextSequence(ctx context.Context, accountID id.ID) (int64, error) {
	sql := `SELECT COALESCE(MAX(sequence), 0) + 1 FROM inv_movements WHERE account_id = $1`

	var next int64
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, accountID).Scan(&next); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return next, nil
}

// CreateMovement appends one movement row.
func (r *LedgerRepo) CreateMovement(ctx context.Context, m entity.InventoryMovement) error {
	q := r.builder.Insert(movementsTable).
		Columns(movementColumns...).
		Values(movementValues(&m)...)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// ListMovements returns an account's full ledger in ledger order.
func (r *LedgerRepo) ListMovements(ctx context.Context, accountID id.ID) ([]entity.InventoryMovement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("movement_date", "sequence")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.InventoryMovement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

// ListMovementsFiltered returns movement history with filters applied,
// still in ledger order.
func (r *LedgerRepo) ListMovementsFiltered(ctx context.Context, accountID id.ID, filter ledger.MovementFilter) ([]entity.InventoryMovement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"account_id": accountID})

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"movement_type": *filter.Type})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"movement_date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"movement_date": *filter.ToDate})
	}

	q = q.OrderBy("movement_date", "sequence")

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

	var movements []entity.InventoryMovement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

// GetMovement retrieves one movement.
func (r *LedgerRepo) GetMovement(ctx context.Context, movementID id.ID) (entity.InventoryMovement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"id": movementID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return entity.InventoryMovement{}, fmt.Errorf("build query: %w", err)
	}

	var m entity.InventoryMovement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity.InventoryMovement{}, apperror.NewNotFound("inventory movement", movementID)
		}
		return entity.InventoryMovement{}, fmt.Errorf("get movement: %w", err)
	}

	return m, nil
}
