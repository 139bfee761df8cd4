package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"costbook/internal/core/entity"
	"costbook/internal/core/id"
)

var balanceColumns = []string{
	"company_id", "account_id",
	"quantity", "amount", "average_cost",
	"last_movement_date", "last_movement_id", "updated_at",
}

// GetBalance returns the cached balance projection for an account.
// A missing row means the account has no movements yet: zero balance.
func (r *LedgerRepo) GetBalance(ctx context.Context, accountID id.ID) (entity.InventoryBalance, error) {
	q := r.builder.Select(balanceColumns...).
		From(balancesTable).
		Where(squirrel.Eq{"account_id": accountID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return entity.InventoryBalance{}, fmt.Errorf("build query: %w", err)
	}

	var balance entity.InventoryBalance
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &balance, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity.InventoryBalance{AccountID: accountID}, nil
		}
		return entity.InventoryBalance{}, fmt.Errorf("get balance: %w", err)
	}

	return balance, nil
}

// GetBalanceForUpdate returns the balance row with a pessimistic lock.
// Serializes writers on the account at the database level; the row is
// created on first use so there is always something to lock.
func (r *LedgerRepo) GetBalanceForUpdate(ctx context.Context, accountID id.ID) (entity.InventoryBalance, error) {
	sql := `
		SELECT company_id, account_id, quantity, amount, average_cost,
		       last_movement_date, last_movement_id, updated_at
		FROM inv_balances
		WHERE account_id = $1
		FOR UPDATE
	`

	var balance entity.InventoryBalance
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &balance, sql, accountID); err != nil {
		if pgxscan.NotFound(err) {
			return entity.InventoryBalance{AccountID: accountID}, nil
		}
		return entity.InventoryBalance{}, fmt.Errorf("get balance for update: %w", err)
	}

	return balance, nil
}

// UpsertBalance writes the refreshed projection.
func (r *LedgerRepo) UpsertBalance(ctx context.Context, b entity.InventoryBalance) error {
	sql := `
		INSERT INTO inv_balances (
			company_id, account_id, quantity, amount, average_cost,
			last_movement_date, last_movement_id, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			amount = EXCLUDED.amount,
			average_cost = EXCLUDED.average_cost,
			last_movement_date = EXCLUDED.last_movement_date,
			last_movement_id = EXCLUDED.last_movement_id,
			updated_at = EXCLUDED.updated_at
	`

	querier := r.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		b.CompanyID, b.AccountID, b.Quantity, b.Amount, b.AverageCost,
		b.LastMovementDate, b.LastMovementID, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}
