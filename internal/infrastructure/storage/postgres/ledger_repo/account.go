package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"costbook/internal/core/apperror"
	"costbook/internal/core/entity"
	"costbook/internal/core/id"
	"costbook/internal/infrastructure/storage/postgres"
)

var accountColumns = postgres.ExtractDBColumns[entity.Account]()

// GetAccount retrieves one account.
func (r *LedgerRepo) GetAccount(ctx context.Context, accountID id.ID) (entity.Account, error) {
	q := r.builder.Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Eq{"id": accountID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return entity.Account{}, fmt.Errorf("build query: %w", err)
	}

	var account entity.Account
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &account, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity.Account{}, apperror.NewNotFound("account", accountID)
		}
		return entity.Account{}, fmt.Errorf("get account: %w", err)
	}

	return account, nil
}

// ListAccounts returns all quantity-tracked accounts for a company.
func (r *LedgerRepo) ListAccounts(ctx context.Context, companyID id.ID) ([]entity.Account, error) {
	q := r.builder.Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Eq{
			"company_id":       companyID,
			"quantity_tracked": true,
		}).
		OrderBy("code")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var accounts []entity.Account
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &accounts, sql, args...); err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}

	return accounts, nil
}
