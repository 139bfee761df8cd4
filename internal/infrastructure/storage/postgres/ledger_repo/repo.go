// Package ledger_repo provides the PostgreSQL implementation of the
// movement ledger repository.
package ledger_repo

import (
	"github.com/Masterminds/squirrel"

	"costbook/internal/domain/ledger"
	"costbook/internal/infrastructure/storage/postgres"
)

const (
	accountsTable    = "accounts"
	movementsTable   = "inv_movements"
	balancesTable    = "inv_balances"
	correctionsTable = "inv_corrections"
)

// Compile-time check that LedgerRepo implements ledger.Repository.
var _ ledger.Repository = (*LedgerRepo)(nil)

// LedgerRepo implements ledger.Repository on PostgreSQL.
// All reads and writes go through the TxManager's querier, so the repo
// transparently participates in whatever transaction the caller opened.
type LedgerRepo struct {
	txManager *postgres.TxManager
	inserter  *postgres.BatchInserter
	builder   squirrel.StatementBuilderType
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		inserter:  postgres.NewBatchInserter(txManager),
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}
