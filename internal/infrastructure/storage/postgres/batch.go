package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BatchInserter provides bulk insert using the PostgreSQL COPY protocol.
// Significantly faster than individual INSERTs for large row sets, which
// is what migration imports and correction batches produce.
type BatchInserter struct {
	txManager *TxManager
}

// NewBatchInserter creates a new batch inserter.
func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// CopyFromSlice performs a bulk insert from a slice of rows. Each row is
// a []any matching columns. COPY only works on a pgx transaction, so the
// caller must already be inside one.
//
// Example:
//
//	rows := [][]any{{m.ID, m.AccountID, m.Quantity}}
//	n, err := inserter.CopyFromSlice(ctx, "inv_movements", []string{"id", "account_id", "quantity"}, rows)
func (b *BatchInserter) CopyFromSlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx := b.txManager.GetTx(ctx)
	if tx == nil {
		return 0, fmt.Errorf("CopyFromSlice requires transaction context")
	}

	return tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}
