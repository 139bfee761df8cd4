// Package journal_repo provides the PostgreSQL implementation of the
// posting boundary: creating and posting journal entries.
package journal_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"costbook/internal/core/apperror"
	"costbook/internal/core/entity"
	"costbook/internal/core/id"
	"costbook/internal/core/types"
	"costbook/internal/domain/posting"
	"costbook/internal/infrastructure/storage/postgres"
	"costbook/pkg/numerator"
)

const (
	entriesTable = "journal_entries"
	linesTable   = "entry_lines"
)

// Number prefixes. Adjusting entries are numbered in their own COR series
// so correction postings are recognizable in the journal.
const (
	correctionPrefix = "COR"
	entryPrefix      = "JE"
)

// Compile-time check that JournalRepo implements posting.Journal.
var _ posting.Journal = (*JournalRepo)(nil)

var (
	entryColumns = postgres.ExtractDBColumns[entity.JournalEntry]()
	lineColumns  = postgres.ExtractDBColumns[entity.EntryLine]()
)

// JournalRepo creates and posts journal entries.
// Numbering uses the strict numerator strategy: entry numbers are drawn
// inside the caller's transaction, so a rolled-back correction never
// leaves a gap.
type JournalRepo struct {
	txManager *postgres.TxManager
	numerator *numerator.Service
	builder   squirrel.StatementBuilderType
}

// NewJournalRepo creates a new journal repository.
func NewJournalRepo(txManager *postgres.TxManager) *JournalRepo {
	return &JournalRepo{
		txManager: txManager,
		numerator: numerator.New(&txQuerier{txManager}),
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// txQuerier routes numerator queries through the active transaction.
type txQuerier struct {
	txm *postgres.TxManager
}

func (q *txQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return q.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...)
}

// CreateAndPost creates a balanced journal entry with its lines and posts
// it in one step.
func (r *JournalRepo) CreateAndPost(ctx context.Context, req posting.EntryRequest) (id.ID, error) {
	if len(req.Lines) == 0 {
		return id.Nil(), apperror.NewValidation("journal entry requires at least one line")
	}
	if err := checkBalanced(req.Lines); err != nil {
		return id.Nil(), err
	}

	prefix := entryPrefix
	if req.Correction {
		prefix = correctionPrefix
	}
	number, err := r.numerator.GetNextNumber(ctx, numerator.DefaultConfig(prefix), nil, req.EntryDate)
	if err != nil {
		return id.Nil(), fmt.Errorf("next entry number: %w", err)
	}

	entry := entity.JournalEntry{
		ID:          id.New(),
		CompanyID:   req.CompanyID,
		Number:      number,
		EntryDate:   req.EntryDate,
		Description: req.Description,
		Posted:      true,
		Correction:  req.Correction,
		CreatedAt:   time.Now().UTC(),
	}

	q := r.builder.Insert(entriesTable).
		Columns(entryColumns...).
		Values(entry.ID, entry.CompanyID, entry.Number, entry.EntryDate, entry.Description, entry.Posted, entry.Correction, entry.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return id.Nil(), fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return id.Nil(), fmt.Errorf("insert journal entry: %w", err)
	}

	lq := r.builder.Insert(linesTable).Columns(lineColumns...)
	for _, line := range req.Lines {
		l := entity.EntryLine{
			ID:             id.New(),
			JournalEntryID: entry.ID,
			AccountID:      line.AccountID,
			Debit:          line.Debit,
			Credit:         line.Credit,
		}
		lq = lq.Values(l.ID, l.JournalEntryID, l.AccountID, l.Debit, l.Credit, l.Quantity)
	}

	sql, args, err = lq.ToSql()
	if err != nil {
		return id.Nil(), fmt.Errorf("build lines insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return id.Nil(), fmt.Errorf("insert entry lines: %w", err)
	}

	return entry.ID, nil
}

// checkBalanced verifies total debit equals total credit.
func checkBalanced(lines []posting.LineRequest) error {
	debit, credit := types.Zero(), types.Zero()
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	if !debit.Equal(credit) {
		return apperror.NewValidation(
			fmt.Sprintf("journal entry is not balanced: debit %s, credit %s", debit, credit))
	}
	return nil
}
