package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costbook/internal/core/apperror"
	"costbook/internal/core/entity"
	"costbook/internal/core/id"
	"costbook/internal/domain/posting"
)

type fixture struct {
	repo    *memRepo
	journal *fakeJournal
	audit   *fakeAudit
	svc     *Service
	account entity.Account
	company id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newMemRepo()
	journal := &fakeJournal{}
	audit := &fakeAudit{}
	txm := &memTxManager{repo: repo, journal: journal}

	account := entity.Account{
		ID:              id.New(),
		CompanyID:       id.New(),
		Code:            "10.01",
		Name:            "Raw materials",
		QuantityTracked: true,
		CostAccountID:   id.New(),
	}
	repo.addAccount(account)

	return &fixture{
		repo:    repo,
		journal: journal,
		audit:   audit,
		svc:     NewService(repo, txm, journal, audit),
		account: account,
		company: account.CompanyID,
	}
}

func (f *fixture) record(t *testing.T, dayN int, typ entity.MovementType, quantity float64, unitPrice string) *RecordResult {
	t.Helper()

	res, err := f.svc.Record(context.Background(), RecordCommand{
		CompanyID:      f.company,
		AccountID:      f.account.ID,
		EntryLineID:    id.New(),
		JournalEntryID: id.New(),
		Date:           day(dayN),
		Type:           typ,
		Quantity:       qty(quantity),
		UnitPrice:      money(unitPrice),
	})
	require.NoError(t, err)
	return res
}

// seedScenarioA: 10 @ 100.00 day 1, 10 @ 120.00 day 3, issue 5 day 4.
func (f *fixture) seedScenarioA(t *testing.T) {
	t.Helper()
	f.record(t, 1, entity.MovementTypeReceipt, 10, "100.00")
	f.record(t, 3, entity.MovementTypeReceipt, 10, "120.00")
	f.record(t, 4, entity.MovementTypeIssue, 5, "0")
}

func TestService_Record_ScenarioA(t *testing.T) {
	f := newFixture(t)

	r1 := f.record(t, 1, entity.MovementTypeReceipt, 10, "100.00")
	assert.True(t, r1.Movement.AverageCost.Equal(money("100.00")))
	assert.Equal(t, qty(10), r1.Movement.BalanceQuantity)
	assert.True(t, r1.Movement.BalanceAmount.Equal(money("1000.00")))
	assert.Equal(t, int64(1), r1.Movement.Sequence)

	r2 := f.record(t, 3, entity.MovementTypeReceipt, 10, "120.00")
	assert.True(t, r2.Movement.AverageCost.Equal(money("110.00")))
	assert.Equal(t, qty(20), r2.Movement.BalanceQuantity)
	assert.True(t, r2.Movement.BalanceAmount.Equal(money("2200.00")))

	r3 := f.record(t, 4, entity.MovementTypeIssue, 5, "0")
	assert.True(t, r3.Movement.AverageCost.Equal(money("110.00")))
	assert.Equal(t, qty(15), r3.Movement.BalanceQuantity)
	assert.True(t, r3.Movement.BalanceAmount.Equal(money("1650.00")))
	// issue costed at the running average
	assert.True(t, r3.Movement.Amount.Equal(money("550.00")))
	assert.True(t, r3.Movement.UnitPrice.Equal(money("110.00")))
	assert.Empty(t, r3.Corrections)

	bal, err := f.svc.CurrentBalance(context.Background(), f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(15), bal.Quantity)
	assert.True(t, bal.Amount.Equal(money("1650.00")))
	assert.True(t, bal.AverageCost.Equal(money("110.00")))
	assert.Equal(t, r3.Movement.ID, bal.LastMovementID)
}

func TestService_Record_ScenarioB_BackdatedReceipt(t *testing.T) {
	f := newFixture(t)
	f.seedScenarioA(t)

	res := f.record(t, 2, entity.MovementTypeReceipt, 10, "80.00")

	require.Len(t, res.Corrections, 1)
	c := res.Corrections[0]
	assert.True(t, c.OldAverageCost.Equal(money("110.00")))
	assert.True(t, c.NewAverageCost.Equal(money("100.00")))
	assert.True(t, c.Amount.Equal(money("-50.00")))
	assert.True(t, c.IsApplied)
	require.NotNil(t, c.JournalEntryID)
	assert.Equal(t, res.Movement.ID, c.TriggerMovementID)

	// Negative delta: value comes back onto the material account.
	require.Len(t, f.journal.entries, 1)
	entry := f.journal.entries[0]
	assert.True(t, entry.Correction)
	assert.Equal(t, day(4), entry.EntryDate)
	require.Len(t, entry.Lines, 2)
	assert.Equal(t, f.account.ID, entry.Lines[0].AccountID)
	assert.True(t, entry.Lines[0].Debit.Equal(money("50.00")))
	assert.Equal(t, f.account.CostAccountID, entry.Lines[1].AccountID)
	assert.True(t, entry.Lines[1].Credit.Equal(money("50.00")))

	// Final balance reflects the refolded chain: issue re-costed at 100.00.
	bal, err := f.svc.CurrentBalance(context.Background(), f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(25), bal.Quantity)
	assert.True(t, bal.Amount.Equal(money("2500.00")))
	assert.True(t, bal.AverageCost.Equal(money("100.00")))

	// Checkpoints of the original movements stay untouched.
	movements, err := f.repo.ListMovements(context.Background(), f.account.ID)
	require.NoError(t, err)
	require.Len(t, movements, 4)
	stale := movements[3]
	assert.Equal(t, entity.MovementTypeIssue, stale.Type)
	assert.True(t, stale.AverageCost.Equal(money("110.00")))

	assert.Contains(t, f.audit.events, "AverageCostCorrection:apply")
}

func TestService_Record_ScenarioB_Converges(t *testing.T) {
	f := newFixture(t)
	f.seedScenarioA(t)

	res := f.record(t, 2, entity.MovementTypeReceipt, 10, "80.00")
	require.Len(t, res.Corrections, 1)

	// Re-running detection against the persisted state finds nothing:
	// the applied correction is now the recorded truth.
	again, err := f.svc.DetectForMovement(context.Background(), res.Movement.ID)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestService_Record_ScenarioC_NegativeStock(t *testing.T) {
	f := newFixture(t)
	f.seedScenarioA(t)

	_, err := f.svc.Record(context.Background(), RecordCommand{
		CompanyID: f.company,
		AccountID: f.account.ID,
		Date:      day(5),
		Type:      entity.MovementTypeIssue,
		Quantity:  qty(100),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNegativeStock(err))

	// no movement row was created
	movements, _ := f.repo.ListMovements(context.Background(), f.account.ID)
	assert.Len(t, movements, 3)

	bal, err := f.svc.CurrentBalance(context.Background(), f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(15), bal.Quantity)
}

func TestService_Record_BackdatedIssueViolatesLaterPrefix(t *testing.T) {
	f := newFixture(t)
	f.record(t, 1, entity.MovementTypeReceipt, 10, "100.00")
	f.record(t, 3, entity.MovementTypeIssue, 8, "0")

	// 5 available on day 2, but the day-3 issue of 8 would then go
	// negative. The whole insertion is rejected.
	_, err := f.svc.Record(context.Background(), RecordCommand{
		CompanyID: f.company,
		AccountID: f.account.ID,
		Date:      day(2),
		Type:      entity.MovementTypeIssue,
		Quantity:  qty(5),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNegativeStock(err))

	movements, _ := f.repo.ListMovements(context.Background(), f.account.ID)
	assert.Len(t, movements, 2)
}

func TestService_Record_RollsBackWhenPostingFails(t *testing.T) {
	f := newFixture(t)
	f.seedScenarioA(t)
	f.journal.failErr = errors.New("period closed")

	_, err := f.svc.Record(context.Background(), RecordCommand{
		CompanyID: f.company,
		AccountID: f.account.ID,
		Date:      day(2),
		Type:      entity.MovementTypeReceipt,
		Quantity:  qty(10),
		UnitPrice: money("80.00"),
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeCorrectionApplication, appErr.Code)

	// Everything rolled back: no backdated movement, no correction rows,
	// balance untouched. The discrepancy stays re-detectable.
	movements, _ := f.repo.ListMovements(context.Background(), f.account.ID)
	assert.Len(t, movements, 3)
	corrections, _ := f.repo.ListCorrections(context.Background(), f.account.ID, CorrectionFilter{})
	assert.Empty(t, corrections)

	bal, err := f.svc.CurrentBalance(context.Background(), f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(15), bal.Quantity)
	assert.True(t, bal.AverageCost.Equal(money("110.00")))
}

func TestService_Record_SameDayKeepsInsertionOrder(t *testing.T) {
	f := newFixture(t)

	r1 := f.record(t, 1, entity.MovementTypeReceipt, 10, "100.00")
	r2 := f.record(t, 1, entity.MovementTypeReceipt, 10, "120.00")
	require.Greater(t, r2.Movement.Sequence, r1.Movement.Sequence)

	// The second same-day receipt folds after the first.
	assert.True(t, r2.Movement.AverageCost.Equal(money("110.00")))

	// A same-day issue sorts after both receipts and draws at 110.00.
	r3 := f.record(t, 1, entity.MovementTypeIssue, 5, "0")
	assert.True(t, r3.Movement.UnitPrice.Equal(money("110.00")))
	assert.Empty(t, r3.Corrections)
}

func TestService_RecordFromEntryLine(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.RecordFromEntryLine(context.Background(), posting.PostedLine{
		CompanyID:      f.company,
		AccountID:      f.account.ID,
		EntryLineID:    id.New(),
		JournalEntryID: id.New(),
		Date:           day(1),
		Debit:          money("1000.00"),
		Quantity:       qty(10),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeReceipt, res.Movement.Type)
	assert.True(t, res.Movement.UnitPrice.Equal(money("100.00")))

	res, err = f.svc.RecordFromEntryLine(context.Background(), posting.PostedLine{
		CompanyID:      f.company,
		AccountID:      f.account.ID,
		EntryLineID:    id.New(),
		JournalEntryID: id.New(),
		Date:           day(2),
		Credit:         money("400.00"),
		Quantity:       qty(4),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeIssue, res.Movement.Type)
	// issues are costed at the running average, not the credited amount
	assert.True(t, res.Movement.Amount.Equal(money("400.00")))

	_, err = f.svc.RecordFromEntryLine(context.Background(), posting.PostedLine{
		CompanyID:   f.company,
		AccountID:   f.account.ID,
		EntryLineID: id.New(),
		Date:        day(3),
		Quantity:    qty(1),
	})
	require.Error(t, err)
}

func TestService_Record_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  RecordCommand
	}{
		{
			name: "zero quantity",
			cmd:  RecordCommand{AccountID: f.account.ID, Date: day(1), Type: entity.MovementTypeReceipt, UnitPrice: money("1")},
		},
		{
			name: "negative quantity",
			cmd:  RecordCommand{AccountID: f.account.ID, Date: day(1), Type: entity.MovementTypeReceipt, Quantity: qty(-5), UnitPrice: money("1")},
		},
		{
			name: "unknown type",
			cmd:  RecordCommand{AccountID: f.account.ID, Date: day(1), Type: "transfer", Quantity: qty(1)},
		},
		{
			name: "missing date",
			cmd:  RecordCommand{AccountID: f.account.ID, Type: entity.MovementTypeReceipt, Quantity: qty(1), UnitPrice: money("1")},
		},
		{
			name: "negative unit price",
			cmd:  RecordCommand{AccountID: f.account.ID, Date: day(1), Type: entity.MovementTypeReceipt, Quantity: qty(1), UnitPrice: money("-1")},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Record(ctx, tc.cmd)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
		})
	}
}

func TestService_Record_AccountNotQuantityTracked(t *testing.T) {
	f := newFixture(t)

	plain := entity.Account{
		ID:        id.New(),
		CompanyID: f.company,
		Code:      "60.01",
		Name:      "Suppliers",
	}
	f.repo.addAccount(plain)

	_, err := f.svc.Record(context.Background(), RecordCommand{
		CompanyID: f.company,
		AccountID: plain.ID,
		Date:      day(1),
		Type:      entity.MovementTypeReceipt,
		Quantity:  qty(1),
		UnitPrice: money("10.00"),
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeAccountNotQuantityTracked, appErr.Code)
}

func TestService_PreviewCorrections_NoSideEffects(t *testing.T) {
	f := newFixture(t)
	f.seedScenarioA(t)

	needed, err := f.svc.PreviewCorrections(context.Background(), RecordCommand{
		CompanyID: f.company,
		AccountID: f.account.ID,
		Date:      day(2),
		Type:      entity.MovementTypeReceipt,
		Quantity:  qty(10),
		UnitPrice: money("80.00"),
	})
	require.NoError(t, err)
	require.Len(t, needed, 1)
	assert.True(t, needed[0].Amount.Equal(money("-50.00")))

	// dry run: nothing written, nothing posted
	movements, _ := f.repo.ListMovements(context.Background(), f.account.ID)
	assert.Len(t, movements, 3)
	corrections, _ := f.repo.ListCorrections(context.Background(), f.account.ID, CorrectionFilter{})
	assert.Empty(t, corrections)
	assert.Empty(t, f.journal.entries)
}

func TestService_RebuildBalance(t *testing.T) {
	f := newFixture(t)
	f.seedScenarioA(t)

	// Corrupt the cache; the ledger fold is the ground truth.
	require.NoError(t, f.repo.UpsertBalance(context.Background(), entity.InventoryBalance{
		CompanyID:   f.company,
		AccountID:   f.account.ID,
		Quantity:    qty(999),
		Amount:      money("1.00"),
		AverageCost: money("42.00"),
		UpdatedAt:   time.Now().UTC(),
	}))

	bal, err := f.svc.RebuildBalance(context.Background(), f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(15), bal.Quantity)
	assert.True(t, bal.Amount.Equal(money("1650.00")))
	assert.True(t, bal.AverageCost.Equal(money("110.00")))
}

func TestService_Movements_Filtered(t *testing.T) {
	f := newFixture(t)
	f.seedScenarioA(t)

	issueType := entity.MovementTypeIssue
	movements, err := f.svc.Movements(context.Background(), f.account.ID, MovementFilter{Type: &issueType})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, entity.MovementTypeIssue, movements[0].Type)

	from := day(3)
	movements, err = f.svc.Movements(context.Background(), f.account.ID, MovementFilter{FromDate: &from})
	require.NoError(t, err)
	assert.Len(t, movements, 2)
}
