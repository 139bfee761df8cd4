package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"costbook/internal/core/apperror"
	"costbook/internal/core/entity"
	"costbook/internal/core/id"
	"costbook/internal/domain/posting"
)

// Mock objects

// memRepo is an in-memory Repository for service tests. It keeps the
// movement slice in ledger order the way the SQL implementation does via
// ORDER BY (movement_date, sequence).
type memRepo struct {
	mu          sync.Mutex
	accounts    map[id.ID]entity.Account
	movements   []entity.InventoryMovement
	balances    map[id.ID]entity.InventoryBalance
	corrections []entity.AverageCostCorrection
}

func newMemRepo() *memRepo {
	return &memRepo{
		accounts: make(map[id.ID]entity.Account),
		balances: make(map[id.ID]entity.InventoryBalance),
	}
}

type memSnapshot struct {
	movements   []entity.InventoryMovement
	balances    map[id.ID]entity.InventoryBalance
	corrections []entity.AverageCostCorrection
}

func (r *memRepo) snapshot() memSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := memSnapshot{
		movements:   append([]entity.InventoryMovement(nil), r.movements...),
		corrections: append([]entity.AverageCostCorrection(nil), r.corrections...),
		balances:    make(map[id.ID]entity.InventoryBalance, len(r.balances)),
	}
	for k, v := range r.balances {
		s.balances[k] = v
	}
	return s
}

func (r *memRepo) restore(s memSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.movements = s.movements
	r.balances = s.balances
	r.corrections = s.corrections
}

func (r *memRepo) addAccount(a entity.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.ID] = a
}

func (r *memRepo) GetAccount(_ context.Context, accountID id.ID) (entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[accountID]
	if !ok {
		return entity.Account{}, apperror.NewNotFound("account", accountID)
	}
	return a, nil
}

func (r *memRepo) NextSequence(_ context.Context, accountID id.ID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var max int64
	for i := range r.movements {
		if r.movements[i].AccountID == accountID && r.movements[i].Sequence > max {
			max = r.movements[i].Sequence
		}
	}
	return max + 1, nil
}

func (r *memRepo) CreateMovement(_ context.Context, m entity.InventoryMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.movements = append(r.movements, m)
	sort.SliceStable(r.movements, func(i, j int) bool {
		return r.movements[i].Before(&r.movements[j])
	})
	return nil
}

func (r *memRepo) ListMovements(_ context.Context, accountID id.ID) ([]entity.InventoryMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.InventoryMovement
	for i := range r.movements {
		if r.movements[i].AccountID == accountID {
			out = append(out, r.movements[i])
		}
	}
	return out, nil
}

func (r *memRepo) ListMovementsFiltered(ctx context.Context, accountID id.ID, filter MovementFilter) ([]entity.InventoryMovement, error) {
	all, _ := r.ListMovements(ctx, accountID)

	var out []entity.InventoryMovement
	for _, m := range all {
		if filter.Type != nil && m.Type != *filter.Type {
			continue
		}
		if filter.FromDate != nil && m.MovementDate.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && m.MovementDate.After(*filter.ToDate) {
			continue
		}
		out = append(out, m)
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memRepo) GetMovement(_ context.Context, movementID id.ID) (entity.InventoryMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.movements {
		if r.movements[i].ID == movementID {
			return r.movements[i], nil
		}
	}
	return entity.InventoryMovement{}, apperror.NewNotFound("inventory movement", movementID)
}

func (r *memRepo) GetBalance(_ context.Context, accountID id.ID) (entity.InventoryBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.balances[accountID]
	if !ok {
		return entity.InventoryBalance{AccountID: accountID}, nil
	}
	return b, nil
}

func (r *memRepo) GetBalanceForUpdate(ctx context.Context, accountID id.ID) (entity.InventoryBalance, error) {
	return r.GetBalance(ctx, accountID)
}

func (r *memRepo) UpsertBalance(_ context.Context, b entity.InventoryBalance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[b.AccountID] = b
	return nil
}

func (r *memRepo) CreateCorrections(_ context.Context, corrections []entity.AverageCostCorrection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.corrections = append(r.corrections, corrections...)
	return nil
}

func (r *memRepo) MarkCorrectionApplied(_ context.Context, correctionID, journalEntryID id.ID, appliedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.corrections {
		if r.corrections[i].ID == correctionID {
			r.corrections[i].IsApplied = true
			r.corrections[i].AppliedAt = &appliedAt
			if !id.IsNil(journalEntryID) {
				linked := journalEntryID
				r.corrections[i].JournalEntryID = &linked
			}
			return nil
		}
	}
	return apperror.NewNotFound("average cost correction", correctionID)
}

func (r *memRepo) ListAppliedCorrections(_ context.Context, accountID id.ID) ([]entity.AverageCostCorrection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.AverageCostCorrection
	for _, c := range r.corrections {
		if c.AccountID == accountID && c.IsApplied {
			out = append(out, c)
		}
	}
	// creation order doubles as oldest-first
	return out, nil
}

func (r *memRepo) ListCorrections(_ context.Context, accountID id.ID, filter CorrectionFilter) ([]entity.AverageCostCorrection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.AverageCostCorrection
	for _, c := range r.corrections {
		if c.AccountID != accountID {
			continue
		}
		if filter.TriggerMovementID != nil && c.TriggerMovementID != *filter.TriggerMovementID {
			continue
		}
		if filter.OnlyApplied && !c.IsApplied {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// memTxManager snapshots the in-memory repo and journal on begin and
// restores them when fn fails, mimicking a database rollback.
type memTxManager struct {
	repo    *memRepo
	journal *fakeJournal
}

func (m *memTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	repoSnap := m.repo.snapshot()
	var journalSnap []posting.EntryRequest
	if m.journal != nil {
		journalSnap = append([]posting.EntryRequest(nil), m.journal.entries...)
	}

	if err := fn(ctx); err != nil {
		m.repo.restore(repoSnap)
		if m.journal != nil {
			m.journal.entries = journalSnap
		}
		return err
	}
	return nil
}

func (m *memTxManager) RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransaction(ctx, fn)
}

// fakeJournal records posted entries and can be told to fail.
type fakeJournal struct {
	entries []posting.EntryRequest
	ids     []id.ID
	failErr error
}

func (j *fakeJournal) CreateAndPost(_ context.Context, req posting.EntryRequest) (id.ID, error) {
	if j.failErr != nil {
		return id.Nil(), j.failErr
	}
	entryID := id.New()
	j.entries = append(j.entries, req)
	j.ids = append(j.ids, entryID)
	return entryID, nil
}

// fakeAudit records audit calls.
type fakeAudit struct {
	events []string
}

func (a *fakeAudit) LogChange(_ context.Context, entityType string, _ id.ID, action string, _ map[string]any) error {
	a.events = append(a.events, entityType+":"+action)
	return nil
}
