// Package entity provides core domain entities.
package entity

import (
	"time"

	"costbook/internal/core/id"
	"costbook/internal/core/types"
)

// MovementType defines movement direction in the inventory ledger.
type MovementType string

const (
	// MovementTypeReceipt increases stock (debit side of a material account)
	MovementTypeReceipt MovementType = "receipt"
	// MovementTypeIssue decreases stock (credit side of a material account)
	MovementTypeIssue MovementType = "issue"
)

// DateOnly truncates a timestamp to a calendar date in UTC.
// Movement dates are business dates, not timestamps.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// InventoryMovement is one stock event against a quantity-tracked account.
// Movements are immutable: corrections create compensating records, never
// edits. The three checkpoint fields (BalanceQuantity, BalanceAmount,
// AverageCost) are consistent as of the ledger state at creation time and
// become provably stale once an earlier movement is inserted afterwards.
type InventoryMovement struct {
	// ID is unique identifier for this movement (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	CompanyID id.ID `db:"company_id" json:"companyId"`
	AccountID id.ID `db:"account_id" json:"accountId"`

	// EntryLineID / JournalEntryID reference the posted journal entry line
	// that produced this movement
	EntryLineID    id.ID `db:"entry_line_id" json:"entryLineId"`
	JournalEntryID id.ID `db:"journal_entry_id" json:"journalEntryId"`

	// Sequence is a strictly increasing per-account counter assigned at
	// append time. Ledger order is (MovementDate, Sequence); the sequence
	// tiebreak makes same-day history total and replay-safe.
	Sequence int64 `db:"sequence" json:"sequence"`

	// MovementDate is the business date (calendar date, UTC midnight)
	MovementDate time.Time `db:"movement_date" json:"movementDate"`

	Type MovementType `db:"movement_type" json:"movementType"`

	// Quantity is always a positive magnitude; sign is implied by Type
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// UnitPrice is meaningful only for receipts
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// Amount is quantity x unit price for receipts, quantity x average
	// cost at time for issues
	Amount types.Money `db:"amount" json:"amount"`

	// Checkpoint fields: running balance immediately after this movement
	BalanceQuantity types.Quantity `db:"balance_quantity" json:"balanceQuantity"`
	BalanceAmount   types.Money    `db:"balance_amount" json:"balanceAmount"`
	AverageCost     types.Money    `db:"average_cost" json:"averageCost"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// SignedQuantity returns quantity with sign based on movement type.
// Receipt = positive, Issue = negative.
func (m *InventoryMovement) SignedQuantity() types.Quantity {
	if m.Type == MovementTypeIssue {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// Before reports whether m precedes other in ledger order
// (movement date first, then append sequence).
func (m *InventoryMovement) Before(other *InventoryMovement) bool {
	if !m.MovementDate.Equal(other.MovementDate) {
		return m.MovementDate.Before(other.MovementDate)
	}
	return m.Sequence < other.Sequence
}

// InventoryBalance is the cached projection of the ledger for one
// (company, account): current quantity, amount and weighted-average cost.
// It is derived state, rebuildable by folding the movement ledger; if it
// ever disagrees with the fold-from-scratch result, the fold result wins.
type InventoryBalance struct {
	CompanyID id.ID `db:"company_id" json:"companyId"`
	AccountID id.ID `db:"account_id" json:"accountId"`

	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	Amount      types.Money    `db:"amount" json:"amount"`
	AverageCost types.Money    `db:"average_cost" json:"averageCost"`

	LastMovementDate time.Time `db:"last_movement_date" json:"lastMovementDate"`
	LastMovementID   id.ID     `db:"last_movement_id" json:"lastMovementId"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// AverageCostCorrection records one (triggering movement, affected movement)
// discrepancy discovered after a retroactive insertion, together with the
// compensating value delta. Immutable once applied; IsApplied transitions
// false -> true exactly once.
type AverageCostCorrection struct {
	ID        id.ID `db:"id" json:"id"`
	CompanyID id.ID `db:"company_id" json:"companyId"`
	AccountID id.ID `db:"account_id" json:"accountId"`

	// TriggerMovementID is the backdated movement that invalidated the
	// downstream checkpoints
	TriggerMovementID id.ID `db:"trigger_movement_id" json:"triggerMovementId"`

	// AffectedMovementID is the later issue whose recorded average cost
	// is now wrong
	AffectedMovementID id.ID `db:"affected_movement_id" json:"affectedMovementId"`

	OldAverageCost types.Money `db:"old_average_cost" json:"oldAverageCost"`
	NewAverageCost types.Money `db:"new_average_cost" json:"newAverageCost"`

	// Amount is the signed value delta: (new - old) x affected quantity
	Amount types.Money `db:"amount" json:"amount"`

	// JournalEntryID links the adjusting entry that booked the correction
	JournalEntryID *id.ID `db:"journal_entry_id" json:"journalEntryId,omitempty"`

	IsApplied bool       `db:"is_applied" json:"isApplied"`
	AppliedAt *time.Time `db:"applied_at" json:"appliedAt,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}
