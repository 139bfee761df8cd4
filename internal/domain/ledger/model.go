// Package ledger provides the inventory average-cost movement ledger:
// the append-only record of stock movements per account, the balance
// projection that folds it, retroactive-correction detection and the
// applier that books compensating entries.
package ledger

import (
	"time"

	"costbook/internal/core/entity"
	"costbook/internal/core/id"
	"costbook/internal/core/types"
)

// Balance is the running state of one account's ledger fold:
// quantity on hand, total value and weighted-average unit cost.
type Balance struct {
	Quantity    types.Quantity `json:"quantity"`
	Amount      types.Money    `json:"amount"`
	AverageCost types.Money    `json:"averageCost"`
}

// CorrectionNeeded is one detected discrepancy: a later issue whose
// recorded average cost no longer matches the recomputed chain. This is
// the dry-run shape exposed to audit/UI before corrections are committed.
type CorrectionNeeded struct {
	Movement entity.InventoryMovement `json:"movement"`

	OldAverageCost types.Money `json:"oldAverageCost"`
	NewAverageCost types.Money `json:"newAverageCost"`

	// Amount is the signed value delta: (new - old) x movement quantity
	Amount types.Money `json:"amount"`
}

// RecordCommand describes one stock movement to append.
type RecordCommand struct {
	CompanyID      id.ID
	AccountID      id.ID
	EntryLineID    id.ID
	JournalEntryID id.ID

	Date time.Time
	Type entity.MovementType

	// Quantity must be a positive magnitude
	Quantity types.Quantity

	// UnitPrice is required for receipts, ignored for issues
	// (issues are costed at the running average)
	UnitPrice types.Money
}

// RecordResult is what one append produced: the movement row and any
// corrections that were applied because the movement was backdated.
type RecordResult struct {
	Movement    entity.InventoryMovement       `json:"movement"`
	Corrections []entity.AverageCostCorrection `json:"corrections,omitempty"`
}

// MovementFilter filters movement history queries.
type MovementFilter struct {
	Type     *entity.MovementType
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// CorrectionFilter filters correction listings.
type CorrectionFilter struct {
	TriggerMovementID *id.ID
	OnlyApplied       bool
	Limit             int
	Offset            int
}
