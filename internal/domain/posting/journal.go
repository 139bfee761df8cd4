// Package posting defines the boundary to the double-entry journal
// subsystem. The ledger consumes posted entry lines against
// quantity-tracked accounts and produces adjusting entries for
// average-cost corrections; everything else about journals lives outside
// this service.
package posting

import (
	"context"
	"time"

	"costbook/internal/core/id"
	"costbook/internal/core/types"
)

// PostedLine is the committed tuple the posting subsystem hands to the
// ledger for every entry line against a quantity-tracked account.
// Debit-side lines on material accounts are receipts, credit-side are
// issues (standard materials-account convention).
type PostedLine struct {
	CompanyID      id.ID
	AccountID      id.ID
	EntryLineID    id.ID
	JournalEntryID id.ID

	Date   time.Time
	Debit  types.Money
	Credit types.Money

	Quantity types.Quantity
}

// LineRequest is one line of an adjusting entry to be created.
type LineRequest struct {
	AccountID id.ID
	Debit     types.Money
	Credit    types.Money
}

// EntryRequest asks the posting subsystem to create and post a new
// journal entry. Correction entries carry exactly two lines: the material
// account and its COGS/expense account, amounts equal to the absolute
// correction delta.
type EntryRequest struct {
	CompanyID   id.ID
	EntryDate   time.Time
	Description string

	// Correction marks the entry as an average-cost adjustment so the
	// ledger never re-consumes it as a stock event.
	Correction bool

	Lines []LineRequest
}

// Journal creates and posts journal entries.
// Implementations must be transactional with the caller: if the entry
// cannot be posted, the correction batch that requested it rolls back.
type Journal interface {
	CreateAndPost(ctx context.Context, req EntryRequest) (id.ID, error)
}
