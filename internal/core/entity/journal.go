package entity

import (
	"time"

	"costbook/internal/core/id"
	"costbook/internal/core/types"
)

// JournalEntry is the ledger's view of a double-entry journal document.
// The posting subsystem owns these records; the ledger consumes posted
// entry lines and produces adjusting entries for corrections.
type JournalEntry struct {
	ID        id.ID `db:"id" json:"id"`
	CompanyID id.ID `db:"company_id" json:"companyId"`

	Number      string    `db:"number" json:"number"`
	EntryDate   time.Time `db:"entry_date" json:"entryDate"`
	Description string    `db:"description" json:"description"`

	Posted bool `db:"posted" json:"posted"`

	// Correction marks adjusting entries produced by the correction
	// applier. Correction entries never generate inventory movements.
	Correction bool `db:"is_correction" json:"correction"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// EntryLine is one debit/credit line of a journal entry.
type EntryLine struct {
	ID             id.ID `db:"id" json:"id"`
	JournalEntryID id.ID `db:"journal_entry_id" json:"journalEntryId"`
	AccountID      id.ID `db:"account_id" json:"accountId"`

	Debit  types.Money `db:"debit" json:"debit"`
	Credit types.Money `db:"credit" json:"credit"`

	// Quantity is filled only for lines against quantity-tracked accounts
	Quantity types.Quantity `db:"quantity" json:"quantity"`
}
