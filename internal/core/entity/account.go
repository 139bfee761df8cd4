package entity

import (
	"time"

	"costbook/internal/core/id"
)

// Account is a chart-of-accounts row as the ledger sees it.
// Only the fields the movement ledger needs are modeled here; full
// chart-of-accounts CRUD lives outside this service.
type Account struct {
	ID        id.ID `db:"id" json:"id"`
	CompanyID id.ID `db:"company_id" json:"companyId"`

	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`

	// QuantityTracked marks material/goods accounts whose entry lines
	// produce inventory movements
	QuantityTracked bool `db:"quantity_tracked" json:"quantityTracked"`

	// CostAccountID is the COGS/expense account debited or credited by
	// adjusting entries for this account's corrections
	CostAccountID id.ID `db:"cost_account_id" json:"costAccountId"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
