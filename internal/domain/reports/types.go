// Package reports provides report generation over the movement ledger.
package reports

import (
	"time"

	"costbook/internal/core/id"
	"costbook/internal/core/types"
)

// --- Account Turnover Report ---

// TurnoverFilter defines the filter for the account turnover report.
type TurnoverFilter struct {
	// Period (required)
	FromDate time.Time
	ToDate   time.Time

	// Accounts to include. Empty means every quantity-tracked account of
	// CompanyID, which is then required.
	AccountIDs []id.ID
	CompanyID  id.ID

	// Include rows with no activity and zero balances
	IncludeZero bool
}

// TurnoverItem is one account row in the turnover report. All amounts come
// from the ledger fold, so issues reflect corrected costs even when the
// stored checkpoints are stale.
type TurnoverItem struct {
	AccountID   id.ID  `json:"accountId"`
	AccountCode string `json:"accountCode"`
	AccountName string `json:"accountName"`

	OpeningQuantity types.Quantity `json:"openingQuantity"`
	OpeningAmount   types.Money    `json:"openingAmount"`

	ReceiptQuantity types.Quantity `json:"receiptQuantity"`
	ReceiptAmount   types.Money    `json:"receiptAmount"`

	IssueQuantity types.Quantity `json:"issueQuantity"`
	IssueAmount   types.Money    `json:"issueAmount"`

	ClosingQuantity types.Quantity `json:"closingQuantity"`
	ClosingAmount   types.Money    `json:"closingAmount"`
}

// TurnoverReport is the full turnover report for a period.
type TurnoverReport struct {
	FromDate   time.Time      `json:"fromDate"`
	ToDate     time.Time      `json:"toDate"`
	Items      []TurnoverItem `json:"items"`
	TotalItems int            `json:"totalItems"`

	// Summary totals across all rows
	TotalOpening types.Money `json:"totalOpening"`
	TotalReceipt types.Money `json:"totalReceipt"`
	TotalIssue   types.Money `json:"totalIssue"`
	TotalClosing types.Money `json:"totalClosing"`
}

// --- Average Cost ---

// AverageCostInfo is the cost state of one account as of a date.
type AverageCostInfo struct {
	AccountID   id.ID     `json:"accountId"`
	AccountCode string    `json:"accountCode"`
	AsOfDate    time.Time `json:"asOfDate"`

	Quantity    types.Quantity `json:"quantity"`
	Amount      types.Money    `json:"amount"`
	AverageCost types.Money    `json:"averageCost"`
}
