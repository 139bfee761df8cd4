package dto

import (
	"time"

	"costbook/internal/core/apperror"
	"costbook/internal/core/id"
	"costbook/internal/domain/reports"
)

// TurnoverRequest filters the account turnover report. Either accountIds
// or companyId must be given; companyId alone reports every
// quantity-tracked account.
type TurnoverRequest struct {
	FromDate    time.Time `form:"fromDate" time_format:"2006-01-02" binding:"required"`
	ToDate      time.Time `form:"toDate" time_format:"2006-01-02" binding:"required"`
	AccountIDs  []string  `form:"accountIds"`
	CompanyID   string    `form:"companyId"`
	IncludeZero bool      `form:"includeZero"`
}

// ToFilter converts the request into a domain filter.
func (r *TurnoverRequest) ToFilter() (reports.TurnoverFilter, error) {
	f := reports.TurnoverFilter{
		FromDate:    r.FromDate,
		ToDate:      r.ToDate,
		IncludeZero: r.IncludeZero,
	}
	for _, raw := range r.AccountIDs {
		accountID, err := id.Parse(raw)
		if err != nil {
			return f, apperror.NewValidation("invalid account id: " + raw)
		}
		f.AccountIDs = append(f.AccountIDs, accountID)
	}
	if r.CompanyID != "" {
		companyID, err := id.Parse(r.CompanyID)
		if err != nil {
			return f, apperror.NewValidation("invalid company id: " + r.CompanyID)
		}
		f.CompanyID = companyID
	}
	return f, nil
}

// AverageCostRequest asks for an account's cost state as of a date.
type AverageCostRequest struct {
	AsOfDate *time.Time `form:"asOfDate" time_format:"2006-01-02"`
}
