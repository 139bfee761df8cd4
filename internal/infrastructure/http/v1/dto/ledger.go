package dto

import (
	"time"

	"costbook/internal/core/apperror"
	"costbook/internal/core/entity"
	"costbook/internal/core/id"
	"costbook/internal/core/types"
	"costbook/internal/domain/ledger"
)

// --- Requests ---

// RecordMovementRequest describes one stock movement to append.
type RecordMovementRequest struct {
	CompanyID      string `json:"companyId" binding:"required"`
	AccountID      string `json:"accountId" binding:"required"`
	EntryLineID    string `json:"entryLineId"`
	JournalEntryID string `json:"journalEntryId"`

	Date time.Time `json:"date" binding:"required"`
	Type string    `json:"type" binding:"required,oneof=receipt issue"`

	Quantity types.Quantity `json:"quantity" binding:"required"`

	// UnitPrice is required for receipts, ignored for issues
	UnitPrice string `json:"unitPrice"`
}

// ToCommand converts the request into a domain command.
func (r *RecordMovementRequest) ToCommand() (ledger.RecordCommand, error) {
	cmd := ledger.RecordCommand{
		Date:     r.Date,
		Type:     entity.MovementType(r.Type),
		Quantity: r.Quantity,
	}

	var err error
	if cmd.CompanyID, err = id.Parse(r.CompanyID); err != nil {
		return cmd, apperror.NewValidation("invalid companyId")
	}
	if cmd.AccountID, err = id.Parse(r.AccountID); err != nil {
		return cmd, apperror.NewValidation("invalid accountId")
	}
	if r.EntryLineID != "" {
		if cmd.EntryLineID, err = id.Parse(r.EntryLineID); err != nil {
			return cmd, apperror.NewValidation("invalid entryLineId")
		}
	}
	if r.JournalEntryID != "" {
		if cmd.JournalEntryID, err = id.Parse(r.JournalEntryID); err != nil {
			return cmd, apperror.NewValidation("invalid journalEntryId")
		}
	}
	if r.UnitPrice != "" {
		if cmd.UnitPrice, err = types.NewMoneyFromString(r.UnitPrice); err != nil {
			return cmd, apperror.NewValidation("invalid unitPrice")
		}
	}

	return cmd, nil
}

// MovementListRequest filters movement history.
type MovementListRequest struct {
	PaginationRequest
	Type     string     `form:"type" binding:"omitempty,oneof=receipt issue"`
	FromDate *time.Time `form:"fromDate" time_format:"2006-01-02"`
	ToDate   *time.Time `form:"toDate" time_format:"2006-01-02"`
}

// ToFilter converts the request into a domain filter.
func (r *MovementListRequest) ToFilter() ledger.MovementFilter {
	r.Defaults()
	f := ledger.MovementFilter{
		FromDate: r.FromDate,
		ToDate:   r.ToDate,
		Limit:    r.PageSize,
		Offset:   r.Offset(),
	}
	if r.Type != "" {
		t := entity.MovementType(r.Type)
		f.Type = &t
	}
	return f
}

// CorrectionListRequest filters correction history.
type CorrectionListRequest struct {
	PaginationRequest
	TriggerMovementID string `form:"triggerMovementId"`
	OnlyApplied       bool   `form:"onlyApplied"`
}

// ToFilter converts the request into a domain filter.
func (r *CorrectionListRequest) ToFilter() (ledger.CorrectionFilter, error) {
	r.Defaults()
	f := ledger.CorrectionFilter{
		OnlyApplied: r.OnlyApplied,
		Limit:       r.PageSize,
		Offset:      r.Offset(),
	}
	if r.TriggerMovementID != "" {
		trigger, err := id.Parse(r.TriggerMovementID)
		if err != nil {
			return f, apperror.NewValidation("invalid triggerMovementId")
		}
		f.TriggerMovementID = &trigger
	}
	return f, nil
}

// --- Responses ---

// MovementResponse is one ledger movement with its checkpoint.
type MovementResponse struct {
	ID             string `json:"id"`
	CompanyID      string `json:"companyId"`
	AccountID      string `json:"accountId"`
	EntryLineID    string `json:"entryLineId,omitempty"`
	JournalEntryID string `json:"journalEntryId,omitempty"`

	Sequence     int64     `json:"sequence"`
	MovementDate time.Time `json:"movementDate"`
	Type         string    `json:"type"`

	Quantity  types.Quantity `json:"quantity"`
	UnitPrice types.Money    `json:"unitPrice"`
	Amount    types.Money    `json:"amount"`

	BalanceQuantity types.Quantity `json:"balanceQuantity"`
	BalanceAmount   types.Money    `json:"balanceAmount"`
	AverageCost     types.Money    `json:"averageCost"`

	CreatedAt time.Time `json:"createdAt"`
}

// FromMovement creates MovementResponse from the entity.
func FromMovement(m entity.InventoryMovement) MovementResponse {
	resp := MovementResponse{
		ID:              m.ID.String(),
		CompanyID:       m.CompanyID.String(),
		AccountID:       m.AccountID.String(),
		Sequence:        m.Sequence,
		MovementDate:    m.MovementDate,
		Type:            string(m.Type),
		Quantity:        m.Quantity,
		UnitPrice:       m.UnitPrice,
		Amount:          m.Amount,
		BalanceQuantity: m.BalanceQuantity,
		BalanceAmount:   m.BalanceAmount,
		AverageCost:     m.AverageCost,
		CreatedAt:       m.CreatedAt,
	}
	if !id.IsNil(m.EntryLineID) {
		resp.EntryLineID = m.EntryLineID.String()
	}
	if !id.IsNil(m.JournalEntryID) {
		resp.JournalEntryID = m.JournalEntryID.String()
	}
	return resp
}

// CorrectionResponse is one applied or pending correction.
type CorrectionResponse struct {
	ID                 string `json:"id"`
	AccountID          string `json:"accountId"`
	TriggerMovementID  string `json:"triggerMovementId"`
	AffectedMovementID string `json:"affectedMovementId"`

	OldAverageCost types.Money `json:"oldAverageCost"`
	NewAverageCost types.Money `json:"newAverageCost"`
	Amount         types.Money `json:"amount"`

	JournalEntryID string     `json:"journalEntryId,omitempty"`
	IsApplied      bool       `json:"isApplied"`
	AppliedAt      *time.Time `json:"appliedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// FromCorrection creates CorrectionResponse from the entity.
func FromCorrection(c entity.AverageCostCorrection) CorrectionResponse {
	resp := CorrectionResponse{
		ID:                 c.ID.String(),
		AccountID:          c.AccountID.String(),
		TriggerMovementID:  c.TriggerMovementID.String(),
		AffectedMovementID: c.AffectedMovementID.String(),
		OldAverageCost:     c.OldAverageCost,
		NewAverageCost:     c.NewAverageCost,
		Amount:             c.Amount,
		IsApplied:          c.IsApplied,
		AppliedAt:          c.AppliedAt,
		CreatedAt:          c.CreatedAt,
	}
	if c.JournalEntryID != nil {
		resp.JournalEntryID = c.JournalEntryID.String()
	}
	return resp
}

// RecordResponse is the result of one append.
type RecordResponse struct {
	Movement    MovementResponse     `json:"movement"`
	Corrections []CorrectionResponse `json:"corrections,omitempty"`
}

// FromRecordResult creates RecordResponse from the domain result.
func FromRecordResult(res *ledger.RecordResult) RecordResponse {
	resp := RecordResponse{
		Movement: FromMovement(res.Movement),
	}
	for _, c := range res.Corrections {
		resp.Corrections = append(resp.Corrections, FromCorrection(c))
	}
	return resp
}

// CorrectionPreviewResponse is one detected discrepancy (dry run).
type CorrectionPreviewResponse struct {
	AffectedMovementID string      `json:"affectedMovementId"`
	MovementDate       time.Time   `json:"movementDate"`
	OldAverageCost     types.Money `json:"oldAverageCost"`
	NewAverageCost     types.Money `json:"newAverageCost"`
	Amount             types.Money `json:"amount"`
}

// FromCorrectionNeeded creates CorrectionPreviewResponse from the domain type.
func FromCorrectionNeeded(n ledger.CorrectionNeeded) CorrectionPreviewResponse {
	return CorrectionPreviewResponse{
		AffectedMovementID: n.Movement.ID.String(),
		MovementDate:       n.Movement.MovementDate,
		OldAverageCost:     n.OldAverageCost,
		NewAverageCost:     n.NewAverageCost,
		Amount:             n.Amount,
	}
}

// BalanceResponse is the cached balance projection.
type BalanceResponse struct {
	AccountID   string         `json:"accountId"`
	Quantity    types.Quantity `json:"quantity"`
	Amount      types.Money    `json:"amount"`
	AverageCost types.Money    `json:"averageCost"`

	LastMovementDate *time.Time `json:"lastMovementDate,omitempty"`
	LastMovementID   string     `json:"lastMovementId,omitempty"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// FromBalance creates BalanceResponse from the entity.
func FromBalance(b entity.InventoryBalance) BalanceResponse {
	resp := BalanceResponse{
		AccountID:   b.AccountID.String(),
		Quantity:    b.Quantity,
		Amount:      b.Amount,
		AverageCost: b.AverageCost,
		UpdatedAt:   b.UpdatedAt,
	}
	if !b.LastMovementDate.IsZero() {
		d := b.LastMovementDate
		resp.LastMovementDate = &d
	}
	if !id.IsNil(b.LastMovementID) {
		resp.LastMovementID = b.LastMovementID.String()
	}
	return resp
}
