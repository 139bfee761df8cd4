package reports

import (
	"context"
	"fmt"
	"time"

	"costbook/internal/core/apperror"
	"costbook/internal/core/entity"
	"costbook/internal/core/id"
	"costbook/internal/core/tx"
	"costbook/internal/domain/ledger"
)

// Repository is the narrow data access the reports need. The ledger's
// repository satisfies it.
type Repository interface {
	GetAccount(ctx context.Context, accountID id.ID) (entity.Account, error)
	ListAccounts(ctx context.Context, companyID id.ID) ([]entity.Account, error)
	ListMovements(ctx context.Context, accountID id.ID) ([]entity.InventoryMovement, error)
}

// Service provides report generation operations.
type Service struct {
	repo      Repository
	txManager tx.ReadOnlyManager
}

// NewService creates a new reports service.
func NewService(repo Repository, txManager tx.ReadOnlyManager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// GetTurnover generates the account turnover report: opening and closing
// quantity/value plus receipt and issue turnover per account. Numbers are
// produced by folding each account's ledger, not by summing stored
// checkpoints, so corrected average costs are already reflected.
func (s *Service) GetTurnover(ctx context.Context, filter TurnoverFilter) (*TurnoverReport, error) {
	if filter.FromDate.IsZero() || filter.ToDate.IsZero() {
		return nil, apperror.NewValidation("fromDate and toDate are required")
	}
	if filter.FromDate.After(filter.ToDate) {
		return nil, apperror.NewValidation("fromDate must be before toDate")
	}

	from := entity.DateOnly(filter.FromDate)
	to := entity.DateOnly(filter.ToDate)

	report := &TurnoverReport{
		FromDate: from,
		ToDate:   to,
	}

	// One read-only transaction so every account folds over the same
	// snapshot of the ledger.
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		accounts, err := s.resolveAccounts(ctx, filter)
		if err != nil {
			return err
		}

		for _, account := range accounts {
			item, err := s.turnoverItem(ctx, account, from, to)
			if err != nil {
				return err
			}

			active := !item.ReceiptQuantity.IsZero() || !item.IssueQuantity.IsZero() ||
				!item.OpeningQuantity.IsZero() || !item.ClosingQuantity.IsZero()
			if !active && !filter.IncludeZero {
				continue
			}

			report.Items = append(report.Items, item)
			report.TotalOpening = report.TotalOpening.Add(item.OpeningAmount)
			report.TotalReceipt = report.TotalReceipt.Add(item.ReceiptAmount)
			report.TotalIssue = report.TotalIssue.Add(item.IssueAmount)
			report.TotalClosing = report.TotalClosing.Add(item.ClosingAmount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.TotalItems = len(report.Items)
	return report, nil
}

// resolveAccounts expands the filter to concrete accounts: the explicit
// list, or every quantity-tracked account of the company.
func (s *Service) resolveAccounts(ctx context.Context, filter TurnoverFilter) ([]entity.Account, error) {
	if len(filter.AccountIDs) == 0 {
		if id.IsNil(filter.CompanyID) {
			return nil, apperror.NewValidation("either accountIds or companyId is required")
		}
		return s.repo.ListAccounts(ctx, filter.CompanyID)
	}

	accounts := make([]entity.Account, 0, len(filter.AccountIDs))
	for _, accountID := range filter.AccountIDs {
		account, err := s.repo.GetAccount(ctx, accountID)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// turnoverItem folds one account's ledger through the period.
func (s *Service) turnoverItem(ctx context.Context, account entity.Account, from, to time.Time) (TurnoverItem, error) {
	movements, err := s.repo.ListMovements(ctx, account.ID)
	if err != nil {
		return TurnoverItem{}, fmt.Errorf("list movements: %w", err)
	}

	item := TurnoverItem{
		AccountID:   account.ID,
		AccountCode: account.Code,
		AccountName: account.Name,
	}

	var bal ledger.Balance
	openingTaken := false

	for i := range movements {
		m := &movements[i]

		if !openingTaken && !m.MovementDate.Before(from) {
			item.OpeningQuantity = bal.Quantity
			item.OpeningAmount = bal.Amount
			openingTaken = true
		}
		if m.MovementDate.After(to) {
			break
		}

		step, err := ledger.AdvanceMovement(bal, m)
		if err != nil {
			return TurnoverItem{}, err
		}

		if !m.MovementDate.Before(from) {
			switch m.Type {
			case entity.MovementTypeReceipt:
				item.ReceiptQuantity += m.Quantity
				item.ReceiptAmount = item.ReceiptAmount.Add(step.Amount)
			case entity.MovementTypeIssue:
				item.IssueQuantity += m.Quantity
				item.IssueAmount = item.IssueAmount.Add(step.Amount)
			}
		}

		bal = step.Balance
	}

	// Period starts after the last movement: the whole fold is the opening.
	if !openingTaken {
		item.OpeningQuantity = bal.Quantity
		item.OpeningAmount = bal.Amount
	}

	item.ClosingQuantity = bal.Quantity
	item.ClosingAmount = bal.Amount
	return item, nil
}

// GetAverageCost returns an account's quantity, value and weighted-average
// cost as of a date, computed by folding the ledger up to and including
// that date.
func (s *Service) GetAverageCost(ctx context.Context, accountID id.ID, asOf time.Time) (*AverageCostInfo, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	asOf = entity.DateOnly(asOf)

	var (
		account entity.Account
		bal     ledger.Balance
	)
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		if account, err = s.repo.GetAccount(ctx, accountID); err != nil {
			return err
		}

		movements, err := s.repo.ListMovements(ctx, accountID)
		if err != nil {
			return fmt.Errorf("list movements: %w", err)
		}

		for i := range movements {
			if movements[i].MovementDate.After(asOf) {
				break
			}
			step, err := ledger.AdvanceMovement(bal, &movements[i])
			if err != nil {
				return err
			}
			bal = step.Balance
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &AverageCostInfo{
		AccountID:   account.ID,
		AccountCode: account.Code,
		AsOfDate:    asOf,
		Quantity:    bal.Quantity,
		Amount:      bal.Amount,
		AverageCost: bal.AverageCost,
	}, nil
}
