package ledger

import (
	"context"
	"time"

	"costbook/internal/core/entity"
	"costbook/internal/core/id"
)

// Repository defines persistence operations for the movement ledger.
type Repository interface {
	// Accounts

	// GetAccount retrieves an account by ID
	GetAccount(ctx context.Context, accountID id.ID) (entity.Account, error)

	// Movements

	// NextSequence returns the next append sequence for an account.
	// Callers must hold the account's write lock; the counter is strictly
	// increasing per account.
	NextSequence(ctx context.Context, accountID id.ID) (int64, error)

	// CreateMovement appends an immutable movement row
	CreateMovement(ctx context.Context, m entity.InventoryMovement) error

	// ListMovements returns the full ledger for an account in ledger
	// order (movement date, then sequence)
	ListMovements(ctx context.Context, accountID id.ID) ([]entity.InventoryMovement, error)

	// ListMovementsFiltered returns movement history for reporting/UI
	ListMovementsFiltered(ctx context.Context, accountID id.ID, filter MovementFilter) ([]entity.InventoryMovement, error)

	// GetMovement retrieves one movement by ID
	GetMovement(ctx context.Context, movementID id.ID) (entity.InventoryMovement, error)

	// Balances

	// GetBalance returns the cached balance projection for an account
	GetBalance(ctx context.Context, accountID id.ID) (entity.InventoryBalance, error)

	// GetBalanceForUpdate returns the cached balance with a row lock,
	// serializing writers on the account at the database level
	GetBalanceForUpdate(ctx context.Context, accountID id.ID) (entity.InventoryBalance, error)

	// UpsertBalance replaces the cached balance projection
	UpsertBalance(ctx context.Context, b entity.InventoryBalance) error

	// Corrections

	// CreateCorrections batch inserts correction rows
	CreateCorrections(ctx context.Context, corrections []entity.AverageCostCorrection) error

	// MarkCorrectionApplied links the adjusting entry and flips the
	// applied flag; valid exactly once per correction
	MarkCorrectionApplied(ctx context.Context, correctionID, journalEntryID id.ID, appliedAt time.Time) error

	// ListAppliedCorrections returns all applied corrections for an
	// account ordered by creation time (oldest first)
	ListAppliedCorrections(ctx context.Context, accountID id.ID) ([]entity.AverageCostCorrection, error)

	// ListCorrections returns corrections for audit/UI listings
	ListCorrections(ctx context.Context, accountID id.ID, filter CorrectionFilter) ([]entity.AverageCostCorrection, error)
}

// AuditLogger records the correction audit trail.
// The postgres audit service satisfies this; tests use a no-op.
type AuditLogger interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error
}
