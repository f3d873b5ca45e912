/*
Package approval manages the two-tier (office-manager, admin) sign-off
workflow that gates commission payout.

PURPOSE:
  One MonthlyApproval record per agent per month is the persisted source of
  truth for payout. This package owns its lifecycle:

    Pending ──approve──▶ ManagerApproved ──approve(admin)──▶ AdminApproved
       ▲                      │                                   │
       └──────revoke──────────┴───────────────────────────────────┘

  Revocation is a soft transition (revoked=true, approved=false), reversible
  by re-approval. At most one non-revoked record exists per
  (agent_name, month_year); approvals always update that record in place
  rather than inserting duplicates.

KEY CONCEPTS IN THIS FILE (types.go):
  - MonthlyApproval: the persisted record, field names normalized
  - DeductionSnapshot: the deduction inputs captured at approval time
  - Store / Directory / Identity: the contracts the workflow consumes

SEE ALSO:
  - service.go: approve / revoke / fetch operations
  - reconcile.go: folds records back onto performance snapshots
  - store/sqlite: the production Store implementation
*/
package approval

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vekst/commission-engine/commission"
)

// =============================================================================
// MONTHLY APPROVAL - The persisted record
// =============================================================================

// MonthlyApproval is one manager/admin sign-off on an agent's commission for
// a month. original_commission is what the engine computed at approval time;
// approved_commission is what the actor explicitly set (manual overrides are
// allowed and carried with a comment).
type MonthlyApproval struct {
	ID           string
	AgentName    string
	MonthYear    commission.MonthYear
	AgentCompany string

	OriginalCommission decimal.Decimal
	ApprovedCommission decimal.Decimal
	ApprovalComment    string

	Approved        bool
	ManagerApproved bool
	AdminApproved   bool

	ApprovedBy string
	ApprovedAt time.Time

	Revoked          bool
	RevokedBy        string
	RevokedAt        *time.Time
	RevocationReason string

	// Snapshot of the deduction inputs used, for auditability.
	BonusAmount               decimal.Decimal
	Tjenestetorget            decimal.Decimal
	Bytt                      decimal.Decimal
	OtherDeductions           decimal.Decimal
	ApplyFivePercentDeduction bool
}

// Status derives the state-machine position of the record.
func (a *MonthlyApproval) Status() commission.ApprovalStatus {
	switch {
	case a == nil, a.Revoked, !a.Approved:
		return commission.StatusPending
	case a.AdminApproved:
		return commission.StatusAdminApproved
	default:
		return commission.StatusManagerApproved
	}
}

// DeductionSnapshot is the set of deduction/bonus inputs written alongside
// every approval.
type DeductionSnapshot struct {
	BonusAmount               decimal.Decimal
	Tjenestetorget            decimal.Decimal
	Bytt                      decimal.Decimal
	OtherDeductions           decimal.Decimal
	ApplyFivePercentDeduction bool
}

// =============================================================================
// CONSUMED CONTRACTS - Store, directory, identity
// =============================================================================

// Store persists approval records. Implementations must keep at most one
// non-revoked row per (agent_name, month_year); Approve relies on
// FindActive + Update to never insert duplicates.
type Store interface {
	// FindActive returns the non-revoked record for (agentName, month), or
	// nil when none exists. When historical duplicates exist, the one with
	// the greatest approved_at wins (read-side disambiguation only).
	FindActive(ctx context.Context, agentName string, month commission.MonthYear) (*MonthlyApproval, error)

	// ListForMonth returns all records for a month, newest first. An empty
	// office matches every office.
	ListForMonth(ctx context.Context, office string, month commission.MonthYear) ([]MonthlyApproval, error)

	// Insert persists a new record.
	Insert(ctx context.Context, a *MonthlyApproval) error

	// Update rewrites the record identified by a.ID in place.
	Update(ctx context.Context, a *MonthlyApproval) error
}

// Directory resolves agent identifiers against the employee store.
type Directory interface {
	EmployeeByID(ctx context.Context, id string) (*commission.Employee, error)
	EmployeeByName(ctx context.Context, name string) (*commission.Employee, error)
	EmployeeByExternalID(ctx context.Context, externalID string) (*commission.Employee, error)
}

// Identity supplies the acting user's display name for approved_by and
// revoked_by. Authentication itself is an external collaborator.
type Identity interface {
	ActingUser(ctx context.Context) (string, error)
}
