/*
service.go - Approval state machine operations

PURPOSE:
  Implements the workflow transitions over the persisted MonthlyApproval
  records:

    Approve: create-or-update the unique non-revoked record for
             (agent_name, month_year), writing the full deduction snapshot
    Revoke:  soft-invalidate the approved record (reversible by re-approval)
    Fetch:   cached, coalesced read of a month's records

WRITE DISCIPLINE:
  Validation failures reject before any store access. A lookup failure
  aborts before any write; a write failure is surfaced, never swallowed.
  Nothing is retried automatically. After a successful write, the update
  callback and the cache refresh are best-effort: their failures are logged
  and do NOT roll back the committed record - the write is the source of
  truth.

ADMIN ASYMMETRY:
  An admin-initiated approval sets manager_approved=false and
  admin_approved=true - it does not imply manager approval. The behavior is
  carried over exactly as observed in the system this replaces; whether
  admin approval should imply manager approval is an open product question,
  so the asymmetry is preserved rather than silently fixed.

SEE ALSO:
  - agentref.go: identifier resolution (id, then name, then external id)
  - cache.go: read caching and request coalescing
  - reconcile.go: projecting records back onto performance snapshots
*/
package approval

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vekst/commission-engine/commission"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service owns the approval workflow. All dependencies are explicit; the
// cache is an owned object, not package state.
type Service struct {
	Store     Store
	Directory Directory
	Identity  Identity
	Cache     *Cache

	// OnUpdate, when set, runs after every successful write so dependent
	// state can refresh. Failures are logged, never propagated.
	OnUpdate func() error

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time

	Logger *log.Logger
}

func NewService(store Store, dir Directory, id Identity) *Service {
	return &Service{
		Store:     store,
		Directory: dir,
		Identity:  id,
		Cache:     NewCache(),
		Now:       time.Now,
		Logger:    log.Default(),
	}
}

// =============================================================================
// APPROVE
// =============================================================================

// ApproveInput carries one approval action. Refs are tried in the order
// given (build them with RefsOf for the id/name/external-id priority).
type ApproveInput struct {
	Refs    []AgentRef
	Month   commission.MonthYear
	Amount  decimal.Decimal // the explicitly approved commission
	Comment string
	IsAdmin bool

	// Original is the engine-computed commission at approval time, kept for
	// the original-vs-approved audit pair.
	Original decimal.Decimal

	Snapshot DeductionSnapshot
}

// Approve runs the approve transition. The record for (agent_name, month)
// is updated in place when a non-revoked one exists, inserted otherwise -
// re-approving a revoked month therefore produces a fresh record and clears
// nothing retroactively.
func (s *Service) Approve(ctx context.Context, in ApproveInput) (*MonthlyApproval, error) {
	// Validation rejects before any store write.
	emp, err := Resolve(ctx, s.Directory, in.Refs)
	if err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidAmount, in.Amount)
	}
	if !in.Month.Valid() {
		return nil, fmt.Errorf("%w: %q", commission.ErrInvalidMonth, in.Month)
	}

	actor, err := s.Identity.ActingUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving acting user: %w", err)
	}

	existing, err := s.Store.FindActive(ctx, emp.Name, in.Month)
	if err != nil {
		// Lookup failure aborts before any write.
		return nil, fmt.Errorf("approval lookup for %s/%s failed: %w", emp.Name, in.Month, err)
	}

	record := existing
	if record == nil {
		record = &MonthlyApproval{
			ID:        uuid.NewString(),
			AgentName: emp.Name,
			MonthYear: in.Month,
		}
	}

	record.AgentCompany = emp.Office
	record.OriginalCommission = in.Original
	record.ApprovedCommission = in.Amount
	record.ApprovalComment = in.Comment
	record.Approved = true
	record.ManagerApproved = !in.IsAdmin // see ADMIN ASYMMETRY above
	record.AdminApproved = in.IsAdmin
	record.ApprovedBy = actor
	record.ApprovedAt = s.Now().UTC()
	record.Revoked = false
	record.RevokedBy = ""
	record.RevokedAt = nil
	record.RevocationReason = ""
	record.BonusAmount = in.Snapshot.BonusAmount
	record.Tjenestetorget = in.Snapshot.Tjenestetorget
	record.Bytt = in.Snapshot.Bytt
	record.OtherDeductions = in.Snapshot.OtherDeductions
	record.ApplyFivePercentDeduction = in.Snapshot.ApplyFivePercentDeduction

	if existing != nil {
		err = s.Store.Update(ctx, record)
	} else {
		err = s.Store.Insert(ctx, record)
	}
	if err != nil {
		return nil, fmt.Errorf("persisting approval for %s/%s: %w", emp.Name, in.Month, err)
	}

	s.afterWrite(ctx, emp.Office, in.Month)
	return record, nil
}

// =============================================================================
// REVOKE
// =============================================================================

// Revoke soft-invalidates the approved, non-revoked record for the agent
// and month. A missing target is an explicit failure, not a silent success,
// and leaves the store unchanged.
func (s *Service) Revoke(ctx context.Context, refs []AgentRef, month commission.MonthYear, reason string) (*MonthlyApproval, error) {
	emp, err := Resolve(ctx, s.Directory, refs)
	if err != nil {
		return nil, err
	}
	if !month.Valid() {
		return nil, fmt.Errorf("%w: %q", commission.ErrInvalidMonth, month)
	}

	actor, err := s.Identity.ActingUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving acting user: %w", err)
	}

	record, err := s.Store.FindActive(ctx, emp.Name, month)
	if err != nil {
		return nil, fmt.Errorf("approval lookup for %s/%s failed: %w", emp.Name, month, err)
	}
	if record == nil || !record.Approved {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoApprovalToRevoke, emp.Name, month)
	}

	if reason == "" {
		// Placeholder tolerated only on this path.
		reason = "no reason provided"
	}

	now := s.Now().UTC()
	record.Approved = false
	record.ManagerApproved = false
	record.AdminApproved = false
	record.Revoked = true
	record.RevokedBy = actor
	record.RevokedAt = &now
	record.RevocationReason = reason

	if err := s.Store.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting revocation for %s/%s: %w", emp.Name, month, err)
	}

	s.afterWrite(ctx, emp.Office, month)
	return record, nil
}

// =============================================================================
// FETCH
// =============================================================================

// FetchApprovals returns the month's records for an office through the
// cache. Concurrent calls for the same key share one store round trip.
func (s *Service) FetchApprovals(ctx context.Context, office string, month commission.MonthYear) ([]MonthlyApproval, error) {
	if !month.Valid() {
		return nil, fmt.Errorf("%w: %q", commission.ErrInvalidMonth, month)
	}
	return s.Cache.Get(ctx, office, month, func(ctx context.Context) ([]MonthlyApproval, error) {
		return s.Store.ListForMonth(ctx, office, month)
	})
}

// InvalidateApprovals drops the cached list for the key; the next fetch
// refetches from the store.
func (s *Service) InvalidateApprovals(office string, month commission.MonthYear) {
	s.Cache.Invalidate(office, month)
}

// afterWrite refreshes dependents of a committed write. Everything here is
// best-effort: the write already succeeded and stays the source of truth.
func (s *Service) afterWrite(ctx context.Context, office string, month commission.MonthYear) {
	s.Cache.Invalidate(office, month)
	s.Cache.Invalidate("", month) // the all-offices view shares the store

	if _, err := s.FetchApprovals(ctx, office, month); err != nil {
		s.logf("approvals refresh for %s/%s failed: %v", office, month, err)
	}

	if s.OnUpdate != nil {
		if err := s.OnUpdate(); err != nil {
			s.logf("post-approval update callback failed: %v", err)
		}
	}
}

func (s *Service) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}
