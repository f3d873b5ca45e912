/*
reconcile.go - Folding persisted approvals onto performance snapshots

PURPOSE:
  The engine computes AgentPerformance locally; approval records live in the
  store and may be edited concurrently by other actors (manager vs. admin).
  Reconcile merges the two: for every performance entry it picks the most
  recent non-revoked approval for the same (agent_name, month_year) and
  copies its approved amount, comment, and deduction snapshot onto the
  entry. Agents without a match fall back to Pending with approval fields
  cleared.

IDEMPOTENCE:
  Reconcile is a pure function of its inputs and returns a fresh slice -
  re-running it on unchanged inputs produces an identical result, so it is
  safe to invoke on every data refresh without drift or spurious churn.
*/
package approval

import "github.com/vekst/commission-engine/commission"

// Reconcile returns a new performance slice with approval state applied.
// The inputs are not mutated.
func Reconcile(perfs []commission.AgentPerformance, approvals []MonthlyApproval) []commission.AgentPerformance {
	// Most recent non-revoked record per (agent_name, month_year); ties and
	// historical duplicates resolve by greatest approved_at.
	latest := make(map[string]*MonthlyApproval)
	for i := range approvals {
		a := &approvals[i]
		if a.Revoked {
			continue
		}
		key := a.AgentName + "|" + string(a.MonthYear)
		if cur, ok := latest[key]; !ok || a.ApprovedAt.After(cur.ApprovedAt) {
			latest[key] = a
		}
	}

	out := make([]commission.AgentPerformance, len(perfs))
	copy(out, perfs)

	for i := range out {
		p := &out[i]
		a := latest[p.AgentName+"|"+string(p.Month)]
		if a == nil {
			p.Approval = commission.ApprovalSnapshot{Status: commission.StatusPending}
			continue
		}

		approvedAt := a.ApprovedAt
		p.Approval = commission.ApprovalSnapshot{
			Status:                    a.Status(),
			ApprovedCommission:        a.ApprovedCommission,
			Comment:                   a.ApprovalComment,
			ApprovedBy:                a.ApprovedBy,
			ApprovedAt:                &approvedAt,
			BonusAmount:               a.BonusAmount,
			Tjenestetorget:            a.Tjenestetorget,
			Bytt:                      a.Bytt,
			OtherDeductions:           a.OtherDeductions,
			ApplyFivePercentDeduction: a.ApplyFivePercentDeduction,
		}
	}

	return out
}
