package approval_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vekst/commission-engine/approval"
	"github.com/vekst/commission-engine/commission"
)

func perfRow(agent string) commission.AgentPerformance {
	return commission.AgentPerformance{
		AgentName: agent,
		Office:    "Oslo",
		Month:     march,
		Approval:  commission.ApprovalSnapshot{Status: commission.StatusPending},
	}
}

func approvedRecord(agent string, amount string, approvedAt time.Time) approval.MonthlyApproval {
	return approval.MonthlyApproval{
		ID:                 "rec-" + agent + approvedAt.Format("150405"),
		AgentName:          agent,
		MonthYear:          march,
		AgentCompany:       "Oslo",
		ApprovedCommission: d(amount),
		ApprovalComment:    "ok",
		Approved:           true,
		ManagerApproved:    true,
		ApprovedBy:         "manager@vekst",
		ApprovedAt:         approvedAt,
	}
}

func TestReconcile_AppliesApprovalToMatchingAgent(t *testing.T) {
	// GIVEN: A pending performance row and a matching approval record
	// WHEN: Reconciling
	// THEN: Status, amount, and audit fields are copied onto the row

	approvedAt := time.Date(2024, time.April, 2, 12, 0, 0, 0, time.UTC)
	perfs := []commission.AgentPerformance{perfRow("Kari"), perfRow("Per")}
	records := []approval.MonthlyApproval{approvedRecord("Kari", "11500", approvedAt)}

	out := approval.Reconcile(perfs, records)

	kari := out[0]
	assert.Equal(t, commission.StatusManagerApproved, kari.Approval.Status)
	assert.True(t, d("11500").Equal(kari.Approval.ApprovedCommission))
	assert.Equal(t, "ok", kari.Approval.Comment)
	assert.Equal(t, "manager@vekst", kari.Approval.ApprovedBy)
	require.NotNil(t, kari.Approval.ApprovedAt)
	assert.True(t, approvedAt.Equal(*kari.Approval.ApprovedAt))

	// Per has no record and stays pending.
	assert.Equal(t, commission.StatusPending, out[1].Approval.Status)
}

func TestReconcile_SkipsRevokedRecords(t *testing.T) {
	// GIVEN: The only record for the agent is revoked
	// WHEN: Reconciling
	// THEN: The row falls back to pending

	rec := approvedRecord("Kari", "11500", time.Now())
	rec.Revoked = true
	rec.Approved = false

	out := approval.Reconcile([]commission.AgentPerformance{perfRow("Kari")},
		[]approval.MonthlyApproval{rec})

	assert.Equal(t, commission.StatusPending, out[0].Approval.Status)
	assert.Nil(t, out[0].Approval.ApprovedAt)
}

func TestReconcile_LatestNonRevokedWins(t *testing.T) {
	// GIVEN: Two non-revoked records for the same key (historical duplicates)
	// WHEN: Reconciling
	// THEN: The one with the greatest approved_at is applied

	older := approvedRecord("Kari", "10000", time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC))
	newer := approvedRecord("Kari", "11800", time.Date(2024, time.April, 3, 0, 0, 0, 0, time.UTC))

	out := approval.Reconcile([]commission.AgentPerformance{perfRow("Kari")},
		[]approval.MonthlyApproval{older, newer})
	assert.True(t, d("11800").Equal(out[0].Approval.ApprovedCommission))

	// Input order does not matter.
	out = approval.Reconcile([]commission.AgentPerformance{perfRow("Kari")},
		[]approval.MonthlyApproval{newer, older})
	assert.True(t, d("11800").Equal(out[0].Approval.ApprovedCommission))
}

func TestReconcile_Idempotent(t *testing.T) {
	// GIVEN: A reconciled result
	// WHEN: Reconciling again with the same records
	// THEN: The result is unchanged

	perfs := []commission.AgentPerformance{perfRow("Kari"), perfRow("Per")}
	records := []approval.MonthlyApproval{
		approvedRecord("Kari", "11500", time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC)),
	}

	once := approval.Reconcile(perfs, records)
	twice := approval.Reconcile(once, records)

	require.Len(t, twice, len(once))
	for i := range once {
		assert.Equal(t, once[i].Approval.Status, twice[i].Approval.Status)
		assert.True(t, once[i].Approval.ApprovedCommission.Equal(twice[i].Approval.ApprovedCommission))
	}
}

func TestReconcile_DoesNotMutateInputs(t *testing.T) {
	// GIVEN: A pending performance row
	// WHEN: Reconciling against a matching record
	// THEN: The input slice is untouched; only the returned copy changes

	perfs := []commission.AgentPerformance{perfRow("Kari")}
	records := []approval.MonthlyApproval{
		approvedRecord("Kari", "11500", time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC)),
	}

	out := approval.Reconcile(perfs, records)

	assert.Equal(t, commission.StatusPending, perfs[0].Approval.Status)
	assert.Equal(t, commission.StatusManagerApproved, out[0].Approval.Status)
}

func TestReconcile_ClearsStaleSnapshot(t *testing.T) {
	// GIVEN: A row carrying an old approval snapshot, and no surviving record
	// WHEN: Reconciling
	// THEN: The snapshot resets to pending with fields cleared

	p := perfRow("Kari")
	at := time.Now()
	p.Approval = commission.ApprovalSnapshot{
		Status:             commission.StatusManagerApproved,
		ApprovedCommission: d("11500"),
		ApprovedBy:         "manager@vekst",
		ApprovedAt:         &at,
	}

	out := approval.Reconcile([]commission.AgentPerformance{p}, nil)

	assert.Equal(t, commission.StatusPending, out[0].Approval.Status)
	assert.True(t, out[0].Approval.ApprovedCommission.IsZero())
	assert.Empty(t, out[0].Approval.ApprovedBy)
	assert.Nil(t, out[0].Approval.ApprovedAt)
}
