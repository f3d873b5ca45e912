package commission_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vekst/commission-engine/commission"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

const testMonth = commission.MonthYear("2024-03")

func marchSale(id, agent string, premium string, productGroup string, day int) commission.SaleRecord {
	return commission.SaleRecord{
		ID:           id,
		AgentName:    agent,
		NetPremium:   d(premium),
		ProductGroup: productGroup,
		SaleDate:     time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC),
	}
}

func osloAgent(name string) commission.Employee {
	return commission.Employee{
		ID:            "emp-" + name,
		Name:          name,
		Office:        "Oslo",
		SalaryModelID: "model-std",
	}
}

func byAgent(t *testing.T, perfs []commission.AgentPerformance, name string) commission.AgentPerformance {
	t.Helper()
	for _, p := range perfs {
		if p.AgentName == name {
			return p
		}
	}
	t.Fatalf("no performance entry for %q", name)
	return commission.AgentPerformance{}
}

func warningCodes(warnings []commission.Warning) []commission.WarningCode {
	codes := make([]commission.WarningCode, 0, len(warnings))
	for _, w := range warnings {
		codes = append(codes, w.Code)
	}
	return codes
}

// =============================================================================
// FILTERING
// =============================================================================

func TestProcess_FiltersByMonthAndCancellation(t *testing.T) {
	// GIVEN: One in-month sale, one cancelled, one from February
	// WHEN: Processing March
	// THEN: Only the in-month, non-cancelled sale counts

	cancelled := marchSale("s2", "Kari", "5000", "Skade", 10)
	cancelled.Cancelled = true

	february := marchSale("s3", "Kari", "7000", "Skade", 1)
	february.SaleDate = time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC)

	sales := []commission.SaleRecord{
		marchSale("s1", "Kari", "100000", "Skade", 5),
		cancelled,
		february,
	}

	result, err := commission.Process(testMonth, sales, []commission.Employee{osloAgent("Kari")},
		[]commission.SalaryModel{standardModel()}, engineNow)
	require.NoError(t, err)

	kari := byAgent(t, result.Performances, "Kari")
	assertMoney(t, "100000", kari.TotalPremium, "total premium")
	assert.Equal(t, 1, kari.TotalCount)
}

func TestProcess_InvalidMonth(t *testing.T) {
	_, err := commission.Process("2024-3", nil, nil, nil, engineNow)
	assert.ErrorIs(t, err, commission.ErrInvalidMonth)

	_, err = commission.Process("march", nil, nil, nil, engineNow)
	assert.ErrorIs(t, err, commission.ErrInvalidMonth)
}

// =============================================================================
// CLASSIFICATION AND WARNINGS
// =============================================================================

func TestProcess_UnclassifiedSale_InTotalsOnly(t *testing.T) {
	// GIVEN: A sale whose product group matches no keyword set
	// WHEN: Processing the month
	// THEN: It counts in the totals, lands in neither category bucket, and
	//       produces a warning

	sales := []commission.SaleRecord{
		marchSale("s1", "Kari", "60000", "Skade", 5),
		marchSale("s2", "Kari", "4000", "Warranty", 6),
	}

	result, err := commission.Process(testMonth, sales, []commission.Employee{osloAgent("Kari")},
		[]commission.SalaryModel{standardModel()}, engineNow)
	require.NoError(t, err)

	kari := byAgent(t, result.Performances, "Kari")
	assertMoney(t, "64000", kari.TotalPremium, "total premium")
	assertMoney(t, "60000", kari.SkadePremium, "skade premium")
	assertMoney(t, "0", kari.LivPremium, "liv premium")
	assert.Equal(t, 2, kari.TotalCount)
	assert.Equal(t, 1, kari.SkadeCount)

	assert.Contains(t, warningCodes(result.Warnings), commission.WarnUnclassifiedProduct)

	// Commission is computed from the category buckets only.
	assertMoney(t, "6000", kari.Breakdown.BaseCommission, "base commission")
}

func TestProcess_UnknownAgent_SaleSkippedWithWarning(t *testing.T) {
	// GIVEN: A sale from a name with no employee record
	// WHEN: Processing the month
	// THEN: The sale is skipped and reported; the run continues

	sales := []commission.SaleRecord{
		marchSale("s1", "Ghost", "50000", "Skade", 5),
		marchSale("s2", "Kari", "30000", "Skade", 6),
	}

	result, err := commission.Process(testMonth, sales, []commission.Employee{osloAgent("Kari")},
		[]commission.SalaryModel{standardModel()}, engineNow)
	require.NoError(t, err)

	assert.Len(t, result.Performances, 1)
	assert.Contains(t, warningCodes(result.Warnings), commission.WarnUnknownAgent)

	kari := byAgent(t, result.Performances, "Kari")
	assertMoney(t, "30000", kari.TotalPremium, "total premium")
}

func TestProcess_MissingSalaryModel_WarnsAndSkipsCommission(t *testing.T) {
	// GIVEN: An employee pointing at a model that does not exist
	// WHEN: Processing the month
	// THEN: Premiums still aggregate; the breakdown stays zero; a warning
	//       is recorded

	emp := osloAgent("Kari")
	emp.SalaryModelID = "model-missing"

	sales := []commission.SaleRecord{marchSale("s1", "Kari", "80000", "Skade", 5)}

	result, err := commission.Process(testMonth, sales, []commission.Employee{emp},
		[]commission.SalaryModel{standardModel()}, engineNow)
	require.NoError(t, err)

	kari := byAgent(t, result.Performances, "Kari")
	assertMoney(t, "80000", kari.TotalPremium, "total premium")
	assertMoney(t, "0", kari.Breakdown.NetCommission, "net commission")
	assert.Contains(t, warningCodes(result.Warnings), commission.WarnMissingSalaryModel)
}

// =============================================================================
// ZERO-SALES AGENTS
// =============================================================================

func TestProcess_ZeroSalesAgent_StillListed(t *testing.T) {
	// GIVEN: An employee with no sales this month
	// WHEN: Processing the month
	// THEN: They appear with zero premiums and a pending approval snapshot

	result, err := commission.Process(testMonth, nil,
		[]commission.Employee{osloAgent("Per")},
		[]commission.SalaryModel{standardModel()}, engineNow)
	require.NoError(t, err)

	per := byAgent(t, result.Performances, "Per")
	assert.Equal(t, 0, per.TotalCount)
	assertMoney(t, "0", per.TotalPremium, "total premium")
	assert.Equal(t, commission.StatusPending, per.Approval.Status)
}

// =============================================================================
// RANKING
// =============================================================================

func TestProcess_RankWithinOffice(t *testing.T) {
	// GIVEN: Three Oslo agents and one Bergen agent with varying premiums
	// WHEN: Processing the month
	// THEN: Ranks are dense and 1-based per office, premium descending

	employees := []commission.Employee{
		osloAgent("Kari"), osloAgent("Per"), osloAgent("Ola"),
	}
	bergen := osloAgent("Nina")
	bergen.Office = "Bergen"
	employees = append(employees, bergen)

	sales := []commission.SaleRecord{
		marchSale("s1", "Kari", "30000", "Skade", 5),
		marchSale("s2", "Per", "90000", "Skade", 6),
		marchSale("s3", "Ola", "60000", "Skade", 7),
		marchSale("s4", "Nina", "10000", "Skade", 8),
	}

	result, err := commission.Process(testMonth, sales, employees,
		[]commission.SalaryModel{standardModel()}, engineNow)
	require.NoError(t, err)

	assert.Equal(t, 1, byAgent(t, result.Performances, "Per").Rank)
	assert.Equal(t, 2, byAgent(t, result.Performances, "Ola").Rank)
	assert.Equal(t, 3, byAgent(t, result.Performances, "Kari").Rank)
	// Bergen ranks independently.
	assert.Equal(t, 1, byAgent(t, result.Performances, "Nina").Rank)
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	// GIVEN: Two agents with equal premium
	// WHEN: Ranking
	// THEN: The earlier entry takes the lower rank

	perfs := []commission.AgentPerformance{
		{AgentName: "A", Office: "Oslo", TotalPremium: d("50000")},
		{AgentName: "B", Office: "Oslo", TotalPremium: d("50000")},
		{AgentName: "C", Office: "Oslo", TotalPremium: d("70000")},
	}
	commission.Rank(perfs)

	assert.Equal(t, 1, perfs[2].Rank)
	assert.Equal(t, 2, perfs[0].Rank)
	assert.Equal(t, 3, perfs[1].Rank)
}

// =============================================================================
// OFFICE ROLLUP
// =============================================================================

func TestProcess_OfficeSummaries(t *testing.T) {
	// GIVEN: Two offices with mixed liv/skade sales
	// WHEN: Processing the month
	// THEN: Per-office totals, commissions, and active-agent counts add up

	employees := []commission.Employee{osloAgent("Kari"), osloAgent("Per")}
	bergen := osloAgent("Nina")
	bergen.Office = "Bergen"
	employees = append(employees, bergen)

	sales := []commission.SaleRecord{
		marchSale("s1", "Kari", "100000", "Skade", 5),
		marchSale("s2", "Nina", "20000", "Liv", 6),
	}

	result, err := commission.Process(testMonth, sales, employees,
		[]commission.SalaryModel{standardModel()}, engineNow)
	require.NoError(t, err)

	require.Len(t, result.Offices, 2)
	// Sorted by office name.
	assert.Equal(t, "Bergen", result.Offices[0].Office)
	assert.Equal(t, "Oslo", result.Offices[1].Office)

	oslo := result.Offices[1]
	assertMoney(t, "100000", oslo.TotalPremium, "oslo total premium")
	// Kari earns 10000 base + 2000 bonus; Per earns nothing.
	assertMoney(t, "12000", oslo.TotalCommission, "oslo total commission")
	assert.Equal(t, 1, oslo.ActiveAgents)

	bergenSummary := result.Offices[0]
	assertMoney(t, "20000", bergenSummary.TotalPremium, "bergen total premium")
	// 20000 liv at 20%, under the bonus threshold.
	assertMoney(t, "4000", bergenSummary.TotalCommission, "bergen total commission")
	assert.Equal(t, 1, bergenSummary.ActiveAgents)
}

// =============================================================================
// DETERMINISM
// =============================================================================

func TestProcess_Deterministic(t *testing.T) {
	// GIVEN: Identical inputs
	// WHEN: Processing twice
	// THEN: Identical snapshots

	employees := []commission.Employee{osloAgent("Kari"), osloAgent("Per")}
	sales := []commission.SaleRecord{
		marchSale("s1", "Kari", "55000", "Skade", 5),
		marchSale("s2", "Per", "55000", "Liv", 6),
	}

	first, err := commission.Process(testMonth, sales, employees,
		[]commission.SalaryModel{standardModel()}, engineNow)
	require.NoError(t, err)
	second, err := commission.Process(testMonth, sales, employees,
		[]commission.SalaryModel{standardModel()}, engineNow)
	require.NoError(t, err)

	require.Len(t, second.Performances, len(first.Performances))
	for i := range first.Performances {
		a, b := first.Performances[i], second.Performances[i]
		assert.Equal(t, a.AgentName, b.AgentName)
		assert.Equal(t, a.Rank, b.Rank)
		assert.True(t, a.Breakdown.NetCommission.Equal(b.Breakdown.NetCommission))
	}
}
