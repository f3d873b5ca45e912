/*
aggregate.go - Per-month aggregation orchestrator

PURPOSE:
  Drives one full computation pass for a selected month:
    (a) filter sale records to the month, dropping cancelled ones
    (b) classify each sale into liv / skade / unknown
    (c) build one AgentPerformance per known employee (zero-sales agents
        included)
    (d) run the commission engine per agent
    (e) rank agents within their office
    (f) roll up per-office totals

  Reconciliation against persisted approvals happens afterwards, in the
  approval package - this pass knows nothing about the store.

DATA QUALITY:
  Bad input never aborts the run. Unclassifiable product tags, sales from
  agents missing in the employee set, and employees without a resolvable
  salary model are reported as Warnings; the affected agent is excluded from
  commission computation for the pass, everything else proceeds.

SEE ALSO:
  - engine.go: the per-agent formula
  - approval/reconcile.go: folds persisted approvals onto the result
*/
package commission

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyResult is the output of one aggregation pass.
type MonthlyResult struct {
	Month        MonthYear
	Performances []AgentPerformance
	Offices      []OfficeSummary
	Warnings     []Warning
}

// agentTotals accumulates classified premium per agent while walking the
// sales feed.
type agentTotals struct {
	livPremium   decimal.Decimal
	skadePremium decimal.Decimal
	totalPremium decimal.Decimal
	livCount     int
	skadeCount   int
	totalCount   int
}

// Process computes the full monthly snapshot from raw inputs. It is pure:
// no I/O, no clock reads (now is a parameter, anchoring tenure derivation),
// and identical inputs yield identical output.
func Process(month MonthYear, sales []SaleRecord, employees []Employee, models []SalaryModel, now time.Time) (*MonthlyResult, error) {
	if !month.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}

	result := &MonthlyResult{Month: month}

	modelsByID := make(map[string]SalaryModel, len(models))
	for _, m := range models {
		modelsByID[m.ID] = m
	}

	knownAgents := make(map[string]bool, len(employees))
	for _, e := range employees {
		knownAgents[e.Name] = true
	}

	// (a)+(b): aggregate in-month, non-cancelled sales per agent.
	totals := make(map[string]*agentTotals)
	for _, sale := range sales {
		if sale.Cancelled || !month.Contains(sale.SaleDate) {
			continue
		}

		if !knownAgents[sale.AgentName] {
			result.Warnings = append(result.Warnings, Warning{
				Code:      WarnUnknownAgent,
				AgentName: sale.AgentName,
				Detail:    fmt.Sprintf("sale %s has no matching employee", sale.ID),
			})
			continue
		}

		t := totals[sale.AgentName]
		if t == nil {
			t = &agentTotals{}
			totals[sale.AgentName] = t
		}

		premium := sale.NetPremium
		t.totalPremium = t.totalPremium.Add(premium)
		t.totalCount++

		switch Classify(sale.ProductGroup) {
		case CategoryLiv:
			t.livPremium = t.livPremium.Add(premium)
			t.livCount++
		case CategorySkade:
			t.skadePremium = t.skadePremium.Add(premium)
			t.skadeCount++
		default:
			// Unclassified sales stay in the totals but in neither bucket.
			result.Warnings = append(result.Warnings, Warning{
				Code:      WarnUnclassifiedProduct,
				AgentName: sale.AgentName,
				Detail:    fmt.Sprintf("product group %q on sale %s", sale.ProductGroup, sale.ID),
			})
		}
	}

	// (c)+(d): one performance row per employee, engine run where possible.
	result.Performances = make([]AgentPerformance, 0, len(employees))
	for _, emp := range employees {
		perf := AgentPerformance{
			AgentName: emp.Name,
			Office:    emp.Office,
			Month:     month,
			Approval:  ApprovalSnapshot{Status: StatusPending},
		}

		if t := totals[emp.Name]; t != nil {
			perf.LivPremium = t.livPremium
			perf.SkadePremium = t.skadePremium
			perf.TotalPremium = t.totalPremium
			perf.LivCount = t.livCount
			perf.SkadeCount = t.skadeCount
			perf.TotalCount = t.totalCount
		}

		model, ok := modelsByID[emp.SalaryModelID]
		if !ok {
			result.Warnings = append(result.Warnings, Warning{
				Code:      WarnMissingSalaryModel,
				AgentName: emp.Name,
				Detail:    fmt.Sprintf("salary model %q not found", emp.SalaryModelID),
			})
		} else {
			perf.Breakdown = Compute(perf.LivPremium, perf.SkadePremium, model, DeductionInputs{
				BonusOverride:   emp.BonusOverride,
				ApplyTenure:     emp.ApplyTenureDeduction,
				Tjenestetorget:  emp.Tjenestetorget,
				Bytt:            emp.Bytt,
				OtherDeductions: emp.OtherDeductions,
			}, emp.HireDate, now)
		}

		result.Performances = append(result.Performances, perf)
	}

	Rank(result.Performances)
	result.Offices = summarize(month, result.Performances)

	return result, nil
}

// =============================================================================
// RANKING
// =============================================================================

// Rank assigns each agent a dense 1-based rank within their office, ordered
// by total premium descending. Ties keep input order (stable sort), so equal
// premiums receive consecutive ranks in the order the employees were given.
func Rank(perfs []AgentPerformance) {
	byOffice := make(map[string][]int)
	for i := range perfs {
		byOffice[perfs[i].Office] = append(byOffice[perfs[i].Office], i)
	}

	for _, idxs := range byOffice {
		sorted := make([]int, len(idxs))
		copy(sorted, idxs)
		sort.SliceStable(sorted, func(a, b int) bool {
			return perfs[sorted[a]].TotalPremium.GreaterThan(perfs[sorted[b]].TotalPremium)
		})
		for rank, i := range sorted {
			perfs[i].Rank = rank + 1
		}
	}
}

// =============================================================================
// OFFICE ROLLUP
// =============================================================================

// summarize rebuilds the per-office totals from scratch. The summary is a
// derived snapshot; it is never stored and never incrementally updated.
func summarize(month MonthYear, perfs []AgentPerformance) []OfficeSummary {
	byOffice := make(map[string]*OfficeSummary)
	for i := range perfs {
		p := &perfs[i]
		s := byOffice[p.Office]
		if s == nil {
			s = &OfficeSummary{Office: p.Office, Month: month}
			byOffice[p.Office] = s
		}
		s.LivPremium = s.LivPremium.Add(p.LivPremium)
		s.SkadePremium = s.SkadePremium.Add(p.SkadePremium)
		s.TotalPremium = s.TotalPremium.Add(p.TotalPremium)
		s.LivCount += p.LivCount
		s.SkadeCount += p.SkadeCount
		s.TotalCount += p.TotalCount
		s.TotalCommission = s.TotalCommission.Add(p.Breakdown.NetCommission)
		if p.TotalCount > 0 {
			s.ActiveAgents++
		}
	}

	offices := make([]OfficeSummary, 0, len(byOffice))
	for _, s := range byOffice {
		offices = append(offices, *s)
	}
	sort.Slice(offices, func(a, b int) bool { return offices[a].Office < offices[b].Office })
	return offices
}
