/*
engine.go - The five-step commission formula

PURPOSE:
  Turns one agent's aggregated liv/skade premium plus their salary model and
  deduction inputs into an itemized commission breakdown.

THE FORMULA (fixed order, reordering changes the numeric result):
  1. skadeCommission = skadePremium * skadeRate/100
     livCommission   = livPremium   * livRate/100
  2. baseCommission  = skadeCommission + livCommission
  3. bonus: if bonus_enabled and (liv+skade premium) >= threshold,
     bonus = livPremium*bonusLivPct/100 + skadePremium*bonusSkadePct/100
     A manual override from the approver replaces the computed value for
     payout, but never changes eligibility.
  4. totalWithBonus = baseCommission + bonus
  5. tenureDeduction = applyTenure ? baseCommission * 0.05 : 0
     The deduction is computed on baseCommission ONLY - the bonus component
     is never reduced.
  6. netCommission = totalWithBonus - tenureDeduction
                     - tjenestetorget - bytt - other

TENURE RESOLUTION:
  explicit per-employee flag, if set
  else: employed under nine months (derived from hire date)
  else: false when the hire date is unknown

GUARANTEES:
  - Deterministic: no clock reads, no globals; "now" is a parameter
  - Total: absent/NaN inputs were already normalized to zero by Money()

SEE ALSO:
  - aggregate.go: calls Compute once per agent per month
  - types.go: Breakdown carries every intermediate term for audit
*/
package commission

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tenure deduction: 5% of base commission for agents employed under nine
// months.
var tenureRate = decimal.New(5, -2) // 0.05

const tenureMonthsCutoff = 9

// Compute runs the commission formula for one agent. livPremium and
// skadePremium are the agent's aggregated monthly premiums; hireDate may be
// nil when unknown; now anchors the tenure derivation.
func Compute(livPremium, skadePremium decimal.Decimal, model SalaryModel, in DeductionInputs, hireDate *time.Time, now time.Time) Breakdown {
	b := Breakdown{
		Tjenestetorget:  in.Tjenestetorget,
		Bytt:            in.Bytt,
		OtherDeductions: in.OtherDeductions,
	}

	// Step 1+2: category commissions and their sum.
	b.SkadeCommission = skadePremium.Mul(model.SkadeRate).Div(hundred)
	b.LivCommission = livPremium.Mul(model.LivRate).Div(hundred)
	b.BaseCommission = b.SkadeCommission.Add(b.LivCommission)

	// Step 3: bonus eligibility on total premium, computed per category.
	totalPremium := livPremium.Add(skadePremium)
	if model.BonusEnabled && totalPremium.GreaterThanOrEqual(model.BonusThreshold) {
		b.BonusEligible = true
		b.BonusAmount = livPremium.Mul(model.BonusLivPct).Div(hundred).
			Add(skadePremium.Mul(model.BonusSkadePct).Div(hundred))
	}
	if in.BonusOverride != nil {
		// Manual override replaces the payout amount only.
		b.BonusAmount = *in.BonusOverride
	}

	// Step 4.
	b.TotalWithBonus = b.BaseCommission.Add(b.BonusAmount)

	// Step 5: tenure deduction on base commission only.
	b.TenureApplied = resolveTenure(in.ApplyTenure, hireDate, now)
	if b.TenureApplied {
		b.TenureDeduction = b.BaseCommission.Mul(tenureRate)
	}

	// Step 6.
	b.NetCommission = b.TotalWithBonus.
		Sub(b.TenureDeduction).
		Sub(in.Tjenestetorget).
		Sub(in.Bytt).
		Sub(in.OtherDeductions)

	return b
}

// resolveTenure encodes the precedence: explicit flag, then hire-date
// derivation, then false when the hire date is unknown.
func resolveTenure(override *bool, hireDate *time.Time, now time.Time) bool {
	if override != nil {
		return *override
	}
	if hireDate == nil {
		return false
	}
	return MonthsEmployed(*hireDate, now) < tenureMonthsCutoff
}
