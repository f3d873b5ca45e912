/*
Package commission provides the core engine for monthly sales-commission
computation.

PURPOSE:
  This package contains pure domain logic: premium aggregation, tiered bonus
  thresholds, stacked deductions, per-agent performance snapshots, and office
  rollups. Nothing here performs I/O; employees, salary models, and sale
  records come in as values, and the computed result goes out as a value.
  Persistence and the approval workflow live in the approval and store
  packages.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: agent identity, hire date, per-agent deduction overrides
  - SalaryModel: the commission rate table (liv/skade rates, bonus config)
  - SaleRecord: one sold policy with premium, product tag, and sale date
  - AgentPerformance: the derived per-agent per-month snapshot (never
    persisted, always recomputed)
  - OfficeSummary: derived per-office rollup

DESIGN PRINCIPLES:
  1. Precision: money uses decimal.Decimal, never float64 arithmetic
  2. Determinism: identical inputs always produce identical output
  3. Tolerance: absent or NaN numeric inputs are treated as zero,
     never as an error

SEE ALSO:
  - engine.go: the five-step commission formula
  - classify.go: product-group classification (liv / skade / unknown)
  - aggregate.go: the per-month orchestrator
*/
package commission

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY HELPERS
// =============================================================================

// Money converts a float into a decimal amount. NaN and Inf collapse to
// zero so that missing numeric fields from upstream never poison a
// computation.
func Money(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// MustParseMoney parses a stored decimal string, returning zero on failure.
func MustParseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var hundred = decimal.NewFromInt(100)

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is one commission-earning agent.
type Employee struct {
	ID         string
	Name       string
	Office     string
	Position   string
	ExternalID string

	// HireDate is nil when unknown. Tenure deduction derivation treats an
	// unknown hire date as "no deduction".
	HireDate *time.Time

	SalaryModelID string

	// Per-employee overrides.
	BaseSalary    decimal.Decimal
	BonusOverride *decimal.Decimal // manual bonus replacing the computed one

	// ApplyTenureDeduction is nil when the flag should be derived from the
	// hire date (employed under nine months).
	ApplyTenureDeduction *bool

	// Fixed monthly tender deductions.
	Tjenestetorget  decimal.Decimal
	Bytt            decimal.Decimal
	OtherDeductions decimal.Decimal
}

// =============================================================================
// SALARY MODEL - The rate table
// =============================================================================

// SalaryModel is the rate table a group of agents is paid against.
type SalaryModel struct {
	ID   string
	Name string

	LivRate   decimal.Decimal // liv commission % of premium
	SkadeRate decimal.Decimal // skade commission % of premium

	BonusEnabled   bool
	BonusThreshold decimal.Decimal // total premium required for bonus
	BonusLivPct    decimal.Decimal
	BonusSkadePct  decimal.Decimal
}

// =============================================================================
// SALE RECORD
// =============================================================================

// SaleRecord is one sold policy as delivered by the sales feed.
type SaleRecord struct {
	ID           string
	AgentName    string
	NetPremium   decimal.Decimal
	ProductGroup string // free-text tag, classified into liv/skade/unknown
	SaleDate     time.Time
	Cancelled    bool
}

// =============================================================================
// DEDUCTION INPUTS
// =============================================================================

// DeductionInputs are the bonus/deduction knobs fed into the engine for one
// agent, assembled from the employee record (and, after approval, from the
// persisted deduction snapshot).
type DeductionInputs struct {
	// BonusOverride replaces the computed bonus for payout purposes when
	// set. It does not change bonus eligibility.
	BonusOverride *decimal.Decimal

	// ApplyTenure is the explicit per-employee flag; nil means derive from
	// the hire date.
	ApplyTenure *bool

	Tjenestetorget  decimal.Decimal
	Bytt            decimal.Decimal
	OtherDeductions decimal.Decimal
}

// =============================================================================
// BREAKDOWN - Itemized engine output
// =============================================================================

// Breakdown is the itemized result of the commission formula. Every term is
// kept so callers can display and audit the computation, not only the total.
type Breakdown struct {
	LivCommission   decimal.Decimal
	SkadeCommission decimal.Decimal
	BaseCommission  decimal.Decimal

	BonusEligible bool
	BonusAmount   decimal.Decimal

	TotalWithBonus decimal.Decimal

	TenureApplied   bool
	TenureDeduction decimal.Decimal

	Tjenestetorget  decimal.Decimal
	Bytt            decimal.Decimal
	OtherDeductions decimal.Decimal

	NetCommission decimal.Decimal
}

// =============================================================================
// APPROVAL STATUS - Snapshot carried on performance rows
// =============================================================================

type ApprovalStatus string

const (
	StatusPending         ApprovalStatus = "pending"
	StatusManagerApproved ApprovalStatus = "manager_approved"
	StatusAdminApproved   ApprovalStatus = "admin_approved"
)

// ApprovalSnapshot is the slice of an approval record that reconciliation
// folds onto a performance entry.
type ApprovalSnapshot struct {
	Status             ApprovalStatus
	ApprovedCommission decimal.Decimal
	Comment            string
	ApprovedBy         string
	ApprovedAt         *time.Time

	// Deduction inputs recorded at approval time, for audit.
	BonusAmount               decimal.Decimal
	Tjenestetorget            decimal.Decimal
	Bytt                      decimal.Decimal
	OtherDeductions           decimal.Decimal
	ApplyFivePercentDeduction bool
}

// =============================================================================
// AGENT PERFORMANCE - Derived, never persisted
// =============================================================================

// AgentPerformance is the per-agent per-month snapshot. It is recomputed on
// every data change and only projected, never stored.
type AgentPerformance struct {
	AgentName string
	Office    string
	Month     MonthYear

	LivPremium   decimal.Decimal
	SkadePremium decimal.Decimal
	TotalPremium decimal.Decimal
	LivCount     int
	SkadeCount   int
	TotalCount   int

	Breakdown Breakdown

	// Rank within the office, 1-based, by total premium descending.
	Rank int

	Approval ApprovalSnapshot
}

// =============================================================================
// OFFICE SUMMARY - Derived rollup
// =============================================================================

type OfficeSummary struct {
	Office string
	Month  MonthYear

	LivPremium   decimal.Decimal
	SkadePremium decimal.Decimal
	TotalPremium decimal.Decimal
	LivCount     int
	SkadeCount   int
	TotalCount   int

	TotalCommission decimal.Decimal

	// ActiveAgents counts agents with at least one sale in the month.
	ActiveAgents int
}

// =============================================================================
// DATA-QUALITY WARNINGS
// =============================================================================

type WarningCode string

const (
	WarnUnclassifiedProduct WarningCode = "unclassified_product"
	WarnMissingSalaryModel  WarningCode = "missing_salary_model"
	WarnUnknownAgent        WarningCode = "unknown_agent"
)

// Warning records a data-quality issue found during aggregation. Warnings
// never abort the run; the affected record or agent is skipped instead.
type Warning struct {
	Code      WarningCode
	AgentName string
	Detail    string
}

func (w Warning) String() string {
	if w.AgentName == "" {
		return string(w.Code) + ": " + w.Detail
	}
	return string(w.Code) + " (" + w.AgentName + "): " + w.Detail
}
