/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal domain model (decimal amounts, tagged refs) from the external
  contract (plain numbers, flat fields). Field names on the approval DTO
  follow the normalized persisted layout.

VALIDATION:
  Request types carry validator/v10 struct tags; handlers run them through
  the shared validator before touching domain logic.

SEE ALSO:
  - handlers.go: uses these types
  - approval/types.go: the domain records behind ApprovalDTO
*/
package api

import (
	"time"

	"github.com/vekst/commission-engine/approval"
	"github.com/vekst/commission-engine/commission"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// EMPLOYEES / SALARY MODELS / SALES
// =============================================================================

type EmployeeDTO struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Office               string   `json:"office"`
	Position             string   `json:"position,omitempty"`
	ExternalID           string   `json:"external_id,omitempty"`
	HireDate             string   `json:"hire_date,omitempty"` // YYYY-MM-DD
	SalaryModelID        string   `json:"salary_model_id"`
	BaseSalary           float64  `json:"base_salary"`
	BonusOverride        *float64 `json:"bonus_override,omitempty"`
	ApplyTenureDeduction *bool    `json:"apply_tenure_deduction,omitempty"`
	Tjenestetorget       float64  `json:"tjenestetorget"`
	Bytt                 float64  `json:"bytt"`
	OtherDeductions      float64  `json:"other_deductions"`
}

type SaveEmployeeRequest struct {
	ID                   string   `json:"id" validate:"required"`
	Name                 string   `json:"name" validate:"required"`
	Office               string   `json:"office"`
	Position             string   `json:"position"`
	ExternalID           string   `json:"external_id"`
	HireDate             string   `json:"hire_date" validate:"omitempty,datetime=2006-01-02"`
	SalaryModelID        string   `json:"salary_model_id"`
	BaseSalary           float64  `json:"base_salary"`
	BonusOverride        *float64 `json:"bonus_override"`
	ApplyTenureDeduction *bool    `json:"apply_tenure_deduction"`
	Tjenestetorget       float64  `json:"tjenestetorget"`
	Bytt                 float64  `json:"bytt"`
	OtherDeductions      float64  `json:"other_deductions"`
}

type SalaryModelDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	LivRate        float64 `json:"liv_rate"`
	SkadeRate      float64 `json:"skade_rate"`
	BonusEnabled   bool    `json:"bonus_enabled"`
	BonusThreshold float64 `json:"bonus_threshold"`
	BonusLivPct    float64 `json:"bonus_liv_pct"`
	BonusSkadePct  float64 `json:"bonus_skade_pct"`
}

type SaveSalaryModelRequest struct {
	ID             string  `json:"id" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	LivRate        float64 `json:"liv_rate" validate:"gte=0"`
	SkadeRate      float64 `json:"skade_rate" validate:"gte=0"`
	BonusEnabled   bool    `json:"bonus_enabled"`
	BonusThreshold float64 `json:"bonus_threshold" validate:"gte=0"`
	BonusLivPct    float64 `json:"bonus_liv_pct" validate:"gte=0"`
	BonusSkadePct  float64 `json:"bonus_skade_pct" validate:"gte=0"`
}

type SaleDTO struct {
	ID           string  `json:"id"`
	AgentName    string  `json:"agent_name"`
	NetPremium   float64 `json:"net_premium"`
	ProductGroup string  `json:"product_group"`
	SaleDate     string  `json:"sale_date"` // YYYY-MM-DD
	Cancelled    bool    `json:"cancelled"`
}

type SaveSaleRequest struct {
	ID           string  `json:"id" validate:"required"`
	AgentName    string  `json:"agent_name" validate:"required"`
	NetPremium   float64 `json:"net_premium"`
	ProductGroup string  `json:"product_group"`
	SaleDate     string  `json:"sale_date" validate:"required,datetime=2006-01-02"`
	Cancelled    bool    `json:"cancelled"`
}

// =============================================================================
// APPROVALS
// =============================================================================

// ApproveRequest carries one approve action. Agent identifiers resolve in
// priority order: agent_id, then agent_name, then agent_external_id.
type ApproveRequest struct {
	AgentID         string `json:"agent_id"`
	AgentName       string `json:"agent_name"`
	AgentExternalID string `json:"agent_external_id"`

	Month   string  `json:"month" validate:"required"`
	Amount  float64 `json:"amount" validate:"required,gt=0"`
	Comment string  `json:"comment"`
	IsAdmin bool    `json:"is_admin"`

	OriginalCommission float64 `json:"original_commission"`

	// Deduction snapshot written alongside the approval.
	BonusAmount               float64 `json:"bonus_amount"`
	Tjenestetorget            float64 `json:"tjenestetorget"`
	Bytt                      float64 `json:"bytt"`
	OtherDeductions           float64 `json:"other_deductions"`
	ApplyFivePercentDeduction bool    `json:"apply_five_percent_deduction"`
}

type RevokeRequest struct {
	AgentID         string `json:"agent_id"`
	AgentName       string `json:"agent_name"`
	AgentExternalID string `json:"agent_external_id"`

	Month  string `json:"month" validate:"required"`
	Reason string `json:"reason"`
}

// ApprovalDTO mirrors the persisted record layout.
type ApprovalDTO struct {
	ID           string `json:"id"`
	AgentName    string `json:"agent_name"`
	MonthYear    string `json:"month_year"`
	AgentCompany string `json:"agent_company"`

	OriginalCommission float64 `json:"original_commission"`
	ApprovedCommission float64 `json:"approved_commission"`
	ApprovalComment    string  `json:"approval_comment,omitempty"`

	Approved        bool `json:"approved"`
	ManagerApproved bool `json:"manager_approved"`
	AdminApproved   bool `json:"admin_approved"`
	Revoked         bool `json:"revoked"`

	ApprovedBy       string `json:"approved_by,omitempty"`
	ApprovedAt       string `json:"approved_at,omitempty"`
	RevokedBy        string `json:"revoked_by,omitempty"`
	RevokedAt        string `json:"revoked_at,omitempty"`
	RevocationReason string `json:"revocation_reason,omitempty"`

	BonusAmount               float64 `json:"bonus_amount"`
	Tjenestetorget            float64 `json:"tjenestetorget"`
	Bytt                      float64 `json:"bytt"`
	OtherDeductions           float64 `json:"other_deductions"`
	ApplyFivePercentDeduction bool    `json:"apply_five_percent_deduction"`
}

func toApprovalDTO(a approval.MonthlyApproval) ApprovalDTO {
	dto := ApprovalDTO{
		ID:                        a.ID,
		AgentName:                 a.AgentName,
		MonthYear:                 string(a.MonthYear),
		AgentCompany:              a.AgentCompany,
		OriginalCommission:        a.OriginalCommission.InexactFloat64(),
		ApprovedCommission:        a.ApprovedCommission.InexactFloat64(),
		ApprovalComment:           a.ApprovalComment,
		Approved:                  a.Approved,
		ManagerApproved:           a.ManagerApproved,
		AdminApproved:             a.AdminApproved,
		Revoked:                   a.Revoked,
		ApprovedBy:                a.ApprovedBy,
		RevokedBy:                 a.RevokedBy,
		RevocationReason:          a.RevocationReason,
		BonusAmount:               a.BonusAmount.InexactFloat64(),
		Tjenestetorget:            a.Tjenestetorget.InexactFloat64(),
		Bytt:                      a.Bytt.InexactFloat64(),
		OtherDeductions:           a.OtherDeductions.InexactFloat64(),
		ApplyFivePercentDeduction: a.ApplyFivePercentDeduction,
	}
	if !a.ApprovedAt.IsZero() {
		dto.ApprovedAt = a.ApprovedAt.UTC().Format(time.RFC3339)
	}
	if a.RevokedAt != nil {
		dto.RevokedAt = a.RevokedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// PERFORMANCE
// =============================================================================

type BreakdownDTO struct {
	LivCommission   float64 `json:"liv_commission"`
	SkadeCommission float64 `json:"skade_commission"`
	BaseCommission  float64 `json:"base_commission"`
	BonusEligible   bool    `json:"bonus_eligible"`
	BonusAmount     float64 `json:"bonus_amount"`
	TotalWithBonus  float64 `json:"total_with_bonus"`
	TenureApplied   bool    `json:"tenure_applied"`
	TenureDeduction float64 `json:"tenure_deduction"`
	Tjenestetorget  float64 `json:"tjenestetorget"`
	Bytt            float64 `json:"bytt"`
	OtherDeductions float64 `json:"other_deductions"`
	NetCommission   float64 `json:"net_commission"`
}

type AgentPerformanceDTO struct {
	AgentName    string  `json:"agent_name"`
	Office       string  `json:"office"`
	Month        string  `json:"month"`
	LivPremium   float64 `json:"liv_premium"`
	SkadePremium float64 `json:"skade_premium"`
	TotalPremium float64 `json:"total_premium"`
	LivCount     int     `json:"liv_count"`
	SkadeCount   int     `json:"skade_count"`
	TotalCount   int     `json:"total_count"`
	Rank         int     `json:"rank"`

	Breakdown BreakdownDTO `json:"breakdown"`

	ApprovalStatus     string  `json:"approval_status"`
	ApprovedCommission float64 `json:"approved_commission"`
	ApprovalComment    string  `json:"approval_comment,omitempty"`
	ApprovedBy         string  `json:"approved_by,omitempty"`
	ApprovedAt         string  `json:"approved_at,omitempty"`
}

type OfficeSummaryDTO struct {
	Office          string  `json:"office"`
	Month           string  `json:"month"`
	LivPremium      float64 `json:"liv_premium"`
	SkadePremium    float64 `json:"skade_premium"`
	TotalPremium    float64 `json:"total_premium"`
	LivCount        int     `json:"liv_count"`
	SkadeCount      int     `json:"skade_count"`
	TotalCount      int     `json:"total_count"`
	TotalCommission float64 `json:"total_commission"`
	ActiveAgents    int     `json:"active_agents"`
}

type PerformanceResponse struct {
	Month    string                `json:"month"`
	Offices  []OfficeSummaryDTO    `json:"offices"`
	Agents   []AgentPerformanceDTO `json:"agents"`
	Warnings []string              `json:"warnings,omitempty"`
}

func toPerformanceDTO(p commission.AgentPerformance) AgentPerformanceDTO {
	dto := AgentPerformanceDTO{
		AgentName:    p.AgentName,
		Office:       p.Office,
		Month:        string(p.Month),
		LivPremium:   p.LivPremium.InexactFloat64(),
		SkadePremium: p.SkadePremium.InexactFloat64(),
		TotalPremium: p.TotalPremium.InexactFloat64(),
		LivCount:     p.LivCount,
		SkadeCount:   p.SkadeCount,
		TotalCount:   p.TotalCount,
		Rank:         p.Rank,
		Breakdown: BreakdownDTO{
			LivCommission:   p.Breakdown.LivCommission.InexactFloat64(),
			SkadeCommission: p.Breakdown.SkadeCommission.InexactFloat64(),
			BaseCommission:  p.Breakdown.BaseCommission.InexactFloat64(),
			BonusEligible:   p.Breakdown.BonusEligible,
			BonusAmount:     p.Breakdown.BonusAmount.InexactFloat64(),
			TotalWithBonus:  p.Breakdown.TotalWithBonus.InexactFloat64(),
			TenureApplied:   p.Breakdown.TenureApplied,
			TenureDeduction: p.Breakdown.TenureDeduction.InexactFloat64(),
			Tjenestetorget:  p.Breakdown.Tjenestetorget.InexactFloat64(),
			Bytt:            p.Breakdown.Bytt.InexactFloat64(),
			OtherDeductions: p.Breakdown.OtherDeductions.InexactFloat64(),
			NetCommission:   p.Breakdown.NetCommission.InexactFloat64(),
		},
		ApprovalStatus:     string(p.Approval.Status),
		ApprovedCommission: p.Approval.ApprovedCommission.InexactFloat64(),
		ApprovalComment:    p.Approval.Comment,
		ApprovedBy:         p.Approval.ApprovedBy,
	}
	if p.Approval.ApprovedAt != nil {
		dto.ApprovedAt = p.Approval.ApprovedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toOfficeDTO(s commission.OfficeSummary) OfficeSummaryDTO {
	return OfficeSummaryDTO{
		Office:          s.Office,
		Month:           string(s.Month),
		LivPremium:      s.LivPremium.InexactFloat64(),
		SkadePremium:    s.SkadePremium.InexactFloat64(),
		TotalPremium:    s.TotalPremium.InexactFloat64(),
		LivCount:        s.LivCount,
		SkadeCount:      s.SkadeCount,
		TotalCount:      s.TotalCount,
		TotalCommission: s.TotalCommission.InexactFloat64(),
		ActiveAgents:    s.ActiveAgents,
	}
}

func toEmployeeDTO(e commission.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:              e.ID,
		Name:            e.Name,
		Office:          e.Office,
		Position:        e.Position,
		ExternalID:      e.ExternalID,
		SalaryModelID:   e.SalaryModelID,
		BaseSalary:      e.BaseSalary.InexactFloat64(),
		Tjenestetorget:  e.Tjenestetorget.InexactFloat64(),
		Bytt:            e.Bytt.InexactFloat64(),
		OtherDeductions: e.OtherDeductions.InexactFloat64(),
	}
	if e.HireDate != nil {
		dto.HireDate = e.HireDate.Format("2006-01-02")
	}
	if e.BonusOverride != nil {
		v := e.BonusOverride.InexactFloat64()
		dto.BonusOverride = &v
	}
	if e.ApplyTenureDeduction != nil {
		v := *e.ApplyTenureDeduction
		dto.ApplyTenureDeduction = &v
	}
	return dto
}
