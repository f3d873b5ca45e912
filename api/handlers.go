/*
handlers.go - HTTP handlers for the commission system

PURPOSE:
  Exposes the commission engine and approval workflow over REST. Handlers
  parse and validate input, delegate to domain logic, and map domain errors
  onto HTTP status codes.

ENDPOINTS:
  Performance:
    GET  /api/performance?month=YYYY-MM[&office=X]   Full monthly snapshot

  Approvals:
    GET  /api/approvals?month=YYYY-MM[&office=X]     List approval records
    POST /api/approvals                              Approve a commission
    POST /api/approvals/revoke                       Revoke an approval

  Reference data (seeding):
    GET/POST /api/employees
    GET/POST /api/salary-models
    GET/POST /api/sales

ERROR HANDLING:
  400: validation errors, invalid month
  404: unresolvable agent, no approval to revoke
  500: store failures

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: router and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vekst/commission-engine/approval"
	"github.com/vekst/commission-engine/commission"
	"github.com/vekst/commission-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Approvals *approval.Service

	validate *validator.Validate
	logger   *log.Logger

	// now anchors tenure derivation; swappable for tests.
	now func() time.Time
}

// NewHandler creates a handler over the given store and approval service.
func NewHandler(store *sqlite.Store, approvals *approval.Service) *Handler {
	return &Handler{
		Store:     store,
		Approvals: approvals,
		validate:  validator.New(),
		logger:    log.Default(),
		now:       time.Now,
	}
}

// =============================================================================
// PERFORMANCE
// =============================================================================

// GetPerformance recomputes and returns the monthly snapshot: aggregation,
// engine run, reconciliation against persisted approvals, office rollup.
func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	month, err := commission.ParseMonthYear(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or missing month (use YYYY-MM)", err)
		return
	}
	office := r.URL.Query().Get("office")

	employees, err := h.Store.ListEmployees(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load employees", err)
		return
	}
	if office != "" {
		filtered := employees[:0]
		for _, e := range employees {
			if e.Office == office {
				filtered = append(filtered, e)
			}
		}
		employees = filtered
	}

	models, err := h.Store.ListSalaryModels(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load salary models", err)
		return
	}

	sales, err := h.Store.ListSales(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load sales", err)
		return
	}

	result, err := commission.Process(month, sales, employees, models, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Aggregation failed", err)
		return
	}
	for _, warn := range result.Warnings {
		h.logger.Printf("data quality: %s", warn)
	}

	approvals, err := h.Approvals.FetchApprovals(ctx, office, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load approvals", err)
		return
	}
	performances := approval.Reconcile(result.Performances, approvals)

	resp := PerformanceResponse{Month: string(month)}
	for _, o := range result.Offices {
		resp.Offices = append(resp.Offices, toOfficeDTO(o))
	}
	for _, p := range performances {
		resp.Agents = append(resp.Agents, toPerformanceDTO(p))
	}
	for _, warn := range result.Warnings {
		resp.Warnings = append(resp.Warnings, warn.String())
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// APPROVALS
// =============================================================================

// ListApprovals returns the month's approval records, through the cache.
func (h *Handler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	month, err := commission.ParseMonthYear(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or missing month (use YYYY-MM)", err)
		return
	}
	office := r.URL.Query().Get("office")

	records, err := h.Approvals.FetchApprovals(r.Context(), office, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load approvals", err)
		return
	}

	dtos := make([]ApprovalDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, toApprovalDTO(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveCommission runs the approve transition.
func (h *Handler) ApproveCommission(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	record, err := h.Approvals.Approve(r.Context(), approval.ApproveInput{
		Refs:     approval.RefsOf(req.AgentID, req.AgentName, req.AgentExternalID),
		Month:    commission.MonthYear(req.Month),
		Amount:   commission.Money(req.Amount),
		Comment:  req.Comment,
		IsAdmin:  req.IsAdmin,
		Original: commission.Money(req.OriginalCommission),
		Snapshot: approval.DeductionSnapshot{
			BonusAmount:               commission.Money(req.BonusAmount),
			Tjenestetorget:            commission.Money(req.Tjenestetorget),
			Bytt:                      commission.Money(req.Bytt),
			OtherDeductions:           commission.Money(req.OtherDeductions),
			ApplyFivePercentDeduction: req.ApplyFivePercentDeduction,
		},
	})
	if err != nil {
		writeDomainError(w, "Approval failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toApprovalDTO(*record))
}

// RevokeApproval runs the revoke transition.
func (h *Handler) RevokeApproval(w http.ResponseWriter, r *http.Request) {
	var req RevokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	record, err := h.Approvals.Revoke(r.Context(),
		approval.RefsOf(req.AgentID, req.AgentName, req.AgentExternalID),
		commission.MonthYear(req.Month), req.Reason)
	if err != nil {
		writeDomainError(w, "Revocation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toApprovalDTO(*record))
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}
	dtos := make([]EmployeeDTO, 0, len(employees))
	for _, e := range employees {
		dtos = append(dtos, toEmployeeDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveEmployee(w http.ResponseWriter, r *http.Request) {
	var req SaveEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	emp := commission.Employee{
		ID:              req.ID,
		Name:            req.Name,
		Office:          req.Office,
		Position:        req.Position,
		ExternalID:      req.ExternalID,
		SalaryModelID:   req.SalaryModelID,
		BaseSalary:      commission.Money(req.BaseSalary),
		Tjenestetorget:  commission.Money(req.Tjenestetorget),
		Bytt:            commission.Money(req.Bytt),
		OtherDeductions: commission.Money(req.OtherDeductions),
	}
	if req.HireDate != "" {
		t, _ := time.Parse("2006-01-02", req.HireDate)
		emp.HireDate = &t
	}
	if req.BonusOverride != nil {
		d := commission.Money(*req.BonusOverride)
		emp.BonusOverride = &d
	}
	emp.ApplyTenureDeduction = req.ApplyTenureDeduction

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

func (h *Handler) ListSalaryModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.Store.ListSalaryModels(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list salary models", err)
		return
	}
	dtos := make([]SalaryModelDTO, 0, len(models))
	for _, m := range models {
		dtos = append(dtos, SalaryModelDTO{
			ID:             m.ID,
			Name:           m.Name,
			LivRate:        m.LivRate.InexactFloat64(),
			SkadeRate:      m.SkadeRate.InexactFloat64(),
			BonusEnabled:   m.BonusEnabled,
			BonusThreshold: m.BonusThreshold.InexactFloat64(),
			BonusLivPct:    m.BonusLivPct.InexactFloat64(),
			BonusSkadePct:  m.BonusSkadePct.InexactFloat64(),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveSalaryModel(w http.ResponseWriter, r *http.Request) {
	var req SaveSalaryModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	model := commission.SalaryModel{
		ID:             req.ID,
		Name:           req.Name,
		LivRate:        commission.Money(req.LivRate),
		SkadeRate:      commission.Money(req.SkadeRate),
		BonusEnabled:   req.BonusEnabled,
		BonusThreshold: commission.Money(req.BonusThreshold),
		BonusLivPct:    commission.Money(req.BonusLivPct),
		BonusSkadePct:  commission.Money(req.BonusSkadePct),
	}
	if err := h.Store.SaveSalaryModel(r.Context(), model); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save salary model", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.Store.ListSales(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sales", err)
		return
	}
	dtos := make([]SaleDTO, 0, len(sales))
	for _, s := range sales {
		dtos = append(dtos, SaleDTO{
			ID:           s.ID,
			AgentName:    s.AgentName,
			NetPremium:   s.NetPremium.InexactFloat64(),
			ProductGroup: s.ProductGroup,
			SaleDate:     s.SaleDate.Format("2006-01-02"),
			Cancelled:    s.Cancelled,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveSale(w http.ResponseWriter, r *http.Request) {
	var req SaveSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	saleDate, _ := time.Parse("2006-01-02", req.SaleDate)
	sale := commission.SaleRecord{
		ID:           req.ID,
		AgentName:    req.AgentName,
		NetPremium:   commission.Money(req.NetPremium),
		ProductGroup: req.ProductGroup,
		SaleDate:     saleDate,
		Cancelled:    req.Cancelled,
	}
	if err := h.Store.SaveSale(r.Context(), sale); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps workflow errors onto status codes: missing targets
// are 404, other caller mistakes 400, everything else 500.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case approval.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case approval.IsClientError(err) || errors.Is(err, commission.ErrInvalidMonth):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
