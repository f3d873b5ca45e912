// Package memory provides an in-memory record store (for testing/dev).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vekst/commission-engine/approval"
	"github.com/vekst/commission-engine/commission"
)

// =============================================================================
// MEMORY STORE - Map-backed implementation of the record store
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	employees map[string]commission.Employee
	models    map[string]commission.SalaryModel
	sales     map[string]commission.SaleRecord
	approvals map[string]approval.MonthlyApproval // by record ID
}

var (
	_ approval.Store     = (*Store)(nil)
	_ approval.Directory = (*Store)(nil)
)

func New() *Store {
	return &Store{
		employees: make(map[string]commission.Employee),
		models:    make(map[string]commission.SalaryModel),
		sales:     make(map[string]commission.SaleRecord),
		approvals: make(map[string]approval.MonthlyApproval),
	}
}

// =============================================================================
// APPROVAL STORE
// =============================================================================

func (m *Store) FindActive(_ context.Context, agentName string, month commission.MonthYear) (*approval.MonthlyApproval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *approval.MonthlyApproval
	for id := range m.approvals {
		a := m.approvals[id]
		if a.Revoked || a.AgentName != agentName || a.MonthYear != month {
			continue
		}
		if found == nil || a.ApprovedAt.After(found.ApprovedAt) {
			copied := a
			found = &copied
		}
	}
	return found, nil
}

func (m *Store) ListForMonth(_ context.Context, office string, month commission.MonthYear) ([]approval.MonthlyApproval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []approval.MonthlyApproval
	for id := range m.approvals {
		a := m.approvals[id]
		if a.MonthYear != month {
			continue
		}
		if office != "" && a.AgentCompany != office {
			continue
		}
		out = append(out, a)
	}
	// Newest first, matching the sqlite store.
	sort.Slice(out, func(i, j int) bool { return out[i].ApprovedAt.After(out[j].ApprovedAt) })
	return out, nil
}

func (m *Store) Insert(_ context.Context, a *approval.MonthlyApproval) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.approvals[a.ID]; exists {
		return fmt.Errorf("approval %s already exists", a.ID)
	}
	if !a.Revoked {
		for _, existing := range m.approvals {
			if !existing.Revoked && existing.AgentName == a.AgentName && existing.MonthYear == a.MonthYear {
				return fmt.Errorf("non-revoked approval already exists for %s/%s", a.AgentName, a.MonthYear)
			}
		}
	}
	m.approvals[a.ID] = *a
	return nil
}

func (m *Store) Update(_ context.Context, a *approval.MonthlyApproval) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.approvals[a.ID]; !exists {
		return fmt.Errorf("approval %s not found", a.ID)
	}
	m.approvals[a.ID] = *a
	return nil
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

func (m *Store) EmployeeByID(_ context.Context, id string) (*commission.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if emp, ok := m.employees[id]; ok {
		return &emp, nil
	}
	return nil, nil
}

func (m *Store) EmployeeByName(_ context.Context, name string) (*commission.Employee, error) {
	return m.employeeMatching(func(e commission.Employee) bool { return e.Name == name })
}

func (m *Store) EmployeeByExternalID(_ context.Context, externalID string) (*commission.Employee, error) {
	return m.employeeMatching(func(e commission.Employee) bool {
		return e.ExternalID != "" && e.ExternalID == externalID
	})
}

func (m *Store) employeeMatching(match func(commission.Employee) bool) (*commission.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, emp := range m.employees {
		if match(emp) {
			copied := emp
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *Store) SaveEmployee(_ context.Context, emp commission.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = emp
	return nil
}

func (m *Store) ListEmployees(_ context.Context) ([]commission.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]commission.Employee, 0, len(m.employees))
	for _, emp := range m.employees {
		out = append(out, emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// =============================================================================
// SALARY MODELS AND SALES
// =============================================================================

func (m *Store) SaveSalaryModel(_ context.Context, model commission.SalaryModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models[model.ID] = model
	return nil
}

func (m *Store) ListSalaryModels(_ context.Context) ([]commission.SalaryModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]commission.SalaryModel, 0, len(m.models))
	for _, model := range m.models {
		out = append(out, model)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Store) SaveSale(_ context.Context, sale commission.SaleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales[sale.ID] = sale
	return nil
}

func (m *Store) ListSales(_ context.Context) ([]commission.SaleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]commission.SaleRecord, 0, len(m.sales))
	for _, sale := range m.sales {
		out = append(out, sale)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SaleDate.Before(out[j].SaleDate) })
	return out, nil
}
