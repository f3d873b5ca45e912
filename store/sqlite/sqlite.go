/*
Package sqlite provides the SQLite-backed record store.

PURPOSE:
  Implements persistence for employees, salary models, sale records, and
  monthly approval records. The approval workflow consumes it through the
  approval.Store and approval.Directory interfaces; the API layer uses the
  wider read/save surface for seeding and listing.

KEY TABLES:
  employees:          agent identity, hire date, per-agent overrides
  salary_models:      commission rate tables
  sales:              raw sale records (with cancellation marker)
  monthly_approvals:  manager/admin sign-off records

UNIQUENESS:
  A partial unique index enforces the core invariant at the storage level:
  at most one non-revoked approval per (agent_name, month_year). The
  workflow also upholds it by updating in place, but the index backstops
  concurrent writers.

MONEY:
  Decimal amounts are stored as TEXT and re-parsed, never as floats.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and WAL mode for better concurrent
  reads. With PostgreSQL, database-level concurrency control would replace
  this.

SEE ALSO:
  - approval/types.go: the interfaces this store implements
  - store/memory: the in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vekst/commission-engine/approval"
	"github.com/vekst/commission-engine/commission"
)

// Store implements the record store on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ approval.Store     = (*Store)(nil)
	_ approval.Directory = (*Store)(nil)
)

// New opens (or creates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		office TEXT NOT NULL DEFAULT '',
		position TEXT NOT NULL DEFAULT '',
		external_id TEXT,
		hire_date TEXT,
		salary_model_id TEXT NOT NULL DEFAULT '',
		base_salary TEXT NOT NULL DEFAULT '0',
		bonus_override TEXT,
		apply_tenure_deduction INTEGER,
		tjenestetorget TEXT NOT NULL DEFAULT '0',
		bytt TEXT NOT NULL DEFAULT '0',
		other_deductions TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_name ON employees(name);
	CREATE INDEX IF NOT EXISTS idx_employees_external ON employees(external_id)
		WHERE external_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_employees_office ON employees(office);

	CREATE TABLE IF NOT EXISTS salary_models (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		liv_rate TEXT NOT NULL DEFAULT '0',
		skade_rate TEXT NOT NULL DEFAULT '0',
		bonus_enabled INTEGER NOT NULL DEFAULT 0,
		bonus_threshold TEXT NOT NULL DEFAULT '0',
		bonus_liv_pct TEXT NOT NULL DEFAULT '0',
		bonus_skade_pct TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		agent_name TEXT NOT NULL,
		net_premium TEXT NOT NULL DEFAULT '0',
		product_group TEXT NOT NULL DEFAULT '',
		sale_date TEXT NOT NULL,
		cancelled INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sales_agent ON sales(agent_name);
	CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(sale_date);

	CREATE TABLE IF NOT EXISTS monthly_approvals (
		id TEXT PRIMARY KEY,
		agent_name TEXT NOT NULL,
		month_year TEXT NOT NULL,
		agent_company TEXT NOT NULL DEFAULT '',
		original_commission TEXT NOT NULL DEFAULT '0',
		approved_commission TEXT NOT NULL DEFAULT '0',
		approval_comment TEXT,
		approved INTEGER NOT NULL DEFAULT 0,
		manager_approved INTEGER NOT NULL DEFAULT 0,
		admin_approved INTEGER NOT NULL DEFAULT 0,
		revoked INTEGER NOT NULL DEFAULT 0,
		approved_by TEXT NOT NULL DEFAULT '',
		revoked_by TEXT NOT NULL DEFAULT '',
		approved_at TEXT NOT NULL,
		revoked_at TEXT,
		revocation_reason TEXT,
		bonus_amount TEXT NOT NULL DEFAULT '0',
		tjenestetorget TEXT NOT NULL DEFAULT '0',
		bytt TEXT NOT NULL DEFAULT '0',
		other_deductions TEXT NOT NULL DEFAULT '0',
		apply_five_percent_deduction INTEGER NOT NULL DEFAULT 0
	);

	-- CRITICAL: at most one non-revoked approval per (agent_name, month_year)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_approvals_active
		ON monthly_approvals(agent_name, month_year)
		WHERE revoked = 0;

	CREATE INDEX IF NOT EXISTS idx_approvals_month
		ON monthly_approvals(month_year);
	CREATE INDEX IF NOT EXISTS idx_approvals_company_month
		ON monthly_approvals(agent_company, month_year);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// APPROVAL STORE (approval.Store interface)
// =============================================================================

const approvalColumns = `id, agent_name, month_year, agent_company,
	original_commission, approved_commission, approval_comment,
	approved, manager_approved, admin_approved, revoked,
	approved_by, revoked_by, approved_at, revoked_at, revocation_reason,
	bonus_amount, tjenestetorget, bytt, other_deductions,
	apply_five_percent_deduction`

// FindActive returns the non-revoked record for (agentName, month), or nil.
// Should duplicates ever exist, the greatest approved_at wins; that is
// read-side disambiguation only, never write conflict resolution.
func (s *Store) FindActive(ctx context.Context, agentName string, month commission.MonthYear) (*approval.MonthlyApproval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + approvalColumns + `
		FROM monthly_approvals
		WHERE agent_name = ? AND month_year = ? AND revoked = 0
		ORDER BY approved_at DESC
		LIMIT 1
	`

	rows, err := s.queryApprovals(ctx, query, agentName, string(month))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ListForMonth returns all records for a month, newest first. An empty
// office matches every office.
func (s *Store) ListForMonth(ctx context.Context, office string, month commission.MonthYear) ([]approval.MonthlyApproval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if office == "" {
		query := `
			SELECT ` + approvalColumns + `
			FROM monthly_approvals
			WHERE month_year = ?
			ORDER BY approved_at DESC
		`
		return s.queryApprovals(ctx, query, string(month))
	}

	query := `
		SELECT ` + approvalColumns + `
		FROM monthly_approvals
		WHERE agent_company = ? AND month_year = ?
		ORDER BY approved_at DESC
	`
	return s.queryApprovals(ctx, query, office, string(month))
}

// Insert persists a new approval record.
func (s *Store) Insert(ctx context.Context, a *approval.MonthlyApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO monthly_approvals (` + approvalColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.AgentName, string(a.MonthYear), a.AgentCompany,
		a.OriginalCommission.String(), a.ApprovedCommission.String(),
		nullString(a.ApprovalComment),
		a.Approved, a.ManagerApproved, a.AdminApproved, a.Revoked,
		a.ApprovedBy, a.RevokedBy,
		a.ApprovedAt.UTC().Format(time.RFC3339),
		nullTimeString(a.RevokedAt),
		nullString(a.RevocationReason),
		a.BonusAmount.String(), a.Tjenestetorget.String(),
		a.Bytt.String(), a.OtherDeductions.String(),
		a.ApplyFivePercentDeduction,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("non-revoked approval already exists for %s/%s: %w", a.AgentName, a.MonthYear, err)
		}
		return fmt.Errorf("failed to insert approval: %w", err)
	}
	return nil
}

// Update rewrites the record identified by a.ID in place.
func (s *Store) Update(ctx context.Context, a *approval.MonthlyApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE monthly_approvals SET
			agent_name = ?, month_year = ?, agent_company = ?,
			original_commission = ?, approved_commission = ?, approval_comment = ?,
			approved = ?, manager_approved = ?, admin_approved = ?, revoked = ?,
			approved_by = ?, revoked_by = ?, approved_at = ?, revoked_at = ?,
			revocation_reason = ?,
			bonus_amount = ?, tjenestetorget = ?, bytt = ?, other_deductions = ?,
			apply_five_percent_deduction = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		a.AgentName, string(a.MonthYear), a.AgentCompany,
		a.OriginalCommission.String(), a.ApprovedCommission.String(),
		nullString(a.ApprovalComment),
		a.Approved, a.ManagerApproved, a.AdminApproved, a.Revoked,
		a.ApprovedBy, a.RevokedBy,
		a.ApprovedAt.UTC().Format(time.RFC3339),
		nullTimeString(a.RevokedAt),
		nullString(a.RevocationReason),
		a.BonusAmount.String(), a.Tjenestetorget.String(),
		a.Bytt.String(), a.OtherDeductions.String(),
		a.ApplyFivePercentDeduction,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update approval %s: %w", a.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("approval %s not found", a.ID)
	}
	return nil
}

func (s *Store) queryApprovals(ctx context.Context, query string, args ...any) ([]approval.MonthlyApproval, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer rows.Close()

	var approvals []approval.MonthlyApproval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}

func scanApproval(rows *sql.Rows) (approval.MonthlyApproval, error) {
	var (
		a                        approval.MonthlyApproval
		monthYear                string
		originalStr, approvedStr string
		comment                  sql.NullString
		approvedAt               string
		revokedAt                sql.NullString
		revocationReason         sql.NullString
		bonusStr, tjenStr        string
		byttStr, otherStr        string
	)

	err := rows.Scan(
		&a.ID, &a.AgentName, &monthYear, &a.AgentCompany,
		&originalStr, &approvedStr, &comment,
		&a.Approved, &a.ManagerApproved, &a.AdminApproved, &a.Revoked,
		&a.ApprovedBy, &a.RevokedBy, &approvedAt, &revokedAt, &revocationReason,
		&bonusStr, &tjenStr, &byttStr, &otherStr,
		&a.ApplyFivePercentDeduction,
	)
	if err != nil {
		return a, fmt.Errorf("failed to scan approval: %w", err)
	}

	a.MonthYear = commission.MonthYear(monthYear)
	a.OriginalCommission = commission.MustParseMoney(originalStr)
	a.ApprovedCommission = commission.MustParseMoney(approvedStr)
	a.ApprovalComment = comment.String
	a.RevocationReason = revocationReason.String
	a.ApprovedAt, _ = time.Parse(time.RFC3339, approvedAt)
	if revokedAt.Valid {
		t, _ := time.Parse(time.RFC3339, revokedAt.String)
		a.RevokedAt = &t
	}
	a.BonusAmount = commission.MustParseMoney(bonusStr)
	a.Tjenestetorget = commission.MustParseMoney(tjenStr)
	a.Bytt = commission.MustParseMoney(byttStr)
	a.OtherDeductions = commission.MustParseMoney(otherStr)

	return a, nil
}

// =============================================================================
// EMPLOYEE DIRECTORY (approval.Directory interface)
// =============================================================================

const employeeColumns = `id, name, office, position, external_id, hire_date,
	salary_model_id, base_salary, bonus_override, apply_tenure_deduction,
	tjenestetorget, bytt, other_deductions`

// EmployeeByID looks an employee up by primary id; nil when absent.
func (s *Store) EmployeeByID(ctx context.Context, id string) (*commission.Employee, error) {
	return s.employeeWhere(ctx, "id = ?", id)
}

// EmployeeByName looks an employee up by agent name; nil when absent.
func (s *Store) EmployeeByName(ctx context.Context, name string) (*commission.Employee, error) {
	return s.employeeWhere(ctx, "name = ?", name)
}

// EmployeeByExternalID looks an employee up by external agent id; nil when
// absent.
func (s *Store) EmployeeByExternalID(ctx context.Context, externalID string) (*commission.Employee, error) {
	return s.employeeWhere(ctx, "external_id = ?", externalID)
}

func (s *Store) employeeWhere(ctx context.Context, where string, arg any) (*commission.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + employeeColumns + " FROM employees WHERE " + where + " LIMIT 1"
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	emp, err := scanEmployee(rows)
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// SaveEmployee inserts or updates an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp commission.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (` + employeeColumns + `, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			office = excluded.office,
			position = excluded.position,
			external_id = excluded.external_id,
			hire_date = excluded.hire_date,
			salary_model_id = excluded.salary_model_id,
			base_salary = excluded.base_salary,
			bonus_override = excluded.bonus_override,
			apply_tenure_deduction = excluded.apply_tenure_deduction,
			tjenestetorget = excluded.tjenestetorget,
			bytt = excluded.bytt,
			other_deductions = excluded.other_deductions
	`

	var bonusOverride *string
	if emp.BonusOverride != nil {
		v := emp.BonusOverride.String()
		bonusOverride = &v
	}
	var applyTenure *bool
	if emp.ApplyTenureDeduction != nil {
		v := *emp.ApplyTenureDeduction
		applyTenure = &v
	}
	var hireDate *string
	if emp.HireDate != nil {
		v := emp.HireDate.UTC().Format(time.RFC3339)
		hireDate = &v
	}

	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Office, emp.Position,
		nullString(emp.ExternalID), hireDate,
		emp.SalaryModelID, emp.BaseSalary.String(), bonusOverride, applyTenure,
		emp.Tjenestetorget.String(), emp.Bytt.String(), emp.OtherDeductions.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListEmployees returns all employees ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]commission.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + employeeColumns + " FROM employees ORDER BY name"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []commission.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

func scanEmployee(rows *sql.Rows) (commission.Employee, error) {
	var (
		emp           commission.Employee
		externalID    sql.NullString
		hireDate      sql.NullString
		baseSalary    string
		bonusOverride sql.NullString
		applyTenure   sql.NullBool
		tjen, bytt    string
		other         string
	)

	err := rows.Scan(
		&emp.ID, &emp.Name, &emp.Office, &emp.Position, &externalID, &hireDate,
		&emp.SalaryModelID, &baseSalary, &bonusOverride, &applyTenure,
		&tjen, &bytt, &other,
	)
	if err != nil {
		return emp, fmt.Errorf("failed to scan employee: %w", err)
	}

	emp.ExternalID = externalID.String
	if hireDate.Valid {
		if t, err := time.Parse(time.RFC3339, hireDate.String); err == nil {
			emp.HireDate = &t
		}
	}
	emp.BaseSalary = commission.MustParseMoney(baseSalary)
	if bonusOverride.Valid {
		d := commission.MustParseMoney(bonusOverride.String)
		emp.BonusOverride = &d
	}
	if applyTenure.Valid {
		v := applyTenure.Bool
		emp.ApplyTenureDeduction = &v
	}
	emp.Tjenestetorget = commission.MustParseMoney(tjen)
	emp.Bytt = commission.MustParseMoney(bytt)
	emp.OtherDeductions = commission.MustParseMoney(other)

	return emp, nil
}

// =============================================================================
// SALARY MODELS
// =============================================================================

// SaveSalaryModel inserts or updates a rate table.
func (s *Store) SaveSalaryModel(ctx context.Context, m commission.SalaryModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO salary_models
			(id, name, liv_rate, skade_rate, bonus_enabled, bonus_threshold,
			 bonus_liv_pct, bonus_skade_pct, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			liv_rate = excluded.liv_rate,
			skade_rate = excluded.skade_rate,
			bonus_enabled = excluded.bonus_enabled,
			bonus_threshold = excluded.bonus_threshold,
			bonus_liv_pct = excluded.bonus_liv_pct,
			bonus_skade_pct = excluded.bonus_skade_pct
	`

	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.Name, m.LivRate.String(), m.SkadeRate.String(),
		m.BonusEnabled, m.BonusThreshold.String(),
		m.BonusLivPct.String(), m.BonusSkadePct.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListSalaryModels returns all rate tables ordered by name.
func (s *Store) ListSalaryModels(ctx context.Context) ([]commission.SalaryModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, liv_rate, skade_rate, bonus_enabled, bonus_threshold,
		       bonus_liv_pct, bonus_skade_pct
		FROM salary_models ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query salary models: %w", err)
	}
	defer rows.Close()

	var models []commission.SalaryModel
	for rows.Next() {
		var (
			m                  commission.SalaryModel
			livRate, skadeRate string
			threshold, livPct  string
			skadePct           string
		)
		if err := rows.Scan(&m.ID, &m.Name, &livRate, &skadeRate,
			&m.BonusEnabled, &threshold, &livPct, &skadePct); err != nil {
			return nil, fmt.Errorf("failed to scan salary model: %w", err)
		}
		m.LivRate = commission.MustParseMoney(livRate)
		m.SkadeRate = commission.MustParseMoney(skadeRate)
		m.BonusThreshold = commission.MustParseMoney(threshold)
		m.BonusLivPct = commission.MustParseMoney(livPct)
		m.BonusSkadePct = commission.MustParseMoney(skadePct)
		models = append(models, m)
	}
	return models, rows.Err()
}

// =============================================================================
// SALES
// =============================================================================

// SaveSale inserts or updates a sale record.
func (s *Store) SaveSale(ctx context.Context, sale commission.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO sales (id, agent_name, net_premium, product_group, sale_date, cancelled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			agent_name = excluded.agent_name,
			net_premium = excluded.net_premium,
			product_group = excluded.product_group,
			sale_date = excluded.sale_date,
			cancelled = excluded.cancelled
	`

	_, err := s.db.ExecContext(ctx, query,
		sale.ID, sale.AgentName, sale.NetPremium.String(), sale.ProductGroup,
		sale.SaleDate.UTC().Format(time.RFC3339), sale.Cancelled,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListSales returns every stored sale record. Month filtering happens in
// the aggregation pass, which also drops cancelled records.
func (s *Store) ListSales(ctx context.Context) ([]commission.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_name, net_premium, product_group, sale_date, cancelled
		FROM sales ORDER BY sale_date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []commission.SaleRecord
	for rows.Next() {
		var (
			sale     commission.SaleRecord
			premium  string
			saleDate string
		)
		if err := rows.Scan(&sale.ID, &sale.AgentName, &premium,
			&sale.ProductGroup, &saleDate, &sale.Cancelled); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sale.NetPremium = commission.MustParseMoney(premium)
		sale.SaleDate, _ = time.Parse(time.RFC3339, saleDate)
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"monthly_approvals", "sales", "employees", "salary_models"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullTimeString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(time.RFC3339)
	return &v
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
