package payslip

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const payslipSelect = `
    SELECT p.id, p.employee_id, COALESCE(e.full_name, ''), COALESCE(e.email, ''),
           COALESCE(d.name, ''), COALESCE(ro.name, ''), p.pay_period,
           p.basic_salary, p.overtime_pay, p.allowances, p.bonus, p.other_earnings,
           p.income_tax, p.bpjs_kesehatan, p.bpjs_ketenagakerjaan, p.loan_deduction, p.other_deductions,
           p.gross_salary, p.net_salary, p.status, COALESCE(p.notes, ''), COALESCE(p.pdf_key, ''),
           COALESCE(p.created_by::text, ''), p.paid_date, p.created_at, p.updated_at
    FROM payslips p
    JOIN employees e ON p.employee_id = e.id
    LEFT JOIN divisions d ON e.division_id = d.id
    LEFT JOIN roles ro ON e.role_id = ro.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayslip(row rowScanner) (*Payslip, error) {
	var p Payslip
	if err := row.Scan(
		&p.ID, &p.EmployeeID, &p.EmployeeName, &p.EmployeeEmail,
		&p.Division, &p.Role, &p.PayPeriod,
		&p.BasicSalary, &p.OvertimePay, &p.Allowances, &p.Bonus, &p.OtherEarnings,
		&p.IncomeTax, &p.BPJSKesehatan, &p.BPJSKetenagakerjaan, &p.LoanDeduction, &p.OtherDeductions,
		&p.GrossSalary, &p.NetSalary, &p.Status, &p.Notes, &p.PDFKey,
		&p.CreatedBy, &p.PaidDate, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) collect(ctx context.Context, query string, args ...any) ([]Payslip, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payslip
	for rows.Next() {
		p, err := scanPayslip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, payslipID string) (*Payslip, error) {
	return scanPayslip(s.DB.QueryRow(ctx, payslipSelect+` WHERE p.id = $1`, payslipID))
}

// PeriodExists reports whether a non-deleted payslip already covers the
// employee's pay period. A partial unique index backs this check.
func (s *Store) PeriodExists(ctx context.Context, employeeID, period string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM payslips
    WHERE employee_id = $1 AND pay_period = $2 AND status <> $3
  `, employeeID, period, StatusDeleted).Scan(&count)
	return count > 0, err
}

func (s *Store) Create(ctx context.Context, p *Payslip) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO payslips (employee_id, pay_period,
      basic_salary, overtime_pay, allowances, bonus, other_earnings,
      income_tax, bpjs_kesehatan, bpjs_ketenagakerjaan, loan_deduction, other_deductions,
      gross_salary, net_salary, status, notes, created_by, paid_date)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
    RETURNING id
  `, p.EmployeeID, p.PayPeriod,
		p.BasicSalary, p.OvertimePay, p.Allowances, p.Bonus, p.OtherEarnings,
		p.IncomeTax, p.BPJSKesehatan, p.BPJSKetenagakerjaan, p.LoanDeduction, p.OtherDeductions,
		p.GrossSalary, p.NetSalary, p.Status, p.Notes, nullIfEmpty(p.CreatedBy), p.PaidDate,
	).Scan(&id)
	return id, err
}

func (s *Store) ListByEmployee(ctx context.Context, employeeID string, limit int) ([]Payslip, error) {
	query := payslipSelect + ` WHERE p.employee_id = $1 AND p.status <> $2 ORDER BY p.pay_period DESC`
	args := []any{employeeID, StatusDeleted}
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	return s.collect(ctx, query, args...)
}

func (s *Store) ListByPeriod(ctx context.Context, period, divisionID string) ([]Payslip, error) {
	query := payslipSelect + ` WHERE p.pay_period = $1 AND p.status <> $2`
	args := []any{period, StatusDeleted}
	if divisionID != "" {
		args = append(args, divisionID)
		query += ` AND e.division_id = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY e.full_name`
	return s.collect(ctx, query, args...)
}

func (s *Store) UpdateStatus(ctx context.Context, payslipID, status, actorID string, paidDate *time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE payslips
    SET status = $1, paid_date = COALESCE($2, paid_date), updated_by = $3, updated_at = now()
    WHERE id = $4 AND status <> $5
  `, status, paidDate, nullIfEmpty(actorID), payslipID, StatusDeleted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) BulkUpdateStatus(ctx context.Context, payslipIDs []string, status, actorID string, paidDate *time.Time) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE payslips
    SET status = $1, paid_date = COALESCE($2, paid_date), updated_by = $3, updated_at = now()
    WHERE id = ANY($4) AND status <> $5
  `, status, paidDate, nullIfEmpty(actorID), payslipIDs, StatusDeleted)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// SoftDelete keeps the row for audit and hides it from every listing.
func (s *Store) SoftDelete(ctx context.Context, payslipID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE payslips
    SET status = $1, deleted_at = now(), updated_at = now()
    WHERE id = $2 AND status <> $1
  `, StatusDeleted, payslipID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) SetPDFKey(ctx context.Context, payslipID, key string) error {
	_, err := s.DB.Exec(ctx, `UPDATE payslips SET pdf_key = $1, updated_at = now() WHERE id = $2`, key, payslipID)
	return err
}

// StatsFor aggregates the year's payslips, optionally narrowed to one
// employee. Averages are derived by the caller.
func (s *Store) StatsFor(ctx context.Context, employeeID string, year int) (*Stats, error) {
	query := `
    SELECT COUNT(1),
           COALESCE(SUM(gross_salary), 0), COALESCE(SUM(net_salary), 0),
           COUNT(1) FILTER (WHERE status = $1), COUNT(1) FILTER (WHERE status = $2)
    FROM payslips
    WHERE status <> $3 AND pay_period LIKE $4
  `
	args := []any{StatusPaid, StatusPending, StatusDeleted, strconv.Itoa(year) + "-%"}
	if employeeID != "" {
		args = append(args, employeeID)
		query += ` AND employee_id = $` + strconv.Itoa(len(args))
	}

	var stats Stats
	if err := s.DB.QueryRow(ctx, query, args...).Scan(
		&stats.TotalPayslips, &stats.TotalGross, &stats.TotalNet, &stats.Paid, &stats.Pending,
	); err != nil {
		return nil, err
	}
	stats.TotalDeductions = stats.TotalGross - stats.TotalNet
	if stats.TotalPayslips > 0 {
		stats.AverageGross = stats.TotalGross / float64(stats.TotalPayslips)
		stats.AverageNet = stats.TotalNet / float64(stats.TotalPayslips)
	}
	return &stats, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
