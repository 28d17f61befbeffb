package overtime

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	cryptoutil "github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/crypto"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/querier"
)

type Store struct {
	DB     *pgxpool.Pool
	Crypto *cryptoutil.Service
}

func NewStore(db *pgxpool.Pool, crypto *cryptoutil.Service) *Store {
	return &Store{DB: db, Crypto: crypto}
}

const requestSelect = `
    SELECT r.id, r.employee_id, COALESCE(e.full_name, ''), COALESCE(e.email, ''),
           COALESCE(d.name, ''), COALESCE(ro.name, ''),
           r.week_start, r.week_end, r.total_hours, COALESCE(r.reason, ''), r.status,
           COALESCE(r.approver_id::text, ''), COALESCE(a.full_name, ''), COALESCE(r.approval_type, ''),
           r.admin_override, COALESCE(r.decided_by::text, ''), COALESCE(p.full_name, ''), r.decided_at,
           COALESCE(r.approver_comments, ''), r.submitted_at
    FROM overtime_requests r
    JOIN employees e ON r.employee_id = e.id
    LEFT JOIN divisions d ON e.division_id = d.id
    LEFT JOIN roles ro ON e.role_id = ro.id
    LEFT JOIN employees a ON r.approver_id = a.id
    LEFT JOIN employees p ON r.decided_by = p.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var req Request
	if err := row.Scan(
		&req.ID, &req.EmployeeID, &req.EmployeeName, &req.EmployeeEmail,
		&req.EmployeeDivision, &req.EmployeeRole,
		&req.WeekStart, &req.WeekEnd, &req.TotalHours, &req.Reason, &req.Status,
		&req.ApproverID, &req.ApproverName, &req.ApprovalType,
		&req.AdminOverride, &req.DecidedBy, &req.DecidedByName, &req.DecidedAt,
		&req.ApproverComments, &req.SubmittedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Store) collectRequests(ctx context.Context, query string, args ...any) ([]Request, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, s.attachEntries(ctx, out)
}

// attachEntries loads the dated entries for each request in one query.
func (s *Store) attachEntries(ctx context.Context, requests []Request) error {
	if len(requests) == 0 {
		return nil
	}
	ids := make([]string, len(requests))
	index := make(map[string]*Request, len(requests))
	for i := range requests {
		ids[i] = requests[i].ID
		index[requests[i].ID] = &requests[i]
	}

	rows, err := s.DB.Query(ctx, `
    SELECT request_id, work_date, hours, COALESCE(description, '')
    FROM overtime_entries
    WHERE request_id = ANY($1)
    ORDER BY work_date
  `, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var requestID string
		var entry Entry
		if err := rows.Scan(&requestID, &entry.Date, &entry.Hours, &entry.Description); err != nil {
			return err
		}
		if req, ok := index[requestID]; ok {
			req.Entries = append(req.Entries, entry)
		}
	}
	return rows.Err()
}

func (s *Store) GetRequest(ctx context.Context, requestID string) (*Request, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, requestSelect+` WHERE r.id = $1`, requestID))
	if err != nil {
		return nil, err
	}
	list := []Request{*req}
	if err := s.attachEntries(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *Store) ListByEmployee(ctx context.Context, employeeID, status string, limit int) ([]Request, error) {
	query := requestSelect + ` WHERE r.employee_id = $1`
	args := []any{employeeID}
	if status != "" {
		args = append(args, status)
		query += ` AND r.status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY r.submitted_at DESC`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	return s.collectRequests(ctx, query, args...)
}

func (s *Store) PendingForApprover(ctx context.Context, approverID string) ([]Request, error) {
	return s.collectRequests(ctx, requestSelect+`
    WHERE r.approver_id = $1 AND r.status = $2
    ORDER BY r.submitted_at DESC`, approverID, StatusPending)
}

func (s *Store) ListAll(ctx context.Context, status string, limit, offset int) ([]Request, int, error) {
	countQuery := `SELECT COUNT(1) FROM overtime_requests r WHERE 1=1`
	query := requestSelect + ` WHERE 1=1`
	var args []any
	if status != "" {
		args = append(args, status)
		cond := ` AND r.status = $` + strconv.Itoa(len(args))
		countQuery += cond
		query += cond
	}

	var total int
	if err := s.DB.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY r.submitted_at DESC`
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	args = append(args, offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	requests, err := s.collectRequests(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// BookedDates returns the employee's entry dates inside the span that
// are held by pending or approved requests. Rejected requests release
// their dates.
func (s *Store) BookedDates(ctx context.Context, employeeID string, start, end time.Time) ([]time.Time, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT DISTINCT oe.work_date
    FROM overtime_entries oe
    JOIN overtime_requests r ON oe.request_id = r.id
    WHERE r.employee_id = $1 AND oe.work_date >= $2 AND oe.work_date <= $3
      AND r.status IN ($4, $5)
  `, employeeID, start, end, StatusPending, StatusApproved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Balance reads the month's ledger, returning a zero row when none
// exists yet.
func (s *Store) Balance(ctx context.Context, employeeID, month string) (*Balance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT employee_id, month, approved_hours, paid_hours, balance_hours, last_reset_at, updated_at
    FROM overtime_balances
    WHERE employee_id = $1 AND month = $2
  `, employeeID, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return &Balance{EmployeeID: employeeID, Month: month}, nil
	}

	var bal Balance
	if err := rows.Scan(&bal.EmployeeID, &bal.Month, &bal.ApprovedHours, &bal.PaidHours, &bal.BalanceHours, &bal.LastResetAt, &bal.UpdatedAt); err != nil {
		return nil, err
	}
	return &bal, nil
}

// addToBalance credits approved hours to the month's ledger inside the
// caller's transaction.
func addToBalance(ctx context.Context, q querier.Querier, employeeID, month string, hours float64) error {
	_, err := q.Exec(ctx, `
    INSERT INTO overtime_balances (employee_id, month, approved_hours, paid_hours, balance_hours)
    VALUES ($1, $2, $3, 0, $3)
    ON CONFLICT (employee_id, month) DO UPDATE
      SET approved_hours = overtime_balances.approved_hours + EXCLUDED.approved_hours,
          balance_hours = overtime_balances.balance_hours + EXCLUDED.balance_hours,
          updated_at = now()
  `, employeeID, month, hours)
	return err
}

// MonthReport joins balances with employee data for payroll export.
// The overtime rate is decrypted per row; pay is rate times the
// outstanding balance.
func (s *Store) MonthReport(ctx context.Context, month, divisionID string) ([]ReportRow, error) {
	query := `
    SELECT b.employee_id, COALESCE(e.full_name, ''), COALESCE(e.email, ''),
           COALESCE(d.name, ''), COALESCE(ro.name, ''),
           b.approved_hours, b.paid_hours, b.balance_hours,
           e.overtime_rate, e.overtime_rate_enc
    FROM overtime_balances b
    JOIN employees e ON b.employee_id = e.id
    LEFT JOIN divisions d ON e.division_id = d.id
    LEFT JOIN roles ro ON e.role_id = ro.id
    WHERE b.month = $1
  `
	args := []any{month}
	if divisionID != "" {
		args = append(args, divisionID)
		query += ` AND e.division_id = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY e.full_name`

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var row ReportRow
		var ratePlain *float64
		var rateEnc []byte
		if err := rows.Scan(
			&row.EmployeeID, &row.EmployeeName, &row.EmployeeEmail,
			&row.Division, &row.Role,
			&row.ApprovedHours, &row.PaidHours, &row.BalanceHours,
			&ratePlain, &rateEnc,
		); err != nil {
			return nil, err
		}
		if rate := cryptoutil.DecryptFloatFallback(s.Crypto, rateEnc, ratePlain); rate != nil {
			row.OvertimeRate = *rate
		}
		row.CalculatedPay = row.BalanceHours * row.OvertimeRate
		out = append(out, row)
	}
	return out, rows.Err()
}
