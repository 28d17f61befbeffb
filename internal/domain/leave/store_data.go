package leave

import (
	"context"
	"strconv"
	"time"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/querier"
)

const requestSelect = `
    SELECT r.id, r.employee_id, COALESCE(e.full_name, ''), COALESCE(e.email, ''),
           COALESCE(d.name, ''), COALESCE(ro.name, ''),
           r.leave_type, r.start_date, r.end_date, r.working_days,
           COALESCE(r.reason, ''), COALESCE(r.emergency_contact, ''), r.status,
           COALESCE(r.approver_id::text, ''), COALESCE(a.full_name, ''), COALESCE(r.approval_type, ''),
           r.admin_override, COALESCE(r.decided_by::text, ''), COALESCE(p.full_name, ''), r.decided_at,
           COALESCE(r.approver_comments, ''), COALESCE(r.attachment_name, ''), r.submitted_at
    FROM leave_requests r
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
		&req.LeaveType, &req.StartDate, &req.EndDate, &req.WorkingDays,
		&req.Reason, &req.EmergencyContact, &req.Status,
		&req.ApproverID, &req.ApproverName, &req.ApprovalType,
		&req.AdminOverride, &req.DecidedBy, &req.DecidedByName, &req.DecidedAt,
		&req.ApproverComments, &req.AttachmentName, &req.SubmittedAt,
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
	return out, rows.Err()
}

func (s *Store) GetRequest(ctx context.Context, requestID string) (*Request, error) {
	row := s.DB.QueryRow(ctx, requestSelect+` WHERE r.id = $1`, requestID)
	return scanRequest(row)
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
	countQuery := `SELECT COUNT(1) FROM leave_requests r WHERE 1=1`
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

// MenstrualCountInMonth counts the employee's menstrual requests whose
// start date falls inside the month, any status.
func (s *Store) MenstrualCountInMonth(ctx context.Context, employeeID string, monthStart, nextMonth time.Time) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM leave_requests
    WHERE employee_id = $1 AND leave_type = $2 AND start_date >= $3 AND start_date < $4
  `, employeeID, TypeMenstrual, monthStart, nextMonth).Scan(&count)
	return count, err
}

func (s *Store) AttachmentKey(ctx context.Context, requestID string) (string, string, error) {
	var key, name string
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(attachment_key, ''), COALESCE(attachment_name, '')
    FROM leave_requests
    WHERE id = $1
  `, requestID).Scan(&key, &name)
	return key, name, err
}

// ensureQuota creates the year's quota row if missing, leaving an
// existing row untouched. Runs inside the caller's transaction when
// quota math follows.
func ensureQuota(ctx context.Context, q querier.Querier, employeeID string, year, allocation int) error {
	_, err := q.Exec(ctx, `
    INSERT INTO leave_quotas (employee_id, year, annual_quota)
    VALUES ($1, $2, $3)
    ON CONFLICT (employee_id, year) DO NOTHING
  `, employeeID, year, allocation)
	return err
}

func getQuota(ctx context.Context, q querier.Querier, employeeID string, year int, forUpdate bool) (*Quota, error) {
	query := `
    SELECT employee_id, year, annual_quota, annual_used, annual_pending, updated_at
    FROM leave_quotas
    WHERE employee_id = $1 AND year = $2
  `
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var quota Quota
	if err := q.QueryRow(ctx, query, employeeID, year).Scan(
		&quota.EmployeeID, &quota.Year, &quota.AnnualQuota, &quota.AnnualUsed, &quota.AnnualPending, &quota.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &quota, nil
}

func (s *Store) Stats(ctx context.Context, employeeID string, year int) (*Stats, error) {
	stats := &Stats{ByLeaveType: map[string]int{}}

	query := `
    SELECT status, leave_type, working_days
    FROM leave_requests
    WHERE EXTRACT(YEAR FROM start_date) = $1
  `
	args := []any{year}
	if employeeID != "" {
		args = append(args, employeeID)
		query += ` AND employee_id = $` + strconv.Itoa(len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status, leaveType string
		var workingDays int
		if err := rows.Scan(&status, &leaveType, &workingDays); err != nil {
			return nil, err
		}
		stats.TotalRequests++
		stats.ByLeaveType[leaveType]++
		switch status {
		case StatusApproved:
			stats.ApprovedRequests++
			stats.TotalDaysTaken += workingDays
		case StatusPending:
			stats.PendingRequests++
		case StatusRejected:
			stats.RejectedRequests++
		}
	}
	return stats, rows.Err()
}
