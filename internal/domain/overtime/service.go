package overtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/approval"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/auth"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/org"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/metrics"
)

var (
	ErrRequestNotFound = errors.New("overtime request not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("request is not pending approval")
)

type Service struct {
	Store    *Store
	Org      *org.Store
	Resolver *approval.Resolver
}

func NewService(store *Store, orgStore *org.Store, resolver *approval.Resolver) *Service {
	return &Service{Store: store, Org: orgStore, Resolver: resolver}
}

type SubmitInput struct {
	EmployeeID string
	Entries    []Entry
	TotalHours float64
	Reason     string
}

type SubmitResult struct {
	RequestID    string
	WeekStart    time.Time
	WeekEnd      time.Time
	TotalHours   float64
	ApproverID   string
	ApproverName string
	ApprovalType string
}

// Submit validates the batch of entries, resolves the approver and
// persists the request with its entries in one transaction. Dates
// already held by a pending or approved request are rejected.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if _, err := s.Org.GetEmployee(ctx, in.EmployeeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, org.ErrEmployeeNotFound
		}
		return nil, err
	}

	entries := make([]Entry, len(in.Entries))
	for i, entry := range in.Entries {
		entry.Date = startOfDay(entry.Date)
		entries[i] = entry
	}

	resetState, err := s.Store.LastReset(ctx)
	if err != nil {
		return nil, err
	}
	var cutoff *time.Time
	if resetState != nil {
		day := startOfDay(resetState.LastResetDate)
		cutoff = &day
	}
	if err := CheckEntries(entries, in.TotalHours, startOfDay(time.Now()), cutoff); err != nil {
		return nil, err
	}

	start, end := Span(entries)
	booked, err := s.Store.BookedDates(ctx, in.EmployeeID, start, end)
	if err != nil {
		return nil, err
	}
	if conflicts := ConflictDates(entries, booked); len(conflicts) > 0 {
		return nil, conflictError(conflicts)
	}

	assignment, err := s.Resolver.Resolve(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}

	tx, err := s.Store.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var requestID string
	if err := tx.QueryRow(ctx, `
    INSERT INTO overtime_requests (employee_id, week_start, week_end, total_hours,
      reason, status, approver_id, approval_type)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, in.EmployeeID, start, end, in.TotalHours,
		nullable(in.Reason), StatusPending,
		assignment.Approver.ID, assignment.Type,
	).Scan(&requestID); err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if _, err := tx.Exec(ctx, `
      INSERT INTO overtime_entries (request_id, work_date, hours, description)
      VALUES ($1,$2,$3,$4)
    `, requestID, entry.Date, entry.Hours, nullable(entry.Description)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	metrics.OvertimeSubmissions.Inc()

	return &SubmitResult{
		RequestID:    requestID,
		WeekStart:    start,
		WeekEnd:      end,
		TotalHours:   in.TotalHours,
		ApproverID:   assignment.Approver.ID,
		ApproverName: assignment.Approver.FullName,
		ApprovalType: assignment.Type,
	}, nil
}

func (s *Service) Approve(ctx context.Context, requestID, actorEmployeeID, comments string) error {
	return s.decide(ctx, requestID, actorEmployeeID, comments, true)
}

func (s *Service) Reject(ctx context.Context, requestID, actorEmployeeID, comments string) error {
	return s.decide(ctx, requestID, actorEmployeeID, comments, false)
}

// decide moves a pending request to its terminal state. Approval
// credits the hours to the current month's balance ledger in the same
// transaction. The assigned approver may decide; an active admin may
// override, which is recorded on the request.
func (s *Service) decide(ctx context.Context, requestID, actorEmployeeID, comments string, approve bool) error {
	tx, err := s.Store.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var employeeID, status, approverID string
	var totalHours float64
	err = tx.QueryRow(ctx, `
    SELECT employee_id, total_hours, status, COALESCE(approver_id::text, '')
    FROM overtime_requests
    WHERE id = $1
    FOR UPDATE
  `, requestID).Scan(&employeeID, &totalHours, &status, &approverID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRequestNotFound
	}
	if err != nil {
		return err
	}
	if status != StatusPending {
		return ErrInvalidState
	}

	override := false
	if approverID != actorEmployeeID {
		actor, err := s.Org.GetEmployee(ctx, actorEmployeeID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrForbidden
		}
		if err != nil {
			return err
		}
		if !actor.IsActive || actor.AccessLevel != auth.LevelAdmin {
			return ErrForbidden
		}
		override = true
	}

	newStatus, decision := StatusApproved, "approved"
	if !approve {
		newStatus, decision = StatusRejected, "rejected"
	}

	if _, err := tx.Exec(ctx, `
    UPDATE overtime_requests
    SET status = $1, decided_by = $2, decided_at = now(), approver_comments = $3,
        admin_override = $4, updated_at = now()
    WHERE id = $5
  `, newStatus, actorEmployeeID, comments, override, requestID); err != nil {
		return err
	}

	if approve {
		month := time.Now().Format("2006-01")
		if err := addToBalance(ctx, tx, employeeID, month, totalHours); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	metrics.OvertimeDecisions.WithLabelValues(decision).Inc()
	return nil
}

func (s *Service) GetRequest(ctx context.Context, requestID string) (*Request, error) {
	req, err := s.Store.GetRequest(ctx, requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	return req, err
}

func (s *Service) EmployeeRequests(ctx context.Context, employeeID, status string, limit int) ([]Request, error) {
	return s.Store.ListByEmployee(ctx, employeeID, status, limit)
}

func (s *Service) PendingApprovals(ctx context.Context, approverEmployeeID string) ([]Request, error) {
	return s.Store.PendingForApprover(ctx, approverEmployeeID)
}

func (s *Service) AllRequests(ctx context.Context, status string, limit, offset int) ([]Request, int, error) {
	return s.Store.ListAll(ctx, status, limit, offset)
}

// MonthBalance returns the employee's ledger for the month, defaulting
// to the current one.
func (s *Service) MonthBalance(ctx context.Context, employeeID, month string) (*Balance, error) {
	month, err := normalizeMonth(month)
	if err != nil {
		return nil, err
	}
	return s.Store.Balance(ctx, employeeID, month)
}

// MonthlyReport builds the payroll export for the month, optionally
// narrowed to one division.
func (s *Service) MonthlyReport(ctx context.Context, month, divisionID string) ([]ReportRow, string, error) {
	month, err := normalizeMonth(month)
	if err != nil {
		return nil, "", err
	}
	rows, err := s.Store.MonthReport(ctx, month, divisionID)
	return rows, month, err
}

// ResetBalances closes out the month's ledgers for payroll. Admin
// action, typically run after the payroll export.
func (s *Service) ResetBalances(ctx context.Context, month string) (int, error) {
	month, err := normalizeMonth(month)
	if err != nil {
		return 0, err
	}
	count, err := s.Store.Reset(ctx, month)
	if err != nil {
		return 0, err
	}
	metrics.BalanceResets.WithLabelValues("overtime").Inc()
	return count, nil
}

func (s *Service) ResetInfo(ctx context.Context) (*ResetState, error) {
	return s.Store.LastReset(ctx)
}

func normalizeMonth(month string) (string, error) {
	if month == "" {
		return time.Now().Format("2006-01"), nil
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return "", fmt.Errorf("%w: month must be in YYYY-MM form", ErrInvalidRequest)
	}
	return month, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
