package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/approval"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/auth"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/org"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/config"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/metrics"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/storage"
)

var (
	ErrRequestNotFound = errors.New("leave request not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("request is not pending approval")
)

type Service struct {
	Store    *Store
	Org      *org.Store
	Resolver *approval.Resolver
	Files    storage.FileStore
	Cfg      config.Config
}

func NewService(store *Store, orgStore *org.Store, resolver *approval.Resolver, files storage.FileStore, cfg config.Config) *Service {
	return &Service{Store: store, Org: orgStore, Resolver: resolver, Files: files, Cfg: cfg}
}

type SubmitInput struct {
	EmployeeID       string
	LeaveType        string
	StartDate        time.Time
	EndDate          time.Time
	Reason           string
	EmergencyContact string
	Attachment       *Upload
}

type SubmitResult struct {
	RequestID    string
	WorkingDays  int
	ApproverID   string
	ApproverName string
	ApprovalType string
}

// Submit validates the request, resolves the approver and persists the
// pending request. For annual leave the quota row is locked and the
// day count moved into pending in the same transaction, so concurrent
// submissions cannot overdraw the pool.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	emp, err := s.Org.GetEmployee(ctx, in.EmployeeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, org.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	start := startOfDay(in.StartDate)
	end := startOfDay(in.EndDate)
	if err := CheckDates(start, end, startOfDay(now)); err != nil {
		return nil, err
	}
	workingDays := WorkingDays(start, end)
	if err := CheckTypeRules(in.LeaveType, workingDays, emp.Gender); err != nil {
		return nil, err
	}

	rule := TypeRules[in.LeaveType]
	if rule.MaxPerMonth > 0 {
		monthStart := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
		count, err := s.Store.MenstrualCountInMonth(ctx, in.EmployeeID, monthStart, monthStart.AddDate(0, 1, 0))
		if err != nil {
			return nil, err
		}
		if count >= rule.MaxPerMonth {
			return nil, fmt.Errorf("%w: maximum %d menstrual leave per month", ErrInvalidRequest, rule.MaxPerMonth)
		}
	}

	assignment, err := s.Resolver.Resolve(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}

	var attachmentKey, attachmentName string
	if in.Attachment != nil {
		if err := storage.ValidateFile(in.Attachment.FileName, in.Attachment.Size, s.Cfg.MaxUploadBytes); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		name := storage.SecureFilename(in.Attachment.FileName, in.EmployeeID, "leave", now)
		key := storage.ObjectKey("documents", "leave", in.EmployeeID, name)
		contentType := in.Attachment.ContentType
		if contentType == "" {
			contentType = storage.ContentTypeFor(name)
		}
		if err := s.Files.Upload(ctx, key, contentType, in.Attachment.Data); err != nil {
			return nil, fmt.Errorf("upload attachment: %w", err)
		}
		attachmentKey, attachmentName = key, in.Attachment.FileName
	}

	committed := false
	defer func() {
		if !committed && attachmentKey != "" {
			if err := s.Files.Delete(ctx, attachmentKey); err != nil {
				slog.Warn("orphan attachment cleanup failed", "key", attachmentKey, "err", err)
			}
		}
	}()

	tx, err := s.Store.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Quota bookkeeping is tied to the year the leave starts in.
	year := start.Year()
	if rule.HasQuota {
		join := now
		if emp.JoinDate != nil {
			join = *emp.JoinDate
		}
		if err := ensureQuota(ctx, tx, in.EmployeeID, year, QuotaForTenure(join, now)); err != nil {
			return nil, err
		}
		quota, err := getQuota(ctx, tx, in.EmployeeID, year, true)
		if err != nil {
			return nil, err
		}
		if workingDays > quota.Available() {
			return nil, fmt.Errorf("%w: insufficient leave balance, %d days available", ErrInvalidRequest, quota.Available())
		}
	}

	var requestID string
	if err := tx.QueryRow(ctx, `
    INSERT INTO leave_requests (employee_id, leave_type, start_date, end_date, working_days,
      reason, emergency_contact, status, approver_id, approval_type, attachment_key, attachment_name)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
    RETURNING id
  `, in.EmployeeID, in.LeaveType, start, end, workingDays,
		in.Reason, nullable(in.EmergencyContact), StatusPending,
		assignment.Approver.ID, assignment.Type,
		nullable(attachmentKey), nullable(attachmentName),
	).Scan(&requestID); err != nil {
		return nil, err
	}

	if rule.HasQuota {
		if _, err := tx.Exec(ctx, `
      UPDATE leave_quotas
      SET annual_pending = annual_pending + $1, updated_at = now()
      WHERE employee_id = $2 AND year = $3
    `, workingDays, in.EmployeeID, year); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true
	metrics.LeaveSubmissions.WithLabelValues(in.LeaveType).Inc()

	return &SubmitResult{
		RequestID:    requestID,
		WorkingDays:  workingDays,
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

// decide moves a pending request to its terminal state and reconciles
// the quota in one transaction. The assigned approver may decide; an
// active admin may override, which is recorded on the request.
func (s *Service) decide(ctx context.Context, requestID, actorEmployeeID, comments string, approve bool) error {
	tx, err := s.Store.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var employeeID, leaveType, status, approverID string
	var workingDays int
	var startDate time.Time
	err = tx.QueryRow(ctx, `
    SELECT employee_id, leave_type, start_date, working_days, status, COALESCE(approver_id::text, '')
    FROM leave_requests
    WHERE id = $1
    FOR UPDATE
  `, requestID).Scan(&employeeID, &leaveType, &startDate, &workingDays, &status, &approverID)
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
    UPDATE leave_requests
    SET status = $1, decided_by = $2, decided_at = now(), approver_comments = $3,
        admin_override = $4, updated_at = now()
    WHERE id = $5
  `, newStatus, actorEmployeeID, comments, override, requestID); err != nil {
		return err
	}

	if leaveType == TypeAnnual {
		year := startDate.Year()
		if approve {
			_, err = tx.Exec(ctx, `
        UPDATE leave_quotas
        SET annual_pending = GREATEST(annual_pending - $1, 0), annual_used = annual_used + $1, updated_at = now()
        WHERE employee_id = $2 AND year = $3
      `, workingDays, employeeID, year)
		} else {
			_, err = tx.Exec(ctx, `
        UPDATE leave_quotas
        SET annual_pending = GREATEST(annual_pending - $1, 0), updated_at = now()
        WHERE employee_id = $2 AND year = $3
      `, workingDays, employeeID, year)
		}
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	metrics.LeaveDecisions.WithLabelValues(decision).Inc()
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

func (s *Service) Statistics(ctx context.Context, employeeID string, year int) (*Stats, error) {
	return s.Store.Stats(ctx, employeeID, year)
}

// Quota returns the employee's allocation for the current year,
// creating it on first access based on tenure.
func (s *Service) Quota(ctx context.Context, employeeID string) (*Quota, error) {
	emp, err := s.Org.GetEmployee(ctx, employeeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, org.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	join := now
	if emp.JoinDate != nil {
		join = *emp.JoinDate
	}
	if err := ensureQuota(ctx, s.Store.DB, employeeID, now.Year(), QuotaForTenure(join, now)); err != nil {
		return nil, err
	}
	return getQuota(ctx, s.Store.DB, employeeID, now.Year(), false)
}

// ResetQuotas reallocates the annual pool for every active employee
// for the given year, zeroing used and pending. Admin action run at
// year rollover.
func (s *Service) ResetQuotas(ctx context.Context, year int) (int64, error) {
	tag, err := s.Store.DB.Exec(ctx, `
    INSERT INTO leave_quotas (employee_id, year, annual_quota, annual_used, annual_pending)
    SELECT e.id, $1,
           CASE WHEN (CURRENT_DATE - COALESCE(e.join_date, CURRENT_DATE)) / 30 > 12 THEN 14 ELSE 10 END,
           0, 0
    FROM employees e
    WHERE e.is_active
    ON CONFLICT (employee_id, year) DO UPDATE
      SET annual_quota = EXCLUDED.annual_quota, annual_used = 0, annual_pending = 0, updated_at = now()
  `, year)
	if err != nil {
		return 0, err
	}
	metrics.BalanceResets.WithLabelValues("leave_quota").Inc()
	return tag.RowsAffected(), nil
}

// AttachmentURL returns a signed link for the request's attachment.
// Callers fall back to DownloadAttachment when the store cannot sign.
func (s *Service) AttachmentURL(ctx context.Context, requestID string) (string, string, error) {
	key, name, err := s.attachment(ctx, requestID)
	if err != nil {
		return "", "", err
	}
	url, err := s.Files.SignedURL(ctx, key)
	return url, name, err
}

func (s *Service) DownloadAttachment(ctx context.Context, requestID string) ([]byte, string, string, error) {
	key, name, err := s.attachment(ctx, requestID)
	if err != nil {
		return nil, "", "", err
	}
	data, contentType, err := s.Files.Download(ctx, key)
	return data, contentType, name, err
}

func (s *Service) attachment(ctx context.Context, requestID string) (string, string, error) {
	key, name, err := s.Store.AttachmentKey(ctx, requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrRequestNotFound
	}
	if err != nil {
		return "", "", err
	}
	if key == "" {
		return "", "", storage.ErrNotFound
	}
	return key, name, nil
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
