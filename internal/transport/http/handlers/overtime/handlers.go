package overtimehandler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/approval"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/audit"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/auth"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/notifications"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/org"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/overtime"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/jobs"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/api"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/middleware"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/shared"
)

type Handler struct {
	Service *overtime.Service
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
	Jobs    *jobs.Service
	Idem    *middleware.IdempotencyStore
}

func NewHandler(service *overtime.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service, jobsSvc *jobs.Service, idem *middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc, Jobs: jobsSvc, Idem: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/overtime", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermOvertimeWrite, h.Perms)).Post("/requests", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermOvertimeRead, h.Perms)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermOvertimeApprove, h.Perms)).Get("/requests/pending", h.handlePendingApprovals)
		r.With(middleware.RequirePermission(auth.PermOvertimeRead, h.Perms)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermOvertimeApprove, h.Perms)).Post("/requests/{requestID}/approve", h.handleApprove)
		r.With(middleware.RequirePermission(auth.PermOvertimeApprove, h.Perms)).Post("/requests/{requestID}/reject", h.handleReject)
		r.With(middleware.RequirePermission(auth.PermOvertimeRead, h.Perms)).Get("/balance", h.handleBalance)
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/report", h.handleReport)
		r.With(middleware.RequirePermission(auth.PermOvertimeRead, h.Perms)).Get("/reset-info", h.handleResetInfo)
	})
	r.With(middleware.RequirePermission(auth.PermAdminReset, h.Perms)).Post("/admin/overtime/reset-balances", h.handleResetBalances)
}

type entryPayload struct {
	Date        string  `json:"date"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description"`
}

type submitPayload struct {
	Entries    []entryPayload `json:"entries"`
	TotalHours float64        `json:"totalHours"`
	Reason     string         `json:"reason"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	if len(payload.Entries) == 0 {
		v.Add("entries", "at least one entry is required")
	}
	entries := make([]overtime.Entry, 0, len(payload.Entries))
	for i, e := range payload.Entries {
		date, ok := v.Date(fmt.Sprintf("entries[%d].date", i), e.Date)
		if !ok {
			continue
		}
		entries = append(entries, overtime.Entry{
			Date:        date,
			Hours:       e.Hours,
			Description: strings.TrimSpace(e.Description),
		})
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	result, err := h.Service.Submit(r.Context(), overtime.SubmitInput{
		EmployeeID: user.EmployeeID,
		Entries:    entries,
		TotalHours: payload.TotalHours,
		Reason:     strings.TrimSpace(payload.Reason),
	})
	if err != nil {
		switch {
		case errors.Is(err, overtime.ErrInvalidRequest):
			api.Fail(w, http.StatusBadRequest, "invalid_request", err.Error(), middleware.GetRequestID(r.Context()))
		case errors.Is(err, approval.ErrNoApprover):
			api.Fail(w, http.StatusUnprocessableEntity, "no_approver", "no approver found, contact HR", middleware.GetRequestID(r.Context()))
		case errors.Is(err, org.ErrEmployeeNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "overtime_submit_failed", "failed to submit overtime request", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "overtime.request.submit", "overtime_request", result.RequestID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{
		"weekStart":  result.WeekStart.Format("2006-01-02"),
		"weekEnd":    result.WeekEnd.Format("2006-01-02"),
		"totalHours": result.TotalHours,
		"entries":    len(entries),
	}); err != nil {
		slog.Warn("audit overtime.request.submit failed", "err", err)
	}
	h.Notify.NotifyEmployee(r.Context(), result.ApproverID, notifications.TypeOvertimeSubmitted,
		"Overtime request awaiting approval",
		fmt.Sprintf("An overtime request for %.1f hour(s) (%s to %s) is awaiting your approval.",
			result.TotalHours, result.WeekStart.Format("2006-01-02"), result.WeekEnd.Format("2006-01-02")))

	api.Created(w, map[string]any{
		"id":           result.RequestID,
		"status":       overtime.StatusPending,
		"weekStart":    result.WeekStart.Format("2006-01-02"),
		"weekEnd":      result.WeekEnd.Format("2006-01-02"),
		"totalHours":   result.TotalHours,
		"approverId":   result.ApproverID,
		"approverName": result.ApproverName,
		"approvalType": result.ApprovalType,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	status := r.URL.Query().Get("status")
	employeeID := r.URL.Query().Get("employeeId")
	page := shared.ParsePagination(r, 100, 500)

	if employeeID == "" && user.AccessLevel == auth.LevelAdmin {
		requests, total, err := h.Service.AllRequests(r.Context(), status, page.Limit, page.Offset)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "overtime_requests_failed", "failed to list requests", middleware.GetRequestID(r.Context()))
			return
		}
		w.Header().Set("X-Total-Count", strconv.Itoa(total))
		api.Success(w, requests, middleware.GetRequestID(r.Context()))
		return
	}

	if employeeID == "" {
		employeeID = user.EmployeeID
	}
	if employeeID != user.EmployeeID {
		allowed, err := h.Perms.HasPermission(r.Context(), user.AccessLevel, auth.PermEmployeesRead)
		if err != nil || !allowed {
			api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", middleware.GetRequestID(r.Context()))
			return
		}
	}

	requests, err := h.Service.EmployeeRequests(r.Context(), employeeID, status, page.Limit)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "overtime_requests_failed", "failed to list requests", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, requests, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePendingApprovals(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	requests, err := h.Service.PendingApprovals(r.Context(), user.EmployeeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "overtime_requests_failed", "failed to list pending approvals", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, requests, middleware.GetRequestID(r.Context()))
}

func (h *Handler) canViewRequest(user auth.UserContext, req *overtime.Request) bool {
	if user.AccessLevel == auth.LevelAdmin {
		return true
	}
	return req.EmployeeID == user.EmployeeID || req.ApproverID == user.EmployeeID
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	requestID := chi.URLParam(r, "requestID")
	req, err := h.Service.GetRequest(r.Context(), requestID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "overtime request not found", middleware.GetRequestID(r.Context()))
		return
	}
	if !h.canViewRequest(user, req) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

type decisionPayload struct {
	Comments string `json:"comments"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, true)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, false)
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request, approve bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload decisionPayload
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
	}

	requestID := chi.URLParam(r, "requestID")
	var err error
	action, status := "overtime.request.approve", overtime.StatusApproved
	if approve {
		err = h.Service.Approve(r.Context(), requestID, user.EmployeeID, payload.Comments)
	} else {
		action, status = "overtime.request.reject", overtime.StatusRejected
		err = h.Service.Reject(r.Context(), requestID, user.EmployeeID, payload.Comments)
	}
	if err != nil {
		switch {
		case errors.Is(err, overtime.ErrRequestNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "overtime request not found", middleware.GetRequestID(r.Context()))
		case errors.Is(err, overtime.ErrInvalidState):
			api.Fail(w, http.StatusConflict, "already_decided", "request is not pending approval", middleware.GetRequestID(r.Context()))
		case errors.Is(err, overtime.ErrForbidden):
			api.Fail(w, http.StatusForbidden, "forbidden", "only the assigned approver can decide this request", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "overtime_decision_failed", "failed to record decision", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, action, "overtime_request", requestID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{"comments": payload.Comments}); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}

	if req, err := h.Service.GetRequest(r.Context(), requestID); err == nil {
		ntype, title := notifications.TypeOvertimeApproved, "Overtime approved"
		body := fmt.Sprintf("Your overtime request for %.1f hour(s) was approved.", req.TotalHours)
		if !approve {
			ntype, title = notifications.TypeOvertimeRejected, "Overtime rejected"
			body = fmt.Sprintf("Your overtime request for %.1f hour(s) was rejected.", req.TotalHours)
		}
		h.Notify.NotifyEmployee(r.Context(), req.EmployeeID, ntype, title, body)
	} else {
		slog.Warn("overtime decision notification lookup failed", "requestId", requestID, "err", err)
	}

	api.Success(w, map[string]string{"status": status}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := r.URL.Query().Get("employeeId")
	if employeeID == "" {
		employeeID = user.EmployeeID
	}
	if employeeID != user.EmployeeID {
		allowed, err := h.Perms.HasPermission(r.Context(), user.AccessLevel, auth.PermEmployeesRead)
		if err != nil || !allowed {
			api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", middleware.GetRequestID(r.Context()))
			return
		}
	}

	balance, err := h.Service.MonthBalance(r.Context(), employeeID, r.URL.Query().Get("month"))
	if err != nil {
		if errors.Is(err, overtime.ErrInvalidRequest) {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "balance_failed", "failed to load balance", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, balance, middleware.GetRequestID(r.Context()))
}

// handleReport serves the monthly payroll export, as JSON or as CSV
// when format=csv is requested.
func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	rows, month, err := h.Service.MonthlyReport(r.Context(), r.URL.Query().Get("month"), r.URL.Query().Get("divisionId"))
	if err != nil {
		if errors.Is(err, overtime.ErrInvalidRequest) {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build report", middleware.GetRequestID(r.Context()))
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=overtime-report-%s.csv", month))
		writer := csv.NewWriter(w)
		if err := writer.Write([]string{"employee_id", "name", "email", "division", "role", "approved_hours", "paid_hours", "balance_hours", "overtime_rate", "calculated_pay"}); err != nil {
			slog.Warn("overtime report header write failed", "err", err)
		}
		for _, row := range rows {
			record := []string{
				row.EmployeeID, row.EmployeeName, row.EmployeeEmail, row.Division, row.Role,
				fmt.Sprintf("%.2f", row.ApprovedHours),
				fmt.Sprintf("%.2f", row.PaidHours),
				fmt.Sprintf("%.2f", row.BalanceHours),
				fmt.Sprintf("%.2f", row.OvertimeRate),
				fmt.Sprintf("%.2f", row.CalculatedPay),
			}
			if err := writer.Write(record); err != nil {
				slog.Warn("overtime report row write failed", "err", err)
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			slog.Warn("overtime report flush failed", "err", err)
		}
		return
	}

	api.Success(w, map[string]any{"month": month, "rows": rows}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleResetInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.Service.ResetInfo(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "reset_info_failed", "failed to load reset state", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, info, middleware.GetRequestID(r.Context()))
}

type resetBalancesPayload struct {
	Month string `json:"month"`
}

// handleResetBalances absorbs every balance for the month into paid
// hours. Runs through the jobs service and honors Idempotency-Key.
func (h *Handler) handleResetBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1024))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	var payload resetBalancesPayload
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	requestHash := middleware.RequestHash(body)
	if idemKey != "" {
		stored, found, err := h.Idem.Check(r.Context(), user.UserID, "overtime.reset-balances", idemKey, requestHash)
		if err != nil {
			if errors.Is(err, middleware.ErrIdempotencyConflict) {
				api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different payload", middleware.GetRequestID(r.Context()))
				return
			}
			api.Fail(w, http.StatusInternalServerError, "idempotency_failed", "idempotency check failed", middleware.GetRequestID(r.Context()))
			return
		}
		if found {
			api.Success(w, json.RawMessage(stored), middleware.GetRequestID(r.Context()))
			return
		}
	}

	result, err := h.Jobs.RunNow(r.Context(), jobs.JobOvertimeReset, func(runCtx context.Context) (any, error) {
		count, err := h.Service.ResetBalances(runCtx, payload.Month)
		month := payload.Month
		if month == "" {
			month = time.Now().Format("2006-01")
		}
		return map[string]any{"updated": count, "month": month}, err
	})
	if err != nil {
		if errors.Is(err, overtime.ErrInvalidRequest) {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "balance_reset_failed", "failed to reset balances", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "overtime.balance.reset", "overtime_balance", "", middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, result); err != nil {
		slog.Warn("audit overtime.balance.reset failed", "err", err)
	}
	if idemKey != "" {
		response, marshalErr := json.Marshal(result)
		if marshalErr == nil {
			if err := h.Idem.Save(r.Context(), user.UserID, "overtime.reset-balances", idemKey, requestHash, response); err != nil {
				slog.Warn("idempotency save failed", "err", err)
			}
		}
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}
