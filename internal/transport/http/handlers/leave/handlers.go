package leavehandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/approval"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/audit"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/auth"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/leave"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/notifications"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/org"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/jobs"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/storage"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/api"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/middleware"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/shared"
)

const maxLeaveMultipartBytes = 12 * 1024 * 1024

type Handler struct {
	Service *leave.Service
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
	Jobs    *jobs.Service
	Idem    *middleware.IdempotencyStore
}

func NewHandler(service *leave.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service, jobsSvc *jobs.Service, idem *middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc, Jobs: jobsSvc, Idem: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Get("/requests/pending", h.handlePendingApprovals)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve", h.handleApprove)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/reject", h.handleReject)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}/attachment", h.handleAttachment)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/quota", h.handleQuota)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/stats", h.handleStats)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/types", h.handleListTypes)
	})
	r.With(middleware.RequirePermission(auth.PermAdminReset, h.Perms)).Post("/admin/leave/reset-quotas", h.handleResetQuotas)
}

type submitPayload struct {
	LeaveType        string `json:"leaveType"`
	StartDate        string `json:"startDate"`
	EndDate          string `json:"endDate"`
	Reason           string `json:"reason"`
	EmergencyContact string `json:"emergencyContact"`
}

func decodeSubmitPayload(r *http.Request) (submitPayload, *leave.Upload, error) {
	contentType := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var payload submitPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return submitPayload{}, nil, errors.New("invalid request payload")
		}
		return payload, nil, nil
	}

	if err := r.ParseMultipartForm(maxLeaveMultipartBytes); err != nil {
		return submitPayload{}, nil, errors.New("invalid multipart payload")
	}
	payload := submitPayload{
		LeaveType:        strings.TrimSpace(r.FormValue("leaveType")),
		StartDate:        strings.TrimSpace(r.FormValue("startDate")),
		EndDate:          strings.TrimSpace(r.FormValue("endDate")),
		Reason:           strings.TrimSpace(r.FormValue("reason")),
		EmergencyContact: strings.TrimSpace(r.FormValue("emergencyContact")),
	}

	files := r.MultipartForm.File["attachment"]
	if len(files) == 0 {
		return payload, nil, nil
	}
	header := files[0]
	file, err := header.Open()
	if err != nil {
		return submitPayload{}, nil, errors.New("failed to open attachment")
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxLeaveMultipartBytes))
	if err != nil {
		return submitPayload{}, nil, errors.New("failed to read attachment")
	}

	name := strings.TrimSpace(filepath.Base(header.Filename))
	upload := &leave.Upload{
		FileName:    name,
		ContentType: strings.TrimSpace(header.Header.Get("Content-Type")),
		Size:        int64(len(data)),
		Data:        data,
	}
	return payload, upload, nil
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	payload, upload, err := decodeSubmitPayload(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("leaveType", payload.LeaveType, "leave type is required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	result, err := h.Service.Submit(r.Context(), leave.SubmitInput{
		EmployeeID:       user.EmployeeID,
		LeaveType:        payload.LeaveType,
		StartDate:        start,
		EndDate:          end,
		Reason:           payload.Reason,
		EmergencyContact: payload.EmergencyContact,
		Attachment:       upload,
	})
	if err != nil {
		switch {
		case errors.Is(err, leave.ErrInvalidRequest):
			api.Fail(w, http.StatusBadRequest, "invalid_request", err.Error(), middleware.GetRequestID(r.Context()))
		case errors.Is(err, approval.ErrNoApprover):
			api.Fail(w, http.StatusUnprocessableEntity, "no_approver", "no approver found, contact HR", middleware.GetRequestID(r.Context()))
		case errors.Is(err, org.ErrEmployeeNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "leave_submit_failed", "failed to submit leave request", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "leave.request.submit", "leave_request", result.RequestID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{
		"leaveType":   payload.LeaveType,
		"startDate":   payload.StartDate,
		"endDate":     payload.EndDate,
		"workingDays": result.WorkingDays,
	}); err != nil {
		slog.Warn("audit leave.request.submit failed", "err", err)
	}
	h.Notify.NotifyEmployee(r.Context(), result.ApproverID, notifications.TypeLeaveSubmitted,
		"Leave request awaiting approval",
		fmt.Sprintf("A %s request for %d working day(s) is awaiting your approval.", payload.LeaveType, result.WorkingDays))

	api.Created(w, map[string]any{
		"id":           result.RequestID,
		"status":       leave.StatusPending,
		"workingDays":  result.WorkingDays,
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
			api.Fail(w, http.StatusInternalServerError, "leave_requests_failed", "failed to list requests", middleware.GetRequestID(r.Context()))
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
		api.Fail(w, http.StatusInternalServerError, "leave_requests_failed", "failed to list requests", middleware.GetRequestID(r.Context()))
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
		api.Fail(w, http.StatusInternalServerError, "leave_requests_failed", "failed to list pending approvals", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, requests, middleware.GetRequestID(r.Context()))
}

func (h *Handler) canViewRequest(user auth.UserContext, req *leave.Request) bool {
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
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", middleware.GetRequestID(r.Context()))
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
	action, status := "leave.request.approve", leave.StatusApproved
	if approve {
		err = h.Service.Approve(r.Context(), requestID, user.EmployeeID, payload.Comments)
	} else {
		action, status = "leave.request.reject", leave.StatusRejected
		err = h.Service.Reject(r.Context(), requestID, user.EmployeeID, payload.Comments)
	}
	if err != nil {
		switch {
		case errors.Is(err, leave.ErrRequestNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", middleware.GetRequestID(r.Context()))
		case errors.Is(err, leave.ErrInvalidState):
			api.Fail(w, http.StatusConflict, "already_decided", "request is not pending approval", middleware.GetRequestID(r.Context()))
		case errors.Is(err, leave.ErrForbidden):
			api.Fail(w, http.StatusForbidden, "forbidden", "only the assigned approver can decide this request", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "leave_decision_failed", "failed to record decision", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, action, "leave_request", requestID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{"comments": payload.Comments}); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}

	if req, err := h.Service.GetRequest(r.Context(), requestID); err == nil {
		ntype, title := notifications.TypeLeaveApproved, "Leave approved"
		body := fmt.Sprintf("Your %s request was approved.", req.LeaveType)
		if !approve {
			ntype, title = notifications.TypeLeaveRejected, "Leave rejected"
			body = fmt.Sprintf("Your %s request was rejected.", req.LeaveType)
		}
		h.Notify.NotifyEmployee(r.Context(), req.EmployeeID, ntype, title, body)
	} else {
		slog.Warn("leave decision notification lookup failed", "requestId", requestID, "err", err)
	}

	api.Success(w, map[string]string{"status": status}, middleware.GetRequestID(r.Context()))
}

// handleAttachment hands out a short-lived link when the backend can
// mint one, otherwise streams the file.
func (h *Handler) handleAttachment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	requestID := chi.URLParam(r, "requestID")
	req, err := h.Service.GetRequest(r.Context(), requestID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", middleware.GetRequestID(r.Context()))
		return
	}
	if !h.canViewRequest(user, req) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}

	url, name, err := h.Service.AttachmentURL(r.Context(), requestID)
	if err == nil {
		api.Success(w, map[string]string{"url": url, "fileName": name}, middleware.GetRequestID(r.Context()))
		return
	}
	if !errors.Is(err, storage.ErrSignedURLUnsupported) {
		if errors.Is(err, leave.ErrRequestNotFound) || errors.Is(err, storage.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "attachment not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "attachment_failed", "failed to load attachment", middleware.GetRequestID(r.Context()))
		return
	}

	data, contentType, name, err := h.Service.DownloadAttachment(r.Context(), requestID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "attachment not found", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Warn("attachment download write failed", "requestId", requestID, "err", err)
	}
}

func (h *Handler) handleQuota(w http.ResponseWriter, r *http.Request) {
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

	quota, err := h.Service.Quota(r.Context(), employeeID)
	if err != nil {
		if errors.Is(err, org.ErrEmployeeNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "quota_failed", "failed to load quota", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"employeeId": quota.EmployeeID,
		"year":       quota.Year,
		"quota":      quota.AnnualQuota,
		"used":       quota.AnnualUsed,
		"pending":    quota.AnnualPending,
		"available":  quota.Available(),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
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

	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid year", middleware.GetRequestID(r.Context()))
			return
		}
		year = parsed
	}

	stats, err := h.Service.Statistics(r.Context(), employeeID, year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "stats_failed", "failed to load statistics", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, stats, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	type typeInfo struct {
		Type           string `json:"type"`
		Name           string `json:"name"`
		HasQuota       bool   `json:"hasQuota"`
		MaxConsecutive int    `json:"maxConsecutive,omitempty"`
		MaxPerMonth    int    `json:"maxPerMonth,omitempty"`
		FixedDays      int    `json:"fixedDays,omitempty"`
		GenderSpecific string `json:"genderSpecific,omitempty"`
	}
	out := make([]typeInfo, 0, len(leave.TypeRules))
	for _, lt := range []string{leave.TypeAnnual, leave.TypeSick, leave.TypeMenstrual, leave.TypeMarriage, leave.TypeMaternity, leave.TypePaternity} {
		rule := leave.TypeRules[lt]
		out = append(out, typeInfo{
			Type:           lt,
			Name:           rule.Name,
			HasQuota:       rule.HasQuota,
			MaxConsecutive: rule.MaxConsecutive,
			MaxPerMonth:    rule.MaxPerMonth,
			FixedDays:      rule.FixedDays,
			GenderSpecific: rule.GenderSpecific,
		})
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

type resetQuotasPayload struct {
	Year int `json:"year"`
}

// handleResetQuotas recomputes every active employee's annual quota for
// the year. Runs through the jobs service and honors Idempotency-Key.
func (h *Handler) handleResetQuotas(w http.ResponseWriter, r *http.Request) {
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
	var payload resetQuotasPayload
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	requestHash := middleware.RequestHash(body)
	if idemKey != "" {
		stored, found, err := h.Idem.Check(r.Context(), user.UserID, "leave.reset-quotas", idemKey, requestHash)
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

	result, err := h.Jobs.RunNow(r.Context(), jobs.JobLeaveQuotaReset, func(runCtx context.Context) (any, error) {
		updated, err := h.Service.ResetQuotas(runCtx, payload.Year)
		return map[string]any{"updated": updated, "year": payload.Year}, err
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "quota_reset_failed", "failed to reset quotas", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "leave.quota.reset", "leave_quota", "", middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, result); err != nil {
		slog.Warn("audit leave.quota.reset failed", "err", err)
	}
	if idemKey != "" {
		response, marshalErr := json.Marshal(result)
		if marshalErr == nil {
			if err := h.Idem.Save(r.Context(), user.UserID, "leave.reset-quotas", idemKey, requestHash, response); err != nil {
				slog.Warn("idempotency save failed", "err", err)
			}
		}
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}
