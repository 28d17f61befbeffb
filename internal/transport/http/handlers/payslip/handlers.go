package paysliphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/audit"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/auth"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/notifications"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/org"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/payslip"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/storage"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/api"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/middleware"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/shared"
)

type Handler struct {
	Service *payslip.Service
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
}

func NewHandler(service *payslip.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payslips", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPayslipsWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermPayslipsRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermPayslipsRead, h.Perms)).Get("/stats", h.handleStats)
		r.With(middleware.RequirePermission(auth.PermPayslipsWrite, h.Perms)).Get("/summary", h.handleSummary)
		r.With(middleware.RequirePermission(auth.PermPayslipsWrite, h.Perms)).Post("/bulk-status", h.handleBulkStatus)
		r.With(middleware.RequirePermission(auth.PermPayslipsRead, h.Perms)).Get("/{payslipID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermPayslipsWrite, h.Perms)).Put("/{payslipID}/status", h.handleUpdateStatus)
		r.With(middleware.RequirePermission(auth.PermPayslipsWrite, h.Perms)).Delete("/{payslipID}", h.handleDelete)
		r.With(middleware.RequirePermission(auth.PermPayslipsRead, h.Perms)).Get("/{payslipID}/pdf", h.handlePDF)
	})
}

type createPayload struct {
	EmployeeID string             `json:"employeeId"`
	PayPeriod  string             `json:"payPeriod"`
	Components payslip.Components `json:"components"`
	Notes      string             `json:"notes"`
	MarkPaid   bool               `json:"markPaid"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employee id is required")
	v.Required("payPeriod", payload.PayPeriod, "pay period is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.Create(r.Context(), payslip.CreateInput{
		EmployeeID: strings.TrimSpace(payload.EmployeeID),
		PayPeriod:  strings.TrimSpace(payload.PayPeriod),
		Components: payload.Components,
		Notes:      payload.Notes,
		CreatedBy:  user.UserID,
		MarkPaid:   payload.MarkPaid,
	})
	if err != nil {
		switch {
		case errors.Is(err, payslip.ErrInvalidPeriod):
			api.Fail(w, http.StatusBadRequest, "invalid_period", err.Error(), middleware.GetRequestID(r.Context()))
		case errors.Is(err, payslip.ErrNegativeAmount):
			api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), middleware.GetRequestID(r.Context()))
		case errors.Is(err, payslip.ErrDuplicatePeriod):
			api.Fail(w, http.StatusConflict, "duplicate_period", "a payslip already exists for this employee and period", middleware.GetRequestID(r.Context()))
		case errors.Is(err, org.ErrEmployeeNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "payslip_create_failed", "failed to create payslip", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "payslip.create", "payslip", created.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{
		"employeeId": created.EmployeeID,
		"payPeriod":  created.PayPeriod,
		"netSalary":  created.NetSalary,
		"status":     created.Status,
	}); err != nil {
		slog.Warn("audit payslip.create failed", "err", err)
	}
	h.Notify.NotifyEmployee(r.Context(), created.EmployeeID, notifications.TypePayslipPublished,
		"Payslip available",
		fmt.Sprintf("Your payslip for %s is available.", created.PayPeriod))

	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	if period := r.URL.Query().Get("period"); period != "" {
		allowed, err := h.Perms.HasPermission(r.Context(), user.AccessLevel, auth.PermPayslipsWrite)
		if err != nil || !allowed {
			api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", middleware.GetRequestID(r.Context()))
			return
		}
		payslips, err := h.Service.PeriodPayslips(r.Context(), period, r.URL.Query().Get("divisionId"))
		if err != nil {
			if errors.Is(err, payslip.ErrInvalidPeriod) {
				api.Fail(w, http.StatusBadRequest, "invalid_period", err.Error(), middleware.GetRequestID(r.Context()))
				return
			}
			api.Fail(w, http.StatusInternalServerError, "payslips_failed", "failed to list payslips", middleware.GetRequestID(r.Context()))
			return
		}
		api.Success(w, payslips, middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := r.URL.Query().Get("employeeId")
	if employeeID == "" {
		employeeID = user.EmployeeID
	}
	if employeeID != user.EmployeeID {
		allowed, err := h.Perms.HasPermission(r.Context(), user.AccessLevel, auth.PermPayslipsWrite)
		if err != nil || !allowed {
			api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", middleware.GetRequestID(r.Context()))
			return
		}
	}

	page := shared.ParsePagination(r, 24, 120)
	payslips, err := h.Service.EmployeePayslips(r.Context(), employeeID, page.Limit)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payslips_failed", "failed to list payslips", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, payslips, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	p, err := h.Service.Get(r.Context(), chi.URLParam(r, "payslipID"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "payslip not found", middleware.GetRequestID(r.Context()))
		return
	}
	if p.EmployeeID != user.EmployeeID {
		allowed, err := h.Perms.HasPermission(r.Context(), user.AccessLevel, auth.PermPayslipsWrite)
		if err != nil || !allowed {
			api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
			return
		}
	}
	api.Success(w, p, middleware.GetRequestID(r.Context()))
}

type statusPayload struct {
	Status string `json:"status"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload statusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	payslipID := chi.URLParam(r, "payslipID")
	if err := h.Service.UpdateStatus(r.Context(), payslipID, payload.Status, user.UserID); err != nil {
		switch {
		case errors.Is(err, payslip.ErrPayslipNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "payslip not found", middleware.GetRequestID(r.Context()))
		case errors.Is(err, payslip.ErrInvalidStatus):
			api.Fail(w, http.StatusBadRequest, "invalid_status", err.Error(), middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "payslip_update_failed", "failed to update payslip", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "payslip.status.update", "payslip", payslipID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]string{"status": payload.Status}); err != nil {
		slog.Warn("audit payslip.status.update failed", "err", err)
	}
	api.Success(w, map[string]string{"status": payload.Status}, middleware.GetRequestID(r.Context()))
}

type bulkStatusPayload struct {
	PayslipIDs []string `json:"payslipIds"`
	Status     string   `json:"status"`
}

func (h *Handler) handleBulkStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload bulkStatusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if len(payload.PayslipIDs) == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "payslipIds is required", middleware.GetRequestID(r.Context()))
		return
	}

	updated, err := h.Service.BulkUpdateStatus(r.Context(), payload.PayslipIDs, payload.Status, user.UserID)
	if err != nil {
		if errors.Is(err, payslip.ErrInvalidStatus) {
			api.Fail(w, http.StatusBadRequest, "invalid_status", err.Error(), middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "payslip_update_failed", "failed to update payslips", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "payslip.status.bulk", "payslip", "", middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{
		"status":    payload.Status,
		"requested": len(payload.PayslipIDs),
		"updated":   updated,
	}); err != nil {
		slog.Warn("audit payslip.status.bulk failed", "err", err)
	}
	api.Success(w, map[string]any{"updated": updated, "status": payload.Status}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	payslipID := chi.URLParam(r, "payslipID")
	if err := h.Service.Delete(r.Context(), payslipID); err != nil {
		if errors.Is(err, payslip.ErrPayslipNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "payslip not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "payslip_delete_failed", "failed to delete payslip", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "payslip.delete", "payslip", payslipID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit payslip.delete failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := r.URL.Query().Get("employeeId")
	if employeeID == "" && user.AccessLevel != auth.LevelAdmin {
		employeeID = user.EmployeeID
	}
	if employeeID != user.EmployeeID {
		allowed, err := h.Perms.HasPermission(r.Context(), user.AccessLevel, auth.PermPayslipsWrite)
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

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.PayrollSummary(r.Context(), r.URL.Query().Get("period"), r.URL.Query().Get("divisionId"))
	if err != nil {
		if errors.Is(err, payslip.ErrInvalidPeriod) {
			api.Fail(w, http.StatusBadRequest, "invalid_period", err.Error(), middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "summary_failed", "failed to build summary", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

// handlePDF hands out a signed link to the rendered payslip, falling
// back to streaming when the storage backend cannot sign URLs.
func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	payslipID := chi.URLParam(r, "payslipID")
	p, err := h.Service.Get(r.Context(), payslipID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "payslip not found", middleware.GetRequestID(r.Context()))
		return
	}
	if p.EmployeeID != user.EmployeeID {
		allowed, err := h.Perms.HasPermission(r.Context(), user.AccessLevel, auth.PermPayslipsWrite)
		if err != nil || !allowed {
			api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
			return
		}
	}

	url, err := h.Service.PDFURL(r.Context(), payslipID)
	if err == nil {
		api.Success(w, map[string]string{"url": url}, middleware.GetRequestID(r.Context()))
		return
	}
	if !errors.Is(err, storage.ErrSignedURLUnsupported) {
		api.Fail(w, http.StatusInternalServerError, "pdf_failed", "failed to render payslip document", middleware.GetRequestID(r.Context()))
		return
	}

	data, contentType, err := h.Service.DownloadPDF(r.Context(), payslipID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "pdf_failed", "failed to render payslip document", middleware.GetRequestID(r.Context()))
		return
	}
	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=payslip-%s-%s.pdf", p.EmployeeID, p.PayPeriod))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Warn("payslip pdf write failed", "payslipId", payslipID, "err", err)
	}
}
