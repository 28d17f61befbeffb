package orghandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/approval"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/audit"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/auth"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/notifications"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/org"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/api"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/middleware"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/shared"
)

type Handler struct {
	Service  *org.Service
	Resolver *approval.Resolver
	Perms    middleware.PermissionStore
	Notify   *notifications.Service
	Audit    *audit.Service
}

func NewHandler(service *org.Service, resolver *approval.Resolver, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Resolver: resolver, Perms: perms, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleListEmployees)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreateEmployee)
		r.With(middleware.RequireAuth).Get("/me", h.handleGetSelf)
		r.With(middleware.RequireAuth).Get("/{employeeID}", h.handleGetEmployee)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/{employeeID}", h.handleUpdateEmployee)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/{employeeID}/deactivate", h.handleDeactivate)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/{employeeID}/reactivate", h.handleReactivate)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/{employeeID}/supervisor", h.handleAssignSupervisor)
		r.With(middleware.RequireAuth).Get("/{employeeID}/approval-chain", h.handleApprovalChain)
	})
	r.Route("/org", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermOrgRead, h.Perms)).Get("/divisions", h.handleListDivisions)
		r.With(middleware.RequirePermission(auth.PermOrgWrite, h.Perms)).Post("/divisions", h.handleCreateDivision)
		r.With(middleware.RequirePermission(auth.PermOrgWrite, h.Perms)).Put("/divisions/{divisionID}/head", h.handleSetDivisionHead)
		r.With(middleware.RequirePermission(auth.PermOrgWrite, h.Perms)).Delete("/divisions/{divisionID}", h.handleDeleteDivision)
		r.With(middleware.RequirePermission(auth.PermOrgRead, h.Perms)).Get("/roles", h.handleListRoles)
		r.With(middleware.RequirePermission(auth.PermOrgWrite, h.Perms)).Post("/roles", h.handleCreateRole)
		r.With(middleware.RequirePermission(auth.PermOrgWrite, h.Perms)).Delete("/roles/{roleID}", h.handleDeleteRole)
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/supervisors", h.handleListSupervisors)
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/stats", h.handleStats)
		r.With(middleware.RequireAuth).Get("/approval-scope", h.handleApprovalScope)
	})
}

type employeePayload struct {
	FullName            string   `json:"fullName"`
	Email               string   `json:"email"`
	NIP                 string   `json:"nip"`
	Phone               string   `json:"phone"`
	Address             string   `json:"address"`
	DateOfBirth         string   `json:"dateOfBirth"`
	PlaceOfBirth        string   `json:"placeOfBirth"`
	Gender              string   `json:"gender"`
	DivisionID          string   `json:"divisionId"`
	RoleName            string   `json:"roleName"`
	AccessLevel         int      `json:"accessLevel"`
	SupervisorID        string   `json:"supervisorId"`
	JoinDate            string   `json:"joinDate"`
	EmploymentStatus    string   `json:"employmentStatus"`
	BPJSKesehatan       string   `json:"bpjsKesehatan"`
	BPJSKetenagakerjaan string   `json:"bpjsKetenagakerjaan"`
	OvertimeRate        *float64 `json:"overtimeRate"`
	DefaultWFHDays      string   `json:"defaultWfhDays"`
}

func (p employeePayload) toInput() (org.CreateEmployeeInput, error) {
	emp := org.Employee{
		FullName:            strings.TrimSpace(p.FullName),
		Email:               strings.ToLower(strings.TrimSpace(p.Email)),
		NIP:                 strings.TrimSpace(p.NIP),
		Phone:               strings.TrimSpace(p.Phone),
		Address:             strings.TrimSpace(p.Address),
		PlaceOfBirth:        strings.TrimSpace(p.PlaceOfBirth),
		Gender:              strings.ToLower(strings.TrimSpace(p.Gender)),
		DivisionID:          strings.TrimSpace(p.DivisionID),
		AccessLevel:         p.AccessLevel,
		SupervisorID:        strings.TrimSpace(p.SupervisorID),
		EmploymentStatus:    strings.TrimSpace(p.EmploymentStatus),
		BPJSKesehatan:       strings.TrimSpace(p.BPJSKesehatan),
		BPJSKetenagakerjaan: strings.TrimSpace(p.BPJSKetenagakerjaan),
		OvertimeRate:        p.OvertimeRate,
		DefaultWFHDays:      strings.TrimSpace(p.DefaultWFHDays),
	}
	if p.DateOfBirth != "" {
		dob, err := shared.ParseDate(p.DateOfBirth)
		if err != nil {
			return org.CreateEmployeeInput{}, errors.New("invalid dateOfBirth")
		}
		emp.DateOfBirth = &dob
	}
	if p.JoinDate != "" {
		join, err := shared.ParseDate(p.JoinDate)
		if err != nil {
			return org.CreateEmployeeInput{}, errors.New("invalid joinDate")
		}
		emp.JoinDate = &join
	}
	return org.CreateEmployeeInput{Employee: emp, RoleName: strings.TrimSpace(p.RoleName)}, nil
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 100, 500)
	filter := org.ListFilter{
		DivisionID: r.URL.Query().Get("divisionId"),
		ActiveOnly: r.URL.Query().Get("activeOnly") == "true",
		Search:     strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
	employees, total, err := h.Service.ListEmployees(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employees_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}
	for i := range employees {
		org.FilterEmployeeFields(&employees[i], user, employees[i].ID == user.EmployeeID)
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload employeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	in, err := payload.toInput()
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}

	result, err := h.Service.CreateEmployee(r.Context(), in)
	if err != nil {
		h.failEmployeeMutation(w, r, err, "employee_create_failed", "failed to create employee")
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "employee.create", "employee", result.EmployeeID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{
		"fullName":    payload.FullName,
		"email":       payload.Email,
		"accessLevel": payload.AccessLevel,
	}); err != nil {
		slog.Warn("audit employee.create failed", "err", err)
	}
	h.Notify.NotifyUser(r.Context(), result.UserID, notifications.TypeAccountCreated,
		"Welcome to the HR system",
		"Your account is ready. The temporary password from your welcome email must be changed on first sign-in.")

	// The temporary password appears in this response only; the store
	// keeps just its hash.
	api.Created(w, map[string]string{
		"employeeId":   result.EmployeeID,
		"userId":       result.UserID,
		"tempPassword": result.TempPassword,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetSelf(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	emp, err := h.Service.GetEmployee(r.Context(), user.EmployeeID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	org.FilterEmployeeFields(emp, user, true)
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	isSelf := employeeID == user.EmployeeID
	if !isSelf {
		allowed, err := h.Perms.HasPermission(r.Context(), user.AccessLevel, auth.PermEmployeesRead)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", middleware.GetRequestID(r.Context()))
			return
		}
		if !allowed {
			api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", middleware.GetRequestID(r.Context()))
			return
		}
	}

	emp, err := h.Service.GetEmployee(r.Context(), employeeID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	org.FilterEmployeeFields(emp, user, isSelf)
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	var payload employeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	in, err := payload.toInput()
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.UpdateEmployee(r.Context(), employeeID, in); err != nil {
		h.failEmployeeMutation(w, r, err, "employee_update_failed", "failed to update employee")
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "employee.update", "employee", employeeID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit employee.update failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) failEmployeeMutation(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, org.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
	case errors.Is(err, org.ErrDuplicateEmail):
		api.Fail(w, http.StatusConflict, "duplicate_email", "email already in use", requestID)
	case errors.Is(err, org.ErrInvalidAccessLevel), errors.Is(err, org.ErrInvalidGender), errors.Is(err, org.ErrDivisionNotFound):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
	case errors.Is(err, org.ErrSupervisorIneligible):
		api.Fail(w, http.StatusBadRequest, "supervisor_ineligible", err.Error(), requestID)
	case errors.Is(err, org.ErrSupervisorCycle):
		api.Fail(w, http.StatusConflict, "supervisor_cycle", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.handleSetActive(w, r, false)
}

func (h *Handler) handleReactivate(w http.ResponseWriter, r *http.Request) {
	h.handleSetActive(w, r, true)
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request, active bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	var err error
	action, status := "employee.deactivate", "deactivated"
	if active {
		action, status = "employee.reactivate", "reactivated"
		err = h.Service.Reactivate(r.Context(), employeeID)
	} else {
		err = h.Service.Deactivate(r.Context(), employeeID)
	}
	if err != nil {
		if errors.Is(err, org.ErrEmployeeNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to update employee", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, action, "employee", employeeID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
	api.Success(w, map[string]string{"status": status}, middleware.GetRequestID(r.Context()))
}

type assignSupervisorRequest struct {
	SupervisorID string `json:"supervisorId"`
}

func (h *Handler) handleAssignSupervisor(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	var payload assignSupervisorRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.AssignSupervisor(r.Context(), employeeID, strings.TrimSpace(payload.SupervisorID)); err != nil {
		h.failEmployeeMutation(w, r, err, "supervisor_assign_failed", "failed to assign supervisor")
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "employee.supervisor.assign", "employee", employeeID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit employee.supervisor.assign failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "assigned"}, middleware.GetRequestID(r.Context()))
}

type chainLevel struct {
	Level        int    `json:"level"`
	ApproverID   string `json:"approverId"`
	ApproverName string `json:"approverName"`
	ApprovalType string `json:"approvalType"`
}

func (h *Handler) handleApprovalChain(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if employeeID != user.EmployeeID {
		allowed, err := h.Perms.HasPermission(r.Context(), user.AccessLevel, auth.PermEmployeesRead)
		if err != nil || !allowed {
			api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", middleware.GetRequestID(r.Context()))
			return
		}
	}

	first, err := h.Resolver.Resolve(r.Context(), employeeID)
	if err != nil {
		if errors.Is(err, approval.ErrNoApprover) {
			api.Success(w, []chainLevel{}, middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "chain_failed", "failed to resolve approval chain", middleware.GetRequestID(r.Context()))
		return
	}

	chain := []chainLevel{{Level: 1, ApproverID: first.Approver.ID, ApproverName: first.Approver.FullName, ApprovalType: first.Type}}
	if second, err := h.Resolver.Resolve(r.Context(), first.Approver.ID); err == nil && second.Approver.ID != first.Approver.ID {
		chain = append(chain, chainLevel{Level: 2, ApproverID: second.Approver.ID, ApproverName: second.Approver.FullName, ApprovalType: second.Type})
	}
	api.Success(w, chain, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApprovalScope(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	members, err := h.Service.ApprovalScope(r.Context(), user.EmployeeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "scope_failed", "failed to load approval scope", middleware.GetRequestID(r.Context()))
		return
	}
	for i := range members {
		org.FilterEmployeeFields(&members[i], user, false)
	}
	api.Success(w, members, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListDivisions(w http.ResponseWriter, r *http.Request) {
	divisions, err := h.Service.Store.ListDivisions(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "divisions_failed", "failed to list divisions", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, divisions, middleware.GetRequestID(r.Context()))
}

type divisionPayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (h *Handler) handleCreateDivision(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload divisionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if strings.TrimSpace(payload.Code) == "" || strings.TrimSpace(payload.Name) == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "code and name are required", middleware.GetRequestID(r.Context()))
		return
	}

	id, err := h.Service.CreateDivision(r.Context(), strings.ToLower(strings.TrimSpace(payload.Code)), strings.TrimSpace(payload.Name))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "division_create_failed", "failed to create division", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "division.create", "division", id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit division.create failed", "err", err)
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

type divisionHeadRequest struct {
	EmployeeID string `json:"employeeId"`
}

func (h *Handler) handleSetDivisionHead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	divisionID := chi.URLParam(r, "divisionID")
	var payload divisionHeadRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.SetDivisionHead(r.Context(), divisionID, strings.TrimSpace(payload.EmployeeID)); err != nil {
		switch {
		case errors.Is(err, org.ErrDivisionNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "division not found", middleware.GetRequestID(r.Context()))
		case errors.Is(err, org.ErrEmployeeNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "division_head_failed", "failed to set division head", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "division.head.set", "division", divisionID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit division.head.set failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteDivision(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	divisionID := chi.URLParam(r, "divisionID")
	if err := h.Service.DeleteDivision(r.Context(), divisionID); err != nil {
		switch {
		case errors.Is(err, org.ErrDivisionNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "division not found", middleware.GetRequestID(r.Context()))
		case errors.Is(err, org.ErrDivisionNotEmpty):
			api.Fail(w, http.StatusConflict, "division_not_empty", "division still has employees assigned", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "division_delete_failed", "failed to delete division", middleware.GetRequestID(r.Context()))
		}
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "division.delete", "division", divisionID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit division.delete failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.Store.ListRoles(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "roles_failed", "failed to list roles", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, roles, middleware.GetRequestID(r.Context()))
}

type rolePayload struct {
	Name string `json:"name"`
}

func (h *Handler) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload rolePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "name required", middleware.GetRequestID(r.Context()))
		return
	}

	id, err := h.Service.Store.GetOrCreateRole(r.Context(), name)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "role_create_failed", "failed to create role", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "role.create", "role", id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit role.create failed", "err", err)
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	roleID := chi.URLParam(r, "roleID")
	if err := h.Service.DeleteRole(r.Context(), roleID); err != nil {
		if errors.Is(err, org.ErrRoleNotEmpty) {
			api.Fail(w, http.StatusConflict, "role_not_empty", "role still has employees assigned", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "role_delete_failed", "failed to delete role", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "role.delete", "role", roleID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit role.delete failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListSupervisors(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	supervisors, err := h.Service.Store.PotentialSupervisors(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "supervisors_failed", "failed to list supervisors", middleware.GetRequestID(r.Context()))
		return
	}
	for i := range supervisors {
		org.FilterEmployeeFields(&supervisors[i], user, false)
	}
	api.Success(w, supervisors, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Store.Stats(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "stats_failed", "failed to load statistics", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, stats, middleware.GetRequestID(r.Context()))
}
