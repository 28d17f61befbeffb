package paysliphandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/auth"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/middleware"
)

const testSecret = "payslip-handler-test-secret"

type staticPerms struct{}

func (staticPerms) HasPermission(_ context.Context, level int, permission string) (bool, error) {
	for _, p := range auth.PermissionsForLevel(level) {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(testSecret))
	h.RegisterRoutes(r)
	return r
}

func bearerFor(t *testing.T, level int) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "user-1", EmployeeID: "emp-1", AccessLevel: level, SessionID: "sess-1"}, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return "Bearer " + token
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	return body.Error.Code
}

func TestCreateForbiddenBelowAdmin(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	for _, level := range []int{auth.LevelStaff, auth.LevelSupervisor, auth.LevelDivisionHead} {
		req := httptest.NewRequest(http.MethodPost, "/payslips/", strings.NewReader(`{}`))
		req.Header.Set("Authorization", bearerFor(t, level))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("level %d: expected 403, got %d", level, rec.Code)
		}
	}
}

func TestCreateValidation(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{
			name:     "broken json",
			body:     `{"employeeId":`,
			wantCode: "invalid_payload",
		},
		{
			name:     "missing employee id",
			body:     `{"payPeriod":"2026-01"}`,
			wantCode: "validation_error",
		},
		{
			name:     "missing pay period",
			body:     `{"employeeId":"emp-9"}`,
			wantCode: "validation_error",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/payslips/", strings.NewReader(tc.body))
			req.Header.Set("Authorization", bearerFor(t, auth.LevelAdmin))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if code := errorCode(t, rec); code != tc.wantCode {
				t.Fatalf("expected %s code, got %q", tc.wantCode, code)
			}
		})
	}
}

func TestBulkStatusRequiresIDs(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	req := httptest.NewRequest(http.MethodPost, "/payslips/bulk-status", strings.NewReader(`{"payslipIds":[],"status":"paid"}`))
	req.Header.Set("Authorization", bearerFor(t, auth.LevelAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "invalid_payload" {
		t.Fatalf("expected invalid_payload code, got %q", code)
	}
}

func TestPeriodListingForbiddenForStaff(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	req := httptest.NewRequest(http.MethodGet, "/payslips/?period=2026-01", nil)
	req.Header.Set("Authorization", bearerFor(t, auth.LevelStaff))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "forbidden" {
		t.Fatalf("expected forbidden code, got %q", code)
	}
}

func TestSummaryForbiddenForStaff(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	req := httptest.NewRequest(http.MethodGet, "/payslips/summary?period=2026-01", nil)
	req.Header.Set("Authorization", bearerFor(t, auth.LevelStaff))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
