package overtimehandler

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

const testSecret = "overtime-handler-test-secret"

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
			Code    string          `json:"code"`
			Details json.RawMessage `json:"details"`
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

func TestSubmitRequiresAuthentication(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	req := httptest.NewRequest(http.MethodPost, "/overtime/requests", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSubmitValidation(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{
			name:     "broken json",
			body:     `{"entries":`,
			wantCode: "invalid_payload",
		},
		{
			name:     "no entries",
			body:     `{"entries":[],"totalHours":0}`,
			wantCode: "validation_error",
		},
		{
			name:     "unparseable entry date",
			body:     `{"entries":[{"date":"15-01-2026","hours":2,"description":"deploy"}],"totalHours":2}`,
			wantCode: "validation_error",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/overtime/requests", strings.NewReader(tc.body))
			req.Header.Set("Authorization", bearerFor(t, auth.LevelStaff))
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

func TestReportRequiresEmployeeRead(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	req := httptest.NewRequest(http.MethodGet, "/overtime/report?month=2026-01", nil)
	req.Header.Set("Authorization", bearerFor(t, auth.LevelStaff))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "forbidden" {
		t.Fatalf("expected forbidden code, got %q", code)
	}
}

func TestPendingApprovalsForbiddenForStaff(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	req := httptest.NewRequest(http.MethodGet, "/overtime/requests/pending", nil)
	req.Header.Set("Authorization", bearerFor(t, auth.LevelStaff))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestResetBalancesForbiddenBelowAdmin(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	for _, level := range []int{auth.LevelStaff, auth.LevelSupervisor, auth.LevelDivisionHead} {
		req := httptest.NewRequest(http.MethodPost, "/admin/overtime/reset-balances", strings.NewReader(`{"month":"2026-01"}`))
		req.Header.Set("Authorization", bearerFor(t, level))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("level %d: expected 403, got %d", level, rec.Code)
		}
	}
}
