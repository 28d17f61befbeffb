package orghandler

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

const testSecret = "org-handler-test-secret"

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

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	return body.Error.Code, body.Error.Message
}

func TestCreateEmployeeForbiddenBelowAdmin(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	for _, level := range []int{auth.LevelStaff, auth.LevelSupervisor, auth.LevelDivisionHead} {
		req := httptest.NewRequest(http.MethodPost, "/employees/", strings.NewReader(`{}`))
		req.Header.Set("Authorization", bearerFor(t, level))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("level %d: expected 403, got %d", level, rec.Code)
		}
	}
}

func TestCreateEmployeeRejectsBadDates(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	tests := []struct {
		name        string
		body        string
		wantMessage string
	}{
		{
			name:        "bad date of birth",
			body:        `{"fullName":"A","email":"a@example.com","dateOfBirth":"31-12-1990"}`,
			wantMessage: "invalid dateOfBirth",
		},
		{
			name:        "bad join date",
			body:        `{"fullName":"A","email":"a@example.com","joinDate":"not-a-date"}`,
			wantMessage: "invalid joinDate",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/employees/", strings.NewReader(tc.body))
			req.Header.Set("Authorization", bearerFor(t, auth.LevelAdmin))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			code, message := errorMessage(t, rec)
			if code != "invalid_payload" || message != tc.wantMessage {
				t.Fatalf("expected invalid_payload %q, got %s %q", tc.wantMessage, code, message)
			}
		})
	}
}

func TestListEmployeesForbiddenForStaff(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	req := httptest.NewRequest(http.MethodGet, "/employees/", nil)
	req.Header.Set("Authorization", bearerFor(t, auth.LevelStaff))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestDivisionWriteForbiddenBelowAdmin(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	for _, level := range []int{auth.LevelStaff, auth.LevelSupervisor, auth.LevelDivisionHead} {
		req := httptest.NewRequest(http.MethodPost, "/org/divisions", strings.NewReader(`{"name":"Finance"}`))
		req.Header.Set("Authorization", bearerFor(t, level))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("level %d: expected 403, got %d", level, rec.Code)
		}
	}
}

func TestSelfLookupRequiresAuth(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	req := httptest.NewRequest(http.MethodGet, "/employees/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
