package audithandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/auth"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/middleware"
)

const testSecret = "audit-handler-test-secret"

type staticPerms struct{}

func (staticPerms) HasPermission(_ context.Context, level int, permission string) (bool, error) {
	for _, p := range auth.PermissionsForLevel(level) {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

func TestEventsRestrictedToAdmin(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(testSecret))
	(&Handler{Perms: staticPerms{}}).RegisterRoutes(r)

	paths := []string{"/audit/events", "/audit/events/export"}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s anonymous: expected 401, got %d", path, rec.Code)
		}

		for _, level := range []int{auth.LevelStaff, auth.LevelSupervisor, auth.LevelDivisionHead} {
			token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "u1", EmployeeID: "e1", AccessLevel: level, SessionID: "s1"}, time.Hour)
			if err != nil {
				t.Fatalf("generate token: %v", err)
			}
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != http.StatusForbidden {
				t.Fatalf("%s level %d: expected 403, got %d", path, level, rec.Code)
			}
		}
	}
}
