package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/app/server"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/config"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/db"
)

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     any             `json:"error"`
	RequestID string          `json:"requestId"`
}

func envelopeErrorCode(env envelope) string {
	m, ok := env.Error.(map[string]any)
	if !ok {
		return ""
	}
	code, _ := m["code"].(string)
	return code
}

// newJourneyServer boots the full application against the database in
// TEST_DATABASE_URL and serves it over httptest. Skips when the
// variable is not set.
func newJourneyServer(t *testing.T) (*server.App, *httptest.Server) {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := config.Config{
		Addr:                 ":0",
		DatabaseURL:          dbURL,
		JWTSecret:            "integration-test-secret",
		DataEncryptionKey:    "0123456789abcdef0123456789abcdef",
		Environment:          "test",
		SeedAdminEmail:       "admin@integration.local",
		SeedAdminPassword:    "ChangeMe123!",
		EmailFrom:            "no-reply@test.local",
		ResetBaseURL:         "https://hr.example.com",
		StorageDriver:        "local",
		StorageDir:           t.TempDir(),
		RunSeed:              true,
		MaxBodyBytes:         1 << 20,
		MaxUploadBytes:       1 << 20,
		RateLimitPerMinute:   1000,
		SessionTTL:           time.Hour,
		SessionSweepInterval: time.Minute,
	}

	ctx := context.Background()
	migratePool, err := db.Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to connect for migrations: %v", err)
	}
	if err := db.Migrate(ctx, migratePool, journeyMigrationsDir(t)); err != nil {
		migratePool.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	migratePool.Close()

	app, err := server.New(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return app, ts
}

// The app resolves "migrations" relative to the working directory, but
// go test runs from the package directory, so the path is rebuilt from
// this file's location instead.
func journeyMigrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to locate test file")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "migrations")
}

func TestLeaveApprovalJourney(t *testing.T) {
	_, ts := newJourneyServer(t)
	client := ts.Client()

	adminToken := login(t, client, ts.URL, "admin@integration.local", "ChangeMe123!")

	suffix := time.Now().UnixNano()
	divisionID := createDivision(t, client, ts.URL, adminToken, fmt.Sprintf("eng-%d", suffix), fmt.Sprintf("Engineering %d", suffix))

	headID, headEmail, headPassword := createEmployee(t, client, ts.URL, adminToken, map[string]any{
		"fullName":    "Journey Head",
		"email":       fmt.Sprintf("journey-head-%d@example.com", suffix),
		"gender":      "female",
		"accessLevel": 2,
		"divisionId":  divisionID,
		"roleName":    "Engineering Lead",
	})
	putJSON(t, client, ts.URL+"/api/v1/org/divisions/"+divisionID+"/head", adminToken, map[string]any{
		"employeeId": headID,
	})

	staffID, _, staffPassword := createEmployee(t, client, ts.URL, adminToken, map[string]any{
		"fullName":    "Journey Staff",
		"email":       fmt.Sprintf("journey-staff-%d@example.com", suffix),
		"gender":      "male",
		"accessLevel": 4,
		"divisionId":  divisionID,
		"roleName":    "Engineer",
	})
	staffEmail := fmt.Sprintf("journey-staff-%d@example.com", suffix)
	staffToken := login(t, client, ts.URL, staffEmail, staffPassword)

	quota := getQuota(t, client, ts.URL, staffToken, "")
	if numField(quota, "quota") != 10 || numField(quota, "used") != 0 || numField(quota, "pending") != 0 {
		t.Fatalf("expected fresh quota 10/0/0, got %+v", quota)
	}

	// Monday and Tuesday at least ten days out, so the request stays in
	// the future and spans exactly two working days.
	start := time.Now().AddDate(0, 0, 10)
	for start.Weekday() != time.Monday {
		start = start.AddDate(0, 0, 1)
	}
	end := start.AddDate(0, 0, 1)

	createResp := postJSON(t, client, ts.URL+"/api/v1/leave/requests", staffToken, map[string]any{
		"leaveType": "annual",
		"startDate": start.Format("2006-01-02"),
		"endDate":   end.Format("2006-01-02"),
		"reason":    "Family trip",
	})
	var created map[string]any
	if err := json.Unmarshal(createResp.Data, &created); err != nil {
		t.Fatalf("failed to decode leave create response: %v", err)
	}
	requestID, _ := created["id"].(string)
	if requestID == "" {
		t.Fatal("expected leave request id")
	}
	if got, _ := created["workingDays"].(float64); got != 2 {
		t.Fatalf("expected 2 working days for Monday to Tuesday, got %v", got)
	}
	if got, _ := created["approverId"].(string); got != headID {
		t.Fatalf("expected division head %s as approver, got %v", headID, got)
	}
	if got, _ := created["approvalType"].(string); got != "division_head" {
		t.Fatalf("expected division_head approval, got %v", got)
	}

	quota = getQuota(t, client, ts.URL, staffToken, "")
	if numField(quota, "pending") != 2 || numField(quota, "available") != 8 {
		t.Fatalf("expected pending=2 available=8 after submission, got %+v", quota)
	}

	selfApprove := postJSONStatus(t, client, ts.URL+"/api/v1/leave/requests/"+requestID+"/approve", staffToken, map[string]any{}, http.StatusForbidden)
	if code := envelopeErrorCode(selfApprove); code != "forbidden" {
		t.Fatalf("expected forbidden for staff approval attempt, got %+v", selfApprove.Error)
	}

	headToken := login(t, client, ts.URL, headEmail, headPassword)
	pending := getList(t, client, ts.URL+"/api/v1/leave/requests/pending", headToken)
	if !containsID(pending, requestID) {
		t.Fatalf("expected request %s in head's pending approvals", requestID)
	}

	approveResp := postJSON(t, client, ts.URL+"/api/v1/leave/requests/"+requestID+"/approve", headToken, map[string]any{
		"comments": "Enjoy",
	})
	var decision map[string]string
	if err := json.Unmarshal(approveResp.Data, &decision); err != nil {
		t.Fatalf("failed to decode approval response: %v", err)
	}
	if decision["status"] != "approved" {
		t.Fatalf("expected approved status, got %s", decision["status"])
	}

	quota = getQuota(t, client, ts.URL, staffToken, "")
	if numField(quota, "used") != 2 || numField(quota, "pending") != 0 || numField(quota, "available") != 8 {
		t.Fatalf("expected used=2 pending=0 available=8 after approval, got %+v", quota)
	}

	// The head holds employees.read and may inspect a report's quota.
	headView := getQuota(t, client, ts.URL, headToken, staffID)
	if numField(headView, "used") != 2 {
		t.Fatalf("expected head to see used=2 for %s, got %+v", staffID, headView)
	}

	// A second decision on the same request must be refused.
	redecide := postJSONStatus(t, client, ts.URL+"/api/v1/leave/requests/"+requestID+"/reject", headToken, map[string]any{}, http.StatusConflict)
	if code := envelopeErrorCode(redecide); code != "already_decided" {
		t.Fatalf("expected already_decided, got %+v", redecide.Error)
	}

	// Staff cannot read another employee's quota.
	foreign := getJSONStatus(t, client, ts.URL+"/api/v1/leave/quota?employeeId="+headID, staffToken, http.StatusForbidden)
	if code := envelopeErrorCode(foreign); code != "forbidden" {
		t.Fatalf("expected forbidden reading another quota, got %+v", foreign.Error)
	}
}

func TestOvertimeAndPayslipJourney(t *testing.T) {
	_, ts := newJourneyServer(t)
	client := ts.Client()

	adminToken := login(t, client, ts.URL, "admin@integration.local", "ChangeMe123!")

	suffix := time.Now().UnixNano()
	divisionID := createDivision(t, client, ts.URL, adminToken, fmt.Sprintf("ops-%d", suffix), fmt.Sprintf("Operations %d", suffix))

	headID, headEmail, headPassword := createEmployee(t, client, ts.URL, adminToken, map[string]any{
		"fullName":    "Overtime Head",
		"email":       fmt.Sprintf("overtime-head-%d@example.com", suffix),
		"gender":      "male",
		"accessLevel": 2,
		"divisionId":  divisionID,
		"roleName":    "Operations Lead",
	})
	putJSON(t, client, ts.URL+"/api/v1/org/divisions/"+divisionID+"/head", adminToken, map[string]any{
		"employeeId": headID,
	})

	rate := 25000.0
	staffEmail := fmt.Sprintf("overtime-staff-%d@example.com", suffix)
	staffID, _, staffPassword := createEmployee(t, client, ts.URL, adminToken, map[string]any{
		"fullName":     "Overtime Staff",
		"email":        staffEmail,
		"gender":       "female",
		"accessLevel":  4,
		"divisionId":   divisionID,
		"roleName":     "Operator",
		"overtimeRate": rate,
	})
	staffToken := login(t, client, ts.URL, staffEmail, staffPassword)

	yesterday := time.Now().AddDate(0, 0, -1)
	dayBefore := time.Now().AddDate(0, 0, -2)
	submitResp := postJSON(t, client, ts.URL+"/api/v1/overtime/requests", staffToken, map[string]any{
		"entries": []map[string]any{
			{"date": dayBefore.Format("2006-01-02"), "hours": 1.5, "description": "Release support"},
			{"date": yesterday.Format("2006-01-02"), "hours": 2.0, "description": "Incident follow-up"},
		},
		"totalHours": 3.5,
		"reason":     "Production release window",
	})
	var submitted map[string]any
	if err := json.Unmarshal(submitResp.Data, &submitted); err != nil {
		t.Fatalf("failed to decode overtime create response: %v", err)
	}
	requestID, _ := submitted["id"].(string)
	if requestID == "" {
		t.Fatal("expected overtime request id")
	}
	if got, _ := submitted["approverId"].(string); got != headID {
		t.Fatalf("expected division head %s as approver, got %v", headID, got)
	}
	if got, _ := submitted["totalHours"].(float64); got != 3.5 {
		t.Fatalf("expected 3.5 total hours, got %v", got)
	}

	// The same dates cannot be submitted twice.
	dup := postJSONStatus(t, client, ts.URL+"/api/v1/overtime/requests", staffToken, map[string]any{
		"entries": []map[string]any{
			{"date": yesterday.Format("2006-01-02"), "hours": 1.0},
		},
		"totalHours": 1.0,
	}, http.StatusBadRequest)
	if code := envelopeErrorCode(dup); code != "invalid_request" {
		t.Fatalf("expected invalid_request for duplicate dates, got %+v", dup.Error)
	}

	headToken := login(t, client, ts.URL, headEmail, headPassword)
	pending := getList(t, client, ts.URL+"/api/v1/overtime/requests/pending", headToken)
	if !containsID(pending, requestID) {
		t.Fatalf("expected request %s in head's pending approvals", requestID)
	}

	approveResp := postJSON(t, client, ts.URL+"/api/v1/overtime/requests/"+requestID+"/approve", headToken, map[string]any{})
	var decision map[string]string
	if err := json.Unmarshal(approveResp.Data, &decision); err != nil {
		t.Fatalf("failed to decode approval response: %v", err)
	}
	if decision["status"] != "approved" {
		t.Fatalf("expected approved status, got %s", decision["status"])
	}

	balanceResp := getJSON(t, client, ts.URL+"/api/v1/overtime/balance", staffToken)
	var balance map[string]any
	if err := json.Unmarshal(balanceResp.Data, &balance); err != nil {
		t.Fatalf("failed to decode balance response: %v", err)
	}
	if numField(balance, "approvedHours") != 3.5 || numField(balance, "balanceHours") != 3.5 {
		t.Fatalf("expected 3.5 approved and unpaid hours, got %+v", balance)
	}

	period := time.Now().Format("2006-01")
	payslipResp := postJSON(t, client, ts.URL+"/api/v1/payslips/", adminToken, map[string]any{
		"employeeId": staffID,
		"payPeriod":  period,
		"components": map[string]any{
			"basicSalary": 9000000,
			"allowances":  500000,
			"overtimePay": 3.5 * rate,
			"incomeTax":   250000,
		},
	})
	var slip map[string]any
	if err := json.Unmarshal(payslipResp.Data, &slip); err != nil {
		t.Fatalf("failed to decode payslip response: %v", err)
	}
	payslipID, _ := slip["id"].(string)
	if payslipID == "" {
		t.Fatal("expected payslip id")
	}
	wantGross := 9000000.0 + 500000.0 + 3.5*rate
	if got := numField(slip, "grossSalary"); got != wantGross {
		t.Fatalf("expected gross %v, got %v", wantGross, got)
	}
	if got := numField(slip, "netSalary"); got != wantGross-250000 {
		t.Fatalf("expected net %v, got %v", wantGross-250000, got)
	}

	mine := getList(t, client, ts.URL+"/api/v1/payslips/", staffToken)
	if !containsID(mine, payslipID) {
		t.Fatalf("expected payslip %s in staff listing", payslipID)
	}

	pdfBody, contentType := getRaw(t, client, ts.URL+"/api/v1/payslips/"+payslipID+"/pdf", staffToken)
	if !strings.HasPrefix(contentType, "application/pdf") {
		t.Fatalf("expected application/pdf, got %s", contentType)
	}
	if !bytes.HasPrefix(pdfBody, []byte("%PDF")) {
		t.Fatalf("expected a PDF document, got %d bytes starting with %q", len(pdfBody), firstBytes(pdfBody, 8))
	}
}

func firstBytes(data []byte, n int) []byte {
	if len(data) < n {
		return data
	}
	return data[:n]
}

func numField(m map[string]any, key string) float64 {
	v, _ := m[key].(float64)
	return v
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatal("expected token")
	}
	return token
}

func createDivision(t *testing.T, client *http.Client, baseURL, token, code, name string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/org/divisions", token, map[string]any{
		"code": code,
		"name": name,
	})
	var payload map[string]string
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode division response: %v", err)
	}
	if payload["id"] == "" {
		t.Fatal("expected division id")
	}
	return payload["id"]
}

// createEmployee provisions the employee through the API and returns
// the id, email and the one-time temporary password from the response.
func createEmployee(t *testing.T, client *http.Client, baseURL, token string, body map[string]any) (string, string, string) {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/employees/", token, body)
	var payload map[string]string
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode employee response: %v", err)
	}
	if payload["employeeId"] == "" {
		t.Fatal("expected employee id")
	}
	if payload["tempPassword"] == "" {
		t.Fatal("expected temporary password")
	}
	email, _ := body["email"].(string)
	return payload["employeeId"], email, payload["tempPassword"]
}

func getQuota(t *testing.T, client *http.Client, baseURL, token, employeeID string) map[string]any {
	t.Helper()
	url := baseURL + "/api/v1/leave/quota"
	if employeeID != "" {
		url += "?employeeId=" + employeeID
	}
	resp := getJSON(t, client, url, token)
	var quota map[string]any
	if err := json.Unmarshal(resp.Data, &quota); err != nil {
		t.Fatalf("failed to decode quota response: %v", err)
	}
	return quota
}

func getList(t *testing.T, client *http.Client, url, token string) []map[string]any {
	t.Helper()
	resp := getJSON(t, client, url, token)
	var items []map[string]any
	if err := json.Unmarshal(resp.Data, &items); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	return items
}

func containsID(items []map[string]any, id string) bool {
	for _, item := range items {
		if got, _ := item["id"].(string); got == id {
			return true
		}
	}
	return false
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	return resp, raw
}

func decodeEnvelope(t *testing.T, raw []byte) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response envelope: %v", err)
	}
	return env
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	resp, raw := doJSON(t, client, http.MethodPost, url, token, body)
	if resp.StatusCode >= 400 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	return decodeEnvelope(t, raw)
}

func postJSONStatus(t *testing.T, client *http.Client, url, token string, body any, want int) envelope {
	t.Helper()
	resp, raw := doJSON(t, client, http.MethodPost, url, token, body)
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, string(raw))
	}
	return decodeEnvelope(t, raw)
}

func putJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	resp, raw := doJSON(t, client, http.MethodPut, url, token, body)
	if resp.StatusCode >= 400 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	return decodeEnvelope(t, raw)
}

func getJSON(t *testing.T, client *http.Client, url, token string) envelope {
	t.Helper()
	resp, raw := doJSON(t, client, http.MethodGet, url, token, nil)
	if resp.StatusCode >= 400 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	return decodeEnvelope(t, raw)
}

func getJSONStatus(t *testing.T, client *http.Client, url, token string, want int) envelope {
	t.Helper()
	resp, raw := doJSON(t, client, http.MethodGet, url, token, nil)
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, string(raw))
	}
	return decodeEnvelope(t, raw)
}

func getRaw(t *testing.T, client *http.Client, url, token string) ([]byte, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, string(raw))
	}
	return raw, resp.Header.Get("Content-Type")
}
