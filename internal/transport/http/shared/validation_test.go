package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{name: "plain date", value: "2026-03-02", want: "2026-03-02"},
		{name: "rfc3339", value: "2026-03-02T10:30:00Z", want: "2026-03-02"},
		{name: "empty is zero", value: ""},
		{name: "garbage", value: "02/03/2026", wantErr: true},
		{name: "month only", value: "2026-03", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDate(tc.value)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.want == "" {
				if !got.IsZero() {
					t.Fatalf("expected zero time, got %v", got)
				}
				return
			}
			if got.Format("2006-01-02") != tc.want {
				t.Fatalf("expected %s, got %v", tc.want, got)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{name: "forwarded single hop", forwarded: "203.0.113.7", remoteAddr: "10.0.0.1:1234", want: "203.0.113.7"},
		{name: "forwarded chain uses first", forwarded: "203.0.113.7, 10.0.0.2", remoteAddr: "10.0.0.1:1234", want: "203.0.113.7"},
		{name: "socket peer", remoteAddr: "198.51.100.10:4321", want: "198.51.100.10"},
		{name: "peer without port", remoteAddr: "198.51.100.10", want: "198.51.100.10"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := ClientIP(req); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults", query: "", wantLimit: 50, wantOffset: 0},
		{name: "explicit", query: "limit=10&offset=30", wantLimit: 10, wantOffset: 30},
		{name: "clamped to max", query: "limit=5000", wantLimit: 200, wantOffset: 0},
		{name: "garbage ignored", query: "limit=abc&offset=-5", wantLimit: 50, wantOffset: 0},
		{name: "zero limit ignored", query: "limit=0", wantLimit: 50, wantOffset: 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
			page := ParsePagination(req, 50, 200)
			if page.Limit != tc.wantLimit || page.Offset != tc.wantOffset {
				t.Fatalf("expected limit=%d offset=%d, got %+v", tc.wantLimit, tc.wantOffset, page)
			}
		})
	}
}

func TestValidatorCollectsIssues(t *testing.T) {
	v := NewValidator()
	v.Required("fullName", "  ", "full name is required")
	v.Required("email", "a@example.com", "email is required")
	v.Enum("gender", "FEMALE", []string{"male", "female"}, "gender must be male or female")
	v.Enum("status", "retired", []string{"permanent", "contract"}, "unknown employment status")

	if !v.HasIssues() {
		t.Fatal("expected issues")
	}
	issues := v.Issues()
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d: %+v", len(issues), issues)
	}
	if issues[0].Field != "fullName" || issues[1].Field != "status" {
		t.Fatalf("expected issues sorted by field, got %+v", issues)
	}
}

func TestValidatorDateOrder(t *testing.T) {
	v := NewValidator()
	start, ok := v.Date("startDate", "2026-03-05")
	if !ok {
		t.Fatal("expected valid start date")
	}
	end, ok := v.Date("endDate", "2026-03-02")
	if !ok {
		t.Fatal("expected valid end date")
	}
	v.DateOrder("startDate", start, "endDate", end)

	issues := v.Issues()
	if len(issues) != 2 {
		t.Fatalf("expected an issue on each date field, got %+v", issues)
	}
}

func TestValidatorDateOrderSkipsZeroDates(t *testing.T) {
	v := NewValidator()
	_, _ = v.Date("startDate", "not-a-date")
	end, _ := v.Date("endDate", "2026-03-02")
	v.DateOrder("startDate", time.Time{}, "endDate", end)

	if got := len(v.Issues()); got != 1 {
		t.Fatalf("expected only the parse issue, got %d", got)
	}
}

func TestValidatorReject(t *testing.T) {
	v := NewValidator()
	rec := httptest.NewRecorder()
	if v.Reject(rec, "req-1") {
		t.Fatal("expected no rejection without issues")
	}

	v.Add("leaveType", "leave type is required")
	rec = httptest.NewRecorder()
	if !v.Reject(rec, "req-1") {
		t.Fatal("expected rejection with issues")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []ValidationIssue `json:"fields"`
			} `json:"details"`
		} `json:"error"`
		RequestID string `json:"requestId"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error.Code != "validation_error" || body.RequestID != "req-1" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if len(body.Error.Details.Fields) != 1 || body.Error.Details.Fields[0].Field != "leaveType" {
		t.Fatalf("unexpected issue details: %+v", body.Error.Details.Fields)
	}
}
