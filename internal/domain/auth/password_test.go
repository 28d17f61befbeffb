package auth

import (
	"strings"
	"testing"
	"unicode"
)

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		want     string
	}{
		{name: "acceptable", password: "Kw!7xRvq#2Lm", want: ""},
		{name: "too short", password: "Kw!7xRv", want: "at least 8 characters"},
		{name: "no uppercase", password: "kw!7xrvq#2lm", want: "uppercase"},
		{name: "no lowercase", password: "KW!7XRVQ#2LM", want: "lowercase"},
		{name: "no digit", password: "Kw!sxRvq#eLm", want: "number"},
		{name: "no special", password: "Kw77xRvq22Lm", want: "special character"},
		{name: "sequential digits", password: "Kw!123Rvq#Lm", want: "common pattern: 123"},
		{name: "contains password", password: "MyPassword#7x", want: "common pattern: password"},
		{name: "contains admin", password: "SysAdmin#77xQ", want: "common pattern: admin"},
		{name: "repeated characters", password: "Aa!1AAAAAAAA", want: "repeated"},
		{name: "too long", password: "Kw!7x" + strings.Repeat("Qz#4mRtv", 16), want: "less than 128"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			problems := ValidatePassword(tc.password)
			if tc.want == "" {
				if len(problems) != 0 {
					t.Fatalf("expected no problems, got %v", problems)
				}
				return
			}
			found := false
			for _, p := range problems {
				if strings.Contains(p, tc.want) {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("expected problem containing %q, got %v", tc.want, problems)
			}
		})
	}
}

func TestGenerateTempPassword(t *testing.T) {
	for i := 0; i < 20; i++ {
		password, err := GenerateTempPassword(12)
		if err != nil {
			t.Fatalf("GenerateTempPassword: %v", err)
		}
		if len(password) != 12 {
			t.Fatalf("expected length 12, got %d (%q)", len(password), password)
		}

		var hasLower, hasUpper, hasDigit, hasSpecial bool
		for _, r := range password {
			switch {
			case unicode.IsLower(r):
				hasLower = true
			case unicode.IsUpper(r):
				hasUpper = true
			case unicode.IsDigit(r):
				hasDigit = true
			case strings.ContainsRune(specialChars, r):
				hasSpecial = true
			}
		}
		if !hasLower || !hasUpper || !hasDigit || !hasSpecial {
			t.Fatalf("password %q missing a character class", password)
		}
	}
}

func TestGenerateTempPasswordShortLengthFallsBack(t *testing.T) {
	password, err := GenerateTempPassword(4)
	if err != nil {
		t.Fatalf("GenerateTempPassword: %v", err)
	}
	if len(password) != 12 {
		t.Fatalf("expected fallback length 12, got %d", len(password))
	}
}

func TestPasswordStrength(t *testing.T) {
	cases := []struct {
		password string
		want     string
	}{
		{password: "Kw!7xRvq#2Lm", want: "very_strong"},
		{password: "Kw!7xRvq#2", want: "strong"},
		{password: "Kw!7xRvq", want: "medium"},
		{password: "kw7xrvq", want: "weak"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.want, func(t *testing.T) {
			if got := PasswordStrength(tc.password); got != tc.want {
				t.Fatalf("PasswordStrength(%q) = %s, want %s", tc.password, got, tc.want)
			}
		})
	}
}
